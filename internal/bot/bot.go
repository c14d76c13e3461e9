package bot

import (
	"context"
	"fmt"
	"strings"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"github.com/xaenox/focusguard/internal/focus"
	"github.com/xaenox/focusguard/internal/models"
)

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// Bot answers focus commands and relays distraction notifications to the
// chats watching a username.
type Bot struct {
	api    *tgbotapi.BotAPI
	sender sender
	svc    *focus.Service
	logger *zap.Logger

	mu       sync.RWMutex
	watchers map[string]map[int64]struct{}
	watching map[int64]string
}

func New(token string, svc *focus.Service, logger *zap.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	b := newBot(api, svc, logger)
	b.api = api
	return b, nil
}

func newBot(s sender, svc *focus.Service, logger *zap.Logger) *Bot {
	return &Bot{
		sender:   s,
		svc:      svc,
		logger:   logger,
		watchers: make(map[string]map[int64]struct{}),
		watching: make(map[int64]string),
	}
}

// Start polls for updates until ctx is done.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.logger.Info("Telegram bot started", zap.String("bot", b.api.Self.UserName))

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil {
				continue
			}
			go b.handleMessage(ctx, update.Message)
		}
	}
}

// Push sends the notification to every chat watching the username.
func (b *Bot) Push(_ context.Context, username string, n *models.NotificationEvent) error {
	b.mu.RLock()
	chats := make([]int64, 0, len(b.watchers[username]))
	for chatID := range b.watchers[username] {
		chats = append(chats, chatID)
	}
	b.mu.RUnlock()

	var firstErr error
	for _, chatID := range chats {
		if _, err := b.sender.Send(tgbotapi.NewMessage(chatID, n.Message)); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to send notification to chat %d: %w", chatID, err)
		}
	}
	return firstErr
}

func (b *Bot) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	// Handle commands
	if message.IsCommand() {
		b.handleCommand(ctx, message)
		return
	}

	// Plain text is treated as a window title to classify
	if strings.TrimSpace(message.Text) == "" {
		return
	}
	b.sendClassification(ctx, message.Chat.ID, message.MessageID, message.Text)
}

func (b *Bot) handleCommand(ctx context.Context, message *tgbotapi.Message) {
	switch message.Command() {
	case "start":
		b.handleStart(message)
	case "help":
		b.handleHelp(message)
	case "watch":
		b.handleWatch(ctx, message)
	case "stats":
		b.handleStats(ctx, message)
	case "progress":
		b.handleProgress(ctx, message)
	case "classify":
		b.handleClassify(ctx, message)
	default:
		b.sendMessage(message.Chat.ID, "Unknown command. Use /help to see available commands.")
	}
}

func (b *Bot) handleStart(message *tgbotapi.Message) {
	welcome := `Welcome to FocusGuard! 🎯
I keep an eye on your focus sessions and tell you when you drift off.

Link this chat to your account with /watch <username>.
Use /help to see all available commands.`

	b.sendMessage(message.Chat.ID, welcome)
}

func (b *Bot) handleHelp(message *tgbotapi.Message) {
	help := `Available commands:
/start - Start the bot
/help - Show this help message
/watch <username> - Receive distraction alerts for a user
/stats - Show distraction stats for the watched user
/progress - Show focus streaks of the last week
/classify <title> - Classify a window title

Any other text is classified as a window title.`

	b.sendMessage(message.Chat.ID, help)
}

func (b *Bot) handleWatch(ctx context.Context, message *tgbotapi.Message) {
	username := strings.TrimSpace(message.CommandArguments())
	if username == "" {
		b.sendMessage(message.Chat.ID, "Usage: /watch <username>")
		return
	}
	if _, err := b.svc.EnsureUser(ctx, username); err != nil {
		b.logger.Error("Failed to ensure user",
			zap.Error(err),
			zap.String("username", username))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't link that user.")
		return
	}

	b.watch(message.Chat.ID, username)
	b.sendMessage(message.Chat.ID, fmt.Sprintf("Watching %s. Distraction alerts will show up here.", username))
}

func (b *Bot) watch(chatID int64, username string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if previous, ok := b.watching[chatID]; ok {
		delete(b.watchers[previous], chatID)
		if len(b.watchers[previous]) == 0 {
			delete(b.watchers, previous)
		}
	}
	if b.watchers[username] == nil {
		b.watchers[username] = make(map[int64]struct{})
	}
	b.watchers[username][chatID] = struct{}{}
	b.watching[chatID] = username
}

func (b *Bot) watchedUser(chatID int64) (string, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	username, ok := b.watching[chatID]
	return username, ok
}

func (b *Bot) handleStats(ctx context.Context, message *tgbotapi.Message) {
	username, ok := b.watchedUser(message.Chat.ID)
	if !ok {
		b.sendMessage(message.Chat.ID, "No user linked yet. Use /watch <username> first.")
		return
	}

	stats, err := b.svc.DistractionStats(ctx, username)
	if err != nil {
		b.logger.Error("Failed to get distraction stats",
			zap.Error(err),
			zap.String("username", username))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve the stats.")
		return
	}

	response := fmt.Sprintf("*Stats for %s*\n", escapeMarkdown(username))
	response += fmt.Sprintf("Distractions: %d\n", stats.CurrentCount)
	response += fmt.Sprintf("Next alert: %s\n", escapeMarkdown(string(stats.NextTier)))
	if stats.LastDistractingWindow != "" {
		response += fmt.Sprintf("Last window: _%s_\n", escapeMarkdown(stats.LastDistractingWindow))
	}

	msg := tgbotapi.NewMessage(message.Chat.ID, response)
	msg.ParseMode = "MarkdownV2"
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send stats message",
			zap.Error(err),
			zap.Int64("chat_id", message.Chat.ID))
	}
}

func (b *Bot) handleProgress(ctx context.Context, message *tgbotapi.Message) {
	username, ok := b.watchedUser(message.Chat.ID)
	if !ok {
		b.sendMessage(message.Chat.ID, "No user linked yet. Use /watch <username> first.")
		return
	}

	progress, err := b.svc.Progress(ctx, username, 7)
	if err != nil {
		b.logger.Error("Failed to get progress",
			zap.Error(err),
			zap.String("username", username))
		b.sendErrorMessage(message.Chat.ID, "Sorry, I couldn't retrieve the progress.")
		return
	}

	response := fmt.Sprintf("Progress for %s 🔥\n", username)
	response += fmt.Sprintf("Current streak: %d days\n", progress.CurrentStreak)
	response += fmt.Sprintf("Longest streak: %d days\n", progress.LongestStreak)
	response += fmt.Sprintf("Focus time this week: %d min", progress.TotalFocusTime)
	b.sendMessage(message.Chat.ID, response)
}

func (b *Bot) handleClassify(ctx context.Context, message *tgbotapi.Message) {
	title := strings.TrimSpace(message.CommandArguments())
	if title == "" {
		b.sendMessage(message.Chat.ID, "Usage: /classify <window title>")
		return
	}
	b.sendClassification(ctx, message.Chat.ID, message.MessageID, title)
}

func (b *Bot) sendClassification(ctx context.Context, chatID int64, replyToID int, title string) {
	result := b.svc.Classify(ctx, title)

	formattedCategory := escapeMarkdown("#" + string(result.Category))
	text := fmt.Sprintf("*Category:* %s\n", formattedCategory)
	text += fmt.Sprintf("*Confidence:* %s\n", escapeMarkdown(fmt.Sprintf("%.2f", result.Confidence)))
	if result.IsDistraction {
		text += "*Distraction:* yes\n"
	} else {
		text += "*Distraction:* no\n"
	}
	text += fmt.Sprintf("\n_%s_", escapeMarkdown(result.Reasoning))

	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = "MarkdownV2"
	msg.ReplyToMessageID = replyToID

	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send classification response",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

// escapeMarkdown escapes the characters reserved by MarkdownV2.
func escapeMarkdown(text string) string {
	specialChars := []string{"\\", "_", "*", "[", "]", "(", ")", "~", "`", ">", "#", "+", "-", "=", "|", "{", "}", ".", "!"}
	escaped := text
	for _, char := range specialChars {
		escaped = strings.ReplaceAll(escaped, char, "\\"+char)
	}
	return escaped
}

func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}

func (b *Bot) sendErrorMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, "⚠️ "+text)
	if _, err := b.sender.Send(msg); err != nil {
		b.logger.Error("Failed to send error message",
			zap.Error(err),
			zap.Int64("chat_id", chatID))
	}
}
