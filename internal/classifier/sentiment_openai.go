package classifier

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"

	"github.com/xaenox/focusguard/internal/models"
)

type openAISentimentResponse struct {
	Label        string  `json:"label"`
	Polarity     float64 `json:"polarity"`
	Subjectivity float64 `json:"subjectivity"`
}

// OpenAISentiment asks a chat model to score a window title.
type OpenAISentiment struct {
	client      *openai.Client
	model       string
	maxTokens   int
	temperature float64
}

func NewOpenAISentiment(apiKey, model string, maxTokens int, temperature float64) *OpenAISentiment {
	return &OpenAISentiment{
		client:      openai.NewClient(apiKey),
		model:       model,
		maxTokens:   maxTokens,
		temperature: temperature,
	}
}

func (s *OpenAISentiment) Analyze(ctx context.Context, text string) (SentimentScore, error) {
	prompt := fmt.Sprintf(`Rate the sentiment of the following window title.

Return the response as a JSON object with this structure:
{
    "label": "positive" | "negative" | "neutral",
    "polarity": number between -1 and 1,
    "subjectivity": number between 0 and 1
}

Title: %s`, text)

	resp, err := s.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model: s.model,
			Messages: []openai.ChatCompletionMessage{
				{
					Role:    openai.ChatMessageRoleUser,
					Content: prompt,
				},
			},
			MaxTokens:   s.maxTokens,
			Temperature: float32(s.temperature),
			ResponseFormat: &openai.ChatCompletionResponseFormat{
				Type: openai.ChatCompletionResponseFormatTypeJSONObject,
			},
		},
	)
	if err != nil {
		return SentimentScore{}, fmt.Errorf("failed to get sentiment response: %w", err)
	}
	if len(resp.Choices) == 0 {
		return SentimentScore{}, errors.New("empty sentiment response")
	}

	return parseSentimentResponse(resp.Choices[0].Message.Content)
}

func parseSentimentResponse(content string) (SentimentScore, error) {
	var parsed openAISentimentResponse
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &parsed); err != nil {
		return SentimentScore{}, fmt.Errorf("failed to parse sentiment response: %w", err)
	}

	score := SentimentScore{
		Polarity:     clampSigned(parsed.Polarity),
		Subjectivity: clamp01(parsed.Subjectivity),
	}
	switch models.Sentiment(strings.ToLower(parsed.Label)) {
	case models.SentimentPositive:
		score.Label = models.SentimentPositive
	case models.SentimentNegative:
		score.Label = models.SentimentNegative
	case models.SentimentNeutral:
		score.Label = models.SentimentNeutral
	default:
		score.Label = labelFor(score.Polarity)
	}
	return score, nil
}
