package classifier

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/xaenox/focusguard/internal/models"
)

const minTitleLength = 3

// Voter names used in ballots and reasoning.
const (
	VoterPattern    = "pattern"
	VoterSemantic   = "semantic"
	VoterLinguistic = "linguistic"
)

// Classifier turns a window title into a ClassificationResult.
type Classifier interface {
	Classify(ctx context.Context, title string) models.ClassificationResult
}

// Engine combines the override list, the pattern, semantic and linguistic
// voters and the sentiment analyzer. It holds no per-call state and is safe
// for concurrent use.
type Engine struct {
	pattern   *PatternClassifier
	semantic  *SemanticClassifier
	sentiment SentimentAnalyzer
	overrides []Override
	ensemble  bool
	logger    *zap.Logger
}

type EngineConfig struct {
	// Ensemble adds the sentiment-based linguistic voter.
	Ensemble  bool
	Whitelist []string
}

// NewEngine wires the voters. semantic may be nil when no embedding
// capability is configured; sentiment nil means the lexicon analyzer.
func NewEngine(pattern *PatternClassifier, semantic *SemanticClassifier, sentiment SentimentAnalyzer, cfg EngineConfig, logger *zap.Logger) *Engine {
	if pattern == nil {
		pattern = NewPatternClassifier()
	}
	if sentiment == nil {
		sentiment = NewSentimentAnalyzer(nil, 0, DefaultMaxTextLength, logger)
	}
	return &Engine{
		pattern:   pattern,
		semantic:  semantic,
		sentiment: sentiment,
		overrides: DefaultOverrides(cfg.Whitelist),
		ensemble:  cfg.Ensemble,
		logger:    logger,
	}
}

func (e *Engine) Classify(ctx context.Context, title string) models.ClassificationResult {
	trimmed := strings.TrimSpace(title)
	if utf8.RuneCountInString(trimmed) < minTitleLength {
		return models.ClassificationResult{
			Category:   models.CategoryNeutral,
			Confidence: 0.5,
			Sentiment:  models.SentimentNeutral,
			Reasoning:  "title too short",
		}
	}

	content := extractTabContent(trimmed)
	sentiment := e.analyzeSentiment(ctx, content)

	if o, ok := firstOverride(e.overrides, trimmed); ok {
		return models.ClassificationResult{
			Category:       o.Category,
			Confidence:     o.Confidence,
			IsDistraction:  false,
			Sentiment:      sentiment.Label,
			SentimentScore: sentiment.Polarity,
			Reasoning:      "override: " + o.Name,
		}
	}

	ballots, primary := e.collectBallots(ctx, content, sentiment)
	category, confidence, tieBroken := Vote(ballots, primary)

	isDistraction := category.IsDistracting()
	if category.IsSafe() {
		isDistraction = false
		confidence = max(confidence, 0.8)
	}

	return models.ClassificationResult{
		Category:       category,
		Confidence:     confidence,
		IsDistraction:  isDistraction,
		Sentiment:      sentiment.Label,
		SentimentScore: sentiment.Polarity,
		Reasoning:      reasoning(ballots, category, primary, tieBroken),
	}
}

func (e *Engine) collectBallots(ctx context.Context, content string, sentiment SentimentScore) ([]Ballot, string) {
	ballots := make([]Ballot, 0, 3)
	primary := VoterPattern

	category, conf := e.pattern.Classify(content)
	ballots = append(ballots, Ballot{Voter: VoterPattern, Category: category.Canonical(), Confidence: conf})

	if e.semantic != nil {
		res := e.semantic.Classify(ctx, content)
		if !res.Degraded {
			ballots = append(ballots, Ballot{Voter: VoterSemantic, Category: res.Category, Confidence: res.Confidence})
			primary = VoterSemantic
		}
	}

	if e.ensemble {
		category, conf := linguisticVote(sentiment)
		ballots = append(ballots, Ballot{Voter: VoterLinguistic, Category: category, Confidence: conf})
	}
	return ballots, primary
}

func (e *Engine) analyzeSentiment(ctx context.Context, text string) SentimentScore {
	score, err := e.sentiment.Analyze(ctx, text)
	if err != nil {
		e.logger.Debug("Sentiment analysis failed", zap.Error(err))
		return SentimentScore{Label: models.SentimentNeutral}
	}
	return score
}

func reasoning(ballots []Ballot, winner models.Category, primary string, tieBroken bool) string {
	parts := make([]string, 0, len(ballots))
	for _, b := range ballots {
		parts = append(parts, fmt.Sprintf("%s=%s(%.2f)", b.Voter, b.Category, b.Confidence))
	}
	text := fmt.Sprintf("votes: %s; winner %s", strings.Join(parts, ", "), winner)
	if tieBroken {
		text += " by tie-break (" + primary + ")"
	}
	if winner.IsSafe() {
		text += "; safe category, never a distraction"
	}
	return text
}
