package classifier

import (
	"context"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/xaenox/focusguard/internal/models"
)

// DefaultMaxTextLength bounds text handed to sentiment analyzers.
const DefaultMaxTextLength = 512

// SentimentScore is the polarity (-1..1) and subjectivity (0..1) of a text.
type SentimentScore struct {
	Label        models.Sentiment `json:"label"`
	Polarity     float64          `json:"polarity"`
	Subjectivity float64          `json:"subjectivity"`
}

type SentimentAnalyzer interface {
	Analyze(ctx context.Context, text string) (SentimentScore, error)
}

// Sentiment providers accepted by NewSentimentAnalyzer.
const (
	SentimentProviderLexicon = "lexicon"
	SentimentProviderOpenAI  = "openai"
)

// NewSentimentAnalyzer picks the analyzer once. A non-nil preferred analyzer
// is wrapped so that a failed call falls back to the lexicon analyzer.
func NewSentimentAnalyzer(preferred SentimentAnalyzer, timeout time.Duration, maxLen int, logger *zap.Logger) SentimentAnalyzer {
	if maxLen <= 0 {
		maxLen = DefaultMaxTextLength
	}
	lexicon := NewLexiconSentiment()
	if preferred == nil {
		return &truncatingSentiment{inner: lexicon, maxLen: maxLen}
	}
	return &truncatingSentiment{
		maxLen: maxLen,
		inner: &fallbackSentiment{
			preferred: preferred,
			fallback:  lexicon,
			timeout:   timeout,
			health:    newCapabilityHealth("sentiment", logger),
		},
	}
}

type truncatingSentiment struct {
	inner  SentimentAnalyzer
	maxLen int
}

func (s *truncatingSentiment) Analyze(ctx context.Context, text string) (SentimentScore, error) {
	return s.inner.Analyze(ctx, truncateRunes(text, s.maxLen))
}

type fallbackSentiment struct {
	preferred SentimentAnalyzer
	fallback  SentimentAnalyzer
	timeout   time.Duration
	health    *capabilityHealth
}

func (s *fallbackSentiment) Analyze(ctx context.Context, text string) (SentimentScore, error) {
	callCtx := ctx
	if s.timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	score, err := s.preferred.Analyze(callCtx, text)
	if err != nil {
		s.health.failed(err)
		return s.fallback.Analyze(ctx, text)
	}
	s.health.succeeded()
	return score, nil
}

func truncateRunes(text string, n int) string {
	if n <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= n {
		return text
	}
	return string(runes[:n])
}

func labelFor(polarity float64) models.Sentiment {
	switch {
	case polarity > 0.1:
		return models.SentimentPositive
	case polarity < -0.1:
		return models.SentimentNegative
	}
	return models.SentimentNeutral
}

type wordSentiment struct {
	polarity     float64
	subjectivity float64
}

// LexiconSentiment is a small word-list analyzer in the spirit of pattern
// based sentiment: matched words are averaged, a preceding negation flips and
// halves polarity, an intensifier scales the next word.
type LexiconSentiment struct {
	words        map[string]wordSentiment
	negations    map[string]struct{}
	intensifiers map[string]float64
}

func NewLexiconSentiment() *LexiconSentiment {
	return &LexiconSentiment{
		words: map[string]wordSentiment{
			"amazing":   {0.6, 0.9},
			"awesome":   {1.0, 1.0},
			"beautiful": {0.85, 1.0},
			"best":      {1.0, 0.3},
			"boring":    {-1.0, 1.0},
			"cool":      {0.35, 0.65},
			"crazy":     {-0.6, 0.9},
			"cute":      {0.5, 1.0},
			"epic":      {0.5, 0.8},
			"excellent": {1.0, 1.0},
			"fail":      {-0.5, 0.3},
			"fantastic": {0.4, 0.9},
			"favorite":  {0.5, 1.0},
			"fun":       {0.3, 0.2},
			"funny":     {0.25, 1.0},
			"good":      {0.7, 0.6},
			"great":     {0.8, 0.75},
			"happy":     {0.8, 1.0},
			"hilarious": {0.5, 1.0},
			"horrible":  {-1.0, 1.0},
			"insane":    {-0.5, 1.0},
			"love":      {0.5, 0.6},
			"nice":      {0.6, 1.0},
			"perfect":   {1.0, 1.0},
			"sad":       {-0.5, 1.0},
			"scary":     {-0.5, 1.0},
			"shocking":  {-1.0, 1.0},
			"stupid":    {-0.8, 1.0},
			"terrible":  {-1.0, 1.0},
			"ultimate":  {0.0, 0.5},
			"wow":       {0.1, 1.0},
			"worst":     {-1.0, 1.0},
			"wrong":     {-0.5, 0.9},
		},
		negations: map[string]struct{}{
			"not": {}, "no": {}, "never": {}, "don't": {}, "isn't": {}, "won't": {},
		},
		intensifiers: map[string]float64{
			"very": 1.3, "really": 1.3, "extremely": 1.5, "super": 1.4, "so": 1.2,
		},
	}
}

func (s *LexiconSentiment) Analyze(_ context.Context, text string) (SentimentScore, error) {
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})

	var polarity, subjectivity float64
	matched := 0
	negate := false
	intensity := 1.0
	for _, tok := range tokens {
		if _, ok := s.negations[tok]; ok {
			negate = true
			continue
		}
		if f, ok := s.intensifiers[tok]; ok {
			intensity = f
			continue
		}
		if ws, ok := s.words[tok]; ok {
			p := ws.polarity * intensity
			if negate {
				p *= -0.5
			}
			polarity += p
			subjectivity += min(1.0, ws.subjectivity*intensity)
			matched++
		}
		negate = false
		intensity = 1.0
	}

	if matched == 0 {
		return SentimentScore{Label: models.SentimentNeutral}, nil
	}
	polarity = clampSigned(polarity / float64(matched))
	subjectivity = clamp01(subjectivity / float64(matched))
	return SentimentScore{
		Label:        labelFor(polarity),
		Polarity:     polarity,
		Subjectivity: subjectivity,
	}, nil
}

func clampSigned(v float64) float64 {
	switch {
	case v < -1:
		return -1
	case v > 1:
		return 1
	}
	return v
}
