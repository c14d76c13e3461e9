package classifier

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/xaenox/focusguard/internal/models"
)

// SemanticResult is the semantic classifier's verdict for one title.
// Degraded is set when the embedding capability could not be used and the
// verdict came from the pattern classifier instead.
type SemanticResult struct {
	Category      models.Category
	Confidence    float64
	IsDistraction bool
	Degraded      bool
	Reason        string
}

// SemanticClassifier matches titles against per-category embedding centroids.
type SemanticClassifier struct {
	embedder   Embedder
	similarity SimilarityFunc
	profiles   []models.CategoryProfile
	fallback   *PatternClassifier
	timeout    time.Duration
	health     *capabilityHealth
	logger     *zap.Logger

	mu        sync.Mutex
	centroids map[models.Category][]float32
}

type SemanticOption func(*SemanticClassifier)

// WithSimilarity replaces the default cosine similarity.
func WithSimilarity(fn SimilarityFunc) SemanticOption {
	return func(c *SemanticClassifier) {
		if fn != nil {
			c.similarity = fn
		}
	}
}

func NewSemanticClassifier(
	embedder Embedder,
	profiles []models.CategoryProfile,
	fallback *PatternClassifier,
	timeout time.Duration,
	logger *zap.Logger,
	opts ...SemanticOption,
) *SemanticClassifier {
	if fallback == nil {
		fallback = NewPatternClassifier()
	}
	c := &SemanticClassifier{
		embedder:   embedder,
		similarity: Cosine,
		profiles:   profiles,
		fallback:   fallback,
		timeout:    timeout,
		health:     newCapabilityHealth("embedding", logger),
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify never fails: when the embedder is unavailable the pattern
// classifier's verdict is returned with Degraded set.
func (c *SemanticClassifier) Classify(ctx context.Context, title string) SemanticResult {
	if isDevelopmentTitle(title) {
		return SemanticResult{
			Category:   models.CategoryWork,
			Confidence: 0.95,
			Reason:     "development tool",
		}
	}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	category, score, err := c.nearest(ctx, title)
	if err != nil {
		c.health.failed(err)
		return c.fallbackResult(title)
	}
	c.health.succeeded()

	result := SemanticResult{
		Category:      category,
		Confidence:    clamp01(score),
		IsDistraction: category.IsDistracting(),
		Reason:        fmt.Sprintf("nearest profile %s (%.2f)", category, score),
	}
	if category.IsSafe() {
		result.IsDistraction = false
		result.Confidence = max(result.Confidence, 0.8)
	}
	return result
}

func (c *SemanticClassifier) nearest(ctx context.Context, title string) (models.Category, float64, error) {
	if c.embedder == nil {
		return "", 0, errors.New("no embedder configured")
	}
	centroids, err := c.ensureCentroids(ctx)
	if err != nil {
		return "", 0, err
	}
	vectors, err := c.embedder.Embed(ctx, []string{title})
	if err != nil {
		return "", 0, err
	}
	if len(vectors) != 1 {
		return "", 0, fmt.Errorf("expected 1 embedding, got %d", len(vectors))
	}

	best := models.CategoryNeutral
	bestScore := -2.0
	for _, p := range c.profiles {
		centroid, ok := centroids[p.Name]
		if !ok {
			continue
		}
		score := c.similarity(vectors[0], centroid) * p.Weight
		if score > bestScore {
			best, bestScore = p.Name, score
		}
	}
	if bestScore == -2.0 {
		return "", 0, errors.New("no category centroids available")
	}
	return best.Canonical(), bestScore, nil
}

// ensureCentroids builds the category centroids on first use and retries
// on the next call after a failure.
func (c *SemanticClassifier) ensureCentroids(ctx context.Context) (map[models.Category][]float32, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.centroids != nil {
		return c.centroids, nil
	}

	var texts []string
	for _, p := range c.profiles {
		texts = append(texts, p.Texts...)
	}
	if len(texts) == 0 {
		return nil, errors.New("no profile texts to embed")
	}

	vectors, err := c.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embed profiles: %w", err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("embed profiles: got %d vectors for %d texts", len(vectors), len(texts))
	}

	centroids := make(map[models.Category][]float32, len(c.profiles))
	offset := 0
	for _, p := range c.profiles {
		centroids[p.Name] = mean(vectors[offset : offset+len(p.Texts)])
		offset += len(p.Texts)
	}
	c.centroids = centroids
	c.logger.Info("Category centroids built", zap.Int("categories", len(centroids)))
	return centroids, nil
}

func (c *SemanticClassifier) fallbackResult(title string) SemanticResult {
	category, conf := c.fallback.Classify(title)
	category = category.Canonical()
	return SemanticResult{
		Category:      category,
		Confidence:    conf,
		IsDistraction: category.IsDistracting(),
		Degraded:      true,
		Reason:        "embedding unavailable, pattern fallback",
	}
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
