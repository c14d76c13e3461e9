package classifier

import (
	"context"
	"strings"
	"sync"

	"github.com/xaenox/focusguard/internal/models"
)

// keywordEmbedder maps text onto three axes (entertainment, educational,
// work) by keyword presence.
type keywordEmbedder struct {
	mu    sync.Mutex
	calls int
	err   error
	block bool
}

var embedAxes = [][]string{
	{"music", "video", "movie", "netflix", "funny"},
	{"tutorial", "lesson", "learn", "course"},
	{"report", "meeting", "budget"},
}

func (e *keywordEmbedder) setErr(err error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.err = err
}

func (e *keywordEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

func (e *keywordEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	e.calls++
	err, block := e.err, e.block
	e.mu.Unlock()

	if block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if err != nil {
		return nil, err
	}

	out := make([][]float32, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		vec := []float32{0.01, 0.01, 0.01}
		for axis, words := range embedAxes {
			for _, w := range words {
				if strings.Contains(lower, w) {
					vec[axis]++
				}
			}
		}
		out[i] = vec
	}
	return out, nil
}

func testProfiles() []models.CategoryProfile {
	return []models.CategoryProfile{
		{Name: models.CategoryEntertainment, Weight: 1, Texts: []string{"music video", "funny movie"}},
		{Name: models.CategoryEducational, Weight: 1, Texts: []string{"learn tutorial", "course lesson"}},
		{Name: models.CategoryWork, Weight: 1, Texts: []string{"meeting report", "budget report"}},
	}
}

type recordingSentiment struct {
	mu    sync.Mutex
	texts []string
	score SentimentScore
	err   error
}

func (r *recordingSentiment) Analyze(_ context.Context, text string) (SentimentScore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.texts = append(r.texts, text)
	return r.score, r.err
}
