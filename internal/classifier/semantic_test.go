package classifier

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/xaenox/focusguard/internal/models"
)

func TestSemanticClassifierNearestProfile(t *testing.T) {
	emb := &keywordEmbedder{}
	c := NewSemanticClassifier(emb, testProfiles(), nil, time.Second, zaptest.NewLogger(t))

	res := c.Classify(context.Background(), "Official Music Video")
	if res.Degraded {
		t.Fatal("Expected a non-degraded result")
	}
	if res.Category != models.CategoryEntertainment || !res.IsDistraction {
		t.Errorf("Expected entertainment distraction, got %+v", res)
	}

	res = c.Classify(context.Background(), "Weekly budget meeting")
	if res.Category != models.CategoryWork || res.IsDistraction {
		t.Errorf("Expected non-distracting work, got %+v", res)
	}
	if res.Confidence < 0.8 {
		t.Errorf("Expected confidence >= 0.8 for work, got %.2f", res.Confidence)
	}

	// profiles embedded once, then one call per title
	if n := emb.callCount(); n != 3 {
		t.Errorf("Expected 3 embed calls, got %d", n)
	}
}

func TestSemanticClassifierWeights(t *testing.T) {
	profiles := testProfiles()
	profiles[1].Weight = 3
	c := NewSemanticClassifier(&keywordEmbedder{}, profiles, nil, time.Second, zaptest.NewLogger(t),
		WithSimilarity(func(a, b []float32) float64 { return 0.3 }))

	res := c.Classify(context.Background(), "anything at all")
	if res.Category != models.CategoryEducational {
		t.Errorf("Expected the heaviest profile to win, got %s", res.Category)
	}
	if res.IsDistraction {
		t.Error("Educational must never be a distraction")
	}
}

func TestSemanticClassifierDevToolOverride(t *testing.T) {
	emb := &keywordEmbedder{}
	c := NewSemanticClassifier(emb, testProfiles(), nil, time.Second, zaptest.NewLogger(t))

	res := c.Classify(context.Background(), "funny_movie_notes.py")
	if res.Category != models.CategoryWork || res.IsDistraction || res.Confidence < 0.9 {
		t.Errorf("Expected dev tool override, got %+v", res)
	}
	if emb.callCount() != 0 {
		t.Errorf("Expected no embed calls, got %d", emb.callCount())
	}
}

func TestSemanticClassifierDegradesAndLogsOnce(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	emb := &keywordEmbedder{err: errors.New("connection refused")}
	c := NewSemanticClassifier(emb, testProfiles(), nil, time.Second, zap.New(core))

	for i := 0; i < 3; i++ {
		res := c.Classify(context.Background(), "Netflix - Show")
		if !res.Degraded {
			t.Fatal("Expected degraded result")
		}
		if res.Category != models.CategoryEntertainment || !res.IsDistraction {
			t.Errorf("Expected pattern fallback verdict, got %+v", res)
		}
	}
	if n := logs.FilterMessage("Capability degraded, using fallback").Len(); n != 1 {
		t.Errorf("Expected 1 degradation log, got %d", n)
	}

	emb.setErr(nil)
	res := c.Classify(context.Background(), "Netflix movie")
	if res.Degraded {
		t.Fatal("Expected recovery once the embedder works again")
	}
	if n := logs.FilterMessage("Capability recovered").Len(); n != 1 {
		t.Errorf("Expected 1 recovery log, got %d", n)
	}
}

func TestSemanticClassifierTimeout(t *testing.T) {
	emb := &keywordEmbedder{block: true}
	c := NewSemanticClassifier(emb, testProfiles(), nil, 20*time.Millisecond, zaptest.NewLogger(t))

	start := time.Now()
	res := c.Classify(context.Background(), "Official Music Video")
	if !res.Degraded {
		t.Error("Expected degraded result on timeout")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("Classify took %s, timeout not applied", elapsed)
	}
}

func TestSemanticClassifierWithoutEmbedder(t *testing.T) {
	c := NewSemanticClassifier(nil, testProfiles(), nil, time.Second, zaptest.NewLogger(t))
	res := c.Classify(context.Background(), "Learn Go tutorial")
	if !res.Degraded || res.Category != models.CategoryEducational {
		t.Errorf("Expected degraded educational verdict, got %+v", res)
	}
}

func TestCosine(t *testing.T) {
	if got := Cosine([]float32{1, 0}, []float32{1, 0}); got < 0.999 {
		t.Errorf("Expected 1, got %.3f", got)
	}
	if got := Cosine([]float32{1, 0}, []float32{0, 1}); got != 0 {
		t.Errorf("Expected 0, got %.3f", got)
	}
	if got := Cosine([]float32{1}, []float32{1, 2}); got != 0 {
		t.Errorf("Expected 0 for mismatched lengths, got %.3f", got)
	}
	if got := Cosine([]float32{0, 0}, []float32{1, 2}); got != 0 {
		t.Errorf("Expected 0 for zero vector, got %.3f", got)
	}
}
