package classifier

import (
	"strings"

	"github.com/xaenox/focusguard/internal/models"
)

// PatternClassifier scores a title by counting keyword matches per group.
type PatternClassifier struct {
	groups []patternGroup
}

func NewPatternClassifier() *PatternClassifier {
	return &PatternClassifier{groups: patternGroups}
}

// Classify returns the group with the strictly highest match count.
// Ties and titles without matches are neutral with confidence 0.5.
func (c *PatternClassifier) Classify(title string) (models.Category, float64) {
	lower := strings.ToLower(title)

	best := models.CategoryNeutral
	bestCount := 0
	tied := false
	for _, group := range c.groups {
		count := 0
		for _, re := range group.patterns {
			count += len(re.FindAllStringIndex(lower, -1))
		}
		switch {
		case count > bestCount:
			best, bestCount, tied = group.category, count, false
		case count == bestCount && count > 0:
			tied = true
		}
	}

	if bestCount == 0 || tied {
		return models.CategoryNeutral, 0.5
	}
	return best, patternConfidence(bestCount)
}

func patternConfidence(matches int) float64 {
	conf := 0.5 + 0.1*float64(matches)
	if conf > 0.9 {
		return 0.9
	}
	return conf
}
