package classifier

import "github.com/xaenox/focusguard/internal/models"

// linguisticVote maps sentiment features to a category: subjective and
// positive text reads as entertainment, objective text as educational,
// mildly toned text as work.
func linguisticVote(s SentimentScore) (models.Category, float64) {
	switch {
	case s.Subjectivity > 0.6 && s.Polarity > 0.2:
		return models.CategoryEntertainment, 0.7
	case s.Subjectivity < 0.4:
		return models.CategoryEducational, 0.6
	case s.Polarity >= -0.2 && s.Polarity <= 0.3:
		return models.CategoryWork, 0.8
	default:
		return models.CategoryNeutral, 0.5
	}
}
