package classifier

import "github.com/xaenox/focusguard/internal/models"

// Ballot is one classifier's vote.
type Ballot struct {
	Voter      string
	Category   models.Category
	Confidence float64
}

// Vote picks the majority category among ballots. Ties go to the primary
// voter's category when it is among the tied ones, otherwise to the tied
// category that was voted first. Confidence is the mean over the ballots
// agreeing with the winner. No ballots yields neutral with 0.5.
func Vote(ballots []Ballot, primary string) (models.Category, float64, bool) {
	if len(ballots) == 0 {
		return models.CategoryNeutral, 0.5, false
	}

	counts := make(map[models.Category]int, len(ballots))
	var order []models.Category
	for _, b := range ballots {
		if counts[b.Category] == 0 {
			order = append(order, b.Category)
		}
		counts[b.Category]++
	}

	top := 0
	for _, c := range counts {
		top = max(top, c)
	}
	var tied []models.Category
	for _, c := range order {
		if counts[c] == top {
			tied = append(tied, c)
		}
	}

	winner := tied[0]
	tieBroken := len(tied) > 1
	if tieBroken {
		for _, b := range ballots {
			if b.Voter == primary && counts[b.Category] == top {
				winner = b.Category
				break
			}
		}
	}

	var sum float64
	n := 0
	for _, b := range ballots {
		if b.Category == winner {
			sum += b.Confidence
			n++
		}
	}
	return winner, sum / float64(n), tieBroken
}
