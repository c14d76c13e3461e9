package classifier

import (
	"regexp"
	"strings"

	"github.com/xaenox/focusguard/internal/models"
)

// Override forces a fixed verdict for titles it matches. Overrides are
// evaluated in order before any statistical classifier; the first match wins.
type Override struct {
	Name       string
	Match      func(title string) bool
	Category   models.Category
	Confidence float64
}

// DefaultOverrides returns the safe-content overrides in priority order.
// whitelist holds extra case-insensitive substrings that are always work.
func DefaultOverrides(whitelist []string) []Override {
	terms := []string{ProductName}
	for _, w := range whitelist {
		if w = strings.ToLower(strings.TrimSpace(w)); w != "" {
			terms = append(terms, w)
		}
	}

	return []Override{
		{
			Name: "whitelist",
			Match: func(title string) bool {
				lower := strings.ToLower(title)
				for _, term := range terms {
					if strings.Contains(lower, term) {
						return true
					}
				}
				return false
			},
			Category:   models.CategoryWork,
			Confidence: 0.95,
		},
		{
			Name:       "development tool",
			Match:      isDevelopmentTitle,
			Category:   models.CategoryWork,
			Confidence: 0.95,
		},
		{
			Name: "productive application",
			Match: func(title string) bool {
				return anySegment(title, productiveAppPattern)
			},
			Category:   models.CategoryWork,
			Confidence: 0.9,
		},
	}
}

func firstOverride(overrides []Override, title string) (Override, bool) {
	for _, o := range overrides {
		if o.Match(title) {
			return o, true
		}
	}
	return Override{}, false
}

func isDevelopmentTitle(title string) bool {
	return anySegment(title, devToolPattern, codeFilePattern)
}

// appSegments returns the segments where applications put their own name or
// the open file: the first and last " - " separated part of the title and of
// its browser tab content. "main.go - api - Visual Studio Code" yields
// "main.go" and "Visual Studio Code"; a title without separators yields itself.
func appSegments(title string) []string {
	var out []string
	for _, s := range []string{strings.TrimSpace(title), extractTabContent(title)} {
		parts := segmentSeparator.Split(s, -1)
		out = append(out, strings.TrimSpace(parts[0]), strings.TrimSpace(parts[len(parts)-1]))
	}
	return out
}

func anySegment(title string, patterns ...*regexp.Regexp) bool {
	for _, seg := range appSegments(title) {
		for _, p := range patterns {
			if p.MatchString(seg) {
				return true
			}
		}
	}
	return false
}

// extractTabContent strips browser decorations so that
// "chrome.exe - Lofi beats - Google Chrome" is analyzed as "Lofi beats".
func extractTabContent(title string) string {
	content := strings.TrimSpace(browserSuffixPattern.ReplaceAllString(strings.TrimSpace(title), ""))
	if process, rest, ok := strings.Cut(content, " - "); ok && browserProcessPattern.MatchString(strings.TrimSpace(process)) {
		content = strings.TrimSpace(rest)
	}
	if content == "" {
		return strings.TrimSpace(title)
	}
	return content
}
