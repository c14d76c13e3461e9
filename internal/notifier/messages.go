package notifier

import (
	"fmt"

	"github.com/xaenox/focusguard/internal/models"
)

// Message builds the notification text for a window title. The escalated
// tier wins over a same-window repeat.
func Message(title string, tier models.AlertTier, repeated bool) string {
	switch {
	case tier == models.TierEscalated:
		return fmt.Sprintf("🚨 Multiple distractions detected! Stay focused on: %s", title)
	case repeated:
		return fmt.Sprintf("⏰ Still distracted: %s", title)
	default:
		return fmt.Sprintf("⚠️ Distracting activity detected: %s", title)
	}
}

// Sound picks the sound for a tier. customURL is the user's own alert
// and only applies to escalated notifications.
func Sound(tier models.AlertTier, customURL string) (models.SoundType, string) {
	if tier != models.TierEscalated {
		return models.SoundDefault, ""
	}
	if customURL != "" {
		return models.SoundCustom, customURL
	}
	return models.SoundEscalated, ""
}
