package models

import "time"

// Category is the activity class assigned to a window title
type Category string

const (
	CategoryWork          Category = "work"
	CategoryProductive    Category = "productive"
	CategoryEducational   Category = "educational"
	CategoryEntertainment Category = "entertainment"
	CategorySocialMedia   Category = "social_media"
	CategoryGaming        Category = "gaming"
	CategoryStreaming     Category = "streaming"
	CategoryNeutral       Category = "neutral"
)

// IsDistracting reports whether the category counts as a distraction.
func (c Category) IsDistracting() bool {
	switch c {
	case CategoryEntertainment, CategorySocialMedia, CategoryGaming, CategoryStreaming:
		return true
	}
	return false
}

// IsSafe reports whether the category can never be flagged as a distraction.
func (c Category) IsSafe() bool {
	switch c {
	case CategoryWork, CategoryProductive, CategoryEducational:
		return true
	}
	return false
}

// Canonical folds the pattern classifier's "productive" label into "work".
func (c Category) Canonical() Category {
	if c == CategoryProductive {
		return CategoryWork
	}
	return c
}

type Sentiment string

const (
	SentimentPositive Sentiment = "positive"
	SentimentNegative Sentiment = "negative"
	SentimentNeutral  Sentiment = "neutral"
)

// ClassificationResult is the outcome of classifying one window title
type ClassificationResult struct {
	Category       Category  `json:"category"`
	Confidence     float64   `json:"confidence"`
	IsDistraction  bool      `json:"is_distraction"`
	Sentiment      Sentiment `json:"sentiment"`
	SentimentScore float64   `json:"sentiment_score"`
	Reasoning      string    `json:"reasoning"`
}

// CategoryProfile is the static description of a category used for semantic matching
type CategoryProfile struct {
	Name   Category `json:"name" yaml:"name"`
	Weight float64  `json:"weight" yaml:"weight"`
	Texts  []string `json:"texts" yaml:"texts"`
}

// TrackingState is the per-user distraction record
type TrackingState struct {
	Count                     int       `json:"count"`
	SessionID                 string    `json:"session_id"`
	LastReset                 time.Time `json:"last_reset"`
	LastDistractionActive     bool      `json:"last_distraction_active"`
	LastDistractingWindow     string    `json:"last_distracting_window"`
	LastNotificationTime      time.Time `json:"last_notification_time"`
	RepeatedNotificationCount int       `json:"repeated_notification_count"`
}

type AlertTier string

const (
	TierStandard  AlertTier = "standard"
	TierEscalated AlertTier = "escalated"
)

type SoundType string

const (
	SoundDefault   SoundType = "default"
	SoundEscalated SoundType = "escalated"
	SoundCustom    SoundType = "custom"
)

const NotificationCategoryDistraction = "distraction"

// NotificationEvent is a fired distraction notification
type NotificationEvent struct {
	ID               string    `json:"id"`
	Username         string    `json:"username"`
	SessionID        string    `json:"session_id"`
	Message          string    `json:"message"`
	Category         string    `json:"category"`
	Tier             AlertTier `json:"tier"`
	SoundType        SoundType `json:"sound_type"`
	CustomAudioURL   string    `json:"custom_audio_url,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	WindowTitle      string    `json:"window_title"`
	DistractionCount int       `json:"distraction_count"`
	RepeatedCount    int       `json:"repeated_count"`
	Repeated         bool      `json:"repeated"`
	Read             bool      `json:"read"`
}

// User represents a tracked user
type User struct {
	ID             string    `json:"id"`
	Username       string    `json:"username"`
	CustomAlertURL string    `json:"custom_alert_url,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	LastActive     time.Time `json:"last_active"`
}

// FocusSession is a bounded focus-tracking period
type FocusSession struct {
	ID                string     `json:"id"`
	Username          string     `json:"username"`
	TaskDescription   string     `json:"task_description"`
	Keywords          []string   `json:"keywords"`
	DurationMinutes   int        `json:"duration_minutes"`
	StartTime         time.Time  `json:"start_time"`
	EndTime           *time.Time `json:"end_time,omitempty"`
	Completed         bool       `json:"completed"`
	DistractionCount  int        `json:"distraction_count"`
	ProductivityScore float64    `json:"productivity_score"`
}

// ActivityLog is one classified window observation
type ActivityLog struct {
	ID            string    `json:"id"`
	Username      string    `json:"username"`
	SessionID     string    `json:"session_id"`
	WindowTitle   string    `json:"window_title"`
	Category      Category  `json:"category"`
	Confidence    float64   `json:"confidence"`
	IsDistraction bool      `json:"is_distraction"`
	Timestamp     time.Time `json:"timestamp"`
}

// DistractionStats summarizes the live tracker state for a user
type DistractionStats struct {
	Username              string    `json:"username"`
	CurrentCount          int       `json:"current_distraction_count"`
	CurrentSessionID      string    `json:"current_session_id"`
	LastReset             time.Time `json:"last_reset"`
	LastDistractingWindow string    `json:"last_distracting_window,omitempty"`
	RepeatedCount         int       `json:"repeated_notification_count"`
	NextTier              AlertTier `json:"next_tier"`
	NextSoundType         SoundType `json:"next_sound_type"`
}
