package models

import "time"

// PlanDateLayout is the calendar-day format used for plan and stats dates.
const PlanDateLayout = "2006-01-02"

// ReminderTimeLayout is the wall-clock format of reminder times (UTC).
const ReminderTimeLayout = "15:04"

const NotificationCategoryReminder = "reminder"

// TaskItem is one entry of a daily plan
type TaskItem struct {
	ID           string `json:"id"`
	Text         string `json:"text"`
	Completed    bool   `json:"completed"`
	ReminderTime string `json:"reminder_time,omitempty"`
}

// ReminderItem fires a reminder notification once at Time on the plan's date
type ReminderItem struct {
	ID        string `json:"id"`
	Text      string `json:"text"`
	Time      string `json:"time"`
	Completed bool   `json:"completed"`
	Sent      bool   `json:"sent"`
}

// DailyPlan is a user's plan for one calendar day. A user has at most one
// plan per date; the free-text and the task list views share it.
type DailyPlan struct {
	ID        string         `json:"id"`
	Username  string         `json:"username"`
	Date      string         `json:"date"`
	PlanText  string         `json:"plan_text"`
	Tasks     []TaskItem     `json:"tasks"`
	Reminders []ReminderItem `json:"reminders"`
	Completed bool           `json:"completed"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}
