// Package models defines the core data shapes of the Buddy reminder service.
package models

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotTriggered     = errors.New("reminder has not been triggered")
	ErrAlreadyTriggered = errors.New("reminder already triggered")
	ErrAlreadyDismissed = errors.New("reminder already dismissed")
	ErrRemindersOff     = errors.New("reminders disabled for user")
	ErrNotDue           = errors.New("reminder time not reached")
)

// ReminderState is the lifecycle state of an event reminder.
type ReminderState string

const (
	StateScheduled ReminderState = "scheduled"
	StateTriggered ReminderState = "triggered"
	StateDismissed ReminderState = "dismissed"
)

// ReminderPreferences holds per-user reminder configuration.
// One row per user.
type ReminderPreferences struct {
	UserID               string    `json:"user_id"`
	Enabled              bool      `json:"enabled"`
	DefaultLeadMinutes   int       `json:"default_lead_minutes"`
	NotifyVisually       bool      `json:"notify_visually"`
	NotifySpoken         bool      `json:"notify_spoken"`
	AllDayEventLeadTime  string    `json:"all_day_event_lead_time"` // "HH:MM" wall clock
	AvailableLeadOptions []int     `json:"available_lead_options"`  // minutes, strictly increasing
	UseEmojis            bool      `json:"use_emojis"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// DefaultPreferences returns the preferences applied when a user has no
// stored row: reminders on, 15 minutes before, both channels enabled,
// all-day reminders at 09:00.
func DefaultPreferences(userID string) *ReminderPreferences {
	return &ReminderPreferences{
		UserID:               userID,
		Enabled:              true,
		DefaultLeadMinutes:   15,
		NotifyVisually:       true,
		NotifySpoken:         true,
		AllDayEventLeadTime:  "09:00",
		AvailableLeadOptions: []int{5, 10, 15, 30, 60, 1440},
		UseEmojis:            true,
	}
}

// ValidationError marks a caller-supplied value that violates a
// preference invariant, as opposed to a storage failure.
type ValidationError struct {
	msg string
}

func (e *ValidationError) Error() string { return e.msg }

func validationErrorf(format string, args ...any) error {
	return &ValidationError{msg: fmt.Sprintf(format, args...)}
}

// Validate checks preference invariants before persisting.
// DefaultLeadMinutes is not required to be a member of
// AvailableLeadOptions; the UI is expected to only write matching
// combinations, so that relationship stays a documented contract.
func (p *ReminderPreferences) Validate() error {
	if p.UserID == "" {
		return validationErrorf("user_id is required")
	}
	if p.DefaultLeadMinutes < 0 {
		return validationErrorf("default_lead_minutes must be >= 0")
	}
	if len(p.AvailableLeadOptions) == 0 {
		return validationErrorf("available_lead_options must not be empty")
	}
	for i, opt := range p.AvailableLeadOptions {
		if opt <= 0 {
			return validationErrorf("available_lead_options[%d] must be positive", i)
		}
		if i > 0 && opt <= p.AvailableLeadOptions[i-1] {
			return validationErrorf("available_lead_options must be strictly increasing")
		}
	}
	if _, err := time.Parse("15:04", p.AllDayEventLeadTime); err != nil {
		return validationErrorf("all_day_event_lead_time: expected HH:MM")
	}
	return nil
}

// EventReminder is one scheduled notification tied to a calendar event.
type EventReminder struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	ExternalEventID    string     `json:"external_event_id"`
	EventTitle         string     `json:"event_title"`
	EventStart         time.Time  `json:"event_start"`
	EventEnd           *time.Time `json:"event_end,omitempty"`
	Description        string     `json:"description,omitempty"`
	Location           string     `json:"location,omitempty"`
	AllDay             bool       `json:"all_day"`
	ReminderTime       time.Time  `json:"reminder_time"`
	MinutesBeforeEvent int        `json:"minutes_before_event"`
	IsTriggered        bool       `json:"is_triggered"`
	TriggeredAt        *time.Time `json:"triggered_at,omitempty"`
	IsDismissed        bool       `json:"is_dismissed"`
	DismissedAt        *time.Time `json:"dismissed_at,omitempty"`
	Message            string     `json:"message,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// State reports the lifecycle state derived from the trigger/dismiss flags.
func (r *EventReminder) State() ReminderState {
	switch {
	case r.IsDismissed:
		return StateDismissed
	case r.IsTriggered:
		return StateTriggered
	default:
		return StateScheduled
	}
}

// reminderTransitions lists the permitted lifecycle transitions.
// A reminder never goes from scheduled straight to dismissed and is
// never resurrected once dismissed.
var reminderTransitions = map[ReminderState][]ReminderState{
	StateScheduled: {StateTriggered},
	StateTriggered: {StateDismissed},
	StateDismissed: {},
}

// CanTransition checks whether moving to the given state is permitted.
func (r *EventReminder) CanTransition(to ReminderState) bool {
	for _, s := range reminderTransitions[r.State()] {
		if s == to {
			return true
		}
	}
	return false
}

// MarkTriggered advances scheduled -> triggered. Calling it on an
// already-triggered reminder is a no-op so trigger checks stay idempotent.
func (r *EventReminder) MarkTriggered(now time.Time, message string) error {
	if r.IsTriggered {
		return nil
	}
	if !r.CanTransition(StateTriggered) {
		return ErrAlreadyDismissed
	}
	r.IsTriggered = true
	r.TriggeredAt = &now
	r.Message = message
	r.UpdatedAt = now
	return nil
}

// MarkDismissed advances triggered -> dismissed. Dismissing an untriggered
// reminder is a caller precondition violation.
func (r *EventReminder) MarkDismissed(now time.Time) error {
	if r.IsDismissed {
		return ErrAlreadyDismissed
	}
	if !r.IsTriggered {
		return ErrNotTriggered
	}
	r.IsDismissed = true
	r.DismissedAt = &now
	r.UpdatedAt = now
	return nil
}

// IsDue reports whether the reminder time has been reached.
func (r *EventReminder) IsDue(now time.Time) bool {
	return !now.Before(r.ReminderTime)
}

// ComputeReminderTime derives the firing time for an event: start minus the
// lead for timed events, the preference's wall-clock lead time on the event
// date for all-day events (which have no start time of their own).
func ComputeReminderTime(eventStart time.Time, allDay bool, leadMinutes int, allDayLead string) time.Time {
	if !allDay {
		return eventStart.Add(-time.Duration(leadMinutes) * time.Minute)
	}
	t, err := time.Parse("15:04", allDayLead)
	if err != nil {
		t, _ = time.Parse("15:04", "09:00")
	}
	return time.Date(eventStart.Year(), eventStart.Month(), eventStart.Day(),
		t.Hour(), t.Minute(), 0, 0, eventStart.Location())
}

// SchedulingIntent is the structured result of interpreting free-form text
// as a request to create a calendar event.
type SchedulingIntent struct {
	IsSchedulingRequest bool     `json:"isSchedulingRequest"`
	Title               string   `json:"title,omitempty"`
	Date                string   `json:"date,omitempty"`     // YYYY-MM-DD
	Time                string   `json:"time,omitempty"`     // HH:MM
	Duration            int      `json:"duration,omitempty"` // minutes
	Location            string   `json:"location,omitempty"`
	Guests              []string `json:"guests,omitempty"`
	Description         string   `json:"description,omitempty"`
	Missing             []string `json:"missing,omitempty"`
}

// NotASchedulingRequest is the safe negative result every extraction
// failure path degrades to.
func NotASchedulingRequest() *SchedulingIntent {
	return &SchedulingIntent{IsSchedulingRequest: false}
}

// GoogleConnection is a stored per-user Google OAuth connection.
type GoogleConnection struct {
	UserID       string    `json:"user_id"`
	AccountEmail string    `json:"account_email"`
	AccessToken  string    `json:"-"`
	RefreshToken string    `json:"-"`
	TokenExpiry  time.Time `json:"token_expiry"`
	CreatedAt    time.Time `json:"created_at"`
}
