package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEventReminder_Lifecycle(t *testing.T) {
	now := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

	t.Run("scheduled to triggered", func(t *testing.T) {
		r := &EventReminder{ID: "r1"}
		assert.Equal(t, StateScheduled, r.State())

		require.NoError(t, r.MarkTriggered(now, "hello"))
		assert.Equal(t, StateTriggered, r.State())
		assert.Equal(t, "hello", r.Message)
		require.NotNil(t, r.TriggeredAt)
		assert.Equal(t, now, *r.TriggeredAt)
	})

	t.Run("trigger is idempotent", func(t *testing.T) {
		r := &EventReminder{ID: "r1"}
		require.NoError(t, r.MarkTriggered(now, "first"))

		later := now.Add(time.Minute)
		require.NoError(t, r.MarkTriggered(later, "second"))
		assert.Equal(t, "first", r.Message)
		assert.Equal(t, now, *r.TriggeredAt)
	})

	t.Run("dismiss before trigger is rejected", func(t *testing.T) {
		r := &EventReminder{ID: "r1"}
		err := r.MarkDismissed(now)
		assert.ErrorIs(t, err, ErrNotTriggered)
		assert.Equal(t, StateScheduled, r.State())
	})

	t.Run("triggered to dismissed", func(t *testing.T) {
		r := &EventReminder{ID: "r1"}
		require.NoError(t, r.MarkTriggered(now, "msg"))
		require.NoError(t, r.MarkDismissed(now.Add(time.Minute)))
		assert.Equal(t, StateDismissed, r.State())
	})

	t.Run("double dismiss is rejected", func(t *testing.T) {
		r := &EventReminder{ID: "r1"}
		require.NoError(t, r.MarkTriggered(now, "msg"))
		require.NoError(t, r.MarkDismissed(now))
		assert.ErrorIs(t, r.MarkDismissed(now), ErrAlreadyDismissed)
	})

	t.Run("dismissed is terminal", func(t *testing.T) {
		r := &EventReminder{ID: "r1"}
		require.NoError(t, r.MarkTriggered(now, "msg"))
		require.NoError(t, r.MarkDismissed(now))
		assert.False(t, r.CanTransition(StateTriggered))
		assert.False(t, r.CanTransition(StateScheduled))
	})
}

func TestEventReminder_IsDue(t *testing.T) {
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	r := &EventReminder{ReminderTime: at}

	assert.False(t, r.IsDue(at.Add(-time.Second)))
	assert.True(t, r.IsDue(at))
	assert.True(t, r.IsDue(at.Add(time.Hour)))
}

func TestComputeReminderTime(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	require.NoError(t, err)
	start := time.Date(2025, 6, 1, 14, 30, 0, 0, loc)

	t.Run("timed event subtracts lead", func(t *testing.T) {
		got := ComputeReminderTime(start, false, 15, "09:00")
		assert.Equal(t, time.Date(2025, 6, 1, 14, 15, 0, 0, loc), got)
	})

	t.Run("all-day event ignores lead minutes", func(t *testing.T) {
		got := ComputeReminderTime(start, true, 15, "08:30")
		assert.Equal(t, time.Date(2025, 6, 1, 8, 30, 0, 0, loc), got)
	})

	t.Run("all-day event keeps the event's location", func(t *testing.T) {
		got := ComputeReminderTime(start, true, 0, "09:00")
		assert.Equal(t, loc, got.Location())
	})

	t.Run("bad wall-clock lead falls back to 09:00", func(t *testing.T) {
		got := ComputeReminderTime(start, true, 0, "not a time")
		assert.Equal(t, 9, got.Hour())
		assert.Equal(t, 0, got.Minute())
	})
}

func TestReminderPreferences_Validate(t *testing.T) {
	valid := func() *ReminderPreferences {
		p := DefaultPreferences("user-1")
		return p
	}

	tests := []struct {
		name    string
		mutate  func(*ReminderPreferences)
		wantErr string
	}{
		{"defaults are valid", func(p *ReminderPreferences) {}, ""},
		{"missing user", func(p *ReminderPreferences) { p.UserID = "" }, "user_id"},
		{"negative lead", func(p *ReminderPreferences) { p.DefaultLeadMinutes = -1 }, "default_lead_minutes"},
		{"empty options", func(p *ReminderPreferences) { p.AvailableLeadOptions = nil }, "available_lead_options"},
		{"zero option", func(p *ReminderPreferences) { p.AvailableLeadOptions = []int{0, 5} }, "positive"},
		{"unsorted options", func(p *ReminderPreferences) { p.AvailableLeadOptions = []int{10, 5} }, "increasing"},
		{"duplicate options", func(p *ReminderPreferences) { p.AvailableLeadOptions = []int{5, 5} }, "increasing"},
		{"bad all-day time", func(p *ReminderPreferences) { p.AllDayEventLeadTime = "25:99" }, "HH:MM"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid()
			tt.mutate(p)
			err := p.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
			var verr *ValidationError
			assert.ErrorAs(t, err, &verr)
		})
	}
}

func TestDefaultPreferences(t *testing.T) {
	p := DefaultPreferences("user-1")
	assert.True(t, p.Enabled)
	assert.Equal(t, 15, p.DefaultLeadMinutes)
	assert.Equal(t, "09:00", p.AllDayEventLeadTime)
	assert.Equal(t, []int{5, 10, 15, 30, 60, 1440}, p.AvailableLeadOptions)
	assert.NoError(t, p.Validate())
}
