package format

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatLeadTime(t *testing.T) {
	tests := []struct {
		name    string
		minutes int
		want    string
	}{
		{"one minute", 1, "1 minute"},
		{"minutes", 5, "5 minutes"},
		{"zero minutes", 0, "0 minutes"},
		{"fifty nine minutes", 59, "59 minutes"},
		{"one hour", 60, "1 hour"},
		{"fractional hours", 90, "1.5 hours"},
		{"two hours", 120, "2 hours"},
		{"uneven hours", 100, "1.6666666666666667 hours"},
		{"just under a day", 1439, "23.983333333333334 hours"},
		{"one day", 1440, "1 day"},
		{"two days", 2880, "2 days"},
		{"fractional days", 2160, "1.5 days"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FormatLeadTime(tt.minutes))
		})
	}
}

func TestFormatLeadTimeNeverEmpty(t *testing.T) {
	for _, minutes := range []int{-5, 0, 1, 59, 60, 61, 1439, 1440, 1441, 100000} {
		got := FormatLeadTime(minutes)
		assert.NotEmpty(t, got, "minutes=%d", minutes)
	}
}

func TestRenderMessage(t *testing.T) {
	start := time.Date(2024, 1, 1, 15, 0, 0, 0, time.UTC)

	msg := RenderMessage("Dentist", start, 15, "Main St Clinic")
	assert.Contains(t, msg, "Dentist")
	assert.Contains(t, msg, "15 minutes")
	assert.Contains(t, msg, "15:00")
	assert.Contains(t, msg, "Main St Clinic")
	assert.Equal(t, `Reminder: "Dentist" starts in 15 minutes at 15:00 at Main St Clinic.`, msg)
}

func TestRenderMessageWithoutLocation(t *testing.T) {
	start := time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)

	msg := RenderMessage("Walk", start, 60, "")
	assert.Equal(t, `Reminder: "Walk" starts in 1 hour at 09:30.`, msg)
}
