// Package format renders reminder lead times and notification messages.
package format

import (
	"fmt"
	"strconv"
	"time"
)

// FormatLeadTime converts a minute count into a human label:
// minutes below an hour, hours below a day, days otherwise.
// Fractional hour and day counts are surfaced as-is (90 -> "1.5 hours");
// no rounding is performed.
func FormatLeadTime(minutes int) string {
	if minutes < 0 {
		minutes = 0
	}

	switch {
	case minutes < 60:
		if minutes == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", minutes)
	case minutes < 1440:
		hours := float64(minutes) / 60
		if hours == 1 {
			return "1 hour"
		}
		return formatFloat(hours) + " hours"
	default:
		days := float64(minutes) / 1440
		if days == 1 {
			return "1 day"
		}
		return formatFloat(days) + " days"
	}
}

// formatFloat prints a count without a trailing ".0" for whole values.
func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// RenderMessage composes the notification text for a reminder:
//
//	Reminder: "<title>" starts in <lead> at <HH:MM> at <location>.
//
// The location clause is omitted when empty. The event time is rendered
// in its own location's wall clock.
func RenderMessage(title string, eventStart time.Time, minutesBefore int, location string) string {
	msg := fmt.Sprintf("Reminder: %q starts in %s at %s",
		title, FormatLeadTime(minutesBefore), eventStart.Format("15:04"))
	if location != "" {
		msg += " at " + location
	}
	return msg + "."
}
