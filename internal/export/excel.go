// Package export renders reminder history into spreadsheet reports for
// caregivers.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Quinventa/Buddy-sub001/internal/models"
)

var historyColumns = []string{
	"Event", "Event start", "Lead", "Reminder time",
	"State", "Triggered at", "Dismissed at", "Location",
}

// WriteReminderHistory writes the user's reminder history as an .xlsx
// workbook to w, newest reminders first as given.
func WriteReminderHistory(w io.Writer, reminders []models.EventReminder) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Reminders"
	f.SetSheetName("Sheet1", sheet)

	for i, col := range historyColumns {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}

	// Bold header row.
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		start, _ := excelize.CoordinatesToCellName(1, 1)
		end, _ := excelize.CoordinatesToCellName(len(historyColumns), 1)
		_ = f.SetCellStyle(sheet, start, end, style)
	}

	const timeLayout = "2006-01-02 15:04"
	for rowIdx, r := range reminders {
		triggeredAt := ""
		if r.TriggeredAt != nil {
			triggeredAt = r.TriggeredAt.Format(timeLayout)
		}
		dismissedAt := ""
		if r.DismissedAt != nil {
			dismissedAt = r.DismissedAt.Format(timeLayout)
		}

		values := []any{
			r.EventTitle,
			r.EventStart.Format(timeLayout),
			fmt.Sprintf("%d min", r.MinutesBeforeEvent),
			r.ReminderTime.Format(timeLayout),
			string(r.State()),
			triggeredAt,
			dismissedAt,
			r.Location,
		}
		for colIdx, val := range values {
			cell, err := excelize.CoordinatesToCellName(colIdx+1, rowIdx+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, val); err != nil {
				return err
			}
		}
	}

	return f.Write(w)
}
