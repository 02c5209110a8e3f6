package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Quinventa/Buddy-sub001/internal/database"
	"github.com/Quinventa/Buddy-sub001/internal/export"
	"github.com/Quinventa/Buddy-sub001/internal/metrics"
	"github.com/Quinventa/Buddy-sub001/internal/models"
)

// CreateReminderRequest is the body of POST /api/reminders.
type CreateReminderRequest struct {
	ExternalEventID    string     `json:"external_event_id"`
	EventTitle         string     `json:"event_title"`
	EventStart         time.Time  `json:"event_start"`
	EventEnd           *time.Time `json:"event_end,omitempty"`
	Description        string     `json:"description,omitempty"`
	Location           string     `json:"location,omitempty"`
	AllDay             bool       `json:"all_day"`
	MinutesBeforeEvent *int       `json:"minutes_before_event,omitempty"`
}

// handleListReminders returns the user's reminders, soonest first.
func (s *Server) handleListReminders(c *gin.Context) {
	metrics.IncHTTP("list_reminders")

	userID, ok := s.currentUser(c)
	if !ok {
		return
	}

	reminders, err := s.store.ListReminders(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list reminders")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list reminders"})
		return
	}
	if reminders == nil {
		reminders = []models.EventReminder{}
	}
	c.JSON(http.StatusOK, gin.H{"reminders": reminders})
}

// handleCreateReminder links a calendar event to a reminder. When no
// lead is given the user's default applies; all-day events fire at the
// preference's wall-clock lead time instead of an offset.
func (s *Server) handleCreateReminder(c *gin.Context) {
	metrics.IncHTTP("create_reminder")

	userID, ok := s.currentUser(c)
	if !ok {
		return
	}

	var req CreateReminderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if req.ExternalEventID == "" || req.EventTitle == "" || req.EventStart.IsZero() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "external_event_id, event_title and event_start are required"})
		return
	}
	if req.MinutesBeforeEvent != nil && *req.MinutesBeforeEvent < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "minutes_before_event must be >= 0"})
		return
	}

	prefs, err := s.store.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load preferences")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}

	lead := prefs.DefaultLeadMinutes
	if req.MinutesBeforeEvent != nil {
		lead = *req.MinutesBeforeEvent
	}

	r := &models.EventReminder{
		UserID:             userID,
		ExternalEventID:    req.ExternalEventID,
		EventTitle:         req.EventTitle,
		EventStart:         req.EventStart,
		EventEnd:           req.EventEnd,
		Description:        req.Description,
		Location:           req.Location,
		AllDay:             req.AllDay,
		MinutesBeforeEvent: lead,
		ReminderTime: models.ComputeReminderTime(
			req.EventStart, req.AllDay, lead, prefs.AllDayEventLeadTime),
	}

	if err := s.store.CreateReminder(c.Request.Context(), r); err != nil {
		if errors.Is(err, database.ErrDuplicateReminder) {
			c.JSON(http.StatusConflict, gin.H{"error": "reminder already exists for event"})
			return
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to create reminder")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create reminder"})
		return
	}
	c.JSON(http.StatusCreated, r)
}

// handleDismissReminder acknowledges a triggered reminder. Dismissing a
// reminder that has not triggered is a caller bug and is rejected.
func (s *Server) handleDismissReminder(c *gin.Context) {
	metrics.IncHTTP("dismiss_reminder")

	userID, ok := s.currentUser(c)
	if !ok {
		return
	}

	id := c.Param("id")
	err := s.store.DismissReminder(c.Request.Context(), id, userID, time.Now())
	switch {
	case err == nil:
		metrics.IncDismissed()
		c.JSON(http.StatusOK, gin.H{"dismissed": true})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "reminder not found"})
	case errors.Is(err, models.ErrNotTriggered):
		c.JSON(http.StatusConflict, gin.H{"error": "reminder has not been triggered"})
	case errors.Is(err, models.ErrAlreadyDismissed):
		c.JSON(http.StatusConflict, gin.H{"error": "reminder already dismissed"})
	default:
		s.logger.Error().Err(err).Str("reminder_id", id).Msg("failed to dismiss reminder")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to dismiss reminder"})
	}
}

// handleExportReminders streams the user's reminder history as an
// .xlsx workbook.
func (s *Server) handleExportReminders(c *gin.Context) {
	metrics.IncHTTP("export_reminders")

	userID, ok := s.currentUser(c)
	if !ok {
		return
	}

	reminders, err := s.store.ListReminders(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to list reminders for export")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to export reminders"})
		return
	}

	filename := fmt.Sprintf("buddy_reminders_%s.xlsx", time.Now().Format("20060102"))
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")

	if err := export.WriteReminderHistory(c.Writer, reminders); err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to write export")
	}
}
