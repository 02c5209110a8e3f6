package api

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Quinventa/Buddy-sub001/internal/metrics"
	"github.com/Quinventa/Buddy-sub001/internal/models"
)

// handleCreateCalendarEvent inserts a calendar event from a confirmed
// scheduling intent. The UI calls this after the user approves the
// extracted details.
func (s *Server) handleCreateCalendarEvent(c *gin.Context) {
	metrics.IncHTTP("create_calendar_event")

	userID, ok := s.currentUser(c)
	if !ok {
		return
	}

	if s.google == nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "google integration not configured"})
		return
	}

	var intent models.SchedulingIntent
	if err := c.ShouldBindJSON(&intent); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	if !intent.IsSchedulingRequest || intent.Title == "" || intent.Date == "" || intent.Time == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "intent must be a scheduling request with title, date and time"})
		return
	}

	event, err := s.google.CreateEventFromIntent(c.Request.Context(), userID, &intent)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to create calendar event")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create calendar event"})
		return
	}
	c.JSON(http.StatusCreated, event)
}

// ClearGoogleTokensResponse is the body of POST /api/clear-google-tokens.
type ClearGoogleTokensResponse struct {
	Success            bool   `json:"success"`
	Message            string `json:"message,omitempty"`
	ClearedConnections int64  `json:"clearedConnections"`
	Error              string `json:"error,omitempty"`
	Details            string `json:"details,omitempty"`
}

// handleClearGoogleTokens revokes and removes every stored Google
// connection for the current user.
func (s *Server) handleClearGoogleTokens(c *gin.Context) {
	metrics.IncHTTP("clear_google_tokens")

	userID, ok := s.currentUser(c)
	if !ok {
		return
	}

	if s.google == nil {
		c.JSON(http.StatusInternalServerError, ClearGoogleTokensResponse{
			Success: false,
			Error:   "google integration not configured",
		})
		return
	}

	cleared, err := s.google.ClearTokens(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to clear google tokens")
		c.JSON(http.StatusInternalServerError, ClearGoogleTokensResponse{
			Success: false,
			Error:   "failed to clear google connections",
			Details: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, ClearGoogleTokensResponse{
		Success:            true,
		Message:            fmt.Sprintf("cleared %d google connection(s)", cleared),
		ClearedConnections: cleared,
	})
}
