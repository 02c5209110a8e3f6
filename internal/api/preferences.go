package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Quinventa/Buddy-sub001/internal/metrics"
	"github.com/Quinventa/Buddy-sub001/internal/models"
)

// handleGetPreferences returns the user's reminder preferences,
// defaults when none are stored yet.
func (s *Server) handleGetPreferences(c *gin.Context) {
	metrics.IncHTTP("get_preferences")

	userID, ok := s.currentUser(c)
	if !ok {
		return
	}

	prefs, err := s.store.GetPreferences(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to load preferences")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}

// handleToggleReminders flips the master reminder switch and returns
// the new value.
func (s *Server) handleToggleReminders(c *gin.Context) {
	metrics.IncHTTP("toggle_reminders")

	userID, ok := s.currentUser(c)
	if !ok {
		return
	}

	enabled, err := s.store.ToggleReminders(c.Request.Context(), userID)
	if err != nil {
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to toggle reminders")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to toggle reminders"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"enabled": enabled})
}

// handlePutPreferences validates and stores the user's reminder
// preferences. The user id always comes from the session, never from
// the body.
func (s *Server) handlePutPreferences(c *gin.Context) {
	metrics.IncHTTP("put_preferences")

	userID, ok := s.currentUser(c)
	if !ok {
		return
	}

	var prefs models.ReminderPreferences
	if err := c.ShouldBindJSON(&prefs); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid JSON body"})
		return
	}
	prefs.UserID = userID

	if err := s.store.SavePreferences(c.Request.Context(), &prefs); err != nil {
		var vErr *models.ValidationError
		if errors.As(err, &vErr) {
			c.JSON(http.StatusBadRequest, gin.H{"error": vErr.Error()})
			return
		}
		s.logger.Error().Err(err).Str("user_id", userID).Msg("failed to save preferences")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to save preferences"})
		return
	}
	c.JSON(http.StatusOK, prefs)
}
