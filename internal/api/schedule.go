package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Quinventa/Buddy-sub001/internal/metrics"
	"github.com/Quinventa/Buddy-sub001/internal/models"
)

// ScheduleRequest is the body of POST /api/schedule.
type ScheduleRequest struct {
	UserText string `json:"userText"`
}

// handleSchedule extracts a scheduling intent from free-form user text.
// Every failure path answers 200 with {isSchedulingRequest: false}; the
// caller never sees a distinct error status for extraction problems.
func (s *Server) handleSchedule(c *gin.Context) {
	metrics.IncHTTP("schedule")

	if _, ok := s.currentUser(c); !ok {
		return
	}

	var req ScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusOK, models.NotASchedulingRequest())
		return
	}

	intent := s.extractor.Extract(c.Request.Context(), req.UserText)
	c.JSON(http.StatusOK, intent)
}
