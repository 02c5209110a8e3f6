// Package api exposes the Buddy backend over HTTP.
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Quinventa/Buddy-sub001/internal/google"
	"github.com/Quinventa/Buddy-sub001/internal/models"
)

// ErrUnauthenticated is returned by a SessionProvider when no valid
// session accompanies the request.
var ErrUnauthenticated = errors.New("unauthenticated")

// SessionProvider resolves the current user from a request. Session
// handling (cookies, refresh, redirects) belongs to the identity
// infrastructure in front of this service; the core only consumes the
// resolved user id.
type SessionProvider interface {
	CurrentUser(r *http.Request) (string, error)
}

// HeaderSessionProvider trusts a user id header injected by the
// authenticating proxy.
type HeaderSessionProvider struct {
	Header string
}

func (p HeaderSessionProvider) CurrentUser(r *http.Request) (string, error) {
	header := p.Header
	if header == "" {
		header = "X-Buddy-User"
	}
	userID := r.Header.Get(header)
	if userID == "" {
		return "", ErrUnauthenticated
	}
	return userID, nil
}

// Store is the persistence surface the API needs.
type Store interface {
	GetPreferences(ctx context.Context, userID string) (*models.ReminderPreferences, error)
	SavePreferences(ctx context.Context, p *models.ReminderPreferences) error
	ToggleReminders(ctx context.Context, userID string) (bool, error)
	ListReminders(ctx context.Context, userID string) ([]models.EventReminder, error)
	CreateReminder(ctx context.Context, r *models.EventReminder) error
	DismissReminder(ctx context.Context, id, userID string, now time.Time) error
}

// IntentExtractor parses user text into a scheduling intent.
type IntentExtractor interface {
	Extract(ctx context.Context, userText string) *models.SchedulingIntent
}

// GoogleLink is the calendar integration surface: creating events from
// confirmed intents and clearing stored connections.
type GoogleLink interface {
	CreateEventFromIntent(ctx context.Context, userID string, intent *models.SchedulingIntent) (*google.Event, error)
	ClearTokens(ctx context.Context, userID string) (int64, error)
}

// Server wires the HTTP routes.
type Server struct {
	engine    *gin.Engine
	store     Store
	extractor IntentExtractor
	google    GoogleLink
	sessions  SessionProvider
	logger    *zerolog.Logger
}

// NewServer builds the API server. google may be nil when no Google
// OAuth app is configured.
func NewServer(store Store, extractor IntentExtractor, google GoogleLink, sessions SessionProvider, logger *zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	s := &Server{
		engine:    engine,
		store:     store,
		extractor: extractor,
		google:    google,
		sessions:  sessions,
		logger:    logger,
	}

	engine.Use(s.requestLogger())

	api := engine.Group("/api")
	{
		api.POST("/schedule", s.handleSchedule)
		api.GET("/preferences", s.handleGetPreferences)
		api.PUT("/preferences", s.handlePutPreferences)
		api.POST("/preferences/toggle", s.handleToggleReminders)
		api.GET("/reminders", s.handleListReminders)
		api.POST("/reminders", s.handleCreateReminder)
		api.POST("/reminders/:id/dismiss", s.handleDismissReminder)
		api.GET("/reminders/export", s.handleExportReminders)
		api.POST("/calendar/events", s.handleCreateCalendarEvent)
		api.POST("/clear-google-tokens", s.handleClearGoogleTokens)
	}

	return s
}

// Handler returns the underlying HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// requestLogger attaches a request id and logs each request the way the
// rest of the service logs.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.New().String()
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Msg("http request")
	}
}

// currentUser resolves the session user or writes a 401.
func (s *Server) currentUser(c *gin.Context) (string, bool) {
	userID, err := s.sessions.CurrentUser(c.Request)
	if err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return "", false
	}
	return userID, true
}
