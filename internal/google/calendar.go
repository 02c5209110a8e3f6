// Package google links Buddy users to their Google Calendars.
package google

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/Quinventa/Buddy-sub001/internal/models"
)

const revokeEndpoint = "https://oauth2.googleapis.com/revoke"

// TokenStore persists per-user Google OAuth connections.
type TokenStore interface {
	GetGoogleConnections(ctx context.Context, userID string) ([]models.GoogleConnection, error)
	UpsertGoogleConnection(ctx context.Context, c *models.GoogleConnection) error
	DeleteGoogleConnections(ctx context.Context, userID string) (int64, error)
}

// Event is a calendar event as the reminder service sees it.
type Event struct {
	ID          string
	Title       string
	Start       time.Time
	End         *time.Time
	AllDay      bool
	Location    string
	Description string
}

// Client talks to Google Calendar on behalf of connected users.
type Client struct {
	oauth      *oauth2.Config
	store      TokenStore
	httpClient *http.Client
	logger     *zerolog.Logger
}

// NewClient builds a calendar client from OAuth app credentials.
func NewClient(clientID, clientSecret, redirectURL string, store TokenStore, logger *zerolog.Logger) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{calendar.CalendarEventsScope},
			Endpoint:     googleoauth.Endpoint,
		},
		store:      store,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
}

// serviceFor builds a calendar service for one stored connection,
// refreshing and re-persisting the token when it has expired.
func (c *Client) serviceFor(ctx context.Context, conn *models.GoogleConnection) (*calendar.Service, error) {
	tok := &oauth2.Token{
		AccessToken:  conn.AccessToken,
		RefreshToken: conn.RefreshToken,
		Expiry:       conn.TokenExpiry,
	}

	ts := c.oauth.TokenSource(ctx, tok)
	fresh, err := ts.Token()
	if err != nil {
		return nil, fmt.Errorf("refresh token for %s: %w", conn.AccountEmail, err)
	}
	if fresh.AccessToken != conn.AccessToken {
		conn.AccessToken = fresh.AccessToken
		conn.TokenExpiry = fresh.Expiry
		if fresh.RefreshToken != "" {
			conn.RefreshToken = fresh.RefreshToken
		}
		if err := c.store.UpsertGoogleConnection(ctx, conn); err != nil {
			c.logger.Error().Err(err).Str("account", conn.AccountEmail).Msg("failed to persist refreshed token")
		}
	}

	return calendar.NewService(ctx, option.WithTokenSource(oauth2.StaticTokenSource(fresh)))
}

// ListUpcomingEvents returns events starting within the horizon across
// all of the user's connected accounts.
func (c *Client) ListUpcomingEvents(ctx context.Context, userID string, horizon time.Duration) ([]Event, error) {
	conns, err := c.store.GetGoogleConnections(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return nil, nil
	}

	now := time.Now()
	var events []Event
	for i := range conns {
		svc, err := c.serviceFor(ctx, &conns[i])
		if err != nil {
			c.logger.Error().Err(err).Str("account", conns[i].AccountEmail).Msg("calendar service unavailable")
			continue
		}

		call := svc.Events.List("primary").
			TimeMin(now.Format(time.RFC3339)).
			TimeMax(now.Add(horizon).Format(time.RFC3339)).
			SingleEvents(true).
			OrderBy("startTime").
			MaxResults(100)

		list, err := call.Context(ctx).Do()
		if err != nil {
			c.logger.Error().Err(err).Str("account", conns[i].AccountEmail).Msg("failed to list events")
			continue
		}

		for _, item := range list.Items {
			ev, err := fromCalendarEvent(item)
			if err != nil {
				c.logger.Debug().Err(err).Str("event_id", item.Id).Msg("skipping unparseable event")
				continue
			}
			events = append(events, ev)
		}
	}
	return events, nil
}

// CreateEventFromIntent inserts a calendar event built from an accepted
// scheduling intent into the user's primary calendar.
func (c *Client) CreateEventFromIntent(ctx context.Context, userID string, intent *models.SchedulingIntent) (*Event, error) {
	if !intent.IsSchedulingRequest {
		return nil, fmt.Errorf("not a scheduling request")
	}
	conns, err := c.store.GetGoogleConnections(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(conns) == 0 {
		return nil, fmt.Errorf("no google connection for user")
	}

	start, err := time.ParseInLocation("2006-01-02 15:04", intent.Date+" "+intent.Time, time.Local)
	if err != nil {
		return nil, fmt.Errorf("parse intent date/time: %w", err)
	}
	duration := intent.Duration
	if duration <= 0 {
		duration = 30
	}
	end := start.Add(time.Duration(duration) * time.Minute)

	ev := &calendar.Event{
		Summary:     intent.Title,
		Location:    intent.Location,
		Description: intent.Description,
		Start:       &calendar.EventDateTime{DateTime: start.Format(time.RFC3339)},
		End:         &calendar.EventDateTime{DateTime: end.Format(time.RFC3339)},
	}
	for _, guest := range intent.Guests {
		ev.Attendees = append(ev.Attendees, &calendar.EventAttendee{Email: guest})
	}

	svc, err := c.serviceFor(ctx, &conns[0])
	if err != nil {
		return nil, err
	}
	created, err := svc.Events.Insert("primary", ev).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	result, err := fromCalendarEvent(created)
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// ClearTokens revokes and deletes every Google connection of a user.
// Revocation is best-effort; local connections are removed regardless.
func (c *Client) ClearTokens(ctx context.Context, userID string) (int64, error) {
	conns, err := c.store.GetGoogleConnections(ctx, userID)
	if err != nil {
		return 0, err
	}

	for _, conn := range conns {
		if err := c.revoke(ctx, conn.AccessToken); err != nil {
			c.logger.Warn().Err(err).Str("account", conn.AccountEmail).Msg("token revocation failed")
		}
	}

	return c.store.DeleteGoogleConnections(ctx, userID)
}

func (c *Client) revoke(ctx context.Context, token string) error {
	form := url.Values{"token": {token}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, revokeEndpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("revoke: status %d", resp.StatusCode)
	}
	return nil
}

// fromCalendarEvent converts a Google event. All-day events carry a
// date-only start and no clock time.
func fromCalendarEvent(item *calendar.Event) (Event, error) {
	ev := Event{
		ID:          item.Id,
		Title:       item.Summary,
		Location:    item.Location,
		Description: item.Description,
	}
	if item.Start == nil {
		return ev, fmt.Errorf("event %s has no start", item.Id)
	}

	if item.Start.Date != "" {
		start, err := time.ParseInLocation("2006-01-02", item.Start.Date, time.Local)
		if err != nil {
			return ev, err
		}
		ev.Start = start
		ev.AllDay = true
		return ev, nil
	}

	start, err := time.Parse(time.RFC3339, item.Start.DateTime)
	if err != nil {
		return ev, err
	}
	ev.Start = start
	if item.End != nil && item.End.DateTime != "" {
		if end, err := time.Parse(time.RFC3339, item.End.DateTime); err == nil {
			ev.End = &end
		}
	}
	return ev, nil
}
