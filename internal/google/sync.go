package google

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Quinventa/Buddy-sub001/internal/database"
	"github.com/Quinventa/Buddy-sub001/internal/models"
)

// EventSource lists upcoming calendar events for a user.
type EventSource interface {
	ListUpcomingEvents(ctx context.Context, userID string, horizon time.Duration) ([]Event, error)
}

// SyncStore is the persistence the syncer needs: connected users,
// reminder creation and the user's reminder preferences.
type SyncStore interface {
	ListGoogleConnectedUsers(ctx context.Context) ([]string, error)
	HasReminderForEvent(ctx context.Context, userID, externalEventID string) (bool, error)
	CreateReminder(ctx context.Context, r *models.EventReminder) error
	GetPreferences(ctx context.Context, userID string) (*models.ReminderPreferences, error)
}

// Syncer periodically links upcoming calendar events to reminders
// according to each user's preferences.
type Syncer struct {
	source   EventSource
	store    SyncStore
	interval time.Duration
	horizon  time.Duration
	logger   *zerolog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewSyncer creates a calendar reminder syncer.
func NewSyncer(source EventSource, store SyncStore, interval, horizon time.Duration, logger *zerolog.Logger) *Syncer {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if horizon <= 0 {
		horizon = 48 * time.Hour
	}
	return &Syncer{
		source:   source,
		store:    store,
		interval: interval,
		horizon:  horizon,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the sync loop. A stopped syncer can be started again.
func (s *Syncer) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	// Stop closed the previous channel; the new loop needs its own.
	s.stopCh = make(chan struct{})
	stopCh := s.stopCh
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()

		s.SyncAll(ctx)

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-stopCh:
				return
			case <-ticker.C:
				s.SyncAll(ctx)
			}
		}
	}()

	s.logger.Info().
		Dur("interval", s.interval).
		Dur("horizon", s.horizon).
		Msg("calendar sync started")
}

// Stop stops the sync loop.
func (s *Syncer) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()
}

// SyncAll links events to reminders for every connected user.
func (s *Syncer) SyncAll(ctx context.Context) {
	users, err := s.store.ListGoogleConnectedUsers(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to list connected users")
		return
	}

	for _, userID := range users {
		if err := s.SyncUser(ctx, userID); err != nil {
			s.logger.Error().Err(err).Str("user_id", userID).Msg("calendar sync failed")
		}
	}
}

// SyncUser creates reminders for the user's upcoming events that have
// none yet, using the user's default lead time.
func (s *Syncer) SyncUser(ctx context.Context, userID string) error {
	prefs, err := s.store.GetPreferences(ctx, userID)
	if err != nil {
		return err
	}
	if !prefs.Enabled {
		return nil
	}

	events, err := s.source.ListUpcomingEvents(ctx, userID, s.horizon)
	if err != nil {
		return err
	}

	var created int
	for _, ev := range events {
		exists, err := s.store.HasReminderForEvent(ctx, userID, ev.ID)
		if err != nil {
			return err
		}
		if exists {
			continue
		}

		r := &models.EventReminder{
			UserID:             userID,
			ExternalEventID:    ev.ID,
			EventTitle:         ev.Title,
			EventStart:         ev.Start,
			EventEnd:           ev.End,
			Description:        ev.Description,
			Location:           ev.Location,
			AllDay:             ev.AllDay,
			MinutesBeforeEvent: prefs.DefaultLeadMinutes,
			ReminderTime: models.ComputeReminderTime(
				ev.Start, ev.AllDay, prefs.DefaultLeadMinutes, prefs.AllDayEventLeadTime),
		}
		if err := s.store.CreateReminder(ctx, r); err != nil {
			// Another syncer may have created it between the check and
			// the insert; that is not a failure.
			if errors.Is(err, database.ErrDuplicateReminder) {
				continue
			}
			return err
		}
		created++
	}

	if created > 0 {
		s.logger.Info().Str("user_id", userID).Int("created", created).Msg("reminders created from calendar")
	}
	return nil
}
