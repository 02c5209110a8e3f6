// Package reminders runs the polling loop that fires due event reminders.
package reminders

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/Quinventa/Buddy-sub001/internal/format"
	"github.com/Quinventa/Buddy-sub001/internal/metrics"
)

// Config holds configuration for the reminder poller.
type Config struct {
	// CheckInterval is how often to scan for due reminders.
	// Default: 30 seconds.
	CheckInterval time.Duration

	// MaxConcurrentNotifications limits parallel notification sends.
	// Default: 10.
	MaxConcurrentNotifications int

	// Retention is how long dismissed reminders are kept.
	// Default: 14 days.
	Retention time.Duration
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		CheckInterval:              30 * time.Second,
		MaxConcurrentNotifications: 10,
		Retention:                  14 * 24 * time.Hour,
	}
}

// Service scans for due reminders and fires them.
type Service struct {
	config   *Config
	store    ReminderStore
	prefs    PreferenceStore
	notifier Notifier
	logger   *zerolog.Logger
	stopCh   chan struct{}
	wg       sync.WaitGroup
	mu       sync.Mutex
	running  bool
}

// NewService creates a new reminder poller.
func NewService(
	config *Config,
	store ReminderStore,
	prefs PreferenceStore,
	notifier Notifier,
	logger *zerolog.Logger,
) *Service {
	if config == nil {
		config = DefaultConfig()
	}
	if config.CheckInterval == 0 {
		config.CheckInterval = 30 * time.Second
	}
	if config.MaxConcurrentNotifications == 0 {
		config.MaxConcurrentNotifications = 10
	}
	if config.Retention == 0 {
		config.Retention = 14 * 24 * time.Hour
	}

	return &Service{
		config:   config,
		store:    store,
		prefs:    prefs,
		notifier: notifier,
		logger:   logger,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the polling loop. A stopped service can be started again.
func (s *Service) Start() {
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
	go s.loop(stopCh)

	s.logger.Info().
		Dur("check_interval", s.config.CheckInterval).
		Msg("reminder poller started")
}

// Stop gracefully stops the polling loop.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	close(s.stopCh)
	s.mu.Unlock()

	s.wg.Wait()

	s.logger.Info().Msg("reminder poller stopped")
}

func (s *Service) loop(stopCh <-chan struct{}) {
	defer s.wg.Done()

	// Run immediately on start.
	s.checkAndTrigger()

	ticker := time.NewTicker(s.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-stopCh:
			return
		case <-ticker.C:
			s.checkAndTrigger()
			s.cleanup()
		}
	}
}

// checkAndTrigger fires every due reminder whose user still has
// reminders enabled.
func (s *Service) checkAndTrigger() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	now := time.Now()
	due, err := s.store.GetDueReminders(ctx, now)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to get due reminders")
		return
	}
	metrics.SetDueQueueSize(len(due))
	if len(due) == 0 {
		return
	}

	s.logger.Debug().Int("count", len(due)).Msg("found due reminders")

	// Semaphore keeps notification fan-out bounded.
	sem := make(chan struct{}, s.config.MaxConcurrentNotifications)
	var wg sync.WaitGroup

	for i := range due {
		r := due[i]

		prefs, err := s.prefs.GetPreferences(ctx, r.UserID)
		if err != nil {
			s.logger.Error().Err(err).Str("user_id", r.UserID).Msg("failed to get preferences")
			continue
		}
		if !prefs.Enabled {
			// Disabled users keep their reminders in scheduled state;
			// re-enabling lets them fire on the next cycle.
			continue
		}

		message := format.RenderMessage(r.EventTitle, r.EventStart, r.MinutesBeforeEvent, r.Location)
		if prefs.UseEmojis {
			message = "⏰ " + message
		}

		triggered, err := s.store.TryMarkTriggered(ctx, r.ID, now, message)
		if err != nil {
			s.logger.Error().Err(err).Str("reminder_id", r.ID).Msg("failed to trigger reminder")
			continue
		}
		if !triggered {
			// Another poller won the race; nothing to deliver here.
			continue
		}

		if !prefs.NotifyVisually && !prefs.NotifySpoken {
			// Both channels off: the reminder advances but stays silent.
			metrics.IncTriggered("suppressed")
			s.logger.Debug().Str("reminder_id", r.ID).Msg("reminder suppressed, all channels disabled")
			continue
		}

		n := Notification{
			ReminderID: r.ID,
			UserID:     r.UserID,
			Message:    message,
			Visual:     prefs.NotifyVisually,
			Spoken:     prefs.NotifySpoken,
		}

		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			if err := s.notifier.Notify(ctx, n); err != nil {
				s.logger.Error().Err(err).
					Str("reminder_id", n.ReminderID).
					Str("user_id", n.UserID).
					Msg("failed to deliver reminder")
				return
			}
			metrics.IncTriggered(channelLabel(n))
			s.logger.Info().
				Str("reminder_id", n.ReminderID).
				Str("user_id", n.UserID).
				Msg("reminder delivered")
		}()
	}

	wg.Wait()
}

func channelLabel(n Notification) string {
	switch {
	case n.Visual && n.Spoken:
		return "visual_spoken"
	case n.Visual:
		return "visual"
	default:
		return "spoken"
	}
}

func (s *Service) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	deleted, err := s.store.DeleteOldReminders(ctx, s.config.Retention)
	if err != nil {
		s.logger.Error().Err(err).Msg("failed to clean up old reminders")
		return
	}
	if deleted > 0 {
		metrics.IncCleanedUp(deleted)
		s.logger.Info().Int64("deleted", deleted).Msg("cleaned up old dismissed reminders")
	}
}

// CheckNow triggers an immediate poll cycle (useful for testing).
func (s *Service) CheckNow() {
	s.checkAndTrigger()
}
