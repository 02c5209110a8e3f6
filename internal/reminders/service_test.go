package reminders

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Quinventa/Buddy-sub001/internal/models"
)

func testLogger() *zerolog.Logger {
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return &logger
}

// MockReminderStore implements ReminderStore for testing.
type MockReminderStore struct {
	mu        sync.Mutex
	reminders map[string]*models.EventReminder
}

func NewMockReminderStore() *MockReminderStore {
	return &MockReminderStore{reminders: make(map[string]*models.EventReminder)}
}

func (m *MockReminderStore) Add(r *models.EventReminder) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reminders[r.ID] = r
}

func (m *MockReminderStore) Get(id string) *models.EventReminder {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reminders[id]
}

func (m *MockReminderStore) GetDueReminders(_ context.Context, now time.Time) ([]models.EventReminder, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var due []models.EventReminder
	for _, r := range m.reminders {
		if !r.IsTriggered && !r.IsDismissed && r.IsDue(now) {
			due = append(due, *r)
		}
	}
	return due, nil
}

func (m *MockReminderStore) TryMarkTriggered(_ context.Context, id string, now time.Time, message string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.reminders[id]
	if !ok || r.IsTriggered || r.IsDismissed {
		return false, nil
	}
	r.IsTriggered = true
	r.TriggeredAt = &now
	r.Message = message
	return true, nil
}

func (m *MockReminderStore) DeleteOldReminders(_ context.Context, olderThan time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	cutoff := time.Now().Add(-olderThan)
	var deleted int64
	for id, r := range m.reminders {
		if r.IsDismissed && r.DismissedAt != nil && r.DismissedAt.Before(cutoff) {
			delete(m.reminders, id)
			deleted++
		}
	}
	return deleted, nil
}

// MockPreferenceStore returns fixed preferences per user.
type MockPreferenceStore struct {
	mu    sync.Mutex
	prefs map[string]*models.ReminderPreferences
}

func NewMockPreferenceStore() *MockPreferenceStore {
	return &MockPreferenceStore{prefs: make(map[string]*models.ReminderPreferences)}
}

func (m *MockPreferenceStore) Set(p *models.ReminderPreferences) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prefs[p.UserID] = p
}

func (m *MockPreferenceStore) GetPreferences(_ context.Context, userID string) (*models.ReminderPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.prefs[userID]; ok {
		return p, nil
	}
	return models.DefaultPreferences(userID), nil
}

// MockNotifier records delivered notifications.
type MockNotifier struct {
	mu            sync.Mutex
	notifications []Notification
}

func (m *MockNotifier) Notify(_ context.Context, n Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.notifications = append(m.notifications, n)
	return nil
}

func (m *MockNotifier) Count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.notifications)
}

func dueReminder(id, userID string) *models.EventReminder {
	start := time.Now().Add(10 * time.Minute)
	return &models.EventReminder{
		ID:                 id,
		UserID:             userID,
		ExternalEventID:    "evt-" + id,
		EventTitle:         "Dentist",
		EventStart:         start,
		Location:           "Main St Clinic",
		ReminderTime:       time.Now().Add(-time.Minute),
		MinutesBeforeEvent: 15,
	}
}

func newTestService(store *MockReminderStore, prefs *MockPreferenceStore, notifier *MockNotifier) *Service {
	return NewService(DefaultConfig(), store, prefs, notifier, testLogger())
}

func TestDueReminderFires(t *testing.T) {
	store := NewMockReminderStore()
	prefs := NewMockPreferenceStore()
	notifier := &MockNotifier{}

	store.Add(dueReminder("r1", "user-1"))
	p := models.DefaultPreferences("user-1")
	p.UseEmojis = false
	prefs.Set(p)

	svc := newTestService(store, prefs, notifier)
	svc.CheckNow()

	r := store.Get("r1")
	require.True(t, r.IsTriggered)
	require.NotNil(t, r.TriggeredAt)
	assert.Contains(t, r.Message, "Dentist")
	assert.Contains(t, r.Message, "15 minutes")
	assert.Contains(t, r.Message, "Main St Clinic")
	assert.Equal(t, 1, notifier.Count())
}

func TestDisabledPreferencesBlockTrigger(t *testing.T) {
	store := NewMockReminderStore()
	prefs := NewMockPreferenceStore()
	notifier := &MockNotifier{}

	store.Add(dueReminder("r1", "user-1"))
	p := models.DefaultPreferences("user-1")
	p.Enabled = false
	prefs.Set(p)

	svc := newTestService(store, prefs, notifier)
	svc.CheckNow()

	r := store.Get("r1")
	assert.False(t, r.IsTriggered, "disabled user must never trigger")
	assert.Zero(t, notifier.Count())
}

func TestAllChannelsOffSuppressesSilently(t *testing.T) {
	store := NewMockReminderStore()
	prefs := NewMockPreferenceStore()
	notifier := &MockNotifier{}

	store.Add(dueReminder("r1", "user-1"))
	p := models.DefaultPreferences("user-1")
	p.NotifyVisually = false
	p.NotifySpoken = false
	prefs.Set(p)

	svc := newTestService(store, prefs, notifier)
	svc.CheckNow()

	r := store.Get("r1")
	assert.True(t, r.IsTriggered, "state still advances when suppressed")
	assert.Zero(t, notifier.Count(), "no notification is delivered")
}

func TestTriggerIsIdempotent(t *testing.T) {
	store := NewMockReminderStore()
	prefs := NewMockPreferenceStore()
	notifier := &MockNotifier{}

	store.Add(dueReminder("r1", "user-1"))

	svc := newTestService(store, prefs, notifier)
	svc.CheckNow()

	firstTriggeredAt := store.Get("r1").TriggeredAt
	require.NotNil(t, firstTriggeredAt)

	svc.CheckNow()

	assert.Equal(t, firstTriggeredAt, store.Get("r1").TriggeredAt,
		"re-checking an already-triggered reminder must not re-render")
	assert.Equal(t, 1, notifier.Count())
}

func TestConcurrentTriggerFiresExactlyOnce(t *testing.T) {
	store := NewMockReminderStore()
	prefs := NewMockPreferenceStore()
	notifier := &MockNotifier{}

	store.Add(dueReminder("r1", "user-1"))

	// Two pollers racing on the same store.
	svc1 := newTestService(store, prefs, notifier)
	svc2 := newTestService(store, prefs, notifier)

	var wg sync.WaitGroup
	for _, svc := range []*Service{svc1, svc2} {
		wg.Add(1)
		go func(s *Service) {
			defer wg.Done()
			s.CheckNow()
		}(svc)
	}
	wg.Wait()

	r := store.Get("r1")
	assert.True(t, r.IsTriggered)
	assert.Equal(t, 1, notifier.Count(), "exactly one notification despite the race")
}

func TestFutureReminderDoesNotFire(t *testing.T) {
	store := NewMockReminderStore()
	prefs := NewMockPreferenceStore()
	notifier := &MockNotifier{}

	r := dueReminder("r1", "user-1")
	r.ReminderTime = time.Now().Add(time.Hour)
	store.Add(r)

	svc := newTestService(store, prefs, notifier)
	svc.CheckNow()

	assert.False(t, store.Get("r1").IsTriggered)
	assert.Zero(t, notifier.Count())
}

func TestEmojiPrefixFollowsPreference(t *testing.T) {
	store := NewMockReminderStore()
	prefs := NewMockPreferenceStore()
	notifier := &MockNotifier{}

	store.Add(dueReminder("r1", "user-1"))
	p := models.DefaultPreferences("user-1")
	p.UseEmojis = true
	prefs.Set(p)

	svc := newTestService(store, prefs, notifier)
	svc.CheckNow()

	assert.True(t, len(store.Get("r1").Message) > 0)
	assert.Contains(t, store.Get("r1").Message, "⏰")
}

func TestStartStop(t *testing.T) {
	store := NewMockReminderStore()
	prefs := NewMockPreferenceStore()
	notifier := &MockNotifier{}

	cfg := DefaultConfig()
	cfg.CheckInterval = 10 * time.Millisecond
	svc := NewService(cfg, store, prefs, notifier, testLogger())

	store.Add(dueReminder("r1", "user-1"))

	svc.Start()
	svc.Start() // second Start is a no-op
	time.Sleep(50 * time.Millisecond)
	svc.Stop()
	svc.Stop() // second Stop is a no-op

	assert.True(t, store.Get("r1").IsTriggered)
}

func TestRestartAfterStop(t *testing.T) {
	store := NewMockReminderStore()
	prefs := NewMockPreferenceStore()
	notifier := &MockNotifier{}

	cfg := DefaultConfig()
	cfg.CheckInterval = 10 * time.Millisecond
	svc := NewService(cfg, store, prefs, notifier, testLogger())

	svc.Start()
	svc.Stop()

	// A reminder becoming due after the restart must still fire; the
	// restarted loop may not inherit the closed stop channel.
	store.Add(dueReminder("r2", "user-1"))
	svc.Start()
	time.Sleep(50 * time.Millisecond)
	svc.Stop()

	assert.True(t, store.Get("r2").IsTriggered)
}
