package escalation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"alert-escalation-service/internal/config"
	"alert-escalation-service/internal/db"
	"alert-escalation-service/internal/logging"
	"alert-escalation-service/internal/models"
)

// fakeStore is an in-memory AlertStore/RuleStore with the same semantics as
// the Postgres layer, including optimistic version checks.
type fakeStore struct {
	mu     sync.Mutex
	alerts map[uuid.UUID]*models.AlertRecord
	rules  map[uuid.UUID]models.AlertRule

	failCreate  error
	failUpdate  map[uuid.UUID]error
	undecodable int
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		alerts:     make(map[uuid.UUID]*models.AlertRecord),
		rules:      make(map[uuid.UUID]models.AlertRule),
		failUpdate: make(map[uuid.UUID]error),
	}
}

func (f *fakeStore) CreateAlert(_ context.Context, a models.AlertRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failCreate != nil {
		return f.failCreate
	}
	cp := a
	f.alerts[a.ID] = &cp
	return nil
}

func (f *fakeStore) GetAlert(_ context.Context, id uuid.UUID) (models.AlertRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	a, ok := f.alerts[id]
	if !ok {
		return models.AlertRecord{}, db.ErrNotFound
	}
	return cloneAlert(*a), nil
}

func (f *fakeStore) UpdateAlert(_ context.Context, a models.AlertRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failUpdate[a.ID]; err != nil {
		return err
	}
	stored, ok := f.alerts[a.ID]
	if !ok {
		return db.ErrNotFound
	}
	if stored.Version != a.Version {
		return db.ErrVersionConflict
	}
	attempts := stored.Attempts
	cp := a
	cp.Attempts = attempts
	cp.Version = a.Version + 1
	f.alerts[a.ID] = &cp
	return nil
}

func (f *fakeStore) ApplyEscalation(_ context.Context, a models.AlertRecord, at models.EscalationAttempt) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failUpdate[a.ID]; err != nil {
		return err
	}
	stored, ok := f.alerts[a.ID]
	if !ok {
		return db.ErrNotFound
	}
	if stored.Version != a.Version {
		return db.ErrVersionConflict
	}
	cp := a
	cp.Attempts = append(append([]models.EscalationAttempt(nil), stored.Attempts...), at)
	cp.Version = a.Version + 1
	f.alerts[a.ID] = &cp
	return nil
}

func (f *fakeStore) ListEscalationCandidates(_ context.Context, limit int) ([]models.AlertRecord, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var list []models.AlertRecord
	for _, a := range f.alerts {
		if a.Status == models.StatusActive {
			list = append(list, cloneAlert(*a))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].TriggerTime.Before(list[j].TriggerTime) })
	if len(list) > limit {
		list = list[:limit]
	}
	return list, f.undecodable, nil
}

func (f *fakeStore) ResolveAlertsByUserAndTypes(_ context.Context, userID int, types []models.AlertType, now time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.alerts {
		if a.UserID != userID || a.Status == models.StatusResolved {
			continue
		}
		for _, t := range types {
			if a.Type == t {
				a.Status = models.StatusResolved
				resolvedAt := now
				a.ResolvedAt = &resolvedAt
				a.Schedule = models.NotScheduled()
				a.Version++
				n++
				break
			}
		}
	}
	return n, nil
}

func (f *fakeStore) DeleteResolvedOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for id, a := range f.alerts {
		if a.Status == models.StatusResolved && a.TriggerTime.Before(cutoff) {
			delete(f.alerts, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) CountActiveOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, a := range f.alerts {
		if a.Status != models.StatusResolved && a.TriggerTime.Before(cutoff) {
			n++
		}
	}
	return n, nil
}

func (f *fakeStore) GetAlertRule(_ context.Context, id uuid.UUID) (models.AlertRule, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.rules[id]
	if !ok {
		return models.AlertRule{}, db.ErrNotFound
	}
	return r, nil
}

func cloneAlert(a models.AlertRecord) models.AlertRecord {
	cp := a
	cp.Attempts = append([]models.EscalationAttempt(nil), a.Attempts...)
	return cp
}

// fakeOracle answers quiet-hours checks from a fixed flag.
type fakeOracle struct {
	quiet bool
	err   error
}

func (f *fakeOracle) IsInQuietHours(context.Context, int, time.Time) (bool, error) {
	return f.quiet, f.err
}

// recordingNotifier captures dispatched notifications and can be set to
// fail or to run a hook on each dispatch.
type recordingNotifier struct {
	mu       sync.Mutex
	sent     []models.Notification
	users    []int
	err      error
	channels []string
	onSend   func()
}

func (r *recordingNotifier) Dispatch(_ context.Context, n models.Notification, userID int) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.onSend != nil {
		r.onSend()
	}
	if r.err != nil {
		return nil, r.err
	}
	r.sent = append(r.sent, n)
	r.users = append(r.users, userID)
	if r.channels != nil {
		return r.channels, nil
	}
	return []string{"push"}, nil
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func (r *recordingNotifier) last() models.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sent[len(r.sent)-1]
}

// testClock lets sweeps advance through virtual time.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = t
}

func newTestService(store *fakeStore, oracle *fakeOracle, n *recordingNotifier, clock *testClock) *Service {
	var cfg config.Config
	cfg.Escalation.CooldownMinutes = 15
	cfg.Escalation.BatchSize = 50
	cfg.Escalation.MaxEscalations = 3
	cfg.Escalation.RetentionDays = 30
	cfg.Notification.DispatchTimeout = 1

	svc := New(store, store, oracle, n, logging.NewNop(), cfg)
	svc.now = clock.Now
	return svc
}

func floatPtr(v float64) *float64 { return &v }
