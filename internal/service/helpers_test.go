package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"parkops/internal/db"
	"parkops/internal/repository"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(at time.Time) *fakeClock {
	return &fakeClock{now: at}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(at time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = at
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []TransitionEvent
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev TransitionEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) Events() []TransitionEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]TransitionEvent(nil), n.events...)
}

type testEnv struct {
	engine   *LifecycleEngine
	tickets  *repository.MemoryTicketStore
	fees     *repository.MemoryFeeStructureStore
	clock    *fakeClock
	notifier *recordingNotifier
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// standardTariff is free 30, base 1000/30min, extra 500 per 10 minutes,
// valet 3000, no cap.
func standardTariff(id, store string, isDefault bool) *db.FeeStructure {
	return &db.FeeStructure{
		ID:          id,
		OrgID:       "org-1",
		StoreID:     store,
		IsDefault:   isDefault,
		FreeMinutes: 30,
		BaseFee:     1000,
		BaseMinutes: 30,
		ExtraFee:    500,
		ValetFee:    3000,
		MonthlyFee:  90000,
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		tickets:  repository.NewMemoryTicketStore(),
		fees:     repository.NewMemoryFeeStructureStore(),
		clock:    newFakeClock(t0),
		notifier: &recordingNotifier{},
	}
	require.NoError(t, env.fees.Upsert(context.Background(), standardTariff("lobby", "store-1", true)))
	env.engine = NewLifecycleEngine(env.tickets, env.fees, discardLogger(),
		WithClock(env.clock.Now), WithNotifier(env.notifier))
	return env
}

func (env *testEnv) checkIn(t *testing.T, parkingType db.ParkingType) *db.Ticket {
	t.Helper()
	tk, err := env.engine.CheckIn(context.Background(), NewTicket{
		OrgID:       "org-1",
		StoreID:     "store-1",
		PlateNumber: "12ga 3456",
		ParkingType: parkingType,
	})
	require.NoError(t, err)
	return tk
}

// seedPrePaid stores a pre-paid ticket directly, bypassing the engine.
func (env *testEnv) seedPrePaid(t *testing.T, id string, entry time.Time, paid int64) {
	t.Helper()
	paidAt := entry.Add(10 * time.Minute)
	deadline := paidAt.Add(PrePaidGrace)
	require.NoError(t, env.tickets.Create(context.Background(), &db.Ticket{
		ID:              id,
		OrgID:           "org-1",
		StoreID:         "store-1",
		PlateNumber:     "34NA" + id,
		ParkingType:     db.ParkingNormal,
		Status:          db.StatusPrePaid,
		EntryAt:         entry,
		PrePaidAt:       &paidAt,
		PrePaidDeadline: &deadline,
		PaidAmount:      paid,
		PaymentMethod:   "card",
	}))
}
