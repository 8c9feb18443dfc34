package service

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/fluentpath/detprep-backend/internal/exercise"
	"github.com/fluentpath/detprep-backend/internal/model"
	"github.com/fluentpath/detprep-backend/internal/session"
)

func newRegistryOnlyService() *PracticeService {
	return &PracticeService{
		sessions: make(map[uuid.UUID]*sessionEntry),
		log:      zerolog.Nop(),
	}
}

// expiredByTicks drives a Writing session to expiry through HandleTick
// alone, the way the production driver does, without any event or submit.
func expiredByTicks(t *testing.T, at time.Time) *session.Machine {
	t.Helper()
	m, err := session.New(1, exercise.NewWriting(), nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	if err := m.Start(at); err != nil {
		t.Fatalf("Start: %v", err)
	}
	for i := 0; i < 1000 && !m.Terminal(); i++ {
		m.HandleTick(at)
	}
	if !m.Terminal() {
		t.Fatal("session did not expire under ticks")
	}
	return m
}

func TestReapDropsTimerExpiredSession(t *testing.T) {
	s := newRegistryOnlyService()
	past := time.Now().Add(-time.Hour)

	m := expiredByTicks(t, past)
	s.sessions[m.ID()] = &sessionEntry{
		machine:   m,
		driver:    session.StartDriver(m),
		userID:    1,
		createdAt: past,
	}

	s.reap()
	if len(s.sessions) != 0 {
		t.Fatalf("registry holds %d entries, want 0 after reaping a timer-expired session", len(s.sessions))
	}
}

func TestReapKeepsRecentlyFinishedSessionQueryable(t *testing.T) {
	s := newRegistryOnlyService()
	now := time.Now()

	m := expiredByTicks(t, now)
	entry := &sessionEntry{
		machine:   m,
		driver:    session.StartDriver(m),
		userID:    1,
		createdAt: now,
	}
	s.sessions[m.ID()] = entry

	s.reap()
	if _, err := s.lookup(1, m.ID()); err != nil {
		t.Fatalf("lookup after reap: %v, want the session queryable within the grace period", err)
	}
	if entry.finishedAt.IsZero() {
		t.Error("reap did not stamp the finish time of a terminal session")
	}
}

func TestReapDropsAbandonedIdleSpeakingSession(t *testing.T) {
	s := newRegistryOnlyService()
	now := time.Now()

	stale, err := session.New(1, exercise.NewSpeaking(), nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	s.sessions[stale.ID()] = &sessionEntry{
		machine:   stale,
		driver:    session.StartDriver(stale),
		userID:    1,
		createdAt: now.Add(-idleReapAfter - time.Minute),
	}

	fresh, err := session.New(2, exercise.NewSpeaking(), nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	s.sessions[fresh.ID()] = &sessionEntry{
		machine:   fresh,
		driver:    session.StartDriver(fresh),
		userID:    2,
		createdAt: now,
	}
	defer s.sessions[fresh.ID()].driver.Stop()

	s.reap()
	if _, ok := s.sessions[stale.ID()]; ok {
		t.Error("stale never-started session survived the reap")
	}
	if _, ok := s.sessions[fresh.ID()]; !ok {
		t.Error("fresh never-started session was reaped within its grace period")
	}
}

func TestReapLeavesActiveSessionsAlone(t *testing.T) {
	s := newRegistryOnlyService()

	m, err := session.New(1, exercise.NewWriting(), nil)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	if err := m.Start(time.Now().Add(-time.Hour)); err != nil {
		t.Fatalf("Start: %v", err)
	}
	entry := &sessionEntry{
		machine:   m,
		driver:    session.StartDriver(m),
		userID:    1,
		createdAt: time.Now().Add(-time.Hour),
	}
	s.sessions[m.ID()] = entry
	defer entry.driver.Stop()

	s.reap()
	if _, ok := s.sessions[m.ID()]; !ok {
		t.Fatal("active session was reaped")
	}
}

func TestLostSessionStateWithTimeRemaining(t *testing.T) {
	now := time.Now()
	stamp := startStamp{StartedMs: now.Add(-time.Minute).UnixMilli(), Kind: model.KindWriting}

	if _, err := lostSessionState(7, uuid.New(), stamp, now); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound while the budget still runs", err)
	}
}

func TestLostSessionStateAfterBudgetElapsed(t *testing.T) {
	now := time.Now()
	id := uuid.New()
	started := now.Add(-6 * time.Minute)
	stamp := startStamp{StartedMs: started.UnixMilli(), Kind: model.KindWriting}

	snap, err := lostSessionState(7, id, stamp, now)
	if err != nil {
		t.Fatalf("lostSessionState: %v", err)
	}
	if snap.Status != model.SessionStatusExpired {
		t.Errorf("status = %s, want EXPIRED", snap.Status)
	}
	if snap.Kind != model.KindWriting || snap.ID != id || snap.UserID != 7 {
		t.Errorf("snapshot identity = %+v, want kind/id/user from the stamp", snap)
	}
	if got := snap.StartedAt.UnixMilli(); got != started.UnixMilli() {
		t.Errorf("started_at = %d, want %d", got, started.UnixMilli())
	}
}

func TestLostSessionStateUnknownKind(t *testing.T) {
	stamp := startStamp{StartedMs: time.Now().Add(-time.Hour).UnixMilli(), Kind: "BOGUS"}
	if _, err := lostSessionState(7, uuid.New(), stamp, time.Now()); !errors.Is(err, ErrSessionNotFound) {
		t.Fatalf("err = %v, want ErrSessionNotFound for an undecodable stamp", err)
	}
}
