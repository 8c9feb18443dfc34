package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/fluentpath/detprep-backend/internal/config"
	"github.com/fluentpath/detprep-backend/internal/exercise"
	"github.com/fluentpath/detprep-backend/internal/history"
	"github.com/fluentpath/detprep-backend/internal/model"
	"github.com/fluentpath/detprep-backend/internal/session"
)

var (
	ErrSessionNotFound = errors.New("practice session not found")
	ErrNotSessionOwner = errors.New("session belongs to another user")
)

// reapAfter is how long a finished session stays queryable before the
// registry drops it. The result itself lives on in the user's history.
// idleReapAfter bounds Speaking sessions that were opened but never
// record-started, so an abandoned tab cannot pin a machine forever.
const (
	reapAfter     = 5 * time.Minute
	idleReapAfter = 10 * time.Minute
)

// StartSessionResponse pairs a fresh session with its sanitized prompt.
type StartSessionResponse struct {
	Session model.PracticeSession `json:"session"`
	Prompt  *ClientPrompt         `json:"prompt"`
}

type sessionEntry struct {
	machine    *session.Machine
	driver     *session.Driver
	userID     int
	createdAt  time.Time
	finishedAt time.Time
}

// startStamp is the Redis-cached record of a session opening. It outlives
// the in-memory machine, so a restarted server can still tell whether a
// lost attempt's budget has run out.
type startStamp struct {
	StartedMs int64              `json:"started_ms"`
	Kind      model.ExerciseKind `json:"kind"`
}

// PracticeService orchestrates live practice sessions: it owns the in-memory
// machine registry, drives timers, and on every terminal transition records
// the result to the user's history and enqueues it for database persistence.
type PracticeService struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*sessionEntry

	prompts *PromptService
	history *history.History
	rdb     *redis.Client
	log     zerolog.Logger
}

// NewPracticeService creates a new PracticeService.
func NewPracticeService(prompts *PromptService, hist *history.History, rdb *redis.Client, log zerolog.Logger) *PracticeService {
	return &PracticeService{
		sessions: make(map[uuid.UUID]*sessionEntry),
		prompts:  prompts,
		history:  hist,
		rdb:      rdb,
		log:      log.With().Str("component", "practice_service").Logger(),
	}
}

// StartSession opens a session for the given exercise kind. A user runs at
// most one live session; starting a new one tears down the previous attempt
// without scoring it.
func (s *PracticeService) StartSession(ctx context.Context, userID int, kind model.ExerciseKind) (*StartSessionResponse, error) {
	prompt, err := s.prompts.GetActive(ctx, kind)
	if err != nil {
		return nil, err
	}

	answer, err := exercise.New(kind, prompt)
	if err != nil {
		return nil, err
	}

	m, err := session.New(userID, answer, func(result *model.ExamResult) {
		// Called under the machine lock; hand off immediately.
		go s.persistResult(result)
	})
	if err != nil {
		return nil, err
	}

	s.teardownLiveSessions(userID)

	now := time.Now()
	if kind != model.KindSpeaking {
		if err := m.Start(now); err != nil {
			return nil, err
		}
	}

	startKey := config.CacheKey.SessionStartKey(m.ID().String())
	stamp, _ := json.Marshal(startStamp{StartedMs: now.UnixMilli(), Kind: kind})
	if err := s.rdb.Set(ctx, startKey, stamp, 24*time.Hour).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Session start time cache write failed")
	}

	entry := &sessionEntry{machine: m, driver: session.StartDriver(m), userID: userID, createdAt: now}
	s.mu.Lock()
	s.sessions[m.ID()] = entry
	s.mu.Unlock()

	clientPrompt, err := ForClient(prompt)
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Int("user_id", userID).
		Str("session_id", m.ID().String()).
		Str("kind", string(kind)).
		Msg("Practice session started")

	return &StartSessionResponse{Session: m.Snapshot(), Prompt: clientPrompt}, nil
}

// ApplyEvent feeds one answer event into a live session.
func (s *PracticeService) ApplyEvent(ctx context.Context, userID int, sessionID uuid.UUID, ev *model.AnswerEventRequest) (*model.PracticeSession, error) {
	entry, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}

	if err := entry.machine.Apply(ev, time.Now()); err != nil {
		return nil, err
	}

	if ev.Type == model.EventSetText {
		s.saveDraft(ctx, userID, ev.Text)
	}

	snap := entry.machine.Snapshot()
	s.markIfFinished(entry)
	return &snap, nil
}

// Submit finalizes a session explicitly and returns its scored result.
func (s *PracticeService) Submit(ctx context.Context, userID int, sessionID uuid.UUID) (*model.ExamResult, error) {
	entry, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}

	result, err := entry.machine.Submit(time.Now())
	if err != nil {
		return nil, err
	}

	if entry.machine.Kind() == model.KindWriting {
		s.clearDraft(ctx, userID)
	}
	s.markIfFinished(entry)
	return result, nil
}

// GetState returns the session's current snapshot. When the machine is gone
// from the registry (reaped or lost to a restart), the cached start time
// still answers whether the attempt's budget has run out.
func (s *PracticeService) GetState(ctx context.Context, userID int, sessionID uuid.UUID) (*model.PracticeSession, error) {
	entry, err := s.lookup(userID, sessionID)
	if err == nil {
		snap := entry.machine.Snapshot()
		return &snap, nil
	}
	if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	raw, rerr := s.rdb.Get(ctx, config.CacheKey.SessionStartKey(sessionID.String())).Bytes()
	if rerr != nil {
		return nil, ErrSessionNotFound
	}
	var stamp startStamp
	if err := json.Unmarshal(raw, &stamp); err != nil {
		return nil, ErrSessionNotFound
	}
	return lostSessionState(userID, sessionID, stamp, time.Now())
}

// lostSessionState reconstructs what can be said about a session whose
// machine is gone, from its cached stamp. Only an attempt whose budget has
// actually elapsed reads as expired; an attempt lost mid-flight (server
// restart) has no machine left to resume, so it is reported missing and the
// client starts over.
func lostSessionState(userID int, sessionID uuid.UUID, stamp startStamp, now time.Time) (*model.PracticeSession, error) {
	budget, err := exercise.Budget(stamp.Kind)
	if err != nil {
		return nil, ErrSessionNotFound
	}
	started := time.UnixMilli(stamp.StartedMs)
	if now.Sub(started) < budget {
		return nil, ErrSessionNotFound
	}
	return &model.PracticeSession{
		ID:        sessionID,
		UserID:    userID,
		Kind:      stamp.Kind,
		Status:    model.SessionStatusExpired,
		StartedAt: started,
	}, nil
}

// Cancel tears a session down without scoring it.
func (s *PracticeService) Cancel(ctx context.Context, userID int, sessionID uuid.UUID) error {
	entry, err := s.lookup(userID, sessionID)
	if err != nil {
		return err
	}

	entry.machine.Teardown()
	entry.driver.Stop()

	s.mu.Lock()
	delete(s.sessions, sessionID)
	s.mu.Unlock()

	if err := s.rdb.Del(ctx, config.CacheKey.SessionStartKey(sessionID.String())).Err(); err != nil {
		s.log.Warn().Err(err).Msg("Session start time cache delete failed")
	}

	s.log.Info().
		Int("user_id", userID).
		Str("session_id", sessionID.String()).
		Msg("Practice session canceled")
	return nil
}

// Machine exposes a live session's machine for the websocket tick stream.
func (s *PracticeService) Machine(userID int, sessionID uuid.UUID) (*session.Machine, error) {
	entry, err := s.lookup(userID, sessionID)
	if err != nil {
		return nil, err
	}
	return entry.machine, nil
}

// LoadDraft returns the user's autosaved essay text, or "" when none exists.
func (s *PracticeService) LoadDraft(ctx context.Context, userID int) string {
	text, err := s.rdb.Get(ctx, config.CacheKey.WritingDraftKey(userID)).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.log.Warn().Err(err).Int("user_id", userID).Msg("Draft read failed")
		}
		return ""
	}
	return text
}

// RunReaper drops finished and never-started sessions from the registry
// after their grace periods. Blocks until ctx is canceled.
func (s *PracticeService) RunReaper(ctx context.Context) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case <-ticker.C:
			s.reap()
		}
	}
}

func (s *PracticeService) lookup(userID int, sessionID uuid.UUID) (*sessionEntry, error) {
	s.mu.Lock()
	entry, ok := s.sessions[sessionID]
	s.mu.Unlock()
	if !ok {
		return nil, ErrSessionNotFound
	}
	if entry.userID != userID {
		return nil, ErrNotSessionOwner
	}
	return entry, nil
}

// persistResult fans a scored result out to the bounded history and the
// persistence queue. Runs on its own goroutine per finish.
func (s *PracticeService) persistResult(result *model.ExamResult) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.history.Record(ctx, result)

	payload, err := json.Marshal(result)
	if err != nil {
		s.log.Error().Err(err).Str("result_id", result.ID.String()).Msg("Encode result for queue failed")
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistResultsQueue, payload).Err(); err != nil {
		s.log.Error().Err(err).Str("result_id", result.ID.String()).Msg("Enqueue result failed")
	}

	s.log.Info().
		Int("user_id", result.UserID).
		Str("kind", string(result.Kind)).
		Int("score", result.Score.Overall).
		Bool("expired", result.Expired).
		Msg("Practice result recorded")
}

// markIfFinished stamps the reap clock once a session reaches a terminal
// state, so finished sessions stay queryable briefly and then get dropped.
func (s *PracticeService) markIfFinished(entry *sessionEntry) {
	if !entry.machine.Terminal() {
		return
	}
	s.mu.Lock()
	if entry.finishedAt.IsZero() {
		entry.finishedAt = time.Now()
	}
	s.mu.Unlock()
	entry.driver.Stop()
}

// teardownLiveSessions aborts any non-terminal sessions the user still has.
func (s *PracticeService) teardownLiveSessions(userID int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.sessions {
		if entry.userID != userID || entry.machine.Terminal() {
			continue
		}
		entry.machine.Teardown()
		entry.driver.Stop()
		delete(s.sessions, id)
		s.log.Info().
			Int("user_id", userID).
			Str("session_id", id.String()).
			Msg("Superseded live session torn down")
	}
}

func (s *PracticeService) reap() {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.sessions {
		snap := entry.machine.Snapshot()
		switch {
		case snap.Status.Terminal():
			// Timer expiry finishes a session without passing through
			// ApplyEvent or Submit, so the stamp can still be missing here.
			if entry.finishedAt.IsZero() {
				entry.finishedAt = now
				if snap.FinishedAt != nil {
					entry.finishedAt = *snap.FinishedAt
				}
				entry.driver.Stop()
			}
			if entry.finishedAt.Before(now.Add(-reapAfter)) {
				delete(s.sessions, id)
			}

		case snap.Status == model.SessionStatusIdle && entry.createdAt.Before(now.Add(-idleReapAfter)):
			// A Speaking session the user opened but never record-started.
			entry.machine.Teardown()
			entry.driver.Stop()
			delete(s.sessions, id)
			s.log.Info().
				Str("session_id", id.String()).
				Msg("Never-started session reaped")
		}
	}
}

func (s *PracticeService) shutdown() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, entry := range s.sessions {
		entry.machine.Teardown()
		entry.driver.Stop()
		delete(s.sessions, id)
	}
}

func (s *PracticeService) saveDraft(ctx context.Context, userID int, text string) {
	key := config.CacheKey.WritingDraftKey(userID)
	if err := s.rdb.Set(ctx, key, text, 24*time.Hour).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Draft autosave failed")
	}
}

func (s *PracticeService) clearDraft(ctx context.Context, userID int) {
	if err := s.rdb.Del(ctx, config.CacheKey.WritingDraftKey(userID)).Err(); err != nil {
		s.log.Warn().Err(err).Int("user_id", userID).Msg("Draft clear failed")
	}
}
