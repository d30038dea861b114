// Package view serves paged artwork views with row selection and
// auto-select on top of a session store.
package view

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/Sternrassler/artic-browser/pkg/artwork"
	"github.com/Sternrassler/artic-browser/pkg/pagination"
	"github.com/Sternrassler/artic-browser/pkg/session"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// ErrAutoSelectAborted is returned when a page change or reset interrupts
// an auto-select run. The selection is left as it was before the run.
var ErrAutoSelectAborted = errors.New("auto-select aborted")

// View is what a table widget needs to render one page.
type View struct {
	SessionID string            `json:"session_id"`
	Items     []artwork.Artwork `json:"items"`
	Selection artwork.Selection `json:"selection"`
	Total     int               `json:"total"`

	// First and Rows are the paginator's offset and page size.
	First int `json:"first"`
	Rows  int `json:"rows"`

	PageIndex    int `json:"page_index"`
	PendingCount int `json:"pending_count"`

	// Status is the outcome of the page fetch. It is empty, and Items nil,
	// when the call did not reload the page.
	Status pagination.Status `json:"status,omitempty"`
}

// Config holds view service settings.
type Config struct {
	// PageSize of new sessions.
	PageSize int

	// Accumulation tunes auto-select runs.
	Accumulation pagination.Options
}

// Service binds a page fetcher and a session store.
type Service struct {
	fetcher     pagination.Fetcher
	accumulator *pagination.Accumulator
	store       session.Store
	config      Config
	logger      zerolog.Logger

	mu    sync.Mutex
	locks map[string]*sessionLock
	runs  map[string]*activeRun
}

type activeRun struct {
	cancel context.CancelCauseFunc
}

type sessionLock struct {
	mu   sync.Mutex
	refs int

	// aborts counts page changes, resets and closes that asked to stop
	// the session's runs. Guarded by Service.mu.
	aborts uint64
}

// NewService creates a view service.
func NewService(fetcher pagination.Fetcher, store session.Store, cfg Config) *Service {
	if cfg.PageSize < 1 {
		cfg.PageSize = session.DefaultPageSize
	}
	return &Service{
		fetcher:     fetcher,
		accumulator: pagination.NewAccumulator(fetcher, cfg.Accumulation),
		store:       store,
		config:      cfg,
		logger:      log.With().Str("component", "view").Logger(),
		locks:       make(map[string]*sessionLock),
		runs:        make(map[string]*activeRun),
	}
}

// pin returns the lock entry of a session and keeps it alive until unpin.
// With abort set it also records an abort request and cancels the
// session's run, before the caller waits for the lock.
func (s *Service) pin(id string, abort bool) *sessionLock {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &sessionLock{}
		s.locks[id] = l
	}
	l.refs++
	var run *activeRun
	if abort {
		l.aborts++
		run = s.runs[id]
		delete(s.runs, id)
	}
	s.mu.Unlock()

	if run != nil {
		run.cancel(ErrAutoSelectAborted)
		s.logger.Debug().Str("session", id).Msg("Auto-select run aborted")
	}
	return l
}

func (s *Service) unpin(id string, l *sessionLock) {
	s.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
	s.mu.Unlock()
}

// lock serializes read-modify-write cycles on one session.
func (s *Service) lock(id string) func() {
	l := s.pin(id, false)
	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		s.unpin(id, l)
	}
}

// lockAborting locks a session for a change that invalidates its
// auto-select run.
func (s *Service) lockAborting(id string) func() {
	l := s.pin(id, true)
	l.mu.Lock()
	// A run may have registered while this call waited for the lock.
	s.abortRun(id)
	return func() {
		l.mu.Unlock()
		s.unpin(id, l)
	}
}

// abortRun cancels the in-flight auto-select run of a session, if any.
func (s *Service) abortRun(id string) {
	s.mu.Lock()
	run, ok := s.runs[id]
	delete(s.runs, id)
	s.mu.Unlock()

	if ok {
		run.cancel(ErrAutoSelectAborted)
		s.logger.Debug().Str("session", id).Msg("Auto-select run aborted")
	}
}

// Open creates a session and loads its first page.
func (s *Service) Open(ctx context.Context) (View, error) {
	sess := session.New(s.config.PageSize)
	if err := s.store.Save(ctx, sess); err != nil {
		return View{}, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info().
		Str("session", sess.ID).
		Int("rows", sess.PageSize).
		Msg("Session opened")

	unlock := s.lock(sess.ID)
	defer unlock()
	return s.loadLocked(ctx, sess)
}

// Load fetches the session's current page.
func (s *Service) Load(ctx context.Context, id string) (View, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	return s.loadLocked(ctx, sess)
}

// PageChange applies a paginator event and loads the new page. Any
// auto-select run in flight for the session is aborted first.
func (s *Service) PageChange(ctx context.Context, id string, first, rows int) (View, error) {
	unlock := s.lockAborting(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	if err := sess.ApplyPageChange(first, rows); err != nil {
		return View{}, err
	}

	s.logger.Debug().
		Str("session", id).
		Int("first", first).
		Int("rows", rows).
		Int("page", sess.PageIndex).
		Msg("Page changed")

	return s.loadLocked(ctx, sess)
}

// SelectionChange replaces the selection. The page is not reloaded.
func (s *Service) SelectionChange(ctx context.Context, id string, sel artwork.Selection) (View, error) {
	return s.update(ctx, id, func(sess *session.Session) error {
		sess.ApplySelectionChange(sel)
		return nil
	})
}

// SetPendingCount sets the default target of the next auto-select run.
func (s *Service) SetPendingCount(ctx context.Context, id string, n int) (View, error) {
	return s.update(ctx, id, func(sess *session.Session) error {
		return sess.SetPendingCount(n)
	})
}

// Reset clears the selection, returns to the first page and loads it.
func (s *Service) Reset(ctx context.Context, id string) (View, error) {
	unlock := s.lockAborting(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	sess.Reset()
	return s.loadLocked(ctx, sess)
}

// Close aborts any run and deletes the session.
func (s *Service) Close(ctx context.Context, id string) error {
	unlock := s.lockAborting(id)
	defer unlock()

	if _, err := s.store.Get(ctx, id); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}

	s.logger.Info().Str("session", id).Msg("Session closed")
	return nil
}

// AutoSelect grows the selection to n items, starting on the current page.
// n == 0 uses the session's pending count. On completion the selection is
// stored and the pending count goes back to its default. The page is not
// reloaded.
func (s *Service) AutoSelect(ctx context.Context, id string, n int) (View, pagination.Run, error) {
	if n < 0 {
		return View{}, pagination.Run{}, fmt.Errorf("%w: %d", session.ErrInvalidPendingCount, n)
	}

	// The entry stays pinned for the whole run so its abort count survives
	// while nobody holds the lock.
	l := s.pin(id, false)
	defer s.unpin(id, l)

	l.mu.Lock()
	s.mu.Lock()
	aborts := l.aborts
	s.mu.Unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		l.mu.Unlock()
		return View{}, pagination.Run{}, err
	}
	if n == 0 {
		n = sess.PendingCount
	}

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)
	active := &activeRun{cancel: cancel}

	// A newer run supersedes an older one.
	s.mu.Lock()
	if previous, ok := s.runs[id]; ok {
		previous.cancel(ErrAutoSelectAborted)
	}
	s.runs[id] = active
	if l.aborts != aborts {
		// A page change arrived while the session was being read
		cancel(ErrAutoSelectAborted)
	}
	s.mu.Unlock()
	l.mu.Unlock()

	// The session lock is not held during the run.
	run := s.accumulator.Accumulate(runCtx, sess.Selection, n, sess.PageIndex, sess.PageSize)

	s.mu.Lock()
	if s.runs[id] == active {
		delete(s.runs, id)
	}
	s.mu.Unlock()

	if run.Stop == pagination.StopCancelled && !errors.Is(context.Cause(runCtx), ErrAutoSelectAborted) {
		return View{}, run, ctx.Err()
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// An abort requested after the last fetch, or still waiting for the
	// lock, also discards the result.
	s.mu.Lock()
	aborted := l.aborts != aborts || errors.Is(context.Cause(runCtx), ErrAutoSelectAborted)
	s.mu.Unlock()
	if aborted {
		s.logger.Info().
			Str("session", id).
			Int("target", n).
			Int("added", run.Added).
			Msg("Auto-select discarded after abort")
		return View{}, run, ErrAutoSelectAborted
	}

	latest, err := s.store.Get(ctx, id)
	if err != nil {
		return View{}, run, err
	}
	latest.ApplySelectionChange(run.Selection)
	latest.PendingCount = session.DefaultPendingCount
	if err := s.store.Save(ctx, latest); err != nil {
		return View{}, run, fmt.Errorf("save session: %w", err)
	}

	s.logger.Info().
		Str("session", id).
		Int("target", n).
		Int("selected", len(latest.Selection)).
		Str("stop", string(run.Stop)).
		Msg("Auto-select complete")

	return stateView(latest), run, nil
}

// update applies fn to a session and saves it.
func (s *Service) update(ctx context.Context, id string, fn func(*session.Session) error) (View, error) {
	unlock := s.lock(id)
	defer unlock()

	sess, err := s.store.Get(ctx, id)
	if err != nil {
		return View{}, err
	}
	if err := fn(sess); err != nil {
		return View{}, err
	}
	if err := s.store.Save(ctx, sess); err != nil {
		return View{}, fmt.Errorf("save session: %w", err)
	}
	return stateView(sess), nil
}

// loadLocked fetches the current page of sess and saves it. The caller
// holds the session lock.
func (s *Service) loadLocked(ctx context.Context, sess *session.Session) (View, error) {
	res := pagination.Fetch(ctx, s.fetcher, sess.PageIndex, sess.PageSize)
	if res.Status != pagination.StatusFailed {
		sess.Total = res.Page.Total
	}

	if err := s.store.Save(ctx, sess); err != nil {
		return View{}, fmt.Errorf("save session: %w", err)
	}

	v := stateView(sess)
	v.Items = res.Items()
	v.Status = res.Status
	return v, nil
}

func stateView(sess *session.Session) View {
	return View{
		SessionID:    sess.ID,
		Selection:    sess.Selection.Clone(),
		Total:        sess.Total,
		First:        sess.First(),
		Rows:         sess.PageSize,
		PageIndex:    sess.PageIndex,
		PendingCount: sess.PendingCount,
	}
}
