// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package unitrad

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/pdiddy/unitrad/internal/httputil"
	"github.com/pdiddy/unitrad/internal/query"
	"github.com/pdiddy/unitrad/pkg/types"
)

// Session runs one search and its polling lifecycle.
//
// All network calls, merges and callbacks of a session happen on a single
// goroutine, one step at a time. The snapshot it owns is never shared: the
// callback and Snapshot receive values that later merges do not modify.
type Session struct {
	requester Requester
	clock     Clock
	retry     httputil.RetryPolicy
	timings   types.SessionConfig
	logger    *slog.Logger
	onError   func(error)
	onState   func(State)

	mu        sync.Mutex
	state     State
	started   bool
	cancelled bool
	err       error
	cancel    context.CancelFunc

	done     chan struct{}
	doneOnce sync.Once
	latest   atomic.Pointer[types.Snapshot]

	// Owned by the run goroutine.
	onSnapshot func(types.Snapshot)
	cur        types.Snapshot
	failures   int
}

// Option configures a Session.
type Option func(*Session)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Session) {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
	}
}

// WithClock replaces the wall clock used for delays.
func WithClock(c Clock) Option {
	return func(s *Session) {
		if c != nil {
			s.clock = c
		}
	}
}

// WithRetryPolicy sets how failed requests are resent.
// Default is a fixed 1s delay with no cap.
func WithRetryPolicy(p httputil.RetryPolicy) Option {
	return func(s *Session) { s.retry = p }
}

// WithTimings sets the polling cadence. Zero fields keep their defaults.
func WithTimings(cfg types.SessionConfig) Option {
	return func(s *Session) {
		if cfg.WarmupDelay > 0 {
			s.timings.WarmupDelay = cfg.WarmupDelay
		}
		if cfg.PollDelay > 0 {
			s.timings.PollDelay = cfg.PollDelay
		}
		if cfg.EmptyPollDelay > 0 {
			s.timings.EmptyPollDelay = cfg.EmptyPollDelay
		}
		if cfg.PollTimeout > 0 {
			s.timings.PollTimeout = cfg.PollTimeout
		}
	}
}

// WithErrorHandler registers fn to receive the error that ends a session in
// StateFailed. Transport and status errors are retried and never reach it.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Session) { s.onError = fn }
}

// WithStateHandler registers fn to observe state changes. It may be called
// from the session goroutine and from the goroutine calling Cancel.
func WithStateHandler(fn func(State)) Option {
	return func(s *Session) { s.onState = fn }
}

// NewSession creates an idle session.
func NewSession(r Requester, opts ...Option) (*Session, error) {
	if r == nil {
		return nil, ErrRequesterRequired
	}
	s := &Session{
		requester: r,
		clock:     systemClock{},
		retry:     httputil.NewRetryPolicy(types.DefaultRetryConfig()),
		timings:   types.DefaultSessionConfig(),
		logger:    slog.Default(),
		done:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Search creates a session and starts it.
func Search(ctx context.Context, r Requester, q types.Query, onSnapshot func(types.Snapshot), opts ...Option) (*Session, error) {
	s, err := NewSession(r, opts...)
	if err != nil {
		return nil, err
	}
	if err := s.Start(ctx, q, onSnapshot); err != nil {
		return nil, err
	}
	return s, nil
}

// Start sends the search request for q and keeps polling until the server
// reports completion, the session is cancelled, or ctx is done. onSnapshot
// receives every accepted response as a full cumulative snapshot; it runs on
// the session goroutine and must not block.
func (s *Session) Start(ctx context.Context, q types.Query, onSnapshot func(types.Snapshot)) error {
	if onSnapshot == nil {
		return ErrNilCallback
	}

	s.mu.Lock()
	switch {
	case s.cancelled:
		s.mu.Unlock()
		return ErrCancelled
	case s.started:
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	ctx, cancel := context.WithCancel(ctx)
	s.started = true
	s.cancel = cancel
	s.onSnapshot = onSnapshot
	s.state = StateSearching
	h := s.onState
	s.mu.Unlock()

	if h != nil {
		h(StateSearching)
	}
	s.logger.Info("starting unitrad search", "query", query.Strip(q))
	go s.run(ctx, query.Params(q))
	return nil
}

// Cancel stops the session. It is safe to call more than once and from the
// snapshot callback. A request already in flight is aborted and its result
// discarded; no callback fires once the cancellation is observed.
//
// The session context is cancelled before StateCancelled is published.
func (s *Session) Cancel() {
	s.mu.Lock()
	s.cancelled = true
	cancel := s.cancel
	started := s.started
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.finish(StateCancelled, ErrCancelled)
	if !started {
		s.closeDone()
	}
}

// Done is closed when the session reaches a terminal state.
func (s *Session) Done() <-chan struct{} { return s.done }

// Wait blocks until the session ends or ctx is done, and returns Err.
func (s *Session) Wait(ctx context.Context) error {
	select {
	case <-s.done:
		return s.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Err returns why the session ended: nil when completed, an error matching
// ErrCancelled when cancelled, or the failure otherwise.
func (s *Session) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Snapshot returns the most recently delivered snapshot.
func (s *Session) Snapshot() (types.Snapshot, bool) {
	p := s.latest.Load()
	if p == nil {
		return types.Snapshot{}, false
	}
	return *p, true
}

func (s *Session) run(ctx context.Context, params []httputil.Param) {
	defer s.closeDone()
	defer s.cancel()

	body, err := s.fetch(ctx, CommandSearch, params)
	for err == nil {
		var (
			delay time.Duration
			more  bool
		)
		delay, more, err = s.receive(ctx, body)
		if err != nil || !more {
			break
		}

		s.setState(StatePolling)
		if err = s.sleep(ctx, delay); err != nil {
			break
		}
		body, err = s.poll(ctx)
	}
	if err != nil {
		s.stop(ctx, err)
	}
}

// fetch sends one logical request, resending it under the retry policy
// until it succeeds, the policy gives up, or ctx is done.
func (s *Session) fetch(ctx context.Context, command string, params []httputil.Param) (json.RawMessage, error) {
	var firstFailure time.Time
	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		body, err := s.requester.Request(ctx, command, params)
		if err == nil {
			s.failures = 0
			return body, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		s.failures++
		if firstFailure.IsZero() {
			firstFailure = s.clock.Now()
		}
		delay, ok := s.retry.Next(attempt, s.clock.Now().Sub(firstFailure))
		if !ok {
			return nil, fmt.Errorf("%s after %d attempts: %w: %w", command, attempt, ErrRetriesExhausted, err)
		}

		s.logger.Warn("unitrad request failed, retrying",
			"command", command, "attempt", attempt, "delay", delay, "error", err)
		if s.retry.Stalled(s.failures) {
			s.setState(StateStalled)
		}
		if err := s.sleep(ctx, delay); err != nil {
			return nil, err
		}
	}
}

// poll asks for the next increment of the current snapshot. Empty replies
// mean the server timed out with nothing new; they are polled again.
func (s *Session) poll(ctx context.Context) (json.RawMessage, error) {
	for {
		params := []httputil.Param{
			{Key: "uuid", Value: s.cur.UUID},
			{Key: "version", Value: strconv.Itoa(s.cur.Version)},
			{Key: "diff", Value: "1"},
			{Key: "timeout", Value: strconv.Itoa(s.timings.PollTimeout)},
		}
		body, err := s.fetch(ctx, CommandPolling, params)
		if err != nil {
			return nil, err
		}
		if body != nil {
			return body, nil
		}

		s.logger.Debug("unitrad poll returned no change", "uuid", s.cur.UUID, "version", s.cur.Version)
		s.setState(StatePolling)
		if err := s.sleep(ctx, s.timings.EmptyPollDelay); err != nil {
			return nil, err
		}
	}
}

// receive merges body into the owned snapshot, delivers the result, and
// returns the delay before the next poll. more is false once the session
// has nothing left to do.
func (s *Session) receive(ctx context.Context, body json.RawMessage) (delay time.Duration, more bool, err error) {
	if err := ctx.Err(); err != nil {
		return 0, false, err
	}

	var resp types.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, false, &ProtocolError{Reason: "decoding response", Err: err}
	}

	if s.stale(resp) {
		s.logger.Warn("discarding stale unitrad response",
			"uuid", *resp.UUID, "version", *resp.Version, "current", s.cur.Version)
		return s.timings.PollDelay, true, nil
	}

	s.setState(StateMerging)
	next, err := Merge(s.cur, resp)
	if err != nil {
		return 0, false, err
	}

	if err := s.checkCancelled(ctx); err != nil {
		return 0, false, err
	}
	s.cur = next
	s.latest.Store(&next)
	s.onSnapshot(next)

	if !next.Running {
		s.logger.Info("unitrad search complete",
			"uuid", next.UUID, "version", next.Version, "books", len(next.Books))
		s.finish(StateCompleted, nil)
		return 0, false, nil
	}

	s.logger.Debug("unitrad search continuing",
		"uuid", next.UUID, "version", next.Version, "books", len(next.Books), "remains", len(next.Remains))
	if next.Version == 1 && len(next.Books) == 0 {
		return s.timings.WarmupDelay, true, nil
	}
	return s.timings.PollDelay, true, nil
}

// stale reports whether resp is an older version of the current snapshot.
// Stale replies are dropped before merging, so a diff that no longer applies
// cannot fail the session.
func (s *Session) stale(resp types.Response) bool {
	if s.cur.UUID == "" || resp.UUID == nil || resp.Version == nil {
		return false
	}
	return *resp.UUID == s.cur.UUID && *resp.Version < s.cur.Version
}

// checkCancelled returns an error once the session context is done or the
// session has been cancelled.
func (s *Session) checkCancelled(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelled || s.state == StateCancelled {
		return ErrCancelled
	}
	return nil
}

func (s *Session) sleep(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}

// stop ends the run loop after err. Context errors mean cancellation; Err
// is plain ErrCancelled when Cancel caused it.
func (s *Session) stop(ctx context.Context, err error) {
	if ctxErr := ctx.Err(); ctxErr != nil || errors.Is(err, ErrCancelled) {
		s.mu.Lock()
		own := s.cancelled
		s.mu.Unlock()
		if own || ctxErr == nil {
			s.finish(StateCancelled, ErrCancelled)
		} else {
			s.finish(StateCancelled, fmt.Errorf("%w: %w", ErrCancelled, ctxErr))
		}
		return
	}

	s.logger.Error("unitrad search failed", "uuid", s.cur.UUID, "error", err)
	if s.finish(StateFailed, err) && s.onError != nil {
		s.onError(err)
	}
}

func (s *Session) setState(st State) {
	s.mu.Lock()
	if s.state.Terminal() || s.state == st {
		s.mu.Unlock()
		return
	}
	s.state = st
	h := s.onState
	s.mu.Unlock()

	if h != nil {
		h(st)
	}
}

// finish moves to a terminal state. It reports false when the session had
// already ended.
func (s *Session) finish(st State, err error) bool {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return false
	}
	s.state = st
	s.err = err
	h := s.onState
	s.mu.Unlock()

	if h != nil {
		h(st)
	}
	return true
}

func (s *Session) closeDone() {
	s.doneOnce.Do(func() { close(s.done) })
}
