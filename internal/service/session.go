package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	domainauth "github.com/jobmatcher/jm-portal/internal/domain/auth"
	"github.com/jobmatcher/jm-portal/internal/observability/metrics"
	"github.com/jobmatcher/jm-portal/internal/observability/statsd"
	"github.com/jobmatcher/jm-portal/internal/ports"
)

// DefaultRefreshTimeout bounds a single identity verification.
const DefaultRefreshTimeout = 10 * time.Second

// ErrInvalidLogin is returned when Login is asked to build a session that
// would break the role/token coupling.
var ErrInvalidLogin = errors.New("login requires a token and a non-guest role")

// RefreshOutcome names what a Refresh call did to the session.
type RefreshOutcome string

const (
	// RefreshSkipped means there was no token to verify.
	RefreshSkipped RefreshOutcome = "skipped"
	// RefreshHydrated means the token was verified and the profile applied.
	RefreshHydrated RefreshOutcome = "hydrated"
	// RefreshCollapsed means verification failed and the session became guest.
	RefreshCollapsed RefreshOutcome = "collapsed"
	// RefreshStale means the session changed while verifying and the result was dropped.
	RefreshStale RefreshOutcome = "stale"
	// RefreshAborted means the caller gave up before the verifier answered.
	// The session and the persisted slot are left as they were.
	RefreshAborted RefreshOutcome = "aborted"
)

// RefreshResult reports the outcome of a Refresh call.
// Session is the session current when Refresh returned; Err carries the
// verifier failure for collapsed and stale results, if any.
type RefreshResult struct {
	Outcome RefreshOutcome
	Session domainauth.Session
	Err     error
}

// SessionServiceConfig holds optional tuning for SessionService.
type SessionServiceConfig struct {
	RefreshTimeout time.Duration // defaults to DefaultRefreshTimeout
	Logger         *slog.Logger
	Metrics        statsd.Sink
}

// SessionServiceOptions groups dependencies for SessionService.
type SessionServiceOptions struct {
	Store    *SessionStore           // Required
	Verifier ports.IdentityVerifier // Required
	Config   SessionServiceConfig
}

// SessionService is the process-wide session state container.
//
// Reads are lock-free snapshots. Mutations are serialized and their
// subscribers are notified before the mutating call returns, so
// subscriber callbacks must not call Login, Logout, or Refresh.
type SessionService struct {
	store    *SessionStore
	verifier ports.IdentityVerifier
	timeout  time.Duration
	logger   *slog.Logger
	metrics  statsd.Sink

	mu         sync.Mutex
	generation uint64
	current    atomic.Pointer[domainauth.Session]

	subMu   sync.Mutex
	subs    map[uint64]func(domainauth.Session)
	nextSub uint64

	startMu sync.Mutex
	started bool
}

// NewSessionService constructs the container and seeds it from the persisted store.
func NewSessionService(ctx context.Context, opts SessionServiceOptions) *SessionService {
	if opts.Store == nil {
		panic("SessionService: Store is required")
	}
	if opts.Verifier == nil {
		panic("SessionService: Verifier is required")
	}
	timeout := opts.Config.RefreshTimeout
	if timeout <= 0 {
		timeout = DefaultRefreshTimeout
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &SessionService{
		store:    opts.Store,
		verifier: opts.Verifier,
		timeout:  timeout,
		logger:   logger,
		metrics:  opts.Config.Metrics,
		subs:     make(map[uint64]func(domainauth.Session)),
	}
	initial := opts.Store.Load(ctx)
	s.current.Store(&initial)
	return s
}

// Current returns a snapshot of the session.
func (s *SessionService) Current() domainauth.Session {
	return s.current.Load().Clone()
}

// Subscribe registers fn to receive every new session. The returned function
// removes the subscription and is safe to call more than once.
func (s *SessionService) Subscribe(fn func(domainauth.Session)) func() {
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	s.subMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
		})
	}
}

// Login replaces the session with the given credential. An empty role means
// RoleUser. The token is trusted as-is; callers obtain it from a successful
// backend login.
func (s *SessionService) Login(ctx context.Context, token string, user *domainauth.User, role domainauth.Role) error {
	if role == "" {
		role = domainauth.RoleUser
	}
	if token == "" || role == domainauth.RoleGuest || !role.Valid() {
		return ErrInvalidLogin
	}

	next := domainauth.Session{Role: role, Token: token, User: user}
	next = next.Clone()

	s.mu.Lock()
	s.applyLocked(ctx, next)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "session.login", "role", role, "hydrated", user != nil)
	metrics.EmitSessionTransition(s.metrics, metrics.SessionMetric{
		Transition: metrics.TransitionLogin,
		Result:     string(role),
	})
	return nil
}

// Logout resets the session to guest. It is idempotent.
func (s *SessionService) Logout(ctx context.Context) {
	s.mu.Lock()
	s.applyLocked(ctx, domainauth.Guest())
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "session.logout")
	metrics.EmitSessionTransition(s.metrics, metrics.SessionMetric{
		Transition: metrics.TransitionLogout,
		Result:     metrics.ResultSuccess,
	})
}

// Refresh re-validates the current token with the identity verifier.
//
// A verified token keeps its value and takes the verified profile and role
// (RoleUser when none is reported). Any failure, including the refresh
// timeout, collapses the session to guest. If the session was replaced while
// the verifier was running, or ctx itself was cancelled, the result is
// discarded.
func (s *SessionService) Refresh(ctx context.Context) RefreshResult {
	s.mu.Lock()
	snap := s.current.Load().Clone()
	gen := s.generation
	s.mu.Unlock()

	if snap.Token == "" {
		return RefreshResult{Outcome: RefreshSkipped, Session: snap}
	}

	start := time.Now()
	vctx, cancel := context.WithTimeout(ctx, s.timeout)
	profile, err := s.verifier.Verify(vctx, snap.Token)
	cancel()

	if err != nil && ctx.Err() != nil {
		res := RefreshResult{Outcome: RefreshAborted, Session: s.Current(), Err: err}
		s.logRefresh(ctx, res, time.Since(start))
		return res
	}

	res := s.applyRefresh(ctx, gen, snap.Token, profile, err)
	s.logRefresh(ctx, res, time.Since(start))
	return res
}

func (s *SessionService) applyRefresh(
	ctx context.Context,
	gen uint64,
	token string,
	profile domainauth.Profile,
	verifyErr error,
) RefreshResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.generation != gen {
		return RefreshResult{Outcome: RefreshStale, Session: s.current.Load().Clone(), Err: verifyErr}
	}

	if verifyErr != nil {
		guest := domainauth.Guest()
		s.applyLocked(ctx, guest)
		return RefreshResult{Outcome: RefreshCollapsed, Session: guest, Err: verifyErr}
	}

	role := profile.Role
	if role == domainauth.RoleGuest || !role.Valid() {
		role = domainauth.RoleUser
	}
	user := profile.User
	next := domainauth.Session{Role: role, Token: token, User: &user}
	s.applyLocked(ctx, next)
	return RefreshResult{Outcome: RefreshHydrated, Session: next.Clone()}
}

// Start performs the one-time boot hydration: when a token was restored
// without a profile it runs Refresh once. Later calls are skipped, unless
// the previous attempt was aborted.
func (s *SessionService) Start(ctx context.Context) RefreshResult {
	s.startMu.Lock()
	defer s.startMu.Unlock()

	if s.started || !s.Current().NeedsHydration() {
		s.started = true
		return RefreshResult{Outcome: RefreshSkipped, Session: s.Current()}
	}
	res := s.Refresh(ctx)
	s.started = res.Outcome != RefreshAborted
	return res
}

// applyLocked installs next, writes it through, and notifies subscribers.
// The write ignores ctx cancellation so memory and the slot never diverge.
// s.mu must be held.
func (s *SessionService) applyLocked(ctx context.Context, next domainauth.Session) {
	s.generation++
	stored := next.Clone()
	s.current.Store(&stored)
	s.store.Save(context.WithoutCancel(ctx), stored)
	s.notify(stored)
}

func (s *SessionService) notify(sess domainauth.Session) {
	s.subMu.Lock()
	fns := make([]func(domainauth.Session), 0, len(s.subs))
	for _, fn := range s.subs {
		fns = append(fns, fn)
	}
	s.subMu.Unlock()

	for _, fn := range fns {
		fn(sess.Clone())
	}
}

func (s *SessionService) logRefresh(ctx context.Context, res RefreshResult, elapsed time.Duration) {
	attrs := []any{"outcome", res.Outcome, "duration", elapsed}
	if res.Err != nil {
		attrs = append(attrs, "error", res.Err)
	}
	switch res.Outcome {
	case RefreshCollapsed, RefreshAborted:
		s.logger.WarnContext(ctx, "session.refresh", attrs...)
	default:
		s.logger.InfoContext(ctx, "session.refresh", attrs...)
	}
	metrics.EmitSessionTransition(s.metrics, metrics.SessionMetric{
		Transition: metrics.TransitionRefresh,
		Result:     string(res.Outcome),
		Duration:   elapsed,
		Err:        res.Err,
	})
}
