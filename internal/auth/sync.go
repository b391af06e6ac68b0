package auth

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/san-kum/axis/internal/backend"
	"github.com/san-kum/axis/internal/config"
	"golang.org/x/sync/singleflight"
)

// exchangeTimeout bounds a shared exchange, retries included.
const exchangeTimeout = 5 * time.Minute

// Exchanger trades an access token for a backend session.
type Exchanger interface {
	ExchangeSession(ctx context.Context, token string) (*backend.Session, error)
}

type Status struct {
	Exchanged  bool
	Exchanging bool
	Attempts   int
	Error      string
}

// Synchronizer keeps the backend session in step with the identity
// provider. Each exchange attempt first resolves an access token, retrying
// a few times at a fixed interval; failed attempts are retried with capped
// exponential backoff while the user stays signed in.
type Synchronizer struct {
	provider IdentityProvider
	ex       Exchanger
	cfg      config.AuthConfig
	logger   *slog.Logger

	group singleflight.Group

	mu      sync.Mutex
	status  Status
	session *backend.Session
}

func NewSynchronizer(p IdentityProvider, ex Exchanger, cfg config.AuthConfig, logger *slog.Logger) *Synchronizer {
	def := config.DefaultConfig().Auth
	if cfg.TokenAttempts <= 0 {
		cfg.TokenAttempts = def.TokenAttempts
	}
	if cfg.TokenWait <= 0 {
		cfg.TokenWait = def.TokenWait
	}
	if cfg.ExchangeBase <= 0 {
		cfg.ExchangeBase = def.ExchangeBase
	}
	if cfg.ExchangeCap <= 0 {
		cfg.ExchangeCap = def.ExchangeCap
	}
	if cfg.ExchangeAttempts <= 0 {
		cfg.ExchangeAttempts = def.ExchangeAttempts
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Synchronizer{provider: p, ex: ex, cfg: cfg, logger: logger}
}

func (s *Synchronizer) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Synchronizer) Session() (*backend.Session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.session, s.status.Exchanged
}

// Reset forgets the current session, as after a sign-out.
func (s *Synchronizer) Reset() {
	s.mu.Lock()
	s.status = Status{}
	s.session = nil
	s.mu.Unlock()
}

// Sync exchanges a session unless one already exists. Concurrent callers
// share a single exchange, which keeps running when the caller that started
// it goes away.
func (s *Synchronizer) Sync(ctx context.Context) (*backend.Session, error) {
	if !s.provider.Ready() {
		return nil, ErrNotReady
	}
	if !s.provider.Authenticated() {
		s.Reset()
		return nil, ErrNotAuthenticated
	}
	if sess, ok := s.Session(); ok {
		return sess, nil
	}

	ch := s.group.DoChan("exchange", func() (any, error) {
		runCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), exchangeTimeout)
		defer cancel()
		return s.run(runCtx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*backend.Session), nil
	}
}

// Once performs a single exchange attempt without retries.
func (s *Synchronizer) Once(ctx context.Context) (*backend.Session, error) {
	if !s.provider.Ready() {
		return nil, ErrNotReady
	}
	if !s.provider.Authenticated() {
		return nil, ErrNotAuthenticated
	}
	s.begin()
	sess, err := s.attempt(ctx)
	s.finish(sess, err)
	return sess, err
}

// exchangeBackOff doubles from the base interval up to the cap, without
// jitter.
func exchangeBackOff(cfg config.AuthConfig) *backoff.ExponentialBackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = cfg.ExchangeBase
	b.MaxInterval = cfg.ExchangeCap
	b.Multiplier = 2
	b.RandomizationFactor = 0
	b.Reset()
	return b
}

func (s *Synchronizer) run(ctx context.Context) (*backend.Session, error) {
	op := func() (*backend.Session, error) {
		if !s.provider.Authenticated() {
			return nil, backoff.Permanent(ErrNotAuthenticated)
		}
		s.begin()
		sess, err := s.attempt(ctx)
		s.finish(sess, err)
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, backoff.Permanent(err)
		}
		return sess, err
	}

	sess, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(exchangeBackOff(s.cfg)),
		backoff.WithMaxTries(uint(s.cfg.ExchangeAttempts)),
		backoff.WithNotify(func(err error, next time.Duration) {
			s.logger.Warn("session exchange failed", "error", err, "retry_in", next)
		}),
	)
	if errors.Is(err, ErrNotAuthenticated) {
		s.Reset()
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("session exchanged", "user", sess.UserID)
	return sess, nil
}

func (s *Synchronizer) attempt(ctx context.Context) (*backend.Session, error) {
	token, err := s.token(ctx)
	if err != nil {
		return nil, err
	}
	return s.ex.ExchangeSession(ctx, token)
}

func (s *Synchronizer) token(ctx context.Context) (string, error) {
	for i := 0; i < s.cfg.TokenAttempts; i++ {
		token, err := s.provider.AccessToken(ctx)
		if err == nil && token != "" {
			return token, nil
		}
		if err := ctx.Err(); err != nil {
			return "", err
		}
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.cfg.TokenWait):
		}
	}
	return "", ErrNoToken
}

func (s *Synchronizer) begin() {
	s.mu.Lock()
	s.status.Exchanging = true
	s.status.Error = ""
	s.mu.Unlock()
}

func (s *Synchronizer) finish(sess *backend.Session, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status.Exchanging = false
	if err != nil {
		s.status.Error = Message(err)
		if s.status.Attempts < s.cfg.ExchangeAttempts {
			s.status.Attempts++
		}
		return
	}
	s.status.Exchanged = true
	s.status.Attempts = 0
	s.session = sess
}
