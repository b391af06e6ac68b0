package auth

import (
	"context"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/golang-jwt/jwt/v5"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/san-kum/axis/internal/backend"
	"github.com/san-kum/axis/internal/config"
)

type fakeExchanger struct {
	mu     sync.Mutex
	calls  int
	tokens []string
	fail   int
	err    error
}

func (f *fakeExchanger) ExchangeSession(ctx context.Context, token string) (*backend.Session, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.tokens = append(f.tokens, token)
	if f.calls <= f.fail {
		return nil, f.err
	}
	return &backend.Session{UserID: "u1", SessionID: "s1"}, nil
}

func (f *fakeExchanger) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// slowProvider returns an empty token for the first n calls.
type slowProvider struct {
	*TokenProvider
	empty atomic.Int32
}

func (p *slowProvider) AccessToken(ctx context.Context) (string, error) {
	if p.empty.Add(-1) >= 0 {
		return "", nil
	}
	return p.TokenProvider.AccessToken(ctx)
}

func signed(claims jwt.MapClaims) string {
	tok, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	Expect(err).NotTo(HaveOccurred())
	return tok
}

var fastAuth = config.AuthConfig{
	TokenAttempts:    5,
	TokenWait:        time.Millisecond,
	ExchangeBase:     time.Millisecond,
	ExchangeCap:      4 * time.Millisecond,
	ExchangeAttempts: 8,
}

var _ = Describe("TokenProvider", func() {
	It("reads user claims without verifying", func() {
		p, err := NewTokenProvider(signed(jwt.MapClaims{"sub": "did:1", "email": "a@b.c"}))
		Expect(err).NotTo(HaveOccurred())
		Expect(p.Authenticated()).To(BeTrue())

		u, ok := p.User()
		Expect(ok).To(BeTrue())
		Expect(u).To(Equal(User{ID: "did:1", Email: "a@b.c"}))
	})

	It("rejects malformed tokens", func() {
		_, err := NewTokenProvider("not-a-jwt")
		Expect(err).To(MatchError(ErrBadToken))
	})

	It("signs out with an empty token", func() {
		p, _ := NewTokenProvider(signed(jwt.MapClaims{"sub": "x"}))
		p.SignOut()
		Expect(p.Authenticated()).To(BeFalse())
	})
})

var _ = Describe("DisplayName", func() {
	DescribeTable("labels",
		func(u User, want string) {
			Expect(DisplayName(u)).To(Equal(want))
		},
		Entry("email first", User{ID: "id", Email: "a@b.c", Wallet: "0x1234567890abcd"}, "a@b.c"),
		Entry("shortened wallet", User{ID: "id", Wallet: "0x1234567890abcd"}, "0x1234…abcd"),
		Entry("id", User{ID: "did:privy:1"}, "did:privy:1"),
		Entry("nothing", User{}, "已登录"),
	)
})

var _ = Describe("Synchronizer", func() {
	var (
		provider *TokenProvider
		ex       *fakeExchanger
		ctx      context.Context
	)

	BeforeEach(func() {
		var err error
		provider, err = NewTokenProvider(signed(jwt.MapClaims{"sub": "u1"}))
		Expect(err).NotTo(HaveOccurred())
		ex = &fakeExchanger{}
		ctx = context.Background()
	})

	It("exchanges once and reuses the session", func() {
		s := NewSynchronizer(provider, ex, fastAuth, nil)
		sess, err := s.Sync(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(sess.SessionID).To(Equal("s1"))

		_, err = s.Sync(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ex.Calls()).To(Equal(1))
		Expect(s.Status()).To(Equal(Status{Exchanged: true}))
	})

	It("surfaces the backend detail verbatim", func() {
		ex.fail = 100
		ex.err = &backend.StatusError{Code: http.StatusUnauthorized, Detail: "invalid token"}
		s := NewSynchronizer(provider, ex, fastAuth, nil)

		_, err := s.Sync(ctx)
		Expect(err).To(HaveOccurred())
		st := s.Status()
		Expect(st.Error).To(Equal("invalid token"))
		Expect(st.Exchanged).To(BeFalse())
		Expect(st.Exchanging).To(BeFalse())
		Expect(st.Attempts).To(Equal(8))
		Expect(ex.Calls()).To(Equal(8))
	})

	It("falls back to the generic message without a detail", func() {
		ex.fail = 100
		ex.err = &backend.StatusError{Code: http.StatusBadGateway}
		s := NewSynchronizer(provider, ex, fastAuth, nil)

		_, err := s.Once(ctx)
		Expect(err).To(HaveOccurred())
		Expect(s.Status().Error).To(Equal("会话同步失败，请稍后再试。"))
		Expect(s.Status().Attempts).To(Equal(1))
	})

	It("recovers after transient failures", func() {
		ex.fail = 2
		ex.err = &backend.StatusError{Code: http.StatusServiceUnavailable}
		s := NewSynchronizer(provider, ex, fastAuth, nil)

		_, err := s.Sync(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ex.Calls()).To(Equal(3))
		Expect(s.Status()).To(Equal(Status{Exchanged: true}))
	})

	It("waits for the provider to produce a token", func() {
		p := &slowProvider{TokenProvider: provider}
		p.empty.Store(3)
		s := NewSynchronizer(p, ex, fastAuth, nil)

		_, err := s.Sync(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(ex.Calls()).To(Equal(1))
	})

	It("gives up on the token after the configured attempts", func() {
		p := &slowProvider{TokenProvider: provider}
		p.empty.Store(1000)
		s := NewSynchronizer(p, ex, fastAuth, nil)

		_, err := s.Once(ctx)
		Expect(err).To(MatchError(ErrNoToken))
		Expect(s.Status().Error).To(Equal("无法获取 Privy Access Token，请重试登录。"))
		Expect(ex.Calls()).To(BeZero())
	})

	It("does nothing while signed out", func() {
		provider.SignOut()
		s := NewSynchronizer(provider, ex, fastAuth, nil)

		_, err := s.Sync(ctx)
		Expect(err).To(MatchError(ErrNotAuthenticated))
		Expect(ex.Calls()).To(BeZero())
	})

	It("stops retrying once the user signs out", func() {
		ex.fail = 100
		ex.err = &backend.StatusError{Code: http.StatusUnauthorized, Detail: "invalid token"}
		wrapped := &signOutAfter{Exchanger: ex, provider: provider, after: 2}
		s := NewSynchronizer(provider, wrapped, fastAuth, nil)

		_, err := s.Sync(ctx)
		Expect(err).To(MatchError(ErrNotAuthenticated))
		Expect(ex.Calls()).To(Equal(2))
		Expect(s.Status()).To(Equal(Status{}))
		_, ok := s.Session()
		Expect(ok).To(BeFalse())
	})

	It("keeps a shared exchange alive when its first caller leaves", func() {
		blocking := &blockingExchanger{entered: make(chan struct{}), release: make(chan struct{})}
		s := NewSynchronizer(provider, blocking, fastAuth, nil)

		first, cancel := context.WithCancel(ctx)
		firstErr := make(chan error, 1)
		go func() {
			_, err := s.Sync(first)
			firstErr <- err
		}()
		Eventually(blocking.entered).Should(BeClosed())

		second := make(chan *backend.Session, 1)
		go func() {
			defer GinkgoRecover()
			sess, err := s.Sync(ctx)
			Expect(err).NotTo(HaveOccurred())
			second <- sess
		}()

		cancel()
		Eventually(firstErr).Should(Receive(MatchError(context.Canceled)))

		close(blocking.release)
		var sess *backend.Session
		Eventually(second).Should(Receive(&sess))
		Expect(sess.SessionID).To(Equal("s1"))
		Expect(s.Status().Exchanged).To(BeTrue())
	})
})

var _ = Describe("exchange backoff", func() {
	It("doubles from the base up to the cap without jitter", func() {
		b := exchangeBackOff(config.DefaultConfig().Auth)
		var got []time.Duration
		for i := 0; i < 8; i++ {
			got = append(got, b.NextBackOff())
		}
		Expect(got).To(Equal([]time.Duration{
			time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second,
			16 * time.Second, 30 * time.Second, 30 * time.Second, 30 * time.Second,
		}))
	})
})

// blockingExchanger holds the first exchange until release is closed.
type blockingExchanger struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

func (b *blockingExchanger) ExchangeSession(ctx context.Context, token string) (*backend.Session, error) {
	b.once.Do(func() { close(b.entered) })
	select {
	case <-b.release:
		return &backend.Session{UserID: "u1", SessionID: "s1"}, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

type signOutAfter struct {
	Exchanger
	provider *TokenProvider
	after    int
	n        int
}

func (s *signOutAfter) ExchangeSession(ctx context.Context, token string) (*backend.Session, error) {
	s.n++
	if s.n >= s.after {
		s.provider.SignOut()
	}
	return s.Exchanger.ExchangeSession(ctx, token)
}
