package auth

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

type User struct {
	ID     string
	Email  string
	Wallet string
}

// IdentityProvider is the signed-in state of the external identity service.
type IdentityProvider interface {
	Ready() bool
	Authenticated() bool
	User() (User, bool)
	// AccessToken may return an empty token while the provider is still
	// refreshing.
	AccessToken(ctx context.Context) (string, error)
}

// TokenProvider serves a fixed access token, typically from configuration.
// Claims are read without verifying the signature; the backend verifies
// the token on exchange.
type TokenProvider struct {
	mu    sync.RWMutex
	token string
	user  User
}

func NewTokenProvider(token string) (*TokenProvider, error) {
	p := &TokenProvider{}
	if err := p.SetToken(token); err != nil {
		return nil, err
	}
	return p, nil
}

// SetToken signs in with token. An empty token signs out.
func (p *TokenProvider) SetToken(token string) error {
	token = strings.TrimSpace(token)
	var user User
	if token != "" {
		u, err := ParseClaims(token)
		if err != nil {
			return err
		}
		user = u
	}

	p.mu.Lock()
	p.token = token
	p.user = user
	p.mu.Unlock()
	return nil
}

func (p *TokenProvider) SignOut() { p.SetToken("") }

func (p *TokenProvider) Ready() bool { return true }

func (p *TokenProvider) Authenticated() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token != ""
}

func (p *TokenProvider) User() (User, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.user, p.token != ""
}

func (p *TokenProvider) AccessToken(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.token, nil
}

// ParseClaims extracts the user from a JWT access token without verifying it.
func ParseClaims(token string) (User, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return User{}, fmt.Errorf("%w: %v", ErrBadToken, err)
	}

	sub, _ := claims.GetSubject()
	u := User{ID: sub}
	u.Email, _ = claims["email"].(string)
	if w, ok := claims["wallet"].(string); ok {
		u.Wallet = w
	} else if w, ok := claims["wallet_address"].(string); ok {
		u.Wallet = w
	}
	return u, nil
}

// DisplayName picks the label shown for a signed-in user.
func DisplayName(u User) string {
	switch {
	case u.Email != "":
		return u.Email
	case u.Wallet != "":
		r := []rune(u.Wallet)
		if len(r) <= 10 {
			return u.Wallet
		}
		return string(r[:6]) + "…" + string(r[len(r)-4:])
	case u.ID != "":
		return u.ID
	}
	return "已登录"
}
