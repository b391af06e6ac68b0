package auth

import (
	"errors"

	"github.com/san-kum/axis/internal/backend"
)

var (
	ErrNotReady         = errors.New("auth: identity provider not ready")
	ErrNotAuthenticated = errors.New("auth: not signed in")
	ErrNoToken          = errors.New("auth: access token unavailable")
	ErrBadToken         = errors.New("auth: malformed access token")
)

const (
	msgNotReady = "Privy 客户端未就绪，稍后再试。"
	msgNoToken  = "无法获取 Privy Access Token，请重试登录。"
)

// Message converts an exchange failure to the text shown to the user. A
// backend rejection is shown exactly as the backend phrased it.
func Message(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotReady):
		return msgNotReady
	case errors.Is(err, ErrNoToken):
		return msgNoToken
	}
	return backend.Detail(err, backend.SessionSyncFailed)
}
