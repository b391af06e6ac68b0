package web

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/san-kum/axis/internal/auth"
	"github.com/san-kum/axis/internal/backend"
)

type sessionRequest struct {
	Token string `json:"token"`
}

type sessionResponse struct {
	Exchanged   bool   `json:"exchanged"`
	UserID      string `json:"user_id,omitempty"`
	DisplayName string `json:"display_name,omitempty"`
	Detail      string `json:"detail,omitempty"`
}

// handleSession performs one session exchange on behalf of the browser and
// passes the backend session cookie through.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	if s.opts.Exchanger == nil {
		writeJSON(w, http.StatusServiceUnavailable, sessionResponse{Detail: backend.SessionSyncFailed})
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 16<<10)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, sessionResponse{Detail: "invalid request"})
		return
	}
	provider, err := auth.NewTokenProvider(req.Token)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, sessionResponse{Detail: auth.Message(err)})
		return
	}

	syncer := auth.NewSynchronizer(provider, s.opts.Exchanger, s.cfg.Auth, s.logger)
	sess, err := syncer.Once(r.Context())
	if err != nil {
		status := http.StatusBadGateway
		var se *backend.StatusError
		if errors.As(err, &se) {
			status = se.Code
		} else if errors.Is(err, auth.ErrNotAuthenticated) {
			status = http.StatusUnauthorized
		}
		writeJSON(w, status, sessionResponse{Detail: auth.Message(err)})
		return
	}

	if sess.Cookie != "" {
		http.SetCookie(w, &http.Cookie{
			Name:     backend.SessionCookie,
			Value:    sess.Cookie,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	user, _ := provider.User()
	writeJSON(w, http.StatusOK, sessionResponse{
		Exchanged:   true,
		UserID:      sess.UserID,
		DisplayName: auth.DisplayName(user),
	})
}
