package backend

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrNotFound = errors.New("backend: not found")
	ErrBadID    = errors.New("backend: invalid task id")
)

// SessionSyncFailed is shown when the backend rejects an exchange without
// saying why.
const SessionSyncFailed = "会话同步失败，请稍后再试。"

// StatusError is returned for any non-2xx response.
type StatusError struct {
	Code   int
	Detail string
}

func (e *StatusError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("backend: %d %s", e.Code, http.StatusText(e.Code))
}

func (e *StatusError) Is(target error) bool {
	return target == ErrNotFound && e.Code == http.StatusNotFound
}

// Detail returns the user-visible message carried by err, or fallback.
func Detail(err error, fallback string) string {
	var se *StatusError
	if errors.As(err, &se) && se.Detail != "" {
		return se.Detail
	}
	return fallback
}
