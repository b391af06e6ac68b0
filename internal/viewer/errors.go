package viewer

import (
	"errors"
	"fmt"
)

type Stage string

const (
	StageModuleLoad Stage = "module-load"
	StageNilModule  Stage = "nil-module"
	StageModelFetch Stage = "model-fetch"
	StageFilesystem Stage = "filesystem"
	StageModelParse Stage = "model-parse"
	StageData       Stage = "data"
	StageRenderer   Stage = "renderer"
	StageAttach     Stage = "attach"
)

var (
	ErrNoEngine   = errors.New("viewer: no engine cache configured")
	ErrNoRenderer = errors.New("viewer: no renderer factory configured")
	ErrNoHost     = errors.New("viewer: no host configured")
)

// InitError reports the initialization stage that failed.
type InitError struct {
	Stage Stage
	Err   error
}

func (e *InitError) Error() string {
	return fmt.Sprintf("viewer: %s: %v", e.Stage, e.Err)
}

func (e *InitError) Unwrap() error { return e.Err }

// StageOf returns the failed stage of an initialization error, or "".
func StageOf(err error) Stage {
	var ie *InitError
	if errors.As(err, &ie) {
		return ie.Stage
	}
	return ""
}
