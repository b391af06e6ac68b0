package engine

import "errors"

var (
	// ErrModuleLoad indicates the engine module could not be loaded.
	ErrModuleLoad = errors.New("engine: module load failed")

	// ErrNilModule indicates the loader succeeded but produced no instance.
	ErrNilModule = errors.New("engine: module instance is nil")

	// ErrModelParse indicates the model description could not be parsed.
	ErrModelParse = errors.New("engine: model parse failed")

	// ErrExist is returned by FS.Mkdir when the directory already exists.
	ErrExist = errors.New("engine: file exists")

	// ErrNotExist is returned when a virtual path is missing.
	ErrNotExist = errors.New("engine: no such file or directory")
)
