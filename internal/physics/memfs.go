package physics

import (
	"fmt"
	"path"
	"sync"

	"github.com/san-kum/axis/internal/engine"
)

// MemFS is the in-memory virtual filesystem exposed by the module.
type MemFS struct {
	mu     sync.RWMutex
	dirs   map[string]bool
	files  map[string][]byte
	mounts map[string]engine.MountKind
}

func NewMemFS() *MemFS {
	return &MemFS{
		dirs:   map[string]bool{"/": true},
		files:  make(map[string][]byte),
		mounts: make(map[string]engine.MountKind),
	}
}

func clean(p string) string {
	return path.Clean("/" + p)
}

func (fs *MemFS) Mkdir(p string) error {
	p = clean(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if fs.dirs[p] {
		return fmt.Errorf("mkdir %s: %w", p, engine.ErrExist)
	}
	if !fs.dirs[path.Dir(p)] {
		return fmt.Errorf("mkdir %s: %w", p, engine.ErrNotExist)
	}
	fs.dirs[p] = true
	return nil
}

func (fs *MemFS) Mount(kind engine.MountKind, root, mountpoint string) error {
	if kind != engine.MEMFS {
		return fmt.Errorf("mount %s: unsupported filesystem %q", mountpoint, kind)
	}
	mountpoint = clean(mountpoint)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.dirs[mountpoint] {
		return fmt.Errorf("mount %s: %w", mountpoint, engine.ErrNotExist)
	}
	fs.mounts[mountpoint] = kind
	return nil
}

func (fs *MemFS) WriteFile(p string, data []byte) error {
	p = clean(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if !fs.dirs[path.Dir(p)] {
		return fmt.Errorf("write %s: %w", p, engine.ErrNotExist)
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	fs.files[p] = buf
	return nil
}

func (fs *MemFS) ReadFile(p string) ([]byte, error) {
	p = clean(p)
	fs.mu.RLock()
	defer fs.mu.RUnlock()

	data, ok := fs.files[p]
	if !ok {
		return nil, fmt.Errorf("read %s: %w", p, engine.ErrNotExist)
	}
	return data, nil
}

func (fs *MemFS) Unlink(p string) error {
	p = clean(p)
	fs.mu.Lock()
	defer fs.mu.Unlock()

	if _, ok := fs.files[p]; !ok {
		return fmt.Errorf("unlink %s: %w", p, engine.ErrNotExist)
	}
	delete(fs.files, p)
	return nil
}
