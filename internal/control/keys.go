package control

import (
	"slices"
	"strings"
	"sync"
	"time"
)

// KeyState is a set of held keys shared between an input goroutine and the
// frame loop. Terminals report presses but not releases; a positive hold
// window treats a key as released once that long has passed since its
// last press.
type KeyState struct {
	mu   sync.Mutex
	held map[string]time.Time
	hold time.Duration
	now  func() time.Time
}

func NewKeyState(hold time.Duration) *KeyState {
	return &KeyState{held: make(map[string]time.Time), hold: hold, now: time.Now}
}

// WithClock replaces the time source. Used by tests.
func (k *KeyState) WithClock(now func() time.Time) *KeyState {
	k.now = now
	return k
}

func (k *KeyState) Press(key string) {
	k.mu.Lock()
	k.held[strings.ToLower(key)] = k.now()
	k.mu.Unlock()
}

func (k *KeyState) Release(key string) {
	k.mu.Lock()
	delete(k.held, strings.ToLower(key))
	k.mu.Unlock()
}

func (k *KeyState) Clear() {
	k.mu.Lock()
	clear(k.held)
	k.mu.Unlock()
}

func (k *KeyState) Has(key string) bool {
	key = strings.ToLower(key)
	k.mu.Lock()
	defer k.mu.Unlock()
	at, ok := k.held[key]
	if !ok {
		return false
	}
	if k.hold > 0 && k.now().Sub(at) > k.hold {
		delete(k.held, key)
		return false
	}
	return true
}

// Keys returns the held keys in sorted order.
func (k *KeyState) Keys() []string {
	k.mu.Lock()
	keys := make([]string, 0, len(k.held))
	for key := range k.held {
		keys = append(keys, key)
	}
	k.mu.Unlock()

	out := keys[:0]
	for _, key := range keys {
		if k.Has(key) {
			out = append(out, key)
		}
	}
	slices.Sort(out)
	return out
}
