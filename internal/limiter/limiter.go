package limiter

import (
	"sync"
)

// KeyLimiter allows one in-flight operation per key with an optional
// global cap. Keys are chat IDs: it stops overlapping /accept runs in
// the same chat and bounds total concurrent update handlers.
type KeyLimiter struct {
	mu          sync.Mutex
	activeKeys  map[int64]struct{}
	maxGlobal   int
	globalCount int
}

// NewKeyLimiter creates a new limiter.
// maxGlobalConcurrent of 0 means no global cap, only per-key exclusion.
func NewKeyLimiter(maxGlobalConcurrent int) *KeyLimiter {
	return &KeyLimiter{
		activeKeys: make(map[int64]struct{}),
		maxGlobal:  maxGlobalConcurrent,
	}
}

// TryAcquire attempts to acquire the slot for a key.
// Returns false if the key is already active or the global cap is reached.
func (l *KeyLimiter) TryAcquire(key int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.activeKeys[key]; exists {
		return false
	}

	if l.maxGlobal > 0 && l.globalCount >= l.maxGlobal {
		return false
	}

	l.activeKeys[key] = struct{}{}
	l.globalCount++
	return true
}

// Release releases a key's slot.
func (l *KeyLimiter) Release(key int64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, exists := l.activeKeys[key]; exists {
		delete(l.activeKeys, key)
		l.globalCount--
	}
}

// ActiveCount returns the number of active keys.
func (l *KeyLimiter) ActiveCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.globalCount
}

// IsActive checks whether a key currently holds its slot.
func (l *KeyLimiter) IsActive(key int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, exists := l.activeKeys[key]
	return exists
}
