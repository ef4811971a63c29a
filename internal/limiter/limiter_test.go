package limiter

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyLimiterPerKeyExclusion(t *testing.T) {
	l := NewKeyLimiter(0)

	assert.True(t, l.TryAcquire(1))
	assert.False(t, l.TryAcquire(1))
	assert.True(t, l.TryAcquire(2))

	l.Release(1)
	assert.True(t, l.TryAcquire(1))
}

func TestKeyLimiterGlobalCap(t *testing.T) {
	l := NewKeyLimiter(2)

	assert.True(t, l.TryAcquire(1))
	assert.True(t, l.TryAcquire(2))
	assert.False(t, l.TryAcquire(3))
	assert.Equal(t, 2, l.ActiveCount())

	l.Release(2)
	assert.True(t, l.TryAcquire(3))
}

func TestKeyLimiterReleaseUnknownKey(t *testing.T) {
	l := NewKeyLimiter(1)

	l.Release(99)
	assert.Equal(t, 0, l.ActiveCount())
	assert.True(t, l.TryAcquire(1))
	assert.True(t, l.IsActive(1))
	assert.False(t, l.IsActive(2))
}
