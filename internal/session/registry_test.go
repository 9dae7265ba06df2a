package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRegistryCreateGetClose(t *testing.T) {
	r := NewRegistry()

	s := r.Create("corr-1")
	assert.NotNil(t, s)

	got, ok := r.Get("corr-1")
	assert.True(t, ok)
	assert.Same(t, s, got)

	r.Close("corr-1")
	_, ok = r.Get("corr-1")
	assert.False(t, ok)

	// Closing an absent correlation id is a no-op, not a panic.
	r.Close("does-not-exist")
}

func TestRegistryCreateReplacesAndClosesPriorSession(t *testing.T) {
	r := NewRegistry()
	first := r.Create("corr-1")
	second := r.Create("corr-1")

	assert.NotSame(t, first, second)
	first.mu.RLock()
	firstClosed := first.closed
	first.mu.RUnlock()
	assert.True(t, firstClosed)
	got, ok := r.Get("corr-1")
	assert.True(t, ok)
	assert.Same(t, second, got)
}

func TestRegistryAllAndShutdown(t *testing.T) {
	r := NewRegistry()
	r.Create("a")
	r.Create("b")
	r.Create("c")

	assert.Len(t, r.All(), 3)

	r.Shutdown()
	assert.Empty(t, r.All())
	_, ok := r.Get("a")
	assert.False(t, ok)
}
