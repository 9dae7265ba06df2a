package buffer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVideoBufferDropNewestReplacesResident(t *testing.T) {
	b := NewVideoBuffer()

	_, had := b.Put(VideoFrame{FrameIndex: 1})
	assert.False(t, had)

	dropped, had := b.Put(VideoFrame{FrameIndex: 2})
	assert.True(t, had)
	assert.Equal(t, int64(1), dropped.FrameIndex)
	assert.Equal(t, int64(1), b.Dropped())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	got, err := b.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.FrameIndex)
	assert.True(t, b.Empty())
}

func TestVideoBufferGetBlocksUntilPut(t *testing.T) {
	b := NewVideoBuffer()
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	done := make(chan VideoFrame, 1)
	go func() {
		f, err := b.Get(ctx)
		if err == nil {
			done <- f
		}
	}()

	time.Sleep(20 * time.Millisecond)
	b.Put(VideoFrame{FrameIndex: 7})

	select {
	case f := <-done:
		assert.Equal(t, int64(7), f.FrameIndex)
	case <-time.After(time.Second):
		t.Fatal("Get never returned")
	}
}

func TestVideoBufferCloseWakesGet(t *testing.T) {
	b := NewVideoBuffer()
	b.Close()

	_, err := b.Get(context.Background())
	assert.ErrorIs(t, err, ErrClosed)

	// Closing twice must not panic.
	b.Close()
}
