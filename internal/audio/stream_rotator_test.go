package audio

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmpipeline/internal/buffer"
)

func TestStreamRotatorOpensOnlyOnSpeech(t *testing.T) {
	rec := &StubRecognizer{Delay: time.Hour}
	overlap := buffer.NewOverlapBuffer(4)
	r := NewStreamRotator(rec, "en", time.Minute, overlap, func(string, float64, time.Time, time.Time) {}, nil, nil)

	r.Feed(context.Background(), []byte("a"), false)
	assert.False(t, r.Active())

	r.Feed(context.Background(), []byte("b"), true)
	assert.True(t, r.Active())
	r.Close()
}

func TestStreamRotatorRotatesWithOverlapContinuity(t *testing.T) {
	rec := &StubRecognizer{Delay: time.Hour}
	overlap := buffer.NewOverlapBuffer(4)
	r := NewStreamRotator(rec, "en", 50*time.Millisecond, overlap, func(string, float64, time.Time, time.Time) {}, nil, nil)

	overlap.Push([]byte("pre1"))
	overlap.Push([]byte("pre2"))

	r.Feed(context.Background(), []byte("chunk1"), true)
	require.True(t, r.Active())
	first := r.active
	firstStream := first.stream.(*StubRecognizerStream)

	time.Sleep(60 * time.Millisecond)
	r.Feed(context.Background(), []byte("chunk2"), true)
	require.True(t, r.Active())
	second := r.active
	assert.NotSame(t, first, second)

	secondStream := second.stream.(*StubRecognizerStream)
	require.Eventually(t, func() bool { return len(secondStream.PushedChunks()) >= 3 }, time.Second, 5*time.Millisecond)
	pushed := secondStream.PushedChunks()
	assert.Equal(t, []byte("pre1"), pushed[0])
	assert.Equal(t, []byte("pre2"), pushed[1])
	assert.Equal(t, []byte("chunk2"), pushed[len(pushed)-1])

	_ = firstStream
	r.Close()
}

func TestStreamRotatorReopensAfterTransportFailure(t *testing.T) {
	rec := &StubRecognizer{Delay: time.Hour, PushErr: assert.AnError}
	overlap := buffer.NewOverlapBuffer(4)
	r := NewStreamRotator(rec, "en", time.Minute, overlap, func(string, float64, time.Time, time.Time) {}, nil, nil)

	r.Feed(context.Background(), []byte("a"), true)
	require.True(t, r.Active())
	first := r.active

	require.Eventually(t, func() bool { return first.Closed() }, time.Second, 5*time.Millisecond)

	// The session closed itself out from under the rotator; the next speech
	// chunk must detect that and open a fresh one rather than feeding the
	// dead session's queue forever.
	r.Feed(context.Background(), []byte("b"), true)
	require.True(t, r.Active())
	assert.NotSame(t, first, r.active)

	r.Close()
}
