package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecognizerSessionEmitsFinalResult(t *testing.T) {
	var gotText string
	var gotConfidence float64
	done := make(chan struct{})

	stream := NewStubRecognizerStream(10*time.Millisecond, "bonjour", 0.88)
	sess := NewRecognizerSession(stream, nil, func(text string, confidence float64, _, _ time.Time) {
		gotText = text
		gotConfidence = confidence
		close(done)
	}, nil, nil)
	defer sess.Close()

	sess.Push([]byte("chunk"))

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("onFinal never invoked")
	}

	assert.Equal(t, "bonjour", gotText)
	assert.Equal(t, 0.88, gotConfidence)
}

func TestRecognizerSessionPreloadsBeforeLiveChunks(t *testing.T) {
	stream := NewStubRecognizerStream(time.Hour, "", 0)
	sess := NewRecognizerSession(stream, [][]byte{[]byte("p1"), []byte("p2")}, func(string, float64, time.Time, time.Time) {}, nil, nil)
	defer sess.Close()

	sess.Push([]byte("live"))

	require.Eventually(t, func() bool { return len(stream.PushedChunks()) >= 3 }, time.Second, 5*time.Millisecond)
	pushed := stream.PushedChunks()
	assert.Equal(t, []byte("p1"), pushed[0])
	assert.Equal(t, []byte("p2"), pushed[1])
	assert.Equal(t, []byte("live"), pushed[2])
}

func TestRecognizerSessionCloseIsIdempotent(t *testing.T) {
	stream := NewStubRecognizerStream(time.Hour, "", 0)
	sess := NewRecognizerSession(stream, nil, func(string, float64, time.Time, time.Time) {}, nil, nil)
	sess.Close()
	sess.Close()
}
