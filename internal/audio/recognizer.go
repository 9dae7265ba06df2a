package audio

import (
	"context"
	"time"
)

// RecognitionResult is one interim or final result from a recognizer
// stream.
type RecognitionResult struct {
	Final       bool
	Text        string
	Confidence  float64
	StartOffset time.Duration
	EndOffset   time.Duration
	HasOffsets  bool
}

// RecognizerStream is one live duplex stream with an external recognizer:
// a request side (Push) and a response side (Results). Close ends the
// stream, analogous to sending a sentinel on the request side.
type RecognizerStream interface {
	Push(chunk []byte) error
	Results() <-chan RecognitionResult
	Close() error
}

// SpeechRecognizer opens streaming recognition sessions for a given
// language. Each stream imposes its own maximum duration; the caller
// (StreamRotator) is responsible for rotating before that limit is hit.
type SpeechRecognizer interface {
	OpenStream(ctx context.Context, language string) (RecognizerStream, error)
}

// StubRecognizerStream is a deterministic RecognizerStream for tests: after
// receiving any chunk it waits a configured delay and emits one final
// result.
type StubRecognizerStream struct {
	Delay      time.Duration
	Text       string
	Confidence float64
	PushErr    error

	results    chan RecognitionResult
	started    bool
	preload    [][]byte
	closed     chan struct{}
}

// NewStubRecognizerStream builds a StubRecognizerStream.
func NewStubRecognizerStream(delay time.Duration, text string, confidence float64) *StubRecognizerStream {
	return &StubRecognizerStream{
		Delay:      delay,
		Text:       text,
		Confidence: confidence,
		results:    make(chan RecognitionResult, 4),
		closed:     make(chan struct{}),
	}
}

// Push records the chunk and, on first call, schedules the stub's single
// final result.
func (s *StubRecognizerStream) Push(chunk []byte) error {
	if s.PushErr != nil {
		return s.PushErr
	}
	s.preload = append(s.preload, chunk)
	if !s.started {
		s.started = true
		go func() {
			select {
			case <-time.After(s.Delay):
			case <-s.closed:
				return
			}
			select {
			case s.results <- RecognitionResult{Final: true, Text: s.Text, Confidence: s.Confidence}:
			case <-s.closed:
			}
		}()
	}
	return nil
}

// Results returns the stream's result channel.
func (s *StubRecognizerStream) Results() <-chan RecognitionResult { return s.results }

// Close ends the stream.
func (s *StubRecognizerStream) Close() error {
	select {
	case <-s.closed:
	default:
		close(s.closed)
	}
	return nil
}

// PushedChunks returns every chunk Push has received so far, for tests that
// verify preload/rotation continuity.
func (s *StubRecognizerStream) PushedChunks() [][]byte { return s.preload }

// StubRecognizer opens StubRecognizerStreams.
type StubRecognizer struct {
	Delay      time.Duration
	Text       string
	Confidence float64
	PushErr    error
}

// OpenStream returns a new StubRecognizerStream.
func (r *StubRecognizer) OpenStream(_ context.Context, _ string) (RecognizerStream, error) {
	s := NewStubRecognizerStream(r.Delay, r.Text, r.Confidence)
	s.PushErr = r.PushErr
	return s, nil
}
