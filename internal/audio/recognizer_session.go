package audio

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"mmpipeline/internal/observe"
)

// recognizerQueueCapacity bounds the chunk queue each RecognizerSession
// feeds into its live stream. Pathologically full queues drop the oldest
// chunk rather than block the ingest path.
const recognizerQueueCapacity = 256

// OnFinal is invoked once per final recognition result, with start/end
// wall-clock times already resolved from the stream's reported offsets (or
// both set to the emission time if the stream reports none).
type OnFinal func(text string, confidence float64, start, end time.Time)

// RecognizerSession wraps one live RecognizerStream: a bounded, non-blocking
// chunk queue feeding a runner goroutine, and a drain goroutine that
// resolves final results into wall-clock timestamps and invokes onFinal.
type RecognizerSession struct {
	stream    RecognizerStream
	startedAt time.Time
	queue     chan []byte
	onFinal   OnFinal
	metrics   *observe.Metrics
	logger    *slog.Logger

	mu     sync.Mutex
	closed bool
	done   chan struct{}
}

// NewRecognizerSession opens a session over stream, preloading it with
// preload chunks (the overlap snapshot) before live chunks are accepted.
// metrics may be nil.
func NewRecognizerSession(stream RecognizerStream, preload [][]byte, onFinal OnFinal, metrics *observe.Metrics, logger *slog.Logger) *RecognizerSession {
	if logger == nil {
		logger = slog.Default()
	}
	s := &RecognizerSession{
		stream:    stream,
		startedAt: time.Now(),
		queue:     make(chan []byte, recognizerQueueCapacity),
		onFinal:   onFinal,
		metrics:   metrics,
		logger:    logger,
		done:      make(chan struct{}),
	}
	for _, chunk := range preload {
		s.stream.Push(chunk)
	}
	go s.runQueue()
	go s.runResults()
	return s
}

// Age returns how long this session has been open.
func (s *RecognizerSession) Age() time.Duration {
	return time.Since(s.startedAt)
}

// Closed reports whether the session has already ended, whether by an
// explicit Close or because its transport failed. The rotator polls this
// to detect a self-closed session and open a fresh one on the next speech
// chunk.
func (s *RecognizerSession) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Push enqueues chunk without blocking. If the queue is full, the oldest
// queued chunk is dropped to make room (pathological backlog only; the
// steady-state queue drains as fast as the stream accepts pushes).
func (s *RecognizerSession) Push(chunk []byte) {
	select {
	case s.queue <- chunk:
		return
	default:
	}
	select {
	case <-s.queue:
	default:
	}
	select {
	case s.queue <- chunk:
	default:
	}
}

// Close ends the session: stops accepting chunks and closes the underlying
// stream, which is this pipeline's sentinel-send equivalent.
func (s *RecognizerSession) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.done)
	s.mu.Unlock()
	s.stream.Close()
}

func (s *RecognizerSession) runQueue() {
	for {
		select {
		case chunk := <-s.queue:
			if err := s.stream.Push(chunk); err != nil {
				s.logger.Warn("recognizer push failed", "error", err)
				if s.metrics != nil {
					s.metrics.RecordRecognizerFailure(context.Background())
				}
				s.Close()
				return
			}
		case <-s.done:
			return
		}
	}
}

func (s *RecognizerSession) runResults() {
	for {
		select {
		case result, ok := <-s.stream.Results():
			if !ok {
				return
			}
			if !result.Final {
				continue
			}
			start, end := s.resolveTimestamps(result)
			if s.onFinal != nil {
				s.onFinal(result.Text, result.Confidence, start, end)
			}
		case <-s.done:
			return
		}
	}
}

func (s *RecognizerSession) resolveTimestamps(result RecognitionResult) (time.Time, time.Time) {
	if result.HasOffsets {
		return s.startedAt.Add(result.StartOffset), s.startedAt.Add(result.EndOffset)
	}
	now := time.Now()
	return now, now
}
