package audio

import (
	"context"
	"log/slog"
	"time"

	"mmpipeline/internal/buffer"
	"mmpipeline/internal/observe"
)

// StreamRotator owns one RecognizerSession at a time, opening the first on
// speech onset and rotating to a fresh, overlap-preloaded session once the
// active one reaches maxDuration. It also detects a session that has closed
// itself out from under it (a transport failure) and reopens on the next
// speech chunk, preserving overlap continuity.
type StreamRotator struct {
	recognizer  SpeechRecognizer
	language    string
	maxDuration time.Duration
	overlap     *buffer.OverlapBuffer
	onFinal     OnFinal
	metrics     *observe.Metrics
	logger      *slog.Logger

	active *RecognizerSession
}

// NewStreamRotator builds a StreamRotator. metrics may be nil.
func NewStreamRotator(recognizer SpeechRecognizer, language string, maxDuration time.Duration, overlap *buffer.OverlapBuffer, onFinal OnFinal, metrics *observe.Metrics, logger *slog.Logger) *StreamRotator {
	if logger == nil {
		logger = slog.Default()
	}
	return &StreamRotator{
		recognizer:  recognizer,
		language:    language,
		maxDuration: maxDuration,
		overlap:     overlap,
		onFinal:     onFinal,
		metrics:     metrics,
		logger:      logger,
	}
}

// Active reports whether a recognizer session is currently open.
func (r *StreamRotator) Active() bool {
	return r.active != nil
}

// Feed pushes chunk through the rotator: opening a session on first speech,
// forwarding to an already-open session regardless of VAD, rotating when
// the active session has aged past maxDuration, and reopening when the
// active session closed itself out from under it (a transport failure).
func (r *StreamRotator) Feed(ctx context.Context, chunk []byte, speech bool) {
	if r.active != nil && r.active.Closed() {
		r.active = nil
	}
	if r.active == nil {
		if !speech {
			return
		}
		r.open(ctx)
	} else if r.active.Age() >= r.maxDuration {
		r.rotate(ctx)
	}
	if r.active != nil {
		r.active.Push(chunk)
	}
}

// Close closes the active session, if any.
func (r *StreamRotator) Close() {
	if r.active != nil {
		r.active.Close()
		r.active = nil
	}
}

func (r *StreamRotator) open(ctx context.Context) {
	stream, err := r.recognizer.OpenStream(ctx, r.language)
	if err != nil {
		r.logger.Warn("recognizer open failed", "error", err)
		return
	}
	r.active = NewRecognizerSession(stream, r.overlap.Snapshot(), r.onFinal, r.metrics, r.logger)
}

func (r *StreamRotator) rotate(ctx context.Context) {
	preload := r.overlap.Snapshot()
	prior := r.active
	stream, err := r.recognizer.OpenStream(ctx, r.language)
	if err != nil {
		r.logger.Warn("recognizer rotation open failed", "error", err)
		return
	}
	r.active = NewRecognizerSession(stream, preload, r.onFinal, r.metrics, r.logger)
	if r.metrics != nil {
		r.metrics.RecordRecognizerRotation(ctx)
	}
	if prior != nil {
		prior.Close()
	}
}
