package audio

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"mmpipeline/internal/buffer"
	"mmpipeline/internal/emit"
	"mmpipeline/internal/events"
	"mmpipeline/internal/observe"
	"mmpipeline/internal/session"
	"mmpipeline/internal/timeutil"
)

// EmotionProcessor produces EmotionEvents at roughly fixed cadence from
// accumulated audio windows. Windows do not overlap; gaps are acceptable.
type EmotionProcessor struct {
	sess             *session.Session
	buf              *buffer.AudioBuffer
	adapter          *FrameAdapter
	classifier       EmotionClassifier
	retrieveDuration time.Duration
	timeout          time.Duration
	emitter          *emit.Emitter
	metrics          *observe.Metrics
	logger           *slog.Logger
}

// NewEmotionProcessor builds an EmotionProcessor for one session. windowSec
// sets the get-many timeout, and half of it the retrieve duration, so a
// genuinely idle buffer does not stall the loop indefinitely. metrics may
// be nil.
func NewEmotionProcessor(
	sess *session.Session,
	buf *buffer.AudioBuffer,
	adapter *FrameAdapter,
	classifier EmotionClassifier,
	windowSec int,
	emitter *emit.Emitter,
	metrics *observe.Metrics,
	logger *slog.Logger,
) *EmotionProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	return &EmotionProcessor{
		sess:             sess,
		buf:              buf,
		adapter:          adapter,
		classifier:       classifier,
		retrieveDuration: time.Duration(windowSec) * time.Second / 2,
		timeout:          time.Duration(windowSec) * time.Second,
		emitter:          emitter,
		metrics:          metrics,
		logger:           logger,
	}
}

// Run drives the processor loop until ctx is cancelled or the buffer is
// closed.
func (p *EmotionProcessor) Run(ctx context.Context) error {
	for {
		frames, err := p.buf.GetMany(ctx, p.retrieveDuration, p.timeout)
		if err != nil {
			return nil
		}
		if len(frames) == 0 {
			continue
		}
		p.sess.FramesReceived.Add(int64(len(frames)))
		if p.metrics != nil {
			p.metrics.RecordFramesReceived(ctx, "audio", int64(len(frames)))
		}

		label, score := p.classifyWindow(ctx, frames)

		var emotion *string
		if label != "" {
			if canon, ok := NormalizeLabel(label); ok {
				emotion = &canon
			} else {
				score = 0
			}
		} else {
			score = 0
		}

		ev := events.NewEmotionEvent(emotion, score, timeutil.NowISOUTC())
		p.emitter.Emit(ctx, "emotion", ev)
		p.sess.FramesProcessed.Add(int64(len(frames)))
		if p.metrics != nil {
			p.metrics.RecordFramesProcessed(ctx, "audio", int64(len(frames)))
			p.metrics.RecordEmotionEvent(ctx)
		}
	}
}

// classifyWindow writes frames to a temporary mono PCM WAV container on a
// worker goroutine and invokes the classifier, removing the temp file
// regardless of outcome.
func (p *EmotionProcessor) classifyWindow(ctx context.Context, frames []buffer.AudioFrame) (string, float64) {
	type result struct {
		label string
		score float64
	}
	done := make(chan result, 1)
	started := time.Now()

	go func() {
		path, err := p.writeWindowWAV(frames)
		if err != nil {
			p.logger.Warn("emotion window write failed", "correlation_id", p.sess.CorrelationID, "error", err)
			done <- result{}
			return
		}
		defer os.Remove(path)

		pred, err := p.classifier.Predict(ctx, path)
		if err != nil {
			p.logger.Warn("emotion classifier failed", "correlation_id", p.sess.CorrelationID, "error", err)
			done <- result{}
			return
		}
		done <- result{label: pred.Label, score: pred.Score}
	}()

	select {
	case r := <-done:
		if p.metrics != nil {
			p.metrics.EmotionLatency.Record(ctx, time.Since(started).Seconds())
		}
		return r.label, r.score
	case <-ctx.Done():
		return "", 0
	}
}

func (p *EmotionProcessor) writeWindowWAV(frames []buffer.AudioFrame) (string, error) {
	var pcm []byte
	for _, f := range frames {
		pcm = append(pcm, p.adapter.ToPCM16(f.PCM16, f.SampleRate, f.Channels)...)
	}

	f, err := os.CreateTemp("", "emotion-window-*.wav")
	if err != nil {
		return "", fmt.Errorf("emotion: create temp wav: %w", err)
	}
	defer f.Close()

	if err := writeWAV(f, pcm, 16000, 1); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("emotion: write wav: %w", err)
	}
	return f.Name(), nil
}
