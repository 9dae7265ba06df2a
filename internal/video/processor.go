package video

import (
	"context"
	"log/slog"
	"time"

	"mmpipeline/internal/buffer"
	"mmpipeline/internal/emit"
	"mmpipeline/internal/events"
	"mmpipeline/internal/observe"
	"mmpipeline/internal/session"
)

// Processor consumes VideoBuffer, applies the FrameSampler gate, submits
// admitted frames to the Detector on a worker goroutine, and emits one
// DetectionEvent per returned detection.
type Processor struct {
	sess    *session.Session
	buf     *buffer.VideoBuffer
	sampler *FrameSampler
	det     Detector
	emitter *emit.Emitter
	metrics *observe.Metrics
	logger  *slog.Logger
}

// NewProcessor builds a video Processor for one session. metrics may be
// nil.
func NewProcessor(sess *session.Session, buf *buffer.VideoBuffer, sampler *FrameSampler, det Detector, emitter *emit.Emitter, metrics *observe.Metrics, logger *slog.Logger) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{sess: sess, buf: buf, sampler: sampler, det: det, emitter: emitter, metrics: metrics, logger: logger}
}

// Run drives the processor loop until ctx is cancelled or the buffer is
// closed. A detector failure on one frame is logged and swallowed; it never
// terminates the loop.
func (p *Processor) Run(ctx context.Context) error {
	for {
		frame, err := p.buf.Get(ctx)
		if err != nil {
			return nil
		}
		frame.FrameIndex = p.sess.NextFrameIndex()

		p.sess.FramesReceived.Add(1)
		if p.metrics != nil {
			p.metrics.RecordFramesReceived(ctx, "video", 1)
		}

		if !p.sampler.ShouldProcess() {
			continue
		}

		started := time.Now()
		detections, err := p.detectOffPath(ctx, frame)
		if p.metrics != nil {
			p.metrics.DetectionLatency.Record(ctx, time.Since(started).Seconds())
		}
		if err != nil {
			p.logger.Warn("video detector failed", "correlation_id", p.sess.CorrelationID, "frame_index", frame.FrameIndex, "error", err)
			continue
		}

		p.sess.FramesProcessed.Add(1)
		if p.metrics != nil {
			p.metrics.RecordFramesProcessed(ctx, "video", 1)
		}
		for _, d := range detections {
			p.sess.Detections.Add(1)
			ev := events.NewDetectionEvent(d.Label, d.Confidence, frame.FrameIndex, d.X, d.Y, d.Width, d.Height)
			p.emitter.Emit(ctx, "object", ev)
			if p.metrics != nil {
				p.metrics.RecordDetection(ctx)
			}
		}
	}
}

// detectOffPath runs the blocking detector call on its own goroutine so the
// ingest loop never stalls on it, joining the result back onto this
// goroutine before returning.
func (p *Processor) detectOffPath(ctx context.Context, frame buffer.VideoFrame) ([]Detection, error) {
	type result struct {
		detections []Detection
		err        error
	}
	done := make(chan result, 1)
	go func() {
		d, err := p.det.Detect(ctx, frame.Data, frame.Width, frame.Height)
		done <- result{d, err}
	}()
	select {
	case r := <-done:
		return r.detections, r.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
