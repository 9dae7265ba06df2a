package audio

import (
	"context"
	"log/slog"
	"time"

	"mmpipeline/internal/buffer"
	"mmpipeline/internal/emit"
	"mmpipeline/internal/events"
	"mmpipeline/internal/observe"
	"mmpipeline/internal/session"
	"mmpipeline/internal/timeutil"
)

// STTProcessor produces TranscriptionEvents from a continuous audio stream:
// it adapts and chunks incoming frames, gates chunk delivery through VAD to
// decide when to open a recognizer session, and rotates sessions before
// they hit their maximum duration.
type STTProcessor struct {
	sess    *session.Session
	buf     *buffer.AudioBuffer
	adapter *FrameAdapter
	chunker *PcmChunker
	vad     VadDetector
	overlap *buffer.OverlapBuffer
	rotator *StreamRotator
	emitter *emit.Emitter
	metrics *observe.Metrics
	logger  *slog.Logger
}

// NewSTTProcessor builds an STTProcessor for one session. metrics may be
// nil.
func NewSTTProcessor(
	sess *session.Session,
	buf *buffer.AudioBuffer,
	adapter *FrameAdapter,
	chunker *PcmChunker,
	vad VadDetector,
	recognizer SpeechRecognizer,
	language string,
	maxDuration time.Duration,
	overlapChunks int,
	emitter *emit.Emitter,
	metrics *observe.Metrics,
	logger *slog.Logger,
) *STTProcessor {
	if logger == nil {
		logger = slog.Default()
	}
	p := &STTProcessor{
		sess:    sess,
		buf:     buf,
		adapter: adapter,
		chunker: chunker,
		vad:     vad,
		overlap: buffer.NewOverlapBuffer(overlapChunks),
		emitter: emitter,
		metrics: metrics,
		logger:  logger,
	}
	p.rotator = NewStreamRotator(recognizer, language, maxDuration, p.overlap, p.onFinal, metrics, logger)
	return p
}

func (p *STTProcessor) onFinal(text string, confidence float64, start, end time.Time) {
	ev := events.NewTranscriptionEvent(
		text,
		confidence,
		timeutil.EpochToISOUTC(float64(start.UnixNano())/1e9),
		timeutil.EpochToISOUTC(float64(end.UnixNano())/1e9),
	)
	ctx := context.Background()
	p.emitter.Emit(ctx, "transcript", ev)
	if p.metrics != nil {
		p.metrics.RecordTranscript(ctx)
		p.metrics.TranscriptionLatency.Record(ctx, end.Sub(start).Seconds())
	}
}

// Run drives the processor loop until ctx is cancelled or the buffer is
// closed. Recognizer transport failures close the current session; a new
// one opens on the next speech chunk, preserving overlap continuity.
func (p *STTProcessor) Run(ctx context.Context) error {
	defer p.rotator.Close()

	for {
		frame, err := p.buf.Get(ctx)
		if err != nil {
			return nil
		}
		p.sess.FramesReceived.Add(1)
		if p.metrics != nil {
			p.metrics.RecordFramesReceived(ctx, "audio", 1)
		}

		pcm16 := p.adapter.ToPCM16(frame.PCM16, frame.SampleRate, frame.Channels)
		for _, chunk := range p.chunker.Push(pcm16) {
			p.overlap.Push(chunk)

			speech, err := p.vad.IsSpeech(chunk)
			if err != nil {
				p.logger.Warn("vad failed", "correlation_id", p.sess.CorrelationID, "error", err)
				continue
			}

			p.rotator.Feed(ctx, chunk, speech)
		}
		p.sess.FramesProcessed.Add(1)
		if p.metrics != nil {
			p.metrics.RecordFramesProcessed(ctx, "audio", 1)
		}
	}
}
