// Package pipeline assembles one session's object graph — buffers, the
// video processor, the two audio processors, and the emitter — and drives
// them concurrently under a single cancellation scope, per the pipeline's
// per-session concurrency model.
package pipeline

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"mmpipeline/internal/audio"
	"mmpipeline/internal/buffer"
	"mmpipeline/internal/config"
	"mmpipeline/internal/emit"
	"mmpipeline/internal/events"
	"mmpipeline/internal/observe"
	"mmpipeline/internal/session"
	"mmpipeline/internal/video"
)

// Collaborators bundles the out-of-scope inference/transport contracts a
// StreamSession is wired against. A process typically builds one set and
// shares it across every session.
type Collaborators struct {
	Detector   video.Detector
	Recognizer audio.SpeechRecognizer
	Classifier audio.EmotionClassifier
	NewVAD     func() audio.VadDetector
	HTTPSink   *emit.HTTPSink
	Metrics    *observe.Metrics
	Logger     *slog.Logger
}

// StreamSession owns one session's full object graph: the buffers between
// ingestion and the three processors, the processors themselves, and the
// emitter they publish through.
type StreamSession struct {
	cfg    *config.Config
	sess   *session.Session
	col    Collaborators
	logger *slog.Logger

	videoBuf  *buffer.VideoBuffer
	sttBuf    *buffer.AudioBuffer
	emoBuf    *buffer.AudioBuffer
	fanout    *buffer.AudioFanOut

	videoProc *video.Processor
	sttProc   *audio.STTProcessor
	emoProc   *audio.EmotionProcessor

	emitter *emit.Emitter
	channel func() session.DataChannel
}

// New builds a StreamSession bound to sess and channelFn (called on every
// emission so attachment after construction is observed).
func New(cfg *config.Config, sess *session.Session, channelFn func() session.DataChannel, col Collaborators) *StreamSession {
	logger := col.Logger
	if logger == nil {
		logger = slog.Default()
	}

	emitterChannelFn := func() emit.Channel {
		ch := channelFn()
		if ch == nil {
			return nil
		}
		return ch
	}
	emitter := emit.New(sess.CorrelationID, emitterChannelFn, col.HTTPSink, logger)

	videoBuf := buffer.NewVideoBuffer()
	sttBuf := buffer.NewAudioBuffer(1024)
	emoBuf := buffer.NewAudioBuffer(1024)
	fanout := buffer.NewAudioFanOut(sttBuf, emoBuf)

	sampler := video.NewFrameSampler(cfg.VideoFPS)
	videoProc := video.NewProcessor(sess, videoBuf, sampler, col.Detector, emitter, col.Metrics, logger)

	sttAdapter := audio.NewFrameAdapter(cfg.AudioSampleRate)
	chunker := audio.NewPcmChunker(cfg.AudioSampleRate, cfg.AudioFrameMs)
	vad := audio.NewSizeCheckedVAD(chunker.ChunkBytes(), col.NewVAD())
	sttProc := audio.NewSTTProcessor(
		sess, sttBuf, sttAdapter, chunker, vad, col.Recognizer,
		cfg.STTLanguage, time.Duration(cfg.STTMaxDurationSec)*time.Second,
		cfg.OverlapChunks(), emitter, col.Metrics, logger,
	)

	emoAdapter := audio.NewFrameAdapter(cfg.AudioSampleRate)
	emoProc := audio.NewEmotionProcessor(sess, emoBuf, emoAdapter, col.Classifier, cfg.EmotionWindowSec, emitter, col.Metrics, logger)

	return &StreamSession{
		cfg: cfg, sess: sess, col: col, logger: logger,
		videoBuf: videoBuf, sttBuf: sttBuf, emoBuf: emoBuf, fanout: fanout,
		videoProc: videoProc, sttProc: sttProc, emoProc: emoProc,
		emitter: emitter, channel: channelFn,
	}
}

// OnVideoFrame enqueues a decoded video frame. frame_index is assigned by
// the video processor at dequeue time, not here.
func (s *StreamSession) OnVideoFrame(data []byte, width, height int) {
	_, hadDrop := s.videoBuf.Put(buffer.VideoFrame{Data: data, Width: width, Height: height})
	if hadDrop {
		s.sess.FramesDropped.Add(1)
		if s.col.Metrics != nil {
			s.col.Metrics.RecordFramesDropped(context.Background(), "video", 1)
		}
	}
}

// OnAudioFrame enqueues a decoded audio frame to both downstream analyzers.
func (s *StreamSession) OnAudioFrame(pcm16 []byte, sampleRate, channels int) {
	samples := len(pcm16) / 2
	if channels > 0 {
		samples /= channels
	}
	duration := time.Duration(0)
	if sampleRate > 0 {
		duration = time.Duration(samples) * time.Second / time.Duration(sampleRate)
	}
	drops := s.fanout.Put(buffer.AudioFrame{SampleRate: sampleRate, Channels: channels, PCM16: pcm16, Duration: duration})
	if drops > 0 {
		s.sess.FramesDropped.Add(int64(drops))
		if s.col.Metrics != nil {
			s.col.Metrics.RecordFramesDropped(context.Background(), "audio", int64(drops))
		}
	}
}

// Run drives all three processors concurrently until ctx is cancelled or
// the transport signals termination via OnEnd (which closes the buffers).
// It emits session_started after cfg.DataChanInitDelayMs and always
// returns within the hard shutdown budget once ctx is done.
func (s *StreamSession) Run(ctx context.Context) error {
	if s.col.Metrics != nil {
		s.col.Metrics.SessionOpened(ctx)
		defer s.col.Metrics.SessionClosed(ctx)
	}

	go s.emitSessionStarted(ctx)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.videoProc.Run(gctx) })
	g.Go(func() error { return s.sttProc.Run(gctx) })
	g.Go(func() error { return s.emoProc.Run(gctx) })
	return g.Wait()
}

func (s *StreamSession) emitSessionStarted(ctx context.Context) {
	delay := time.Duration(s.cfg.DataChanInitDelayMs) * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return
	}
	ev := events.SessionStarted{
		EventType:   "session_started",
		SessionID:   s.sess.CorrelationID,
		TimestampMs: time.Now().UnixMilli(),
		Config: events.SessionStartedConfig{
			MaxResolution:       "",
			ConfidenceThreshold: 0,
			IdleTimeoutSec:      s.cfg.IdleTimeoutSec,
		},
	}
	s.emitter.EmitFraming(ev)
}

// OnEnd tears down the session: closes its buffers (waking the processors
// with a terminal signal) and emits stream_closed with the final counters.
func (s *StreamSession) OnEnd() {
	s.videoBuf.Close()
	s.fanout.Close()

	summary := s.sess.Close()
	ev := events.StreamClosed{
		EventType: "stream_closed",
		SessionID: s.sess.CorrelationID,
		Summary: events.StreamSummary{
			TotalFramesReceived:  summary.TotalFramesReceived,
			TotalFramesProcessed: summary.TotalFramesProcessed,
			TotalFramesDropped:   summary.TotalFramesDropped,
			TotalDetections:      summary.TotalDetections,
			DurationSec:          summary.DurationSec,
		},
	}
	s.emitter.EmitFraming(ev)
}
