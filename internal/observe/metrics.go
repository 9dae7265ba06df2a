// Package observe provides OpenTelemetry metric instruments for the
// pipeline: per-stage processing latency, buffer drop counts, an
// active-sessions gauge, and a package-level default instance backed by
// the global meter provider.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "mmpipeline"

// Metrics holds all OpenTelemetry metric instruments for the pipeline. All
// fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms per pipeline stage ---

	DetectionLatency    metric.Float64Histogram
	TranscriptionLatency metric.Float64Histogram
	EmotionLatency       metric.Float64Histogram

	// --- Counters ---

	FramesReceived metric.Int64Counter
	FramesDropped  metric.Int64Counter
	FramesProcessed metric.Int64Counter
	Detections     metric.Int64Counter
	Transcripts    metric.Int64Counter
	EmotionEvents  metric.Int64Counter
	RecognizerRotations metric.Int64Counter
	RecognizerFailures  metric.Int64Counter

	// --- Gauges ---

	ActiveSessions metric.Int64UpDownCounter
}

var latencyBuckets = []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5}

// NewMetrics creates a fully initialised Metrics struct using the given
// metric.MeterProvider. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.DetectionLatency, err = m.Float64Histogram("mmpipeline.detection.latency",
		metric.WithDescription("Latency of one video detection call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TranscriptionLatency, err = m.Float64Histogram("mmpipeline.transcription.latency",
		metric.WithDescription("Latency from chunk push to final transcription result."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.EmotionLatency, err = m.Float64Histogram("mmpipeline.emotion.latency",
		metric.WithDescription("Latency of one emotion classification call."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.FramesReceived, err = m.Int64Counter("mmpipeline.frames.received",
		metric.WithDescription("Total frames received by a processor, by stream kind."),
	); err != nil {
		return nil, err
	}
	if met.FramesDropped, err = m.Int64Counter("mmpipeline.frames.dropped",
		metric.WithDescription("Total frames dropped by a buffer, by stream kind."),
	); err != nil {
		return nil, err
	}
	if met.FramesProcessed, err = m.Int64Counter("mmpipeline.frames.processed",
		metric.WithDescription("Total frames fully processed by a processor, by stream kind."),
	); err != nil {
		return nil, err
	}
	if met.Detections, err = m.Int64Counter("mmpipeline.detections.total",
		metric.WithDescription("Total object detections emitted."),
	); err != nil {
		return nil, err
	}
	if met.Transcripts, err = m.Int64Counter("mmpipeline.transcripts.total",
		metric.WithDescription("Total transcription events emitted."),
	); err != nil {
		return nil, err
	}
	if met.EmotionEvents, err = m.Int64Counter("mmpipeline.emotion_events.total",
		metric.WithDescription("Total emotion events emitted."),
	); err != nil {
		return nil, err
	}
	if met.RecognizerRotations, err = m.Int64Counter("mmpipeline.recognizer.rotations",
		metric.WithDescription("Total recognizer session rotations due to max duration."),
	); err != nil {
		return nil, err
	}
	if met.RecognizerFailures, err = m.Int64Counter("mmpipeline.recognizer.failures",
		metric.WithDescription("Total recognizer transport failures."),
	); err != nil {
		return nil, err
	}

	if met.ActiveSessions, err = m.Int64UpDownCounter("mmpipeline.active_sessions",
		metric.WithDescription("Number of currently active streaming sessions."),
	); err != nil {
		return nil, err
	}

	return met, nil
}

var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level Metrics instance, creating it on
// first call using otel.GetMeterProvider. Subsequent calls return the same
// pointer. Panics if instrument creation fails (should not happen with the
// global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for attribute.String to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordFramesReceived records a frames-received counter increment tagged
// with the stream kind ("video", "audio").
func (m *Metrics) RecordFramesReceived(ctx context.Context, kind string, n int64) {
	m.FramesReceived.Add(ctx, n, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordFramesDropped records a frames-dropped counter increment tagged
// with the stream kind.
func (m *Metrics) RecordFramesDropped(ctx context.Context, kind string, n int64) {
	m.FramesDropped.Add(ctx, n, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordFramesProcessed records a frames-processed counter increment tagged
// with the stream kind.
func (m *Metrics) RecordFramesProcessed(ctx context.Context, kind string, n int64) {
	m.FramesProcessed.Add(ctx, n, metric.WithAttributes(attribute.String("kind", kind)))
}

// RecordDetection records one detection event.
func (m *Metrics) RecordDetection(ctx context.Context) {
	m.Detections.Add(ctx, 1)
}

// RecordTranscript records one transcription event.
func (m *Metrics) RecordTranscript(ctx context.Context) {
	m.Transcripts.Add(ctx, 1)
}

// RecordEmotionEvent records one emotion event.
func (m *Metrics) RecordEmotionEvent(ctx context.Context) {
	m.EmotionEvents.Add(ctx, 1)
}

// RecordRecognizerRotation records one recognizer-session rotation.
func (m *Metrics) RecordRecognizerRotation(ctx context.Context) {
	m.RecognizerRotations.Add(ctx, 1)
}

// RecordRecognizerFailure records one recognizer transport failure.
func (m *Metrics) RecordRecognizerFailure(ctx context.Context) {
	m.RecognizerFailures.Add(ctx, 1)
}

// SessionOpened increments the active-sessions gauge.
func (m *Metrics) SessionOpened(ctx context.Context) {
	m.ActiveSessions.Add(ctx, 1)
}

// SessionClosed decrements the active-sessions gauge.
func (m *Metrics) SessionClosed(ctx context.Context) {
	m.ActiveSessions.Add(ctx, -1)
}
