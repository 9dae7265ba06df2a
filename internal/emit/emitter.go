// Package emit fans each produced event out to the session's data channel
// and to the external HTTP sink, per session.
package emit

import (
	"context"
	"encoding/json"
	"log/slog"
)

// Channel is the narrow bidirectional-channel contract. Matches
// session.DataChannel; duplicated here so emit does not import session.
type Channel interface {
	IsOpen() bool
	Send(text string) error
}

// Emitter is the single publication point processors use per session. Both
// sinks are attempted for every event; an HTTP failure never blocks or
// fails the data channel send.
type Emitter struct {
	correlationID string
	channel       func() Channel
	http          *HTTPSink
	logger        *slog.Logger
}

// New builds an Emitter for one session. channelFn is called on every
// Emit so the emitter observes channel attachment that happens after
// construction.
func New(correlationID string, channelFn func() Channel, http *HTTPSink, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Emitter{correlationID: correlationID, channel: channelFn, http: http, logger: logger}
}

// EventType names a wire event kind. Emit and HTTPSink.Send take the kind
// as a plain string, which HTTPSink.Send uses as the last path segment.
type EventType string

// Emit serializes event and attempts delivery on both sinks. Event order on
// the data channel within one caller (one processor) is preserved because
// Emit itself does not reorder; callers must call it serially per
// processor, which every processor in this pipeline does.
func (e *Emitter) Emit(ctx context.Context, eventType string, event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.Warn("emit marshal failed", "event_type", eventType, "error", err)
		return
	}

	ch := e.channel()
	if ch != nil && ch.IsOpen() {
		if err := ch.Send(string(payload)); err != nil {
			e.logger.Warn("data channel send failed", "event_type", eventType, "error", err)
		}
	}

	if e.http != nil {
		go e.http.Send(ctx, eventType, e.correlationID, event)
	}
}

// EmitFraming sends a session-framing message (session_started,
// stream_closed) to the data channel only, never to the HTTP sink.
func (e *Emitter) EmitFraming(event any) {
	payload, err := json.Marshal(event)
	if err != nil {
		e.logger.Warn("emit framing marshal failed", "error", err)
		return
	}
	ch := e.channel()
	if ch == nil || !ch.IsOpen() {
		return
	}
	if err := ch.Send(string(payload)); err != nil {
		e.logger.Warn("data channel framing send failed", "error", err)
	}
}
