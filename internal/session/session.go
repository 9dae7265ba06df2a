// Package session implements per-stream lifecycle state: the Session handle
// and the process-wide SessionRegistry that owns them.
package session

import (
	"sync"
	"sync/atomic"
	"time"
)

// DataChannel is the narrow bidirectional-channel contract the transport
// layer must satisfy. Implementations live under internal/transport.
type DataChannel interface {
	IsOpen() bool
	Send(text string) error
}

// Session is the lifetime of one client's bidirectional media exchange.
// Counters are updated by the processors that own this session and, for
// FramesDropped, by the ingest path; the attached channel may be set at
// most once, after creation.
type Session struct {
	CorrelationID string
	Start         time.Time // monotonic-ish wall clock captured at creation

	mu      sync.RWMutex
	channel DataChannel
	end     time.Time
	closed  bool

	FramesReceived atomic.Int64
	FramesDropped  atomic.Int64
	FramesProcessed atomic.Int64
	Detections      atomic.Int64

	FrameIndex atomic.Int64
}

// New creates a Session starting now.
func New(correlationID string) *Session {
	return &Session{
		CorrelationID: correlationID,
		Start:         time.Now(),
	}
}

// AttachChannel sets the session's data channel. Safe to call at most once;
// later calls replace the reference under lock.
func (s *Session) AttachChannel(ch DataChannel) {
	s.mu.Lock()
	s.channel = ch
	s.mu.Unlock()
}

// Channel returns the currently attached channel, or nil if none.
func (s *Session) Channel() DataChannel {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.channel
}

// NextFrameIndex assigns the next strictly increasing frame index.
func (s *Session) NextFrameIndex() int64 {
	return s.FrameIndex.Add(1)
}

// Close marks the session ended and returns a snapshot of its counters. Safe
// to call more than once; only the first call records the end time.
func (s *Session) Close() StreamSummary {
	s.mu.Lock()
	if !s.closed {
		s.closed = true
		s.end = time.Now()
	}
	end := s.end
	s.mu.Unlock()

	return StreamSummary{
		TotalFramesReceived:  s.FramesReceived.Load(),
		TotalFramesProcessed: s.FramesProcessed.Load(),
		TotalFramesDropped:   s.FramesDropped.Load(),
		TotalDetections:      s.Detections.Load(),
		DurationSec:          end.Sub(s.Start).Seconds(),
	}
}

// StreamSummary mirrors events.StreamSummary without importing the events
// package, keeping session free of wire-format concerns.
type StreamSummary struct {
	TotalFramesReceived  int64
	TotalFramesProcessed int64
	TotalFramesDropped   int64
	TotalDetections      int64
	DurationSec          float64
}
