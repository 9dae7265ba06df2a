// Package video implements the video side of the pipeline: the FPS sampling
// governor, the detector contract, and the processor loop that ties them
// together.
package video

import (
	"sync"
	"time"
)

// FrameSampler gates video frames to at most fps per second, using
// wall-clock monotonic comparisons so it stays thread-safe under concurrent
// callers.
type FrameSampler struct {
	interval time.Duration

	mu       sync.Mutex
	lastSent time.Time
}

// NewFrameSampler builds a sampler admitting at most fps frames per second.
func NewFrameSampler(fps int) *FrameSampler {
	if fps < 1 {
		fps = 1
	}
	return &FrameSampler{interval: time.Second / time.Duration(fps)}
}

// ShouldProcess returns true at most once per 1/fps seconds.
func (s *FrameSampler) ShouldProcess() bool {
	now := time.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	if now.Sub(s.lastSent) < s.interval {
		return false
	}
	s.lastSent = now
	return true
}
