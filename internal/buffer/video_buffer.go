// Package buffer implements the pipeline's bounded, drop-policy queues: the
// capacity-1 drop-newest video buffer, the capacity-N drop-head audio
// buffer, the audio fan-out, and the transcription overlap ring.
package buffer

import (
	"context"
	"errors"
	"sync"
)

// ErrClosed is returned by Get/GetMany once the buffer has been closed.
var ErrClosed = errors.New("buffer: closed")

// VideoFrame is the opaque payload a VideoBuffer holds. The pipeline assigns
// FrameIndex on arrival; Data is detector-specific (e.g. a BGR raster).
type VideoFrame struct {
	FrameIndex int64
	Data       []byte
	Width      int
	Height     int
}

// VideoBuffer holds at most one pending video frame. A Put while one is
// already resident replaces it and reports the discarded frame (drop-newest,
// i.e. the resident-but-stale frame loses to the fresher arrival).
type VideoBuffer struct {
	mu     sync.Mutex
	slot   chan VideoFrame
	closed bool

	dropped int64
}

// NewVideoBuffer creates an empty VideoBuffer.
func NewVideoBuffer() *VideoBuffer {
	return &VideoBuffer{slot: make(chan VideoFrame, 1)}
}

// Put stores frame, replacing and reporting any frame already resident.
func (b *VideoBuffer) Put(frame VideoFrame) (dropped VideoFrame, hadDrop bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return VideoFrame{}, false
	}
	select {
	case old := <-b.slot:
		dropped, hadDrop = old, true
		b.dropped++
	default:
	}
	b.slot <- frame
	return dropped, hadDrop
}

// Get blocks until a frame is available, the buffer is closed, or ctx is
// done.
func (b *VideoBuffer) Get(ctx context.Context) (VideoFrame, error) {
	select {
	case frame, ok := <-b.slot:
		if !ok {
			return VideoFrame{}, ErrClosed
		}
		return frame, nil
	case <-ctx.Done():
		return VideoFrame{}, ctx.Err()
	}
}

// Empty reports whether no frame is currently resident.
func (b *VideoBuffer) Empty() bool {
	return len(b.slot) == 0
}

// Dropped returns the cumulative count of frames discarded on overflow.
func (b *VideoBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Close marks the buffer closed, waking any blocked Get with ErrClosed.
func (b *VideoBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	close(b.slot)
}
