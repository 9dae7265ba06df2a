package buffer

import (
	"container/list"
	"context"
	"sync"
	"time"
)

// AudioFrame is the opaque payload audio buffers hold: raw PCM plus enough
// metadata to derive its duration and to resample/downmix it later.
type AudioFrame struct {
	SampleRate int
	Channels   int
	PCM16      []byte
	Duration   time.Duration
}

// AudioBuffer is a bounded FIFO of AudioFrames. On overflow the oldest frame
// is dropped (drop-head) to make room for the newest arrival.
type AudioBuffer struct {
	capacity int

	mu       sync.Mutex
	items    *list.List
	notEmpty chan struct{}
	closed   bool

	dropped  int64
	buffered time.Duration
}

// NewAudioBuffer creates an AudioBuffer holding at most capacity frames.
func NewAudioBuffer(capacity int) *AudioBuffer {
	if capacity < 1 {
		capacity = 1
	}
	return &AudioBuffer{
		capacity: capacity,
		items:    list.New(),
		notEmpty: make(chan struct{}, 1),
	}
}

func (b *AudioBuffer) signal() {
	select {
	case b.notEmpty <- struct{}{}:
	default:
	}
}

// Put appends frame, dropping the oldest resident frame if the buffer was
// already at capacity. Returns the dropped frame, if any.
func (b *AudioBuffer) Put(frame AudioFrame) (dropped AudioFrame, hadDrop bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return AudioFrame{}, false
	}
	if b.items.Len() >= b.capacity {
		front := b.items.Remove(b.items.Front())
		dropped, hadDrop = front.(AudioFrame), true
		b.dropped++
		b.buffered -= dropped.Duration
	}
	b.items.PushBack(frame)
	b.buffered += frame.Duration
	b.signal()
	return dropped, hadDrop
}

// Dropped returns the cumulative count of frames evicted on overflow.
func (b *AudioBuffer) Dropped() int64 {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.dropped
}

// Buffered returns the total duration of audio currently resident in the
// buffer, maintained incrementally on every Put/Get/eviction.
func (b *AudioBuffer) Buffered() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buffered
}

// Get dequeues one frame, blocking until one is available, the buffer is
// closed, or ctx is done.
func (b *AudioBuffer) Get(ctx context.Context) (AudioFrame, error) {
	for {
		b.mu.Lock()
		if b.items.Len() > 0 {
			front := b.items.Remove(b.items.Front())
			frame := front.(AudioFrame)
			b.buffered -= frame.Duration
			b.mu.Unlock()
			return frame, nil
		}
		closed := b.closed
		b.mu.Unlock()
		if closed {
			return AudioFrame{}, ErrClosed
		}
		select {
		case <-b.notEmpty:
		case <-ctx.Done():
			return AudioFrame{}, ctx.Err()
		}
	}
}

// GetMany collects frames until their accumulated duration reaches
// retrieveDuration or timeout elapses since the call started, whichever
// comes first. May return an empty slice on timeout. Never blocks past
// ctx's cancellation.
func (b *AudioBuffer) GetMany(ctx context.Context, retrieveDuration, timeout time.Duration) ([]AudioFrame, error) {
	deadline := time.Now().Add(timeout)
	var collected []AudioFrame
	var total time.Duration

	for total < retrieveDuration {
		remaining := time.Until(deadline)
		if remaining <= 0 {
			return collected, nil
		}

		frameCtx, cancel := context.WithTimeout(ctx, remaining)
		frame, err := b.Get(frameCtx)
		cancel()
		if err != nil {
			if err == context.DeadlineExceeded {
				return collected, nil
			}
			return collected, err
		}
		collected = append(collected, frame)
		total += frame.Duration
	}
	return collected, nil
}

// Close marks the buffer closed, waking any blocked Get/GetMany with
// ErrClosed.
func (b *AudioBuffer) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	b.closed = true
	b.signal()
}
