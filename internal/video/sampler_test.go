package video

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFrameSamplerRateLimits(t *testing.T) {
	s := NewFrameSampler(3) // admits at most one per ~333ms

	assert.True(t, s.ShouldProcess())
	assert.False(t, s.ShouldProcess())
	assert.False(t, s.ShouldProcess())

	time.Sleep(350 * time.Millisecond)
	assert.True(t, s.ShouldProcess())
}

func TestFrameSamplerOverWindowBoundedCount(t *testing.T) {
	s := NewFrameSampler(10) // 100ms interval
	deadline := time.Now().Add(550 * time.Millisecond)
	count := 0
	for time.Now().Before(deadline) {
		if s.ShouldProcess() {
			count++
		}
		time.Sleep(5 * time.Millisecond)
	}
	// over ~0.55s at 10fps, expect at most ceil(0.55*10)+1 = 7
	assert.LessOrEqual(t, count, 7)
}

func TestStubDetectorReturnsFixedDetection(t *testing.T) {
	d := &StubDetector{Label: "person", Confidence: 0.9, X: 1, Y: 2, Width: 3, Height: 4}
	dets, err := d.Detect(nil, nil, 0, 0)
	assert.NoError(t, err)
	assert.Len(t, dets, 1)
	assert.Equal(t, "person", dets[0].Label)
}
