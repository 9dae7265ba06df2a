package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type fakeChannel struct{ open bool }

func (f *fakeChannel) IsOpen() bool      { return f.open }
func (f *fakeChannel) Send(string) error { return nil }

func TestSessionNextFrameIndexMonotonic(t *testing.T) {
	s := New("corr")
	assert.Equal(t, int64(1), s.NextFrameIndex())
	assert.Equal(t, int64(2), s.NextFrameIndex())
	assert.Equal(t, int64(3), s.NextFrameIndex())
}

func TestSessionChannelAttachment(t *testing.T) {
	s := New("corr")
	assert.Nil(t, s.Channel())

	ch := &fakeChannel{open: true}
	s.AttachChannel(ch)
	assert.Equal(t, ch, s.Channel())
}

func TestSessionCloseIsIdempotentAndSnapshotsCounters(t *testing.T) {
	s := New("corr")
	s.FramesReceived.Add(10)
	s.FramesProcessed.Add(8)
	s.FramesDropped.Add(2)
	s.Detections.Add(3)

	summary1 := s.Close()
	summary2 := s.Close()

	assert.Equal(t, int64(10), summary1.TotalFramesReceived)
	assert.Equal(t, int64(8), summary1.TotalFramesProcessed)
	assert.Equal(t, int64(2), summary1.TotalFramesDropped)
	assert.Equal(t, int64(3), summary1.TotalDetections)
	assert.Equal(t, summary1.DurationSec, summary2.DurationSec, "second Close must not move the end time")
}
