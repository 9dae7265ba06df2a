package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmpipeline/internal/audio"
	"mmpipeline/internal/config"
	"mmpipeline/internal/session"
	"mmpipeline/internal/video"
)

func newTestSession(t *testing.T) (*StreamSession, *session.Session) {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)

	sess := session.New("corr-pipeline")
	col := Collaborators{
		Detector:   &video.StubDetector{},
		Recognizer: &audio.StubRecognizer{},
		Classifier: &audio.StubEmotionClassifier{},
		NewVAD:     func() audio.VadDetector { return audio.NewStubVAD(1000) },
	}
	ss := New(cfg, sess, func() session.DataChannel { return nil }, col)
	return ss, sess
}

func TestOnVideoFrameCountsDroppedFrames(t *testing.T) {
	ss, sess := newTestSession(t)

	// The video buffer holds at most one pending frame; the second Put
	// before any Get evicts the first.
	ss.OnVideoFrame([]byte{1}, 4, 4)
	ss.OnVideoFrame([]byte{2}, 4, 4)

	assert.Equal(t, int64(1), sess.FramesDropped.Load())
}

func TestOnAudioFrameCountsDroppedFramesAcrossFanOut(t *testing.T) {
	ss, sess := newTestSession(t)

	for i := 0; i < 1026; i++ {
		ss.OnAudioFrame(make([]byte, 640), 16000, 1)
	}

	// Both the STT and emotion buffers (capacity 1024) evict once each
	// buffer overflows, so drops accumulate per downstream buffer.
	assert.Positive(t, sess.FramesDropped.Load())
}
