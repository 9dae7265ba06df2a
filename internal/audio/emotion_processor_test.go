package audio

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmpipeline/internal/buffer"
	"mmpipeline/internal/emit"
	"mmpipeline/internal/events"
	"mmpipeline/internal/session"
)

func TestEmotionProcessorEmitsNormalizedLabel(t *testing.T) {
	sess := session.New("corr-emotion")
	buf := buffer.NewAudioBuffer(64)
	adapter := NewFrameAdapter(16000)
	classifier := &StubEmotionClassifier{Label: "Happy", Score: 0.81}

	ch := &recordingChannel{open: true}
	emitter := emit.New(sess.CorrelationID, func() emit.Channel { return ch }, nil, nil)

	proc := NewEmotionProcessor(sess, buf, adapter, classifier, 1, emitter, nil, nil) // 1s window

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = proc.Run(ctx)
		close(done)
	}()

	for i := 0; i < 50; i++ {
		buf.Put(buffer.AudioFrame{SampleRate: 16000, Channels: 1, PCM16: make([]byte, 640), Duration: 20 * time.Millisecond})
	}

	require.Eventually(t, func() bool { return len(ch.messages()) >= 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	var ev events.EmotionEvent
	require.NoError(t, json.Unmarshal([]byte(ch.messages()[0]), &ev))
	assert.Equal(t, "emotion", ev.EventType)
	require.NotNil(t, ev.Emotion)
	assert.Equal(t, "happy", *ev.Emotion)
	assert.Equal(t, 0.81, ev.Confidence)
	assert.NotEmpty(t, ev.Timestamp)
}

func TestEmotionProcessorNullsUnrecognizedLabel(t *testing.T) {
	sess := session.New("corr-emotion-unknown")
	buf := buffer.NewAudioBuffer(64)
	adapter := NewFrameAdapter(16000)
	classifier := &StubEmotionClassifier{Label: "bewildered", Score: 0.5}

	ch := &recordingChannel{open: true}
	emitter := emit.New(sess.CorrelationID, func() emit.Channel { return ch }, nil, nil)

	proc := NewEmotionProcessor(sess, buf, adapter, classifier, 1, emitter, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = proc.Run(ctx)
		close(done)
	}()

	for i := 0; i < 50; i++ {
		buf.Put(buffer.AudioFrame{SampleRate: 16000, Channels: 1, PCM16: make([]byte, 640), Duration: 20 * time.Millisecond})
	}

	require.Eventually(t, func() bool { return len(ch.messages()) >= 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	var ev events.EmotionEvent
	require.NoError(t, json.Unmarshal([]byte(ch.messages()[0]), &ev))
	assert.Nil(t, ev.Emotion)
	assert.Equal(t, float64(0), ev.Confidence)
}
