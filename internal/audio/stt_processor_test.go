package audio

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mmpipeline/internal/buffer"
	"mmpipeline/internal/emit"
	"mmpipeline/internal/events"
	"mmpipeline/internal/session"
)

type recordingChannel struct {
	mu   sync.Mutex
	open bool
	sent []string
}

func (c *recordingChannel) IsOpen() bool { return c.open }
func (c *recordingChannel) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, text)
	return nil
}
func (c *recordingChannel) messages() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]string, len(c.sent))
	copy(out, c.sent)
	return out
}

// toggledVAD reports speech only once call index n falls within
// [speechFrom, speechTo], reproducing a single utterance bounded on both
// sides by silence.
type toggledVAD struct {
	n                    int
	speechFrom, speechTo int
}

func (v *toggledVAD) IsSpeech(_ []byte) (bool, error) {
	v.n++
	return v.n >= v.speechFrom && v.n <= v.speechTo, nil
}

func TestSTTProcessorEmitsOneTranscriptionPerUtterance(t *testing.T) {
	sess := session.New("corr-stt")
	buf := buffer.NewAudioBuffer(4096)
	adapter := NewFrameAdapter(16000)
	chunker := NewPcmChunker(16000, 20) // 640-byte chunks
	vad := &toggledVAD{speechFrom: 5, speechTo: 15}
	rec := &StubRecognizer{Delay: 20 * time.Millisecond, Text: "hello world", Confidence: 0.9}

	ch := &recordingChannel{open: true}
	emitter := emit.New(sess.CorrelationID, func() emit.Channel { return ch }, nil, nil)

	proc := NewSTTProcessor(sess, buf, adapter, chunker, vad, rec, "en-US", time.Minute, 4, emitter, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = proc.Run(ctx)
		close(done)
	}()

	// Feed enough 20ms/16kHz mono frames to produce >15 chunks, letting
	// the toggled VAD pass through one bounded speech window.
	for i := 0; i < 20; i++ {
		buf.Put(buffer.AudioFrame{
			SampleRate: 16000,
			Channels:   1,
			PCM16:      make([]byte, 640),
			Duration:   20 * time.Millisecond,
		})
	}

	require.Eventually(t, func() bool { return len(ch.messages()) == 1 }, 2*time.Second, 5*time.Millisecond)
	cancel()
	<-done

	var ev events.TranscriptionEvent
	require.NoError(t, json.Unmarshal([]byte(ch.messages()[0]), &ev))
	assert.Equal(t, "transcript", ev.EventType)
	assert.Equal(t, "hello world", ev.Text)
	assert.Equal(t, 0.9, ev.Confidence)
	assert.NotEmpty(t, ev.StartTime)
	assert.NotEmpty(t, ev.EndTime)
}

func TestSTTProcessorStaysSilentWithoutSpeech(t *testing.T) {
	sess := session.New("corr-stt-quiet")
	buf := buffer.NewAudioBuffer(4096)
	adapter := NewFrameAdapter(16000)
	chunker := NewPcmChunker(16000, 20)
	vad := NewStubVAD(50) // never toggles within 5 calls, stays silent throughout
	rec := &StubRecognizer{Delay: time.Hour}

	ch := &recordingChannel{open: true}
	emitter := emit.New(sess.CorrelationID, func() emit.Channel { return ch }, nil, nil)

	proc := NewSTTProcessor(sess, buf, adapter, chunker, vad, rec, "en-US", time.Minute, 4, emitter, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		_ = proc.Run(ctx)
		close(done)
	}()

	for i := 0; i < 5; i++ {
		buf.Put(buffer.AudioFrame{SampleRate: 16000, Channels: 1, PCM16: make([]byte, 640), Duration: 20 * time.Millisecond})
	}

	require.Eventually(t, func() bool { return sess.FramesProcessed.Load() >= 5 }, time.Second, 5*time.Millisecond)
	cancel()
	<-done

	assert.Empty(t, ch.messages())
}
