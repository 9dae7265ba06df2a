package emit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingChannel struct {
	mu    sync.Mutex
	open  bool
	sent  []string
	sendErr error
}

func (c *recordingChannel) IsOpen() bool { return c.open }
func (c *recordingChannel) Send(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sendErr != nil {
		return c.sendErr
	}
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

type sample struct {
	Value string `json:"value"`
}

func startCountingServer(t *testing.T, hits *int) *httptest.Server {
	t.Helper()
	var count int64
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt64(&count, 1)
		*hits = int(atomic.LoadInt64(&count))
		w.WriteHeader(http.StatusOK)
	}))
	return srv
}

func TestEmitterSendsToOpenChannel(t *testing.T) {
	ch := &recordingChannel{open: true}
	e := New("corr-1", func() Channel { return ch }, nil, nil)

	e.Emit(context.Background(), "demo", sample{Value: "hi"})

	require.Len(t, ch.messages(), 1)
	assert.JSONEq(t, `{"value":"hi"}`, ch.messages()[0])
}

func TestEmitterSkipsClosedChannel(t *testing.T) {
	ch := &recordingChannel{open: false}
	e := New("corr-1", func() Channel { return ch }, nil, nil)

	e.Emit(context.Background(), "demo", sample{Value: "hi"})

	assert.Empty(t, ch.messages())
}

func TestEmitFramingNeverReachesHTTPSink(t *testing.T) {
	var hits int
	srv := startCountingServer(t, &hits)
	defer srv.Close()

	ch := &recordingChannel{open: true}
	sink := NewHTTPSink(srv.URL, "key", time.Second, nil)
	e := New("corr-1", func() Channel { return ch }, sink, nil)

	e.EmitFraming(sample{Value: "framing"})

	require.Len(t, ch.messages(), 1)
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 0, hits)
}

func TestEmitHTTPFailureDoesNotBlockChannel(t *testing.T) {
	ch := &recordingChannel{open: true}
	// Point the HTTP sink at a closed port so every request fails fast.
	sink := NewHTTPSink("http://127.0.0.1:1", "key", 200*time.Millisecond, nil)
	e := New("corr-1", func() Channel { return ch }, sink, nil)

	e.Emit(context.Background(), "demo", sample{Value: "hi"})

	require.Len(t, ch.messages(), 1)
	assert.JSONEq(t, `{"value":"hi"}`, ch.messages()[0])
}
