// Package localwhisper is the default SpeechRecognizer: it batches buffered
// PCM by silence detection and POSTs each utterance to a local whisper.cpp
// HTTP server, emitting one final result per batch.
package localwhisper

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"mime/multipart"
	"net/http"
	"sync"
	"time"

	"mmpipeline/internal/audio"
)

const (
	bitsPerSample              = 16
	defaultRMSThreshold        = 300.0
	defaultSilenceThresholdMs  = 500
	defaultMaxBufferDurationMs = 10_000
)

// Recognizer talks to a whisper.cpp HTTP server's /inference endpoint. It
// satisfies audio.SpeechRecognizer.
type Recognizer struct {
	serverURL  string
	sampleRate int
	channels   int
	client     *http.Client
}

// New builds a Recognizer against serverURL (e.g. "http://localhost:8081").
func New(serverURL string) *Recognizer {
	return &Recognizer{
		serverURL:  serverURL,
		sampleRate: 16000,
		channels:   1,
		client:     &http.Client{Timeout: 30 * time.Second},
	}
}

// OpenStream starts a new stream session bound to language.
func (r *Recognizer) OpenStream(ctx context.Context, language string) (audio.RecognizerStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("localwhisper: context already cancelled: %w", err)
	}
	s := &stream{
		serverURL:  r.serverURL,
		language:   language,
		sampleRate: r.sampleRate,
		channels:   r.channels,
		client:     r.client,
		audioCh:    make(chan []byte, 256),
		results:    make(chan audio.RecognitionResult, 64),
		done:       make(chan struct{}),
	}
	s.wg.Add(1)
	go s.processLoop(ctx)
	return s, nil
}

// stream is a live whisper.cpp-backed recognizer stream. All mutable
// buffering state lives in processLoop to avoid extra locking.
type stream struct {
	serverURL  string
	language   string
	sampleRate int
	channels   int
	client     *http.Client

	audioCh chan []byte
	results chan audio.RecognitionResult

	done chan struct{}
	once sync.Once
	wg   sync.WaitGroup
}

// Push queues a PCM chunk for silence analysis and buffering.
func (s *stream) Push(chunk []byte) error {
	select {
	case <-s.done:
		return fmt.Errorf("localwhisper: stream closed")
	default:
	}
	select {
	case s.audioCh <- chunk:
		return nil
	case <-s.done:
		return fmt.Errorf("localwhisper: stream closed")
	}
}

// Results returns the stream's result channel, closed when the stream ends.
func (s *stream) Results() <-chan audio.RecognitionResult { return s.results }

// Close flushes any pending utterance and ends the stream. Safe to call
// more than once.
func (s *stream) Close() error {
	s.once.Do(func() {
		close(s.done)
		s.wg.Wait()
	})
	return nil
}

func (s *stream) processLoop(ctx context.Context) {
	defer s.wg.Done()
	defer close(s.results)

	var (
		buf       []byte
		hadSpeech bool
		silenceMs int
	)

	bytesPerMs := s.sampleRate * s.channels * (bitsPerSample / 8) / 1000
	if bytesPerMs <= 0 {
		bytesPerMs = 32
	}
	maxBufferBytes := defaultMaxBufferDurationMs * bytesPerMs

	doFlush := func(flushCtx context.Context) {
		if len(buf) == 0 || !hadSpeech {
			buf, hadSpeech, silenceMs = nil, false, 0
			return
		}
		pcm := buf
		buf, hadSpeech, silenceMs = nil, false, 0

		text, err := s.infer(flushCtx, pcm)
		if err != nil || text == "" {
			return
		}
		select {
		case s.results <- audio.RecognitionResult{Final: true, Text: text, Confidence: 1}:
		default:
		}
	}

	flushWithTimeout := func() {
		fc, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		doFlush(fc)
	}

	for {
		select {
		case <-ctx.Done():
			flushWithTimeout()
			return
		case <-s.done:
			flushWithTimeout()
			return
		case chunk, ok := <-s.audioCh:
			if !ok {
				flushWithTimeout()
				return
			}
			rms := computeRMS(chunk)
			chunkMs := chunkDurationMs(chunk, s.sampleRate, s.channels)

			if rms < defaultRMSThreshold {
				if hadSpeech {
					silenceMs += chunkMs
					buf = append(buf, chunk...)
					if silenceMs >= defaultSilenceThresholdMs {
						doFlush(ctx)
					}
				}
			} else {
				hadSpeech = true
				silenceMs = 0
				buf = append(buf, chunk...)
				if maxBufferBytes > 0 && len(buf) >= maxBufferBytes {
					doFlush(ctx)
				}
			}
		}
	}
}

func (s *stream) infer(ctx context.Context, pcm []byte) (string, error) {
	wav := encodeWAV(pcm, s.sampleRate, s.channels)

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile("file", "audio.wav")
	if err != nil {
		return "", fmt.Errorf("localwhisper: create form file: %w", err)
	}
	if _, err := fw.Write(wav); err != nil {
		return "", fmt.Errorf("localwhisper: write wav data: %w", err)
	}
	if s.language != "" {
		if err := mw.WriteField("language", s.language); err != nil {
			return "", fmt.Errorf("localwhisper: write language field: %w", err)
		}
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("localwhisper: close multipart writer: %w", err)
	}

	endpoint := s.serverURL + "/inference"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, &body)
	if err != nil {
		return "", fmt.Errorf("localwhisper: create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("localwhisper: http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("localwhisper: server returned HTTP %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("localwhisper: read response body: %w", err)
	}
	var result struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return "", fmt.Errorf("localwhisper: parse JSON response: %w", err)
	}
	return result.Text, nil
}

func encodeWAV(pcm []byte, sampleRate, channels int) []byte {
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8
	dataSize := len(pcm)

	buf := make([]byte, 44+dataSize)
	copy(buf[0:4], "RIFF")
	binary.LittleEndian.PutUint32(buf[4:8], uint32(36+dataSize))
	copy(buf[8:12], "WAVE")
	copy(buf[12:16], "fmt ")
	binary.LittleEndian.PutUint32(buf[16:20], 16)
	binary.LittleEndian.PutUint16(buf[20:22], 1)
	binary.LittleEndian.PutUint16(buf[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(buf[24:28], uint32(sampleRate))
	binary.LittleEndian.PutUint32(buf[28:32], uint32(byteRate))
	binary.LittleEndian.PutUint16(buf[32:34], uint16(blockAlign))
	binary.LittleEndian.PutUint16(buf[34:36], bitsPerSample)
	copy(buf[36:40], "data")
	binary.LittleEndian.PutUint32(buf[40:44], uint32(dataSize))
	copy(buf[44:], pcm)
	return buf
}

func computeRMS(pcm []byte) float64 {
	n := len(pcm) / 2
	if n == 0 {
		return 0
	}
	var sum float64
	for i := 0; i < n; i++ {
		sample := int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
		v := float64(sample)
		sum += v * v
	}
	return math.Sqrt(sum / float64(n))
}

func chunkDurationMs(chunk []byte, sampleRate, channels int) int {
	if sampleRate <= 0 || channels <= 0 {
		return 0
	}
	bytesPerSec := sampleRate * channels * (bitsPerSample / 8)
	return len(chunk) * 1000 / bytesPerSec
}
