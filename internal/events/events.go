// Package events defines the JSON wire shapes emitted to the data channel
// and the HTTP sink.
package events

// DetectionEvent reports one detected object in one video frame.
type DetectionEvent struct {
	EventType  string  `json:"event_type"`
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
	FrameIndex int64   `json:"frameIndex"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
}

// NewDetectionEvent builds a DetectionEvent with confidence rounded to two
// decimals, per the spec's emission rule.
func NewDetectionEvent(label string, confidence float64, frameIndex int64, x, y, w, h float64) DetectionEvent {
	return DetectionEvent{
		EventType:  "object",
		Label:      label,
		Confidence: roundTo2(confidence),
		FrameIndex: frameIndex,
		X:          x,
		Y:          y,
		Width:      w,
		Height:     h,
	}
}

// TranscriptionEvent reports one finalized speech-to-text result.
type TranscriptionEvent struct {
	EventType  string  `json:"event_type"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	StartTime  string  `json:"startTime"`
	EndTime    string  `json:"endTime"`
}

// NewTranscriptionEvent builds a TranscriptionEvent.
func NewTranscriptionEvent(text string, confidence float64, startTime, endTime string) TranscriptionEvent {
	return TranscriptionEvent{
		EventType:  "transcript",
		Text:       text,
		Confidence: confidence,
		StartTime:  startTime,
		EndTime:    endTime,
	}
}

// EmotionEvent reports one windowed speech-emotion classification result.
type EmotionEvent struct {
	EventType  string  `json:"event_type"`
	Emotion    *string `json:"emotion"`
	Confidence float64 `json:"confidence"`
	Timestamp  string  `json:"timestamp"`
}

// NewEmotionEvent builds an EmotionEvent. emotion is nil when the classifier
// is unavailable or returned an unrecognized label.
func NewEmotionEvent(emotion *string, confidence float64, timestamp string) EmotionEvent {
	return EmotionEvent{
		EventType:  "emotion",
		Emotion:    emotion,
		Confidence: confidence,
		Timestamp:  timestamp,
	}
}

// SessionStartedConfig is the config block carried on the session_started
// framing message.
type SessionStartedConfig struct {
	MaxResolution        string  `json:"max_resolution"`
	ConfidenceThreshold  float64 `json:"confidence_threshold"`
	IdleTimeoutSec       int     `json:"idle_timeout_sec"`
}

// SessionStarted is the framing message sent once a data channel opens.
type SessionStarted struct {
	EventType   string               `json:"event_type"`
	SessionID   string               `json:"session_id"`
	TimestampMs int64                `json:"timestamp_ms"`
	Config      SessionStartedConfig `json:"config"`
}

// StreamSummary carries per-session counters at stream end.
type StreamSummary struct {
	TotalFramesReceived  int64   `json:"total_frames_received"`
	TotalFramesProcessed int64   `json:"total_frames_processed"`
	TotalFramesDropped   int64   `json:"total_frames_dropped"`
	TotalDetections      int64   `json:"total_detections"`
	DurationSec          float64 `json:"duration_sec"`
}

// StreamClosed is the framing message sent once a track ends.
type StreamClosed struct {
	EventType string        `json:"event_type"`
	SessionID string        `json:"session_id"`
	Summary   StreamSummary `json:"summary"`
}

func roundTo2(v float64) float64 {
	return float64(int64(v*100+0.5)) / 100
}
