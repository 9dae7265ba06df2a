package audio

import "context"

// EmotionPrediction is the raw classifier output before label
// normalization.
type EmotionPrediction struct {
	Label         string
	Score         float64
	Probabilities map[string]float64
}

// EmotionClassifier predicts a speech-emotion label from a mono 16kHz PCM
// WAV file on disk.
type EmotionClassifier interface {
	Predict(ctx context.Context, wavPath string) (EmotionPrediction, error)
}

// StubEmotionClassifier is a deterministic EmotionClassifier for tests and
// as a zero-configuration default.
type StubEmotionClassifier struct {
	Label string
	Score float64
}

// Predict returns the stub's fixed prediction, ignoring wavPath.
func (c *StubEmotionClassifier) Predict(_ context.Context, _ string) (EmotionPrediction, error) {
	label := c.Label
	if label == "" {
		label = "neutral"
	}
	return EmotionPrediction{Label: label, Score: c.Score}, nil
}
