//go:build onnx

// Package onnx provides an ONNX Runtime-backed audio.EmotionClassifier,
// gated behind the "onnx" build tag and grounded on the same ONNX Runtime
// session-management pattern used by the local VAD engine: one reusable
// session, fixed-shape input/output tensors, package-scoped one-time
// environment init.
package onnx

import (
	"context"
	"fmt"
	"os"
	"sync"

	ort "github.com/yalue/onnxruntime_go"

	"mmpipeline/internal/audio"
)

const (
	// windowSamples is the fixed number of float32 PCM samples the model
	// expects per classification call (here, 3s at 16kHz mono).
	windowSamples = 16000 * 3
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// canonicalOrder is the fixed label order the model's output vector is
// assumed to follow; index i of the output corresponds to labels[i].
var canonicalOrder = []string{"neutral", "calm", "happy", "sad", "angry", "fearful", "disgusted", "surprised"}

// Engine classifies a WAV file's emotional content using a fixed-shape ONNX
// classification model. It satisfies mmpipeline/internal/audio.EmotionClassifier.
type Engine struct {
	mu sync.Mutex

	session      *ort.AdvancedSession
	inputTensor  *ort.Tensor[float32]
	outputTensor *ort.Tensor[float32]
}

// New loads the emotion classification ONNX model from modelPath.
func New(modelPath string) (*Engine, error) {
	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx emotion: read model %q: %w", modelPath, err)
	}
	if len(modelData) == 0 {
		return nil, fmt.Errorf("onnx emotion: model file %q is empty", modelPath)
	}

	ortInitOnce.Do(func() {
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("onnx emotion: %w", ortInitErr)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, windowSamples))
	if err != nil {
		return nil, fmt.Errorf("onnx emotion: create input tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, int64(len(canonicalOrder))))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("onnx emotion: create output tensor: %w", err)
	}

	session, err := ort.NewAdvancedSessionWithONNXData(
		modelData,
		[]string{"input"},
		[]string{"output"},
		[]ort.Value{inputTensor},
		[]ort.Value{outputTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("onnx emotion: create session: %w", err)
	}

	return &Engine{session: session, inputTensor: inputTensor, outputTensor: outputTensor}, nil
}

// Predict decodes wavPath's PCM16 payload, truncates or zero-pads it to
// windowSamples (no resampling), and runs one classification pass.
func (e *Engine) Predict(_ context.Context, wavPath string) (audio.EmotionPrediction, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	pcm, err := readWAVPCM(wavPath)
	if err != nil {
		return audio.EmotionPrediction{}, fmt.Errorf("onnx emotion: read wav: %w", err)
	}

	samples := pcmToFloat32(pcm)
	data := e.inputTensor.GetData()
	n := copy(data, samples)
	for i := n; i < len(data); i++ {
		data[i] = 0
	}

	if err := e.session.Run(); err != nil {
		return audio.EmotionPrediction{}, fmt.Errorf("onnx emotion: inference: %w", err)
	}

	probs := softmax(e.outputTensor.GetData())
	probMap := make(map[string]float64, len(canonicalOrder))
	bestLabel, bestScore := "", -1.0
	for i, label := range canonicalOrder {
		if i >= len(probs) {
			break
		}
		p := float64(probs[i])
		probMap[label] = p
		if p > bestScore {
			bestLabel, bestScore = label, p
		}
	}

	return audio.EmotionPrediction{Label: bestLabel, Score: bestScore, Probabilities: probMap}, nil
}

// Close releases ONNX Runtime resources. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	if e.inputTensor != nil {
		e.inputTensor.Destroy()
		e.inputTensor = nil
	}
	if e.outputTensor != nil {
		e.outputTensor.Destroy()
		e.outputTensor = nil
	}
	return nil
}

func pcmToFloat32(buf []byte) []float32 {
	n := len(buf) / 2
	samples := make([]float32, n)
	for i := 0; i < n; i++ {
		u := uint16(buf[2*i]) | uint16(buf[2*i+1])<<8
		samples[i] = float32(int16(u)) / 32768.0
	}
	return samples
}

func softmax(logits []float32) []float32 {
	if len(logits) == 0 {
		return nil
	}
	max := logits[0]
	for _, v := range logits {
		if v > max {
			max = v
		}
	}
	var sum float32
	out := make([]float32, len(logits))
	for i, v := range logits {
		e := expF32(v - max)
		out[i] = e
		sum += e
	}
	if sum == 0 {
		return out
	}
	for i := range out {
		out[i] /= sum
	}
	return out
}
