//go:build onnx

// Package onnx provides a Silero VAD v5 implementation of audio.VadDetector
// backed by ONNX Runtime, gated behind the "onnx" build tag. Without that
// tag, New returns an error so callers fall back to a configured stub.
package onnx

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	ort "github.com/yalue/onnxruntime_go"
)

const (
	// windowSize is the number of float32 samples per inference call.
	// Silero VAD v5 at 16 kHz requires exactly 512 samples (32 ms).
	windowSize = 512

	// stateSize is the hidden state dimension per layer; Silero VAD v5 uses
	// a combined state tensor of shape [2, 1, 128].
	stateSize = 128

	expectedSampleRate = 16000
)

var (
	ortInitOnce sync.Once
	ortInitErr  error
)

// Engine runs Silero VAD v5 inference via ONNX Runtime. It satisfies
// mmpipeline/internal/audio.VadDetector over exactly one 32ms/512-sample
// window per IsSpeech call.
type Engine struct {
	mu sync.Mutex

	session *ort.AdvancedSession

	inputTensor *ort.Tensor[float32]
	stateTensor *ort.Tensor[float32]
	srTensor    *ort.Tensor[int64]

	outputTensor *ort.Tensor[float32]
	stateNTensor *ort.Tensor[float32]

	threshold float64
}

// New loads the Silero VAD v5 ONNX model from modelPath and initializes
// ONNX Runtime (once per process) using the shared library resolved by
// resolveORTLibPath.
func New(modelPath string, threshold float64) (*Engine, error) {
	modelData, err := os.ReadFile(modelPath)
	if err != nil {
		return nil, fmt.Errorf("onnx vad: read model %q: %w", modelPath, err)
	}
	if len(modelData) == 0 {
		return nil, fmt.Errorf("onnx vad: model file %q is empty", modelPath)
	}

	ortInitOnce.Do(func() {
		libPath, err := resolveORTLibPath()
		if err != nil {
			ortInitErr = fmt.Errorf("resolve ORT lib: %w", err)
			return
		}
		ort.SetSharedLibraryPath(libPath)
		ortInitErr = ort.InitializeEnvironment()
	})
	if ortInitErr != nil {
		return nil, fmt.Errorf("onnx vad: %w", ortInitErr)
	}

	inputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, windowSize))
	if err != nil {
		return nil, fmt.Errorf("onnx vad: create input tensor: %w", err)
	}
	stateTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, stateSize))
	if err != nil {
		inputTensor.Destroy()
		return nil, fmt.Errorf("onnx vad: create state tensor: %w", err)
	}
	srTensor, err := ort.NewTensor(ort.NewShape(1), []int64{int64(expectedSampleRate)})
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		return nil, fmt.Errorf("onnx vad: create sr tensor: %w", err)
	}
	outputTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(1, 1))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		return nil, fmt.Errorf("onnx vad: create output tensor: %w", err)
	}
	stateNTensor, err := ort.NewEmptyTensor[float32](ort.NewShape(2, 1, stateSize))
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		return nil, fmt.Errorf("onnx vad: create stateN tensor: %w", err)
	}

	session, err := ort.NewAdvancedSessionWithONNXData(
		modelData,
		[]string{"input", "state", "sr"},
		[]string{"output", "stateN"},
		[]ort.Value{inputTensor, stateTensor, srTensor},
		[]ort.Value{outputTensor, stateNTensor},
		nil,
	)
	if err != nil {
		inputTensor.Destroy()
		stateTensor.Destroy()
		srTensor.Destroy()
		outputTensor.Destroy()
		stateNTensor.Destroy()
		return nil, fmt.Errorf("onnx vad: create session: %w", err)
	}

	return &Engine{
		session:      session,
		inputTensor:  inputTensor,
		stateTensor:  stateTensor,
		srTensor:     srTensor,
		outputTensor: outputTensor,
		stateNTensor: stateNTensor,
		threshold:    threshold,
	}, nil
}

// IsSpeech runs one inference over chunk, which must be exactly
// windowSize*2 bytes of s16le PCM at 16kHz mono (enforced upstream by
// audio.NewSizeCheckedVAD).
func (e *Engine) IsSpeech(chunk []byte) (bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(chunk) != windowSize*2 {
		return false, fmt.Errorf("onnx vad: chunk has %d bytes, want %d", len(chunk), windowSize*2)
	}

	copy(e.inputTensor.GetData(), pcmToFloat32(chunk))

	if err := e.session.Run(); err != nil {
		return false, fmt.Errorf("onnx vad: inference: %w", err)
	}

	prob := e.outputTensor.GetData()[0]
	copy(e.stateTensor.GetData(), e.stateNTensor.GetData())

	return float64(prob) >= e.threshold, nil
}

// Reset clears the carried-forward RNN hidden state.
func (e *Engine) Reset() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	clearFloat32Slice(e.stateTensor.GetData())
	return nil
}

// Close releases ONNX Runtime resources. Safe to call more than once.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session != nil {
		e.session.Destroy()
		e.session = nil
	}
	for _, t := range []interface{ Destroy() }{e.inputTensor, e.stateTensor, e.srTensor, e.outputTensor, e.stateNTensor} {
		if t != nil {
			t.Destroy()
		}
	}
	e.inputTensor, e.stateTensor, e.srTensor, e.outputTensor, e.stateNTensor = nil, nil, nil, nil, nil
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

func clearFloat32Slice(s []float32) {
	for i := range s {
		s[i] = 0
	}
}

// resolveORTLibPath locates the ONNX Runtime shared library: an explicit
// MMPIPELINE_ORT_LIB_PATH override, or lib/<goos>-<goarch>/ relative to the
// executable (and its parent, for bin/ layouts).
func resolveORTLibPath() (string, error) {
	if envPath := os.Getenv("MMPIPELINE_ORT_LIB_PATH"); envPath != "" {
		info, err := os.Stat(envPath)
		if err != nil {
			return "", fmt.Errorf("ort: MMPIPELINE_ORT_LIB_PATH=%q does not exist", envPath)
		}
		if info.IsDir() {
			return "", fmt.Errorf("ort: MMPIPELINE_ORT_LIB_PATH=%q is a directory, expected a file", envPath)
		}
		return envPath, nil
	}

	filename := ortLibFilename()
	libRel := filepath.Join("lib", runtime.GOOS+"-"+runtime.GOARCH, filename)
	libRelParent := filepath.Join("..", "lib", runtime.GOOS+"-"+runtime.GOARCH, filename)

	if exePath, err := os.Executable(); err == nil {
		exeDir := filepath.Dir(exePath)
		for _, rel := range []string{libRel, libRelParent} {
			path := filepath.Join(exeDir, rel)
			if _, err := os.Stat(path); err == nil {
				return path, nil
			}
		}
	}

	return "", fmt.Errorf("ort: shared library not found; searched lib/<os>-<arch>/%s relative to executable (set MMPIPELINE_ORT_LIB_PATH to override)", filename)
}

func ortLibFilename() string {
	switch runtime.GOOS {
	case "darwin":
		return "libonnxruntime.dylib"
	case "windows":
		return "onnxruntime.dll"
	default:
		return "libonnxruntime.so"
	}
}
