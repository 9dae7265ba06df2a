//go:build !onnx

package onnx

import "fmt"

// Engine is an unavailable stand-in when the binary is built without the
// "onnx" tag. New always fails so callers fall back to a configured stub.
type Engine struct{}

// New always returns an error; rebuild with -tags onnx to enable the real
// Silero VAD engine.
func New(modelPath string, threshold float64) (*Engine, error) {
	return nil, fmt.Errorf("onnx vad: built without onnx tag; rebuild with -tags onnx")
}

func (e *Engine) IsSpeech(chunk []byte) (bool, error) {
	return false, fmt.Errorf("onnx vad: unavailable")
}

func (e *Engine) Reset() error { return nil }

func (e *Engine) Close() error { return nil }
