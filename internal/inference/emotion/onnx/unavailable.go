//go:build !onnx

package onnx

import (
	"context"
	"fmt"

	"mmpipeline/internal/audio"
)

// Engine is an unavailable stand-in when the binary is built without the
// "onnx" tag. New always fails so callers fall back to a configured stub.
type Engine struct{}

// New always returns an error; rebuild with -tags onnx to enable the real
// classifier.
func New(modelPath string) (*Engine, error) {
	return nil, fmt.Errorf("onnx emotion: built without onnx tag; rebuild with -tags onnx")
}

func (e *Engine) Predict(_ context.Context, _ string) (audio.EmotionPrediction, error) {
	return audio.EmotionPrediction{}, fmt.Errorf("onnx emotion: unavailable")
}

func (e *Engine) Close() error { return nil }
