// Package audio implements the audio side of the pipeline: format
// adaptation and chunking, VAD gating, the speech-to-text processor with
// stream rotation, and the windowed emotion processor.
package audio

import "fmt"

// VadDetector makes a binary speech/non-speech decision per fixed-size PCM
// chunk. Implementations are stateless across calls but are configured with
// an aggressiveness level in [0,3].
type VadDetector interface {
	IsSpeech(chunk []byte) (bool, error)
}

// sizeGuard wraps a VadDetector implementation and rejects chunks whose
// length differs from the configured chunk size, matching the contract's
// validation rule without burdening every engine with it.
type sizeGuard struct {
	chunkBytes int
	inner      VadDetector
}

// NewSizeCheckedVAD wraps inner so IsSpeech rejects mis-sized chunks before
// they reach the engine.
func NewSizeCheckedVAD(chunkBytes int, inner VadDetector) VadDetector {
	return &sizeGuard{chunkBytes: chunkBytes, inner: inner}
}

func (g *sizeGuard) IsSpeech(chunk []byte) (bool, error) {
	if len(chunk) != g.chunkBytes {
		return false, fmt.Errorf("vad: expected chunk of %d bytes, got %d", g.chunkBytes, len(chunk))
	}
	return g.inner.IsSpeech(chunk)
}

// StubVAD is a deterministic VadDetector used by tests and as a
// zero-configuration default: it toggles speech/non-speech every N calls.
type StubVAD struct {
	ToggleEvery int
	count       int
	speech      bool
}

// NewStubVAD builds a StubVAD that flips its speech/silence verdict every
// toggleEvery calls.
func NewStubVAD(toggleEvery int) *StubVAD {
	if toggleEvery < 1 {
		toggleEvery = 50
	}
	return &StubVAD{ToggleEvery: toggleEvery}
}

// IsSpeech returns the stub's current verdict, toggling it every
// ToggleEvery calls.
func (v *StubVAD) IsSpeech(_ []byte) (bool, error) {
	v.count++
	if v.count >= v.ToggleEvery {
		v.count = 0
		v.speech = !v.speech
	}
	return v.speech, nil
}
