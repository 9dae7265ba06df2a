//go:build onnx

package onnx

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
)

// readWAVPCM reads a minimal RIFF/WAV file's data chunk, assuming the
// 44-byte header layout written by mmpipeline/internal/audio.writeWAV.
func readWAVPCM(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(raw) < 44 || string(raw[0:4]) != "RIFF" || string(raw[8:12]) != "WAVE" {
		return nil, fmt.Errorf("not a RIFF/WAVE file")
	}
	dataLen := binary.LittleEndian.Uint32(raw[40:44])
	end := 44 + int(dataLen)
	if end > len(raw) {
		end = len(raw)
	}
	return raw[44:end], nil
}

func expF32(x float32) float32 {
	return float32(math.Exp(float64(x)))
}
