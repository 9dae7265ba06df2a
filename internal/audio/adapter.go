package audio

import "encoding/binary"

// FrameAdapter converts arbitrary-format AudioFrame payloads to 16kHz mono
// PCM16 bytes: downmixing channels and linearly resampling as needed. It
// holds no state and is safe for concurrent use; each processor constructs
// its own to keep buffer state from leaking across analyzers.
type FrameAdapter struct {
	targetSampleRate int
}

// NewFrameAdapter builds a FrameAdapter targeting targetSampleRate (16000
// per the pipeline's configuration).
func NewFrameAdapter(targetSampleRate int) *FrameAdapter {
	if targetSampleRate < 1 {
		targetSampleRate = 16000
	}
	return &FrameAdapter{targetSampleRate: targetSampleRate}
}

// ToPCM16 resamples and downmixes pcm (interleaved 16-bit LE samples at
// sourceRate/sourceChannels) to mono PCM16 at the adapter's target rate.
func (a *FrameAdapter) ToPCM16(pcm []byte, sourceRate, sourceChannels int) []byte {
	if sourceChannels < 1 {
		sourceChannels = 1
	}
	samples := bytesToInt16(pcm)
	mono := downmix(samples, sourceChannels)
	resampled := resampleLinear(mono, sourceRate, a.targetSampleRate)
	return int16ToBytes(resampled)
}

func bytesToInt16(pcm []byte) []int16 {
	n := len(pcm) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(binary.LittleEndian.Uint16(pcm[i*2 : i*2+2]))
	}
	return out
}

func int16ToBytes(samples []int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:i*2+2], uint16(s))
	}
	return out
}

// downmix averages interleaved multi-channel samples down to mono. A
// channel count of 1 returns samples itself, uncopied.
func downmix(samples []int16, channels int) []int16 {
	if channels <= 1 {
		return samples
	}
	frames := len(samples) / channels
	out := make([]int16, frames)
	for i := 0; i < frames; i++ {
		var sum int32
		for c := 0; c < channels; c++ {
			sum += int32(samples[i*channels+c])
		}
		out[i] = int16(sum / int32(channels))
	}
	return out
}

// resampleLinear resamples mono samples from sourceRate to targetRate using
// linear interpolation between neighboring source samples. Exact when the
// rates match.
func resampleLinear(samples []int16, sourceRate, targetRate int) []int16 {
	if sourceRate <= 0 || targetRate <= 0 || sourceRate == targetRate || len(samples) == 0 {
		return samples
	}
	ratio := float64(sourceRate) / float64(targetRate)
	outLen := int(float64(len(samples)) / ratio)
	out := make([]int16, outLen)
	for i := 0; i < outLen; i++ {
		srcPos := float64(i) * ratio
		idx := int(srcPos)
		frac := srcPos - float64(idx)
		if idx+1 >= len(samples) {
			out[i] = samples[len(samples)-1]
			continue
		}
		a := float64(samples[idx])
		b := float64(samples[idx+1])
		out[i] = int16(a + (b-a)*frac)
	}
	return out
}
