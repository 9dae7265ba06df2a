package buffer

// AudioFanOut delivers one incoming AudioFrame to each of its downstream
// AudioBuffers independently; a drop in one downstream never short-circuits
// delivery to the others.
type AudioFanOut struct {
	downstream []*AudioBuffer
}

// NewAudioFanOut builds a fan-out over the given downstream buffers.
func NewAudioFanOut(downstream ...*AudioBuffer) *AudioFanOut {
	return &AudioFanOut{downstream: downstream}
}

// Put forwards frame to every downstream buffer in turn and returns how
// many of them evicted a frame to make room for it, so callers can feed
// their own drop counters.
func (f *AudioFanOut) Put(frame AudioFrame) (drops int) {
	for _, buf := range f.downstream {
		if _, hadDrop := buf.Put(frame); hadDrop {
			drops++
		}
	}
	return drops
}

// Close closes every downstream buffer.
func (f *AudioFanOut) Close() {
	for _, buf := range f.downstream {
		buf.Close()
	}
}
