package video

import "context"

// Detection is one raw object detection returned by a VideoDetector, in
// source pixel coordinates.
type Detection struct {
	Label      string
	Confidence float64
	X, Y       float64
	Width      float64
	Height     float64
}

// Detector runs object detection on one decoded frame. Implementations are
// expected to be blocking/CPU-bound; callers dispatch them off the ingest
// path.
type Detector interface {
	Detect(ctx context.Context, frame []byte, width, height int) ([]Detection, error)
}

// StubDetector is a deterministic Detector used by tests and as a
// zero-configuration default: it returns a single fixed detection per call,
// built from its own fields, so confidence/box values are reproducible.
type StubDetector struct {
	Label      string
	Confidence float64
	X, Y       float64
	Width      float64
	Height     float64
}

// Detect returns the stub's fixed detection, ignoring the frame contents.
func (d *StubDetector) Detect(_ context.Context, _ []byte, _, _ int) ([]Detection, error) {
	label := d.Label
	if label == "" {
		label = "object"
	}
	return []Detection{{
		Label:      label,
		Confidence: d.Confidence,
		X:          d.X,
		Y:          d.Y,
		Width:      d.Width,
		Height:     d.Height,
	}}, nil
}
