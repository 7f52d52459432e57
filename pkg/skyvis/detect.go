package skyvis

import (
	"context"
	"log/slog"
)

// StarDetector locates catalog stars in an image and scores each one's
// visibility. The calibration scalar is passed explicitly per call rather
// than held as detector state, so calls have no hidden ordering dependency;
// fetch it from a CameraStore with Calibration(camera, detector.Name(), time).
//
// Implementations borrow the image and candidate slice for the duration of
// the call and own the returned table.
type StarDetector interface {
	Name() string
	Detect(ctx context.Context, img *Image, stars []StarCandidate, calibration float64) (*DetectionTable, error)
}

// Detection method names. These are also the keys under which calibration
// epochs are stored per camera.
const (
	MethodLikelihood = "llh_star_detection"
	MethodFilter     = "filter_star_detection"
)

var detectLogger = slog.Default().With("component", "detect")

// patchStats returns max and mean of the working image over a patch.
func patchStats(data []float32, width int, reg PatchRegion) (max, mean float64) {
	first := true
	sum := 0.0
	for r := reg.R0; r <= reg.R1; r++ {
		off := r * width
		for c := reg.C0; c <= reg.C1; c++ {
			v := float64(data[off+c])
			sum += v
			if first || v > max {
				max = v
				first = false
			}
		}
	}
	return max, sum / float64(reg.NumPixels())
}
