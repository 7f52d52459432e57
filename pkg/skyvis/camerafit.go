package skyvis

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"gonum.org/v1/gonum/optimize"
)

// HorizontalStar is a catalog star in horizontal coordinates, as supplied by
// the external coordinate transform for a clear-sky reference exposure.
// Az and Alt are in radians.
type HorizontalStar struct {
	ID  int
	Az  float64
	Alt float64
	Mag float64
}

// CameraFitOptions tunes the one-shot geometry fit.
type CameraFitOptions struct {
	// MaxMag restricts the fit to stars brighter than this magnitude.
	MaxMag float64
	// InitSigma is the starting blur applied to the reference image. If fit
	// results are obviously wrong, try increasing it.
	InitSigma float64
	// StepSize divides sigma after each refinement round; must be > 1. If
	// fits diverge, bring it closer to 1.
	StepSize float64
	// Initial is the starting parameter vector (zenith row, zenith col,
	// radius in pixels, azimuth offset in degrees). Nil derives a guess from
	// the image dimensions.
	Initial []float64
}

// NewCameraFitOptions returns the default fit tuning.
func NewCameraFitOptions() CameraFitOptions {
	return CameraFitOptions{
		MaxMag:    3.0,
		InitSigma: 10.0,
		StepSize:  1.2,
	}
}

// CameraFitResult holds the fitted camera geometry.
type CameraFitResult struct {
	ZenithRow float64
	ZenithCol float64
	Radius    float64
	AzOffset  float64 // degrees
	Rounds    int
}

const cameraFitSigmaFloor = 0.1

var cameraFitLogger = slog.Default().With("component", "camerafit")

// projectStar maps a horizontal coordinate onto the detector plane with the
// equisolid-angle mapping r = sqrt(2) * R * sin(theta / 2), where theta is
// the zenith distance. aoDeg is the azimuth offset in degrees.
func projectStar(az, alt, radius, zenithRow, zenithCol, aoDeg float64) (row, col float64) {
	theta := math.Pi/2 - alt
	r := math.Sqrt2 * radius * math.Sin(theta/2)
	phi := az + aoDeg*math.Pi/180
	row = -r*math.Sin(phi) + zenithRow
	col = r*math.Cos(phi) + zenithCol
	return row, col
}

// FitCameraGeometry fits zenith pixel, lens radius and azimuth offset from a
// clear-sky reference image by maximizing the summed squared image brightness
// sampled at the projected positions of bright catalog stars.
//
// The fit runs a successive-refinement schedule: the image is first heavily
// blurred so the star field merges into broad structure, a derivative-free
// minimization is run, then the blur sigma shrinks by StepSize and the fit
// repeats from the previous optimum until sigma falls below a small floor.
// Early rounds anneal away local optima from individual star peaks; late
// rounds sharpen the solution.
//
// This is a one-time offline calibration tool; it does not take part in
// per-image detection.
func FitCameraGeometry(ctx context.Context, img *Image, stars []HorizontalStar, opts CameraFitOptions) (*CameraFitResult, error) {
	if opts.StepSize <= 1.0 {
		return nil, fmt.Errorf("stepsize must be > 1.0, got %g", opts.StepSize)
	}
	if opts.InitSigma < cameraFitSigmaFloor {
		return nil, fmt.Errorf("initial sigma must be >= %g, got %g", cameraFitSigmaFloor, opts.InitSigma)
	}

	bright := make([]HorizontalStar, 0, len(stars))
	for _, s := range stars {
		if s.Mag < opts.MaxMag {
			bright = append(bright, s)
		}
	}
	if len(bright) == 0 {
		return nil, fmt.Errorf("no stars brighter than magnitude %g", opts.MaxMag)
	}

	x0 := opts.Initial
	if x0 == nil {
		w := float64(img.Width)
		h := float64(img.Height)
		x0 = []float64{h * 0.5, w * 0.5, (w + h) * 0.25, 90.0}
	}
	if len(x0) != 4 {
		return nil, fmt.Errorf("initial guess must have 4 parameters, got %d", len(x0))
	}
	x0 = append([]float64(nil), x0...)

	smoothed := NewMat()
	defer smoothed.Close()

	rounds := 0
	for s := opts.InitSigma; s > cameraFitSigmaFloor; s /= opts.StepSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		GaussianSmooth(img.Pixels, &smoothed, s)

		problem := optimize.Problem{
			Func: func(p []float64) float64 {
				return starFieldMisfit(smoothed, bright, p)
			},
		}
		settings := &optimize.Settings{
			Converger: &optimize.FunctionConverge{
				Absolute:   1e-12,
				Iterations: 200,
			},
		}
		result, err := optimize.Minimize(problem, x0, settings, &optimize.NelderMead{})
		if err == nil && result != nil {
			copy(x0, result.X)
		} else {
			cameraFitLogger.Debug("refinement round did not converge",
				"round", rounds, "sigma", s, "err", err)
			if result != nil && len(result.X) == len(x0) {
				copy(x0, result.X)
			}
		}
		rounds++
		cameraFitLogger.Debug("refinement round finished",
			"round", rounds, "sigma", s,
			"zenith_row", x0[0], "zenith_col", x0[1], "radius", x0[2], "az_offset", x0[3])
	}

	return &CameraFitResult{
		ZenithRow: x0[0],
		ZenithCol: x0[1],
		Radius:    x0[2],
		AzOffset:  x0[3],
		Rounds:    rounds,
	}, nil
}

// starFieldMisfit is the negated fitness: -sum over bright stars of the
// squared interpolated image value at the projected position. Samples
// falling outside the frame contribute nothing.
func starFieldMisfit(img Mat, stars []HorizontalStar, p []float64) float64 {
	rows := img.Rows()
	cols := img.Cols()
	sum := 0.0
	for i := range stars {
		row, col := projectStar(stars[i].Az, stars[i].Alt, p[2], p[0], p[1], p[3])
		if row < 0 || row > float64(rows-1) || col < 0 || col > float64(cols-1) {
			continue
		}
		v := BilinearSamplePixelValue(img, row, col)
		sum += v * v
	}
	return -sum
}
