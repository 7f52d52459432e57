package skyvis

import (
	"context"
	"math"
	"runtime"
	"sort"

	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"
)

// FilterDetector is the non-iterative alternative to per-star fitting: the
// whole image is convolved once with a Laplacian-of-Gaussian matched filter
// and each star's detection statistic is a percentile of the filtered values
// in its patch. No position or background refinement; in exchange the
// per-star work is independent, read-only and fully parallel.
type FilterDetector struct {
	// Sigma is the LoG filter scale.
	Sigma float64
	// FitSize is the patch half-window in pixels.
	FitSize int
	// Quantile in [0, 100] selects the patch statistic; 100 is the maximum.
	Quantile float64
	// Workers bounds the parallel per-star statistic reads.
	Workers int
}

// NewFilterDetector returns a detector with the default tuning.
func NewFilterDetector() *FilterDetector {
	return &FilterDetector{
		Sigma:    1.0,
		FitSize:  5,
		Quantile: 100.0,
		Workers:  runtime.GOMAXPROCS(0),
	}
}

func (d *FilterDetector) Name() string { return MethodFilter }

var filterColumns = []string{ColID, ColMFit, ColVisibility}

// Detect filters the image once and reads one statistic per star. Results
// are deterministic: each star writes its own slot, so worker scheduling
// cannot change the output.
func (d *FilterDetector) Detect(ctx context.Context, img *Image, stars []StarCandidate, calibration float64) (*DetectionTable, error) {
	filtered := NewMat()
	defer filtered.Close()
	LaplacianOfGaussian(img.Pixels, &filtered, d.Sigma)

	width := filtered.Cols()
	rows := filtered.Rows()
	data := filtered.DataFloat32()

	table := newDetectionTable(d.Name(), filterColumns, len(stars))

	g, gctx := errgroup.WithContext(ctx)
	workers := d.Workers
	if workers < 1 {
		workers = 1
	}
	g.SetLimit(workers)
	for i := range stars {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			star := &stars[i]
			reg := ClipRegion(star.X, star.Y, d.FitSize, d.FitSize, rows, width)
			m := d.patchStatistic(data, width, reg)
			table.Rows[i] = DetectionRow{
				ID:         star.ID,
				MFit:       m,
				Visibility: m / math.Exp(-star.Mag) * calibration,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	table.buildIndex()
	return table, nil
}

func (d *FilterDetector) patchStatistic(data []float32, width int, reg PatchRegion) float64 {
	values := make([]float64, 0, reg.NumPixels())
	for r := reg.R0; r <= reg.R1; r++ {
		off := r * width
		for c := reg.C0; c <= reg.C1; c++ {
			values = append(values, float64(data[off+c]))
		}
	}
	sort.Float64s(values)
	return stat.Quantile(d.Quantile/100.0, stat.LinInterp, values, nil)
}
