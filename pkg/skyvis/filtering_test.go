package skyvis

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// makeTestMat builds a rows x cols float32 Mat filled by f(row, col).
func makeTestMat(rows, cols int, f func(r, c int) float32) Mat {
	m := NewMatWithSize(rows, cols)
	data := m.DataFloat32()
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			data[r*cols+c] = f(r, c)
		}
	}
	return m
}

// addGaussianBlob adds a symmetric Gaussian of amplitude amp and width sigma
// centered at (row, col).
func addGaussianBlob(m Mat, row, col, amp, sigma float64) {
	data := m.DataFloat32()
	cols := m.Cols()
	for r := 0; r < m.Rows(); r++ {
		dy := float64(r) - row
		for c := 0; c < cols; c++ {
			dx := float64(c) - col
			data[r*cols+c] += float32(amp * math.Exp(-(dx*dx+dy*dy)/(2*sigma*sigma)))
		}
	}
}

func TestToFloat32Mat(t *testing.T) {
	t.Parallel()

	pixels := []uint16{0, 32768, 65535, 100, 200, 300}
	m := ToFloat32Mat(pixels, 16, 3, 2)
	defer m.Close()

	require.Equal(t, 2, m.Rows())
	require.Equal(t, 3, m.Cols())
	data := m.DataFloat32()
	assert.InDelta(t, 0.0, float64(data[0]), 1e-7)
	assert.InDelta(t, 0.5, float64(data[1]), 1e-5)
	assert.InDelta(t, float64(65535)/65536, float64(data[2]), 1e-5)
}

func TestGaussianSmoothZeroSigmaCopies(t *testing.T) {
	t.Parallel()

	src := makeTestMat(10, 12, func(r, c int) float32 { return float32(r*12 + c) })
	defer src.Close()

	dst := NewMat()
	defer dst.Close()
	GaussianSmooth(src, &dst, 0)

	require.Equal(t, src.Rows(), dst.Rows())
	require.Equal(t, src.Cols(), dst.Cols())
	assert.Equal(t, src.DataFloat32(), dst.DataFloat32())

	// dst must be an owned copy, not an alias of src.
	dst.DataFloat32()[0] = 999
	assert.NotEqual(t, src.DataFloat32()[0], dst.DataFloat32()[0])
}

func TestGaussianSmoothPreservesConstant(t *testing.T) {
	t.Parallel()

	src := makeTestMat(20, 20, func(r, c int) float32 { return 0.25 })
	defer src.Close()

	dst := NewMat()
	defer dst.Close()
	GaussianSmooth(src, &dst, 1.5)

	for _, v := range dst.DataFloat32() {
		assert.InDelta(t, 0.25, float64(v), 1e-4)
	}
}

func TestLaplacianOfGaussianFlatImage(t *testing.T) {
	t.Parallel()

	src := makeTestMat(30, 30, func(r, c int) float32 { return 0.5 })
	defer src.Close()

	dst := NewMat()
	defer dst.Close()
	LaplacianOfGaussian(src, &dst, 1.0)

	for _, v := range dst.DataFloat32() {
		assert.InDelta(t, 0.0, float64(v), 1e-4)
	}
}

func TestLaplacianOfGaussianBlobResponse(t *testing.T) {
	t.Parallel()

	src := makeTestMat(40, 40, func(r, c int) float32 { return 0 })
	defer src.Close()
	addGaussianBlob(src, 20, 20, 1.0, 1.5)

	dst := NewMat()
	defer dst.Close()
	LaplacianOfGaussian(src, &dst, 1.5)

	data := dst.DataFloat32()
	center := float64(data[20*40+20])
	corner := float64(data[0])

	// Center of a matching-scale blob is the strongest (negative) response;
	// far away the response dies off.
	assert.Negative(t, center)
	assert.InDelta(t, 0.0, corner, 1e-5)
	assert.Greater(t, math.Abs(center), 10*math.Abs(corner))
}

func TestBilinearSamplePixelValue(t *testing.T) {
	t.Parallel()

	src := makeTestMat(4, 4, func(r, c int) float32 { return float32(r*10 + c) })
	defer src.Close()

	tests := []struct {
		name string
		y, x float64
		want float64
	}{
		{name: "exact pixel", y: 2, x: 3, want: 23},
		{name: "midpoint along x", y: 1, x: 1.5, want: 11.5},
		{name: "midpoint along y", y: 1.5, x: 2, want: 17},
		{name: "center of four pixels", y: 0.5, x: 0.5, want: 5.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := BilinearSamplePixelValue(src, tt.y, tt.x)
			assert.InDelta(t, tt.want, got, 1e-5)
		})
	}
}

func TestGaussianKernelSize(t *testing.T) {
	t.Parallel()

	assert.Equal(t, 3, gaussianKernelSize(0.1))
	assert.Equal(t, 7, gaussianKernelSize(1.0))
	assert.Equal(t, 13, gaussianKernelSize(1.7))
	// Always odd.
	for _, s := range []float64{0.5, 1.2, 2.9, 5.0, 10.0} {
		assert.Equal(t, 1, gaussianKernelSize(s)%2)
	}
}
