package skyvis

import "math"

// ToFloat32Mat converts a uint16 pixel array to a float32 Mat normalized to [0, 1].
func ToFloat32Mat(pixels []uint16, bpp, width, height int) Mat {
	data := NewMatWithSize(height, width)
	dest := data.DataFloat32()
	scalingRatio := float32(uint32(1) << uint(bpp))
	numPixels := width * height
	for i := 0; i < numPixels; i++ {
		dest[i] = float32(pixels[i]) / scalingRatio
	}
	return data
}

// gaussianKernelSize returns an odd kernel size covering +/- 3 sigma.
func gaussianKernelSize(sigma float64) int {
	size := 2*int(math.Ceil(3*sigma)) + 1
	if size < 3 {
		size = 3
	}
	return size
}

// GaussianSmooth convolves src with a separated Gaussian of the given sigma
// into dst. A sigma <= 0 copies src unchanged, so callers always end up with
// an owned working buffer regardless of whether presmoothing is on.
func GaussianSmooth(src Mat, dst *Mat, sigma float64) {
	if sigma <= 0 {
		CopyMatTo(src, dst)
		return
	}
	kernel := getGaussianKernel1D(gaussianKernelSize(sigma), sigma)
	defer kernel.Close()
	sepFilter2DReflect(src, dst, kernel, kernel)
}

// gaussianKernels builds matched 1-D Gaussian and second-derivative-of-Gaussian
// kernels for LoG filtering. Both are float32 mats regardless of backend.
func gaussianKernels(sigma float64) (g, d2 Mat) {
	size := gaussianKernelSize(sigma)
	half := size / 2

	g = NewMatWithSize(size, 1)
	d2 = NewMatWithSize(size, 1)
	gd := g.DataFloat32()
	d2d := d2.DataFloat32()

	s2 := sigma * sigma
	sum := 0.0
	for i := 0; i < size; i++ {
		x := float64(i - half)
		gd[i] = float32(math.Exp(-x * x / (2 * s2)))
		sum += float64(gd[i])
	}
	for i := 0; i < size; i++ {
		x := float64(i - half)
		gv := float64(gd[i]) / sum
		gd[i] = float32(gv)
		// second derivative of the normalized Gaussian
		d2d[i] = float32(gv * (x*x - s2) / (s2 * s2))
	}
	return g, d2
}

// LaplacianOfGaussian filters src with a Laplacian-of-Gaussian at scale sigma
// into dst, as the sum of the two separable second-derivative passes. The
// response suppresses smooth background and is strongest near point sources
// of matching scale (negative at their centers, positive on the ring).
func LaplacianOfGaussian(src Mat, dst *Mat, sigma float64) {
	g, d2 := gaussianKernels(sigma)
	defer g.Close()
	defer d2.Close()

	rowPass := NewMat()
	defer rowPass.Close()
	colPass := NewMat()
	defer colPass.Close()

	sepFilter2DReflect(src, &rowPass, d2, g)
	sepFilter2DReflect(src, &colPass, g, d2)

	if dst.Rows() != src.Rows() || dst.Cols() != src.Cols() || dst.Empty() {
		dst.Close()
		*dst = NewMatWithSize(src.Rows(), src.Cols())
	}
	out := dst.DataFloat32()
	a := rowPass.DataFloat32()
	b := colPass.DataFloat32()
	n := src.Rows() * src.Cols()
	for i := 0; i < n; i++ {
		out[i] = a[i] + b[i]
	}
}

// BilinearSamplePixelValue samples a pixel value using bilinear interpolation.
func BilinearSamplePixelValue(img Mat, y, x float64) float64 {
	y0 := int(math.Floor(y))
	y1 := y0 + 1
	if y1 > img.Rows()-1 {
		y1 = img.Rows() - 1
	}
	x0 := int(math.Floor(x))
	x1 := x0 + 1
	if x1 > img.Cols()-1 {
		x1 = img.Cols() - 1
	}
	yRatio := y - float64(y0)
	xRatio := x - float64(x0)

	data := img.DataFloat32()
	width := img.Cols()
	p00 := float64(data[y0*width+x0])
	p01 := float64(data[y0*width+x1])
	p10 := float64(data[y1*width+x0])
	p11 := float64(data[y1*width+x1])
	interpolatedX0 := p00 + xRatio*(p01-p00)
	interpolatedX1 := p10 + xRatio*(p11-p10)
	return interpolatedX0 + yRatio*(interpolatedX1-interpolatedX0)
}
