package skyvis

// DebayerRGGB performs bilinear interpolation on a raw RGGB Bayer-pattern
// matrix and returns a luminance channel: (R + G + B) / 3 per pixel. Edge
// pixels use clamped neighbor lookups.
//
// RGGB layout (row-major, 0-indexed):
//
//	(even row, even col) = R
//	(even row, odd  col) = G  (Gr)
//	(odd  row, even col) = G  (Gb)
//	(odd  row, odd  col) = B
func DebayerRGGB(raw Mat) Mat {
	width := raw.Cols()
	height := raw.Rows()
	data := raw.DataFloat32()
	out := NewMatWithSize(height, width)
	lum := out.DataFloat32()

	clampX := func(x int) int {
		if x < 0 {
			return 0
		}
		if x >= width {
			return width - 1
		}
		return x
	}
	clampY := func(y int) int {
		if y < 0 {
			return 0
		}
		if y >= height {
			return height - 1
		}
		return y
	}
	px := func(x, y int) float32 {
		return data[clampY(y)*width+clampX(x)]
	}

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			var r, g, b float32

			evenRow := y%2 == 0
			evenCol := x%2 == 0

			switch {
			case evenRow && evenCol: // R site
				r = px(x, y)
				g = (px(x-1, y) + px(x+1, y) + px(x, y-1) + px(x, y+1)) / 4
				b = (px(x-1, y-1) + px(x+1, y-1) + px(x-1, y+1) + px(x+1, y+1)) / 4
			case evenRow && !evenCol: // Gr site
				r = (px(x-1, y) + px(x+1, y)) / 2
				g = px(x, y)
				b = (px(x, y-1) + px(x, y+1)) / 2
			case !evenRow && evenCol: // Gb site
				r = (px(x, y-1) + px(x, y+1)) / 2
				g = px(x, y)
				b = (px(x-1, y) + px(x+1, y)) / 2
			default: // B site
				r = (px(x-1, y-1) + px(x+1, y-1) + px(x-1, y+1) + px(x+1, y+1)) / 4
				g = (px(x-1, y) + px(x+1, y) + px(x, y-1) + px(x, y+1)) / 4
				b = px(x, y)
			}

			lum[y*width+x] = (r + g + b) / 3
		}
	}

	return out
}
