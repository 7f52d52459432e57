package skyvis

import "math"

// PatchRegion is a pair of inclusive index ranges selecting a rectangular
// sub-array of an image. Recomputed per star, never cached.
type PatchRegion struct {
	R0, R1 int // row range
	C0, C1 int // column range
}

func (p PatchRegion) NumRows() int { return p.R1 - p.R0 + 1 }
func (p PatchRegion) NumCols() int { return p.C1 - p.C0 + 1 }
func (p PatchRegion) NumPixels() int {
	return p.NumRows() * p.NumCols()
}

// ClipRegion computes the patch around a star centered at (row, col) with
// half-window (dy, dx). The center is rounded to the nearest pixel first,
// then each range is clamped independently to [0, dim-1]. The result is
// always valid; a star outside the frame yields a degenerate single-pixel
// region at the nearest border. This runs once per star inside the hottest
// detection loop and must stay allocation-free.
func ClipRegion(row, col float64, dy, dx, rows, cols int) PatchRegion {
	r := int(math.Round(row))
	c := int(math.Round(col))
	return PatchRegion{
		R0: clampIndex(r-dy, rows),
		R1: clampIndex(r+dy, rows),
		C0: clampIndex(c-dx, cols),
		C1: clampIndex(c+dx, cols),
	}
}

func clampIndex(i, dim int) int {
	if i < 0 {
		return 0
	}
	if i > dim-1 {
		return dim - 1
	}
	return i
}
