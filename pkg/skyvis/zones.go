package skyvis

import "sort"

// ZonePosition identifies a zone in the 3x3 sky grid.
type ZonePosition int

const (
	ZoneTopLeft ZonePosition = iota
	ZoneTop
	ZoneTopRight
	ZoneLeft
	ZoneCenter
	ZoneRight
	ZoneBottomLeft
	ZoneBottom
	ZoneBottomRight
)

var zoneLabels = map[ZonePosition]string{
	ZoneTopLeft:     "TL",
	ZoneTop:         "T",
	ZoneTopRight:    "TR",
	ZoneLeft:        "L",
	ZoneCenter:      "Center",
	ZoneRight:       "R",
	ZoneBottomLeft:  "BL",
	ZoneBottom:      "B",
	ZoneBottomRight: "BR",
}

var zoneOrder = []ZonePosition{
	ZoneTopLeft, ZoneTop, ZoneTopRight,
	ZoneLeft, ZoneCenter, ZoneRight,
	ZoneBottomLeft, ZoneBottom, ZoneBottomRight,
}

// ZoneOrder returns the zones in reading order, for tabular output.
func ZoneOrder() []ZonePosition {
	return zoneOrder
}

const (
	zoneEdgeFraction    = 0.25
	minStarsPerZone     = 3
	minTotalStarsForMap = 20
)

// VisibilityZone holds per-zone visibility statistics.
type VisibilityZone struct {
	Label            string
	MedianVisibility float64
	DetectedFraction float64
	StarCount        int
}

// VisibilityField is a coarse 3x3 map of atmospheric transparency across the
// frame, derived from one detection table. Uneven zones point at partial
// cloud cover or local obstructions.
type VisibilityField struct {
	Zones     map[ZonePosition]VisibilityZone
	BestZone  string
	WorstZone string
	Reliable  bool
}

// AnalyzeVisibilityField buckets detected stars into a 3x3 grid over the
// frame and summarizes visibility per zone. A star counts as detected when
// its calibrated visibility reaches detectedThreshold.
func AnalyzeVisibilityField(table *DetectionTable, stars []StarCandidate, width, height int, detectedThreshold float64) *VisibilityField {
	if table == nil || len(stars) == 0 {
		return nil
	}

	rowLo := float64(height) * zoneEdgeFraction
	rowHi := float64(height) * (1.0 - zoneEdgeFraction)
	colLo := float64(width) * zoneEdgeFraction
	colHi := float64(width) * (1.0 - zoneEdgeFraction)

	zoneVis := make(map[ZonePosition][]float64)
	zoneDetected := make(map[ZonePosition]int)
	for _, pos := range zoneOrder {
		zoneVis[pos] = nil
	}

	for i := range stars {
		row, ok := table.Row(stars[i].ID)
		if !ok {
			continue
		}
		pos := classifyZone(stars[i].X, stars[i].Y, rowLo, rowHi, colLo, colHi)
		zoneVis[pos] = append(zoneVis[pos], row.Visibility)
		if row.Visibility >= detectedThreshold {
			zoneDetected[pos]++
		}
	}

	field := &VisibilityField{Zones: make(map[ZonePosition]VisibilityZone)}
	for pos, vis := range zoneVis {
		z := VisibilityZone{
			Label:     zoneLabels[pos],
			StarCount: len(vis),
		}
		if len(vis) > 0 {
			z.MedianVisibility = medianFloat64(vis)
			z.DetectedFraction = float64(zoneDetected[pos]) / float64(len(vis))
		}
		field.Zones[pos] = z
	}

	bestVis := -1.0
	worstVis := -1.0
	validZones := 0
	for _, pos := range zoneOrder {
		z := field.Zones[pos]
		if z.StarCount < minStarsPerZone {
			continue
		}
		validZones++
		if bestVis < 0 || z.MedianVisibility > bestVis {
			bestVis = z.MedianVisibility
			field.BestZone = z.Label
		}
		if worstVis < 0 || z.MedianVisibility < worstVis {
			worstVis = z.MedianVisibility
			field.WorstZone = z.Label
		}
	}

	field.Reliable = len(stars) >= minTotalStarsForMap && validZones >= 5
	return field
}

func classifyZone(row, col, rowLo, rowHi, colLo, colHi float64) ZonePosition {
	var gridCol, gridRow int
	if col < colLo {
		gridCol = 0
	} else if col < colHi {
		gridCol = 1
	} else {
		gridCol = 2
	}
	if row < rowLo {
		gridRow = 0
	} else if row < rowHi {
		gridRow = 1
	} else {
		gridRow = 2
	}

	grid := [3][3]ZonePosition{
		{ZoneTopLeft, ZoneTop, ZoneTopRight},
		{ZoneLeft, ZoneCenter, ZoneRight},
		{ZoneBottomLeft, ZoneBottom, ZoneBottomRight},
	}
	return grid[gridRow][gridCol]
}

func medianFloat64(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	n := len(sorted)
	if n%2 == 0 {
		return (sorted[n/2-1] + sorted[n/2]) / 2.0
	}
	return sorted[n/2]
}
