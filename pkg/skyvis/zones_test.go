package skyvis

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// zoneTestTable builds a detection table with the given visibility per star id.
func zoneTestTable(vis map[int]float64) *DetectionTable {
	table := newDetectionTable(MethodLikelihood, likelihoodColumns, len(vis))
	i := 0
	for id, v := range vis {
		table.Rows[i] = DetectionRow{ID: id, MFit: v, Visibility: v}
		i++
	}
	table.buildIndex()
	return table
}

func TestClassifyZone(t *testing.T) {
	t.Parallel()

	// 100x100 frame, zone edges at 25 and 75.
	tests := []struct {
		name     string
		row, col float64
		want     ZonePosition
	}{
		{name: "center of frame", row: 50, col: 50, want: ZoneCenter},
		{name: "top-left corner", row: 5, col: 5, want: ZoneTopLeft},
		{name: "bottom-right corner", row: 95, col: 95, want: ZoneBottomRight},
		{name: "top band", row: 5, col: 50, want: ZoneTop},
		{name: "left band", row: 50, col: 5, want: ZoneLeft},
		{name: "right band", row: 50, col: 95, want: ZoneRight},
		{name: "bottom band", row: 95, col: 50, want: ZoneBottom},
		{name: "edge boundary belongs to the inner band", row: 25, col: 50, want: ZoneCenter},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := classifyZone(tt.row, tt.col, 25, 75, 25, 75)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAnalyzeVisibilityField(t *testing.T) {
	t.Parallel()

	// Five stars per zone center: the center zone is clear, the top-left
	// zone is cloudy, the rest sit in between.
	zoneCenters := map[ZonePosition][2]float64{
		ZoneTopLeft:     {10, 10},
		ZoneTop:         {10, 50},
		ZoneTopRight:    {10, 90},
		ZoneLeft:        {50, 10},
		ZoneCenter:      {50, 50},
		ZoneRight:       {50, 90},
		ZoneBottomLeft:  {90, 10},
		ZoneBottom:      {90, 50},
		ZoneBottomRight: {90, 90},
	}
	zoneVis := map[ZonePosition]float64{
		ZoneTopLeft:     0.1,
		ZoneTop:         0.6,
		ZoneTopRight:    0.7,
		ZoneLeft:        0.6,
		ZoneCenter:      0.9,
		ZoneRight:       0.7,
		ZoneBottomLeft:  0.6,
		ZoneBottom:      0.7,
		ZoneBottomRight: 0.6,
	}

	var stars []StarCandidate
	vis := make(map[int]float64)
	id := 0
	for pos, center := range zoneCenters {
		for k := 0; k < 5; k++ {
			id++
			stars = append(stars, StarCandidate{
				ID: id, Mag: 2.0,
				X: center[0] + float64(k),
				Y: center[1],
			})
			vis[id] = zoneVis[pos]
		}
	}

	field := AnalyzeVisibilityField(zoneTestTable(vis), stars, 100, 100, 0.5)
	require.NotNil(t, field)

	assert.True(t, field.Reliable)
	assert.Equal(t, "Center", field.BestZone)
	assert.Equal(t, "TL", field.WorstZone)

	center := field.Zones[ZoneCenter]
	assert.Equal(t, 5, center.StarCount)
	assert.InDelta(t, 0.9, center.MedianVisibility, 1e-9)
	assert.InDelta(t, 1.0, center.DetectedFraction, 1e-9)

	cloudy := field.Zones[ZoneTopLeft]
	assert.InDelta(t, 0.1, cloudy.MedianVisibility, 1e-9)
	assert.InDelta(t, 0.0, cloudy.DetectedFraction, 1e-9)
}

func TestAnalyzeVisibilityFieldSparse(t *testing.T) {
	t.Parallel()

	stars := []StarCandidate{
		{ID: 1, Mag: 2.0, X: 50, Y: 50},
		{ID: 2, Mag: 2.0, X: 52, Y: 50},
	}
	field := AnalyzeVisibilityField(zoneTestTable(map[int]float64{1: 0.8, 2: 0.7}), stars, 100, 100, 0.5)
	require.NotNil(t, field)
	assert.False(t, field.Reliable)
}

func TestAnalyzeVisibilityFieldEmpty(t *testing.T) {
	t.Parallel()

	assert.Nil(t, AnalyzeVisibilityField(nil, nil, 100, 100, 0.5))
	assert.Nil(t, AnalyzeVisibilityField(zoneTestTable(nil), nil, 100, 100, 0.5))
}
