package skyvis

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectionTableWriteCSV(t *testing.T) {
	t.Parallel()

	table := newDetectionTable(MethodLikelihood, likelihoodColumns, 2)
	table.Rows[0] = DetectionRow{ID: 3, MFit: 12.5, BFit: 0.25, XFit: 60.1, YFit: 39.9, Visibility: 0.85}
	table.Rows[1] = DetectionRow{ID: 7, MFit: 4, BFit: 0.1, XFit: 10, YFit: 20, Visibility: 0.4}
	table.buildIndex()

	var sb strings.Builder
	require.NoError(t, table.WriteCSV(&sb))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "id,M_fit,b_fit,x_fit,y_fit,visibility", lines[0])
	assert.Equal(t, "3,12.5,0.25,60.1,39.9,0.85", lines[1])
	assert.Equal(t, "7,4,0.1,10,20,0.4", lines[2])
}

func TestDetectionTableWriteCSVFilterColumns(t *testing.T) {
	t.Parallel()

	table := newDetectionTable(MethodFilter, filterColumns, 1)
	table.Rows[0] = DetectionRow{ID: 1, MFit: 2.5, Visibility: 1.25}
	table.buildIndex()

	var sb strings.Builder
	require.NoError(t, table.WriteCSV(&sb))

	lines := strings.Split(strings.TrimSpace(sb.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "id,M_fit,visibility", lines[0])
	assert.Equal(t, "1,2.5,1.25", lines[1])
}

func TestDetectionTableRowLookup(t *testing.T) {
	t.Parallel()

	table := newDetectionTable(MethodFilter, filterColumns, 1)
	table.Rows[0] = DetectionRow{ID: 9, MFit: 1}
	table.buildIndex()

	row, ok := table.Row(9)
	assert.True(t, ok)
	assert.Equal(t, 9, row.ID)

	_, ok = table.Row(10)
	assert.False(t, ok)
}
