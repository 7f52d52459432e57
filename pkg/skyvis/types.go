package skyvis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
)

// StarCandidate is one catalog star expected to be visible in the frame,
// together with its predicted pixel position from the geometric projector.
//
// X and Y follow the projector's axis convention: X runs along image rows,
// Y along columns. Detection results report the fitted position the other
// way around (XFit is the column, YFit the row), which is what downstream
// consumers expect.
type StarCandidate struct {
	ID  int
	Mag float64
	X   float64
	Y   float64
}

// DetectionRow holds the per-star output of one detection call.
// MFit is the detected intensity, BFit the fitted local background
// (likelihood method only), XFit/YFit the fitted column/row position
// (likelihood method only), and Visibility the calibrated ratio of
// detected to catalog-predicted flux.
type DetectionRow struct {
	ID         int
	MFit       float64
	BFit       float64
	XFit       float64
	YFit       float64
	Visibility float64
}

// Column names shared with downstream analysis code. Order and presence per
// method are part of the output contract.
const (
	ColID         = "id"
	ColMFit       = "M_fit"
	ColBFit       = "b_fit"
	ColXFit       = "x_fit"
	ColYFit       = "y_fit"
	ColVisibility = "visibility"
)

// DetectionTable is the result of one detect call: one row per input star,
// in input order, indexed by star id. Tables are created fresh per call and
// never mutated afterwards.
type DetectionTable struct {
	Method  string
	Columns []string
	Rows    []DetectionRow

	index map[int]int
}

func newDetectionTable(method string, columns []string, n int) *DetectionTable {
	return &DetectionTable{
		Method:  method,
		Columns: columns,
		Rows:    make([]DetectionRow, n),
		index:   make(map[int]int, n),
	}
}

func (t *DetectionTable) buildIndex() {
	for i := range t.Rows {
		t.index[t.Rows[i].ID] = i
	}
}

// Row returns the result row for the given star id.
func (t *DetectionTable) Row(id int) (DetectionRow, bool) {
	i, ok := t.index[id]
	if !ok {
		return DetectionRow{}, false
	}
	return t.Rows[i], true
}

func (t *DetectionTable) Len() int { return len(t.Rows) }

// WriteCSV writes the table with its method-specific column set.
func (t *DetectionTable) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	record := make([]string, len(t.Columns))
	for i := range t.Rows {
		r := &t.Rows[i]
		for j, col := range t.Columns {
			switch col {
			case ColID:
				record[j] = strconv.Itoa(r.ID)
			case ColMFit:
				record[j] = formatValue(r.MFit)
			case ColBFit:
				record[j] = formatValue(r.BFit)
			case ColXFit:
				record[j] = formatValue(r.XFit)
			case ColYFit:
				record[j] = formatValue(r.YFit)
			case ColVisibility:
				record[j] = formatValue(r.Visibility)
			default:
				return fmt.Errorf("unknown column %q", col)
			}
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing row %d: %w", r.ID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
