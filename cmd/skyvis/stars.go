package main

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"

	"skyvis/pkg/skyvis"
)

// readStarCandidates loads predicted star positions from a CSV file with
// columns id,x,y,mag, the output of the external geometric projector. A
// header row is skipped when the first field is not numeric.
func readStarCandidates(path string) ([]skyvis.StarCandidate, error) {
	records, err := readCSV(path, 4)
	if err != nil {
		return nil, err
	}
	stars := make([]skyvis.StarCandidate, 0, len(records))
	for i, rec := range records {
		id, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad star id %q", path, i+1, rec[0])
		}
		x, err1 := strconv.ParseFloat(rec[1], 64)
		y, err2 := strconv.ParseFloat(rec[2], 64)
		mag, err3 := strconv.ParseFloat(rec[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("%s row %d: bad numeric value", path, i+1)
		}
		stars = append(stars, skyvis.StarCandidate{ID: id, X: x, Y: y, Mag: mag})
	}
	return stars, nil
}

// readHorizontalStars loads catalog stars in horizontal coordinates from a
// CSV file with columns id,az,alt,mag (az and alt in degrees).
func readHorizontalStars(path string) ([]skyvis.HorizontalStar, error) {
	records, err := readCSV(path, 4)
	if err != nil {
		return nil, err
	}
	stars := make([]skyvis.HorizontalStar, 0, len(records))
	for i, rec := range records {
		id, err := strconv.Atoi(rec[0])
		if err != nil {
			return nil, fmt.Errorf("%s row %d: bad star id %q", path, i+1, rec[0])
		}
		az, err1 := strconv.ParseFloat(rec[1], 64)
		alt, err2 := strconv.ParseFloat(rec[2], 64)
		mag, err3 := strconv.ParseFloat(rec[3], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, fmt.Errorf("%s row %d: bad numeric value", path, i+1)
		}
		stars = append(stars, skyvis.HorizontalStar{
			ID:  id,
			Az:  az * math.Pi / 180,
			Alt: alt * math.Pi / 180,
			Mag: mag,
		})
	}
	return stars, nil
}

func readCSV(path string, fields int) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening star list: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = fields
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("reading star list %s: %w", path, err)
	}
	if len(records) > 0 {
		if _, err := strconv.Atoi(records[0][0]); err != nil {
			records = records[1:] // header row
		}
	}
	return records, nil
}
