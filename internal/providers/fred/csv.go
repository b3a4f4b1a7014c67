package fred

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/seenimoa/crossasset/pkg/models"
)

// dateColumns are the header names FRED has used for the date column.
var dateColumns = []string{"observation_date", "DATE"}

// parseCSV reads a fredgraph CSV. The date column is located by name and the
// value column by the series code, falling back to the first other column.
func parseCSV(r io.Reader, code string) ([]models.Point, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("empty csv response")
		}
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	dateIdx, valIdx := columnIndexes(header, code)
	if dateIdx < 0 {
		return nil, fmt.Errorf("no date column in header %q", strings.Join(header, ","))
	}
	if valIdx < 0 {
		return nil, fmt.Errorf("no value column for %s in header %q", code, strings.Join(header, ","))
	}

	var points []models.Point
	for line := 2; ; line++ {
		rec, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv line %d: %w", line, err)
		}
		if len(rec) <= dateIdx || len(rec) <= valIdx {
			continue
		}
		d, err := parseFredDate(rec[dateIdx])
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		points = append(points, models.Point{Date: d, Value: parseValue(rec[valIdx])})
	}
	return points, nil
}

func columnIndexes(header []string, code string) (dateIdx, valIdx int) {
	dateIdx, valIdx = -1, -1
	for i, h := range header {
		h = strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")
		for _, dc := range dateColumns {
			if strings.EqualFold(h, dc) {
				dateIdx = i
			}
		}
		if strings.EqualFold(h, code) {
			valIdx = i
		}
	}
	if valIdx < 0 && dateIdx >= 0 {
		for i := range header {
			if i != dateIdx {
				valIdx = i
				break
			}
		}
	}
	return dateIdx, valIdx
}

// parseValue maps FRED's "." placeholder and any other non-numeric token to missing.
func parseValue(s string) models.Value {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return models.Missing()
	}
	return models.Num(f)
}

// parseFredDate tries the layouts FRED has been seen to emit.
func parseFredDate(s string) (models.Date, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"2006-01-02", "2006-01-02 15:04:05", "2006-01-02T15:04:05Z07:00", "01/02/2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return models.DateOf(t), nil
		}
	}
	return models.Date{}, fmt.Errorf("cannot parse FRED date %q", s)
}
