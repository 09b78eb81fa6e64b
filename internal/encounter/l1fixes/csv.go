package l1fixes

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeLayout is the timestamp layout used when none is configured.
const DefaultTimeLayout = "2006-01-02 15:04:05"

// ColumnMap names the input columns holding each required field.
type ColumnMap struct {
	Latitude   string
	Longitude  string
	EntityID   string
	Time       string
	TimeLayout string
	Attributes []string // optional columns copied into PPA metadata
}

// DefaultColumnMap returns the column names used by the collar exports the
// tool was first written for.
func DefaultColumnMap() ColumnMap {
	return ColumnMap{
		Latitude:   "latitude",
		Longitude:  "longitude",
		EntityID:   "pid",
		Time:       "time_local",
		TimeLayout: DefaultTimeLayout,
	}
}

// ParseCSV reads a header row followed by fix rows. Every row is validated;
// the first violation aborts the parse with a *SchemaError.
func ParseCSV(r io.Reader, cols ColumnMap) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, &SchemaError{Field: "header", Reason: "input is empty"}
		}
		return nil, fmt.Errorf("failed to read header: %w", err)
	}
	index := make(map[string]int, len(header))
	for i, h := range header {
		index[strings.TrimSpace(h)] = i
	}

	column := func(name string) (int, error) {
		i, ok := index[name]
		if !ok {
			return 0, &SchemaError{Field: name, Reason: "column not found"}
		}
		return i, nil
	}

	latIdx, err := column(cols.Latitude)
	if err != nil {
		return nil, err
	}
	lonIdx, err := column(cols.Longitude)
	if err != nil {
		return nil, err
	}
	idIdx, err := column(cols.EntityID)
	if err != nil {
		return nil, err
	}
	timeIdx, err := column(cols.Time)
	if err != nil {
		return nil, err
	}
	attrIdx := make([]int, len(cols.Attributes))
	for i, name := range cols.Attributes {
		if attrIdx[i], err = column(name); err != nil {
			return nil, err
		}
	}

	layout := cols.TimeLayout
	if layout == "" {
		layout = DefaultTimeLayout
	}

	var records []Record
	for row := 1; ; row++ {
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row %d: %w", row, err)
		}

		lat, err := strconv.ParseFloat(strings.TrimSpace(fields[latIdx]), 64)
		if err != nil {
			return nil, &SchemaError{Row: row, Field: cols.Latitude, Reason: "not numeric"}
		}
		lon, err := strconv.ParseFloat(strings.TrimSpace(fields[lonIdx]), 64)
		if err != nil {
			return nil, &SchemaError{Row: row, Field: cols.Longitude, Reason: "not numeric"}
		}
		ts, err := time.Parse(layout, strings.TrimSpace(fields[timeIdx]))
		if err != nil {
			return nil, &SchemaError{Row: row, Field: cols.Time, Reason: fmt.Sprintf("unparseable timestamp %q", fields[timeIdx])}
		}

		rec := Record{
			EntityID:  strings.TrimSpace(fields[idIdx]),
			Latitude:  lat,
			Longitude: lon,
			Time:      ts,
		}
		if len(attrIdx) > 0 {
			rec.Attrs = make(Attributes, len(attrIdx))
			for i, idx := range attrIdx {
				rec.Attrs[cols.Attributes[i]] = fields[idx]
			}
		}
		records = append(records, rec)
	}

	if err := Validate(records); err != nil {
		return nil, err
	}
	return records, nil
}
