package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/banshee-data/encounter.report/internal/encounter/l3pairs"
	"github.com/banshee-data/encounter.report/internal/encounter/l4episodes"
	"github.com/banshee-data/encounter.report/internal/units"
)

// TimeLayout is used for every timestamp written to CSV.
const TimeLayout = "2006-01-02 15:04:05"

func ftoa(v float64) string { return strconv.FormatFloat(v, 'g', -1, 64) }

func formatTime(t time.Time, tz string) (string, error) {
	local, err := units.ConvertTime(t, tz)
	if err != nil {
		return "", err
	}
	return local.Format(TimeLayout), nil
}

// WriteEventsCSV writes the episode table with times shown in tz.
func WriteEventsCSV(w io.Writer, events []l4episodes.Event, tz string) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"no", "p1", "p2", "start", "end", "duration_minutes"}); err != nil {
		return err
	}
	for _, ev := range events {
		start, err := formatTime(ev.Start, tz)
		if err != nil {
			return err
		}
		end, err := formatTime(ev.End, tz)
		if err != nil {
			return err
		}
		row := []string{strconv.Itoa(ev.No), ev.Entity1, ev.Entity2, start, end, ftoa(ev.DurationMinutes)}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePairTableCSV writes the intermediate pair table, one row per
// intersecting PPA pair.
func WritePairTableCSV(w io.Writer, records []l3pairs.PairRecord, tz string) error {
	cw := csv.NewWriter(w)
	header := []string{
		"p1", "p1_seq", "p1_t_start", "p1_t_end", "p1_speed", "p1_direction",
		"p2", "p2_seq", "p2_t_start", "p2_t_end", "p2_speed", "p2_direction",
		"diff_speed", "diff_direction", "diff_time_minutes",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	anchor := func(a l3pairs.Anchor) ([]string, error) {
		start, err := formatTime(a.TStart, tz)
		if err != nil {
			return nil, err
		}
		end, err := formatTime(a.TEnd, tz)
		if err != nil {
			return nil, err
		}
		return []string{a.EntityID, strconv.Itoa(a.Seq), start, end, ftoa(a.Speed), ftoa(a.Direction)}, nil
	}
	for i, rec := range records {
		p1, err := anchor(rec.P1)
		if err != nil {
			return fmt.Errorf("pair %d: %w", i, err)
		}
		p2, err := anchor(rec.P2)
		if err != nil {
			return fmt.Errorf("pair %d: %w", i, err)
		}
		row := append(p1, p2...)
		row = append(row, ftoa(rec.DiffSpeed), ftoa(rec.DiffDirection), ftoa(rec.DiffTimeMinutes))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
