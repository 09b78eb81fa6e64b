// Package testutil provides shared test utilities and fixtures.
//
// The fixture builders produce l1fixes.Record values on a fixed clock so
// tests across layers describe tracks the same way.
package testutil

import (
	"testing"
	"time"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
)

// Epoch is the reference time all fixture offsets are measured from.
var Epoch = time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)

// At returns Epoch plus sec seconds.
func At(sec int) time.Time {
	return Epoch.Add(time.Duration(sec) * time.Second)
}

// Fix builds a single record at (x, y) taken sec seconds after Epoch.
func Fix(id string, x, y float64, sec int) l1fixes.Record {
	return l1fixes.Record{EntityID: id, Latitude: x, Longitude: y, Time: At(sec)}
}

// Step is one fix of a Track: a position and its offset from Epoch.
type Step struct {
	X, Y float64
	Sec  int
}

// Track builds records for id from steps, in the given order.
func Track(id string, steps ...Step) []l1fixes.Record {
	out := make([]l1fixes.Record, 0, len(steps))
	for _, s := range steps {
		out = append(out, Fix(id, s.X, s.Y, s.Sec))
	}
	return out
}

// Line builds n fixes moving from (x0, y0) by (dx, dy) every interval
// seconds, starting at start seconds.
func Line(id string, x0, y0, dx, dy float64, start, interval, n int) []l1fixes.Record {
	out := make([]l1fixes.Record, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Fix(id, x0+float64(i)*dx, y0+float64(i)*dy, start+i*interval))
	}
	return out
}

// Concat joins record slices into a new slice.
func Concat(parts ...[]l1fixes.Record) []l1fixes.Record {
	var out []l1fixes.Record
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// AssertNoError fails the test if err is not nil.
func AssertNoError(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

// AssertError fails the test if err is nil.
func AssertError(t *testing.T, err error) {
	t.Helper()
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
