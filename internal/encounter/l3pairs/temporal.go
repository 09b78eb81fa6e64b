package l3pairs

import (
	"fmt"
	"time"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
	"github.com/banshee-data/encounter.report/internal/encounter/l2ppa"
)

// Window is the allowed offset between the end anchors of two PPAs.
type Window struct {
	MinDelay time.Duration
	MaxDelay time.Duration
}

// WindowMinutes builds a Window from minute values.
func WindowMinutes(minDelay, maxDelay float64) Window {
	return Window{
		MinDelay: time.Duration(minDelay * float64(time.Minute)),
		MaxDelay: time.Duration(maxDelay * float64(time.Minute)),
	}
}

// Validate rejects negative or inverted windows.
func (w Window) Validate() error {
	if w.MinDelay < 0 {
		return fmt.Errorf("min delay must not be negative, got %s", w.MinDelay)
	}
	if w.MaxDelay < w.MinDelay {
		return fmt.Errorf("max delay %s is below min delay %s", w.MaxDelay, w.MinDelay)
	}
	return nil
}

// Contains reports whether the absolute offset d falls inside the window.
func (w Window) Contains(d time.Duration) bool {
	if d < 0 {
		d = -d
	}
	return d >= w.MinDelay && d <= w.MaxDelay
}

// TemporallyIntersects compares the end anchors of p and q against the
// window. It is symmetric in p and q.
func TemporallyIntersects(p, q l2ppa.PPA, w Window) bool {
	return w.Contains(p.TEnd.Sub(q.TEnd))
}

// IncompatibleError reports two trajectories that are too far apart in
// time to ever interact.
type IncompatibleError struct {
	Entity1  string
	Entity2  string
	Range1   l1fixes.TimeRange
	Range2   l1fixes.TimeRange
	Gap      time.Duration
	MaxDelay time.Duration
}

func (e *IncompatibleError) Error() string {
	return fmt.Sprintf("trajectories of %s [%s, %s] and %s [%s, %s] are %s apart, beyond max delay %s",
		e.Entity1, e.Range1.Start.Format(time.RFC3339), e.Range1.End.Format(time.RFC3339),
		e.Entity2, e.Range2.Start.Format(time.RFC3339), e.Range2.End.Format(time.RFC3339),
		e.Gap, e.MaxDelay)
}

// Precheck rejects an entity pair whose overall fix-time ranges neither
// overlap nor lie within maxDelay of each other.
func Precheck(entity1, entity2 string, a, b []l1fixes.Point, maxDelay time.Duration) error {
	r1, ok := l1fixes.RangeOf(a)
	if !ok {
		return fmt.Errorf("%s: %w", entity1, l1fixes.ErrNoFixes)
	}
	r2, ok := l1fixes.RangeOf(b)
	if !ok {
		return fmt.Errorf("%s: %w", entity2, l1fixes.ErrNoFixes)
	}
	if gap := r1.Gap(r2); gap > maxDelay {
		return &IncompatibleError{
			Entity1:  entity1,
			Entity2:  entity2,
			Range1:   r1,
			Range2:   r2,
			Gap:      gap,
			MaxDelay: maxDelay,
		}
	}
	return nil
}
