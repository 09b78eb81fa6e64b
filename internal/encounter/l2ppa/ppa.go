package l2ppa

import (
	"fmt"
	"time"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// DefaultVertices is the number of boundary vertices per ellipse.
const DefaultVertices = 100

// PPA is the Potential Path Area of one entity between two consecutive
// fixes. Values are built once by NewPPA and never modified.
type PPA struct {
	EntityID string
	Seq      int // position in the entity's PPA sequence

	TStart   time.Time
	TEnd     time.Time
	StartPos orb.Point
	EndPos   orb.Point

	Center      orb.Point
	MajorAxis   float64
	MinorAxis   float64
	RotationDeg float64

	Boundary orb.Ring    // closed ring, Vertices+1 points
	Polygon  orb.Polygon // single-ring polygon over Boundary
	Bound    orb.Bound

	Speed       float64 // instantaneous speed between the fixes
	SizingSpeed float64 // inflated, smoothed speed used for MajorAxis
	Direction   float64 // bearing from start to end, degrees

	StartAttrs l1fixes.Attributes
	EndAttrs   l1fixes.Attributes
}

// NewPPA assembles a PPA from its fix pair and ellipse. It rejects pairs
// that belong to different entities or run backwards in time.
func NewPPA(seq int, prev, cur l1fixes.Point, e l1fixes.Ellipse, vertices int, speed, sizing float64) (PPA, error) {
	if prev.EntityID != cur.EntityID {
		return PPA{}, fmt.Errorf("ppa fixes belong to different entities: %q and %q", prev.EntityID, cur.EntityID)
	}
	if cur.Time.Before(prev.Time) {
		return PPA{}, fmt.Errorf("ppa end time %s is before start time %s", cur.Time, prev.Time)
	}
	if vertices < 3 {
		return PPA{}, fmt.Errorf("ppa boundary needs at least 3 vertices, got %d", vertices)
	}

	ring := e.Polyline(vertices)
	return PPA{
		EntityID:    cur.EntityID,
		Seq:         seq,
		TStart:      prev.Time,
		TEnd:        cur.Time,
		StartPos:    prev.Orb(),
		EndPos:      cur.Orb(),
		Center:      e.Center,
		MajorAxis:   e.Major,
		MinorAxis:   e.Minor,
		RotationDeg: e.AngleDeg,
		Boundary:    ring,
		Polygon:     orb.Polygon{ring},
		Bound:       ring.Bound(),
		Speed:       speed,
		SizingSpeed: sizing,
		Direction:   l1fixes.Bearing(prev, cur),
		StartAttrs:  prev.Snapshot(),
		EndAttrs:    cur.Snapshot(),
	}, nil
}

// Perimeter returns the length of the discretised boundary.
func (p PPA) Perimeter() float64 {
	return planar.Length(p.Boundary)
}

// Area returns the area of the discretised polygon.
func (p PPA) Area() float64 {
	return planar.Area(p.Polygon)
}

// Interval returns the time between the two anchor fixes.
func (p PPA) Interval() time.Duration {
	return p.TEnd.Sub(p.TStart)
}

// Key is the comparable identity of a PPA: every scalar field that
// determines its geometry and anchors.
type Key struct {
	EntityID    string
	Seq         int
	TStart      int64
	TEnd        int64
	StartPos    orb.Point
	EndPos      orb.Point
	MajorAxis   float64
	MinorAxis   float64
	RotationDeg float64
	Speed       float64
}

// Key returns the structural identity of the PPA, usable as a map key.
func (p PPA) Key() Key {
	return Key{
		EntityID:    p.EntityID,
		Seq:         p.Seq,
		TStart:      p.TStart.UnixNano(),
		TEnd:        p.TEnd.UnixNano(),
		StartPos:    p.StartPos,
		EndPos:      p.EndPos,
		MajorAxis:   p.MajorAxis,
		MinorAxis:   p.MinorAxis,
		RotationDeg: p.RotationDeg,
		Speed:       p.Speed,
	}
}
