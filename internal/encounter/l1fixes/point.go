package l1fixes

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

// SpeedEpsilon keeps InstantSpeed finite for duplicate timestamps.
const SpeedEpsilon = 1e-33

// Point is a single spatio-temporal fix. X carries latitude and Y carries
// longitude; all geometry is planar on (X, Y).
type Point struct {
	X        float64
	Y        float64
	Time     time.Time
	EntityID string
	Attrs    Attributes
}

// NewPoint builds a Point without auxiliary attributes.
func NewPoint(x, y float64, t time.Time, entityID string) Point {
	return Point{X: x, Y: y, Time: t, EntityID: entityID}
}

// PointFromRecord converts a validated input record into a Point. The
// attribute map is copied so later changes to the record are not observed.
func PointFromRecord(r Record) Point {
	return Point{
		X:        r.Latitude,
		Y:        r.Longitude,
		Time:     r.Time,
		EntityID: r.EntityID,
		Attrs:    r.Attrs.Clone(),
	}
}

// Orb returns the fix position as an orb.Point.
func (p Point) Orb() orb.Point {
	return orb.Point{p.X, p.Y}
}

// Snapshot returns a copy of the fix attributes.
func (p Point) Snapshot() Attributes {
	return p.Attrs.Clone()
}

// Delta returns the displacement from a to b and its length.
func Delta(a, b Point) (dx, dy, dist float64) {
	dx = b.X - a.X
	dy = b.Y - a.Y
	return dx, dy, math.Hypot(dx, dy)
}

// Distance is the planar Euclidean distance between two fixes.
func Distance(a, b Point) float64 {
	_, _, d := Delta(a, b)
	return d
}

// ElapsedSeconds returns the absolute time difference between two fixes.
func ElapsedSeconds(a, b Point) float64 {
	return math.Abs(b.Time.Sub(a.Time).Seconds())
}

// InstantSpeed is the straight-line speed between two fixes in coordinate
// units per second.
func InstantSpeed(a, b Point) float64 {
	return Distance(a, b) / (ElapsedSeconds(a, b) + SpeedEpsilon)
}

// Bearing returns the heading from a to b in degrees, measured from the X
// (latitude) axis toward the Y (longitude) axis, in (-180, 180].
func Bearing(a, b Point) float64 {
	dx, dy, _ := Delta(a, b)
	return math.Atan2(dy, dx) * 180 / math.Pi
}

// Midpoint returns the point halfway between a and b.
func Midpoint(a, b Point) orb.Point {
	return orb.Point{(a.X + b.X) / 2, (a.Y + b.Y) / 2}
}
