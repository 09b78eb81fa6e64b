package l1fixes

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
)

// AxisEpsilon replaces a zero displacement component when computing the
// rotation angle. It has no physical meaning; it only keeps the ratio defined.
// It is kept far below GPS coordinate resolution (degrees) so a purely
// north/south or east/west move still rotates the ellipse onto its path.
const AxisEpsilon = 1e-12

// majorTolerance is the relative shortfall of the major axis below the fix
// distance that is treated as floating-point rounding. A sizing speed of
// exactly dist/dt can land one ulp short after the multiply.
const majorTolerance = 1e-9

// Ellipse describes a PPA ellipse before discretisation.
type Ellipse struct {
	Center   orb.Point
	Major    float64 // full major axis length
	Minor    float64 // full minor axis length
	AngleDeg float64 // rotation of the major axis from the X axis
}

// DegenerateEllipseError reports a maximum speed that cannot explain the
// observed displacement between two fixes.
type DegenerateEllipseError struct {
	EntityID string
	Major    float64
	Distance float64
	MaxSpeed float64
}

func (e *DegenerateEllipseError) Error() string {
	return fmt.Sprintf("degenerate ellipse for %s: major axis %.6g shorter than displacement %.6g (max speed %.6g)",
		e.EntityID, e.Major, e.Distance, e.MaxSpeed)
}

// EllipseParameters derives the PPA ellipse for the fix pair (a, b) given a
// maximum speed in coordinate units per second.
func EllipseParameters(a, b Point, maxSpeed float64) (Ellipse, error) {
	dt := ElapsedSeconds(a, b)
	dx, dy, dist := Delta(a, b)

	major := dt * maxSpeed
	if major < dist && dist-major <= dist*majorTolerance {
		major = dist
	}
	if math.IsNaN(major) || major < dist {
		return Ellipse{}, &DegenerateEllipseError{
			EntityID: b.EntityID,
			Major:    major,
			Distance: dist,
			MaxSpeed: maxSpeed,
		}
	}
	minor := math.Sqrt(major*major - dist*dist)

	if dy == 0 {
		dy = AxisEpsilon
	}
	if dx == 0 {
		dx = AxisEpsilon
	}

	angle := math.Atan(math.Abs(dy/dx)) * 180 / math.Pi
	if dx*dy < 0 {
		// 2nd and 4th quadrants
		angle = 180 - angle
	}

	return Ellipse{
		Center:   Midpoint(a, b),
		Major:    major,
		Minor:    minor,
		AngleDeg: angle,
	}, nil
}

// Polyline discretises the ellipse into n evenly spaced boundary vertices and
// closes the ring by repeating the first vertex.
func (e Ellipse) Polyline(n int) orb.Ring {
	if n < 3 {
		n = 3
	}
	rad := e.AngleDeg * math.Pi / 180
	sa, ca := math.Sin(rad), math.Cos(rad)
	a, b := e.Major/2, e.Minor/2

	ring := make(orb.Ring, 0, n+1)
	for i := 0; i < n; i++ {
		t := 2 * math.Pi * float64(i) / float64(n)
		st, ct := math.Sin(t), math.Cos(t)
		ring = append(ring, orb.Point{
			e.Center[0] + a*ca*ct - b*sa*st,
			e.Center[1] + a*sa*ct + b*ca*st,
		})
	}
	return append(ring, ring[0])
}
