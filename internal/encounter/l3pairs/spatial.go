package l3pairs

import (
	"github.com/banshee-data/encounter.report/internal/encounter/l2ppa"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// SpatiallyIntersects reports whether two PPAs share any area: their
// boundaries cross, or one polygon lies entirely inside the other.
func SpatiallyIntersects(p, q l2ppa.PPA) bool {
	if !p.Bound.Intersects(q.Bound) {
		return false
	}
	return RingsIntersect(p.Boundary, q.Boundary) || Within(p, q) || Within(q, p)
}

// Within reports whether every boundary vertex of p lies inside q's polygon.
func Within(p, q l2ppa.PPA) bool {
	if !boundContains(q.Bound, p.Bound) {
		return false
	}
	for _, v := range p.Boundary {
		if !planar.PolygonContains(q.Polygon, v) {
			return false
		}
	}
	return true
}

func boundContains(outer, inner orb.Bound) bool {
	return outer.Min[0] <= inner.Min[0] && outer.Min[1] <= inner.Min[1] &&
		outer.Max[0] >= inner.Max[0] && outer.Max[1] >= inner.Max[1]
}

// RingsIntersect reports whether any edge of a touches or crosses any edge
// of b.
func RingsIntersect(a, b orb.Ring) bool {
	for i := 0; i+1 < len(a); i++ {
		segBound := orb.Bound{Min: a[i], Max: a[i]}.Extend(a[i+1])
		for j := 0; j+1 < len(b); j++ {
			other := orb.Bound{Min: b[j], Max: b[j]}.Extend(b[j+1])
			if !segBound.Intersects(other) {
				continue
			}
			if segmentsIntersect(a[i], a[i+1], b[j], b[j+1]) {
				return true
			}
		}
	}
	return false
}

// orientation returns the sign of the cross product (q-p) x (r-p).
func orientation(p, q, r orb.Point) int {
	v := (q[0]-p[0])*(r[1]-p[1]) - (q[1]-p[1])*(r[0]-p[0])
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether r, known to be collinear with p-q, lies on it.
func onSegment(p, q, r orb.Point) bool {
	return r[0] <= max(p[0], q[0]) && r[0] >= min(p[0], q[0]) &&
		r[1] <= max(p[1], q[1]) && r[1] >= min(p[1], q[1])
}

func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	o1 := orientation(p1, p2, q1)
	o2 := orientation(p1, p2, q2)
	o3 := orientation(q1, q2, p1)
	o4 := orientation(q1, q2, p2)

	if o1 != o2 && o3 != o4 {
		return true
	}
	switch {
	case o1 == 0 && onSegment(p1, p2, q1):
		return true
	case o2 == 0 && onSegment(p1, p2, q2):
		return true
	case o3 == 0 && onSegment(q1, q2, p1):
		return true
	case o4 == 0 && onSegment(q1, q2, p2):
		return true
	}
	return false
}
