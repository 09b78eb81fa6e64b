// Package l1fixes owns Layer 1 (Fixes) of the encounter data model.
//
// Responsibilities: the validated input record, the immutable Point value
// built from it, and the planar geometry primitives every later layer uses
// (distance, elapsed time, instantaneous speed, bearing, ellipse parameters).
// Key types: Record, Point, Ellipse.
//
// Units: elapsed time is measured in seconds and speeds are coordinate units
// per second. Ellipse sizing multiplies the two directly, so a speed passed
// to EllipseParameters must use the same convention.
//
// Dependency rule: L1 depends on nothing else in internal/encounter.
package l1fixes
