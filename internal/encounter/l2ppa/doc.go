// Package l2ppa owns Layer 2 (Potential Path Areas) of the encounter data
// model.
//
// Responsibilities: turning one entity's time-ordered fixes into a sequence
// of PPA ellipses, including the gap and no-motion skip rules and the
// weighted speed smoothing that keeps GPS noise from collapsing an ellipse
// into a line segment.
// Key types: PPA, SpeedSmoother, Generator, Sequence.
//
// Dependency rule: L2 may depend on L1, but never on L3 or above.
package l2ppa
