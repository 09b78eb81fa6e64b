// Package l4episodes owns Layer 4 (Episodes) of the encounter data model.
//
// Responsibilities: collapsing chains of intersecting PPA pairs (and
// fix-level proximity matches) into discrete interaction episodes with a
// start, an end and a duration.
// Key types: Event.
//
// Dependency rule: L4 may depend on L1-L3. No I/O is allowed in this
// package.
package l4episodes
