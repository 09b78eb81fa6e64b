// Package l3pairs owns Layer 3 (Pairs) of the encounter data model.
//
// Responsibilities: the spatial and temporal predicates between two
// entities' PPAs, the exhaustive (optionally grid-indexed) pair search,
// the trajectory-level overlap precheck, the per-pair differential table
// and the fix-level proximity search.
// Key types: Pair, PairRecord, Window, Engine, ProximityMatch.
//
// Dependency rule: L3 may depend on L1-L2, but never on L4.
package l3pairs
