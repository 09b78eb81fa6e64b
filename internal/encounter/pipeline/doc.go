// Package pipeline wires the encounter layers together.
//
// Analyze runs one two-entity analysis end to end:
//
//	records → l1fixes (validate, window, split)
//	        → l3pairs.Precheck
//	        → l2ppa.Generate per entity
//	        → l3pairs.Engine.Find → BuildPairTable
//	        → l4episodes.Merge
//	        → l3pairs.FindProximity → l4episodes.MergeProximity (when enabled)
//
// RunBatch fans several independent two-entity analyses out over a bounded
// set of goroutines. A single analysis never spans more than two entities.
package pipeline
