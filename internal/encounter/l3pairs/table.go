package l3pairs

import (
	"math"
	"time"

	"github.com/paulmach/orb"
)

// Anchor is one side of a pair record.
type Anchor struct {
	EntityID  string
	Seq       int
	TStart    time.Time
	TEnd      time.Time
	StartPos  orb.Point
	EndPos    orb.Point
	Speed     float64
	Direction float64
}

// PairRecord is a row of the intermediate pair table: both PPAs' anchors and
// the differential metrics of the pair.
type PairRecord struct {
	P1 Anchor
	P2 Anchor

	DiffSpeed       float64 // |s2 - s1| / mean(s1, s2)
	DiffDirection   float64 // cos(dir2 - dir1), 1 means same heading
	DiffTimeMinutes float64 // P2 start minus P1 start, signed
}

// SpeedDifference returns |s2 - s1| relative to the mean speed. Two zero
// speeds have no difference.
func SpeedDifference(s1, s2 float64) float64 {
	mean := (s1 + s2) / 2
	if mean == 0 {
		return 0
	}
	return math.Abs(s2-s1) / mean
}

// DirectionDifference returns the cosine of the angle between two headings
// given in degrees. The result is clamped to [-1, 1].
func DirectionDifference(dir1, dir2 float64) float64 {
	c := math.Cos((dir2 - dir1) * math.Pi / 180)
	return math.Max(-1, math.Min(1, c))
}

// BuildPairTable flattens pairs into records with differential metrics.
func BuildPairTable(pairs []Pair) []PairRecord {
	if len(pairs) == 0 {
		return nil
	}
	out := make([]PairRecord, 0, len(pairs))
	for _, pr := range pairs {
		a, b := pr.A, pr.B
		out = append(out, PairRecord{
			P1: Anchor{
				EntityID: a.EntityID, Seq: a.Seq,
				TStart: a.TStart, TEnd: a.TEnd,
				StartPos: a.StartPos, EndPos: a.EndPos,
				Speed: a.Speed, Direction: a.Direction,
			},
			P2: Anchor{
				EntityID: b.EntityID, Seq: b.Seq,
				TStart: b.TStart, TEnd: b.TEnd,
				StartPos: b.StartPos, EndPos: b.EndPos,
				Speed: b.Speed, Direction: b.Direction,
			},
			DiffSpeed:       SpeedDifference(a.Speed, b.Speed),
			DiffDirection:   DirectionDifference(a.Direction, b.Direction),
			DiffTimeMinutes: b.TStart.Sub(a.TStart).Minutes(),
		})
	}
	return out
}
