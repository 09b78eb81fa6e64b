package export

import (
	"github.com/banshee-data/encounter.report/internal/encounter/l2ppa"
	"github.com/banshee-data/encounter.report/internal/encounter/pipeline"
)

// intersecting returns the keys of every PPA that takes part in at least
// one intersecting pair.
func intersecting(res *pipeline.Result) map[l2ppa.Key]bool {
	keys := make(map[l2ppa.Key]bool, 2*len(res.Pairs))
	for _, p := range res.Pairs {
		keys[p.A.Key()] = true
		keys[p.B.Key()] = true
	}
	return keys
}
