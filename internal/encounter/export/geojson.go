package export

import (
	"io"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
	"github.com/banshee-data/encounter.report/internal/encounter/l2ppa"
	"github.com/banshee-data/encounter.report/internal/encounter/pipeline"
)

// lonLat flips an analysis point (X latitude, Y longitude) into GeoJSON
// axis order.
func lonLat(p orb.Point) orb.Point { return orb.Point{p[1], p[0]} }

func flipRing(r orb.Ring) orb.Ring {
	out := make(orb.Ring, len(r))
	for i, p := range r {
		out[i] = lonLat(p)
	}
	return out
}

// FeatureCollection builds one LineString feature per entity track and one
// Polygon feature per PPA. PPA features carry an "intersecting" flag.
func FeatureCollection(res *pipeline.Result) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	hits := intersecting(res)

	for _, track := range []struct {
		id    string
		fixes []l1fixes.Point
	}{{res.Entity1, res.Fixes1}, {res.Entity2, res.Fixes2}} {
		if len(track.fixes) < 2 {
			continue
		}
		ls := make(orb.LineString, len(track.fixes))
		for i, p := range track.fixes {
			ls[i] = lonLat(p.Orb())
		}
		f := geojson.NewFeature(ls)
		f.Properties["kind"] = "track"
		f.Properties["entity_id"] = track.id
		f.Properties["fixes"] = len(track.fixes)
		fc.Append(f)
	}

	for _, ppas := range [][]l2ppa.PPA{res.PPAs1, res.PPAs2} {
		for _, p := range ppas {
			f := geojson.NewFeature(orb.Polygon{flipRing(p.Boundary)})
			f.Properties["kind"] = "ppa"
			f.Properties["entity_id"] = p.EntityID
			f.Properties["seq"] = p.Seq
			f.Properties["t_start"] = p.TStart.Format(time.RFC3339)
			f.Properties["t_end"] = p.TEnd.Format(time.RFC3339)
			f.Properties["speed"] = p.Speed
			f.Properties["sizing_speed"] = p.SizingSpeed
			f.Properties["direction"] = p.Direction
			f.Properties["major_axis"] = p.MajorAxis
			f.Properties["minor_axis"] = p.MinorAxis
			f.Properties["intersecting"] = hits[p.Key()]
			for k, v := range p.StartAttrs {
				f.Properties["attr_"+k] = v
			}
			fc.Append(f)
		}
	}
	return fc
}

// WriteGeoJSON writes FeatureCollection(res) to w.
func WriteGeoJSON(w io.Writer, res *pipeline.Result) error {
	data, err := FeatureCollection(res).MarshalJSON()
	if err != nil {
		return err
	}
	_, err = w.Write(data)
	return err
}
