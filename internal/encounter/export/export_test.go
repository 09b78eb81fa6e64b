package export

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/encounter.report/internal/encounter/pipeline"
	"github.com/banshee-data/encounter.report/internal/monitoring"
	"github.com/banshee-data/encounter.report/internal/testutil"
	"github.com/banshee-data/encounter.report/internal/units"
)

func init() {
	monitoring.SetLogger(nil)
}

func analyzed(t *testing.T) *pipeline.Result {
	t.Helper()
	recs := testutil.Concat(
		testutil.Line("A", 45.0, 7.0, 0, 0.001, 0, 60, 8),
		testutil.Line("B", 45.0002, 7.0, 0, 0.001, 60, 60, 8),
	)
	res, err := pipeline.Analyze(recs, pipeline.DefaultOptions())
	require.NoError(t, err)
	require.True(t, res.Found())
	return res
}

func TestFeatureCollection(t *testing.T) {
	t.Parallel()
	res := analyzed(t)

	var buf bytes.Buffer
	require.NoError(t, WriteGeoJSON(&buf, res))

	fc, err := geojson.UnmarshalFeatureCollection(buf.Bytes())
	require.NoError(t, err)
	require.Len(t, fc.Features, 2+len(res.PPAs1)+len(res.PPAs2))

	track := fc.Features[0]
	assert.Equal(t, "track", track.Properties["kind"])
	ls, ok := track.Geometry.(orb.LineString)
	require.True(t, ok)
	// GeoJSON is lon, lat
	assert.InDelta(t, 7.0, ls[0][0], 1e-12)
	assert.InDelta(t, 45.0, ls[0][1], 1e-12)

	var hits int
	for _, f := range fc.Features[2:] {
		assert.Equal(t, "ppa", f.Properties["kind"])
		poly, ok := f.Geometry.(orb.Polygon)
		require.True(t, ok)
		require.Len(t, poly, 1)
		assert.Equal(t, poly[0][0], poly[0][len(poly[0])-1], "ring is closed")
		if f.Properties.MustBool("intersecting", false) {
			hits++
		}
	}
	assert.Positive(t, hits)
}

func TestWriteEventsCSV(t *testing.T) {
	t.Parallel()
	res := analyzed(t)

	var buf bytes.Buffer
	require.NoError(t, WriteEventsCSV(&buf, res.Events, "UTC"))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+len(res.Events))
	assert.Equal(t, []string{"no", "p1", "p2", "start", "end", "duration_minutes"}, rows[0])
	assert.Equal(t, "1", rows[1][0])
	assert.Equal(t, "A", rows[1][1])
	assert.Equal(t, "B", rows[1][2])
	assert.Equal(t, "2024-03-01 06:00:00", rows[1][3])

	buf.Reset()
	require.NoError(t, WriteEventsCSV(&buf, res.Events, "Europe/Berlin"))
	assert.Contains(t, buf.String(), "2024-03-01 07:00:00")

	assert.Error(t, WriteEventsCSV(&buf, res.Events, "Nowhere/Land"))
}

func TestWritePairTableCSV(t *testing.T) {
	t.Parallel()
	res := analyzed(t)

	var buf bytes.Buffer
	require.NoError(t, WritePairTableCSV(&buf, res.PairTable, "UTC"))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1+len(res.PairTable))
	assert.Len(t, rows[0], 15)
	assert.Equal(t, "diff_time_minutes", rows[0][14])
	for _, row := range rows[1:] {
		assert.Equal(t, "A", row[0])
		assert.Equal(t, "B", row[6])
	}
}

func TestPlot(t *testing.T) {
	t.Parallel()
	res := analyzed(t)

	path := filepath.Join(t.TempDir(), "ppas.png")
	require.NoError(t, SavePlot(res, DefaultPlotOptions(), path))
	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	var buf bytes.Buffer
	po := DefaultPlotOptions()
	po.OnlyIntersecting = true
	require.NoError(t, WritePlotPNG(&buf, res, po))
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("\x89PNG")))
}

func TestRenderCharts(t *testing.T) {
	t.Parallel()
	res := analyzed(t)

	var buf bytes.Buffer
	require.NoError(t, RenderCharts(&buf, res, units.UPM, "UTC"))
	html := buf.String()
	assert.True(t, strings.Contains(html, "<html"))
	assert.Contains(t, html, "Interaction episodes")
	assert.Contains(t, html, "diff_direction")
}
