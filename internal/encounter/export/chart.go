package export

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/banshee-data/encounter.report/internal/encounter/l2ppa"
	"github.com/banshee-data/encounter.report/internal/encounter/pipeline"
	"github.com/banshee-data/encounter.report/internal/units"
)

func speedChart(res *pipeline.Result, speedUnits string) *charts.Scatter {
	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: "Encounter report", Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "PPA speed", Subtitle: fmt.Sprintf("%s / %s", res.Entity1, res.Entity2)}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "time", Name: "PPA end"}),
		charts.WithYAxisOpts(opts.YAxis{Name: units.Label(speedUnits)}),
	)
	for i, ppas := range [][]l2ppa.PPA{res.PPAs1, res.PPAs2} {
		data := make([]opts.ScatterData, 0, len(ppas))
		for _, p := range ppas {
			data = append(data, opts.ScatterData{
				Value: []interface{}{p.TEnd.UnixMilli(), units.ConvertSpeed(p.Speed, speedUnits)},
			})
		}
		scatter.AddSeries(entityName(res, i), data, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	}
	return scatter
}

func episodeChart(res *pipeline.Result, tz string) (*charts.Bar, error) {
	x := make([]string, 0, len(res.Events))
	y := make([]opts.BarData, 0, len(res.Events))
	for _, ev := range res.Events {
		start, err := formatTime(ev.Start, tz)
		if err != nil {
			return nil, err
		}
		x = append(x, fmt.Sprintf("#%d %s", ev.No, start))
		y = append(y, opts.BarData{Value: ev.DurationMinutes})
	}

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Interaction episodes", Subtitle: fmt.Sprintf("%d episodes", len(res.Events))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithYAxisOpts(opts.YAxis{Name: "minutes"}),
	)
	bar.SetXAxis(x).
		AddSeries("duration", y,
			charts.WithLabelOpts(opts.Label{Show: opts.Bool(true), Position: "top"}),
		)
	return bar, nil
}

func diffChart(res *pipeline.Result) *charts.Scatter {
	speed := make([]opts.ScatterData, 0, len(res.PairTable))
	direction := make([]opts.ScatterData, 0, len(res.PairTable))
	for _, rec := range res.PairTable {
		speed = append(speed, opts.ScatterData{Value: []interface{}{rec.DiffTimeMinutes, rec.DiffSpeed}})
		direction = append(direction, opts.ScatterData{Value: []interface{}{rec.DiffTimeMinutes, rec.DiffDirection}})
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "420px"}),
		charts.WithTitleOpts(opts.Title{Title: "Intersecting pairs", Subtitle: fmt.Sprintf("%d pairs", len(res.PairTable))}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Type: "value", Name: "diff_time (min)"}),
	)
	scatter.AddSeries("diff_speed", speed, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	scatter.AddSeries("diff_direction", direction, charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 6}))
	return scatter
}

// RenderCharts writes an HTML page with PPA speeds over time, episode
// durations and the per-pair differentials.
func RenderCharts(w io.Writer, res *pipeline.Result, speedUnits, tz string) error {
	bar, err := episodeChart(res, tz)
	if err != nil {
		return err
	}
	page := components.NewPage()
	page.AddCharts(speedChart(res, speedUnits), bar, diffChart(res))
	return page.Render(w)
}
