// Command encounter detects interactions between GPS-tracked entities from
// their fix tables and stores or exports the results.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/banshee-data/encounter.report/internal/config"
	"github.com/banshee-data/encounter.report/internal/db"
	"github.com/banshee-data/encounter.report/internal/encounter/export"
	"github.com/banshee-data/encounter.report/internal/encounter/l1fixes"
	"github.com/banshee-data/encounter.report/internal/encounter/pipeline"
	"github.com/banshee-data/encounter.report/internal/encounter/report"
	"github.com/banshee-data/encounter.report/internal/security"
	"github.com/banshee-data/encounter.report/internal/version"
)

const usage = `usage: encounter <command> [flags]

commands:
  analyze   detect interactions in a CSV of fixes (or fixes stored in -db)
  import    store a CSV of fixes in the database
  runs      list stored analysis runs
  serve     serve the debug pages for a database
  version   print build information
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		log.Fatalf("encounter: %v", err)
	}
}

func run(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(stdout, usage)
		return flag.ErrHelp
	}
	switch args[0] {
	case "analyze":
		return runAnalyze(ctx, args[1:], stdout)
	case "import":
		return runImport(ctx, args[1:], stdout)
	case "runs":
		return runRuns(ctx, args[1:], stdout)
	case "serve":
		return runServe(ctx, args[1:])
	case "version":
		fmt.Fprintln(stdout, version.String())
		return nil
	case "help", "-h", "--help":
		fmt.Fprint(stdout, usage)
		return nil
	default:
		fmt.Fprint(stdout, usage)
		return fmt.Errorf("unknown command %q", args[0])
	}
}

// columnFlags binds the CSV column names shared by analyze and import.
type columnFlags struct {
	lat, lon, entity, ts *string
}

func addColumnFlags(fs *flag.FlagSet) columnFlags {
	def := l1fixes.DefaultColumnMap()
	return columnFlags{
		lat:    fs.String("lat-col", def.Latitude, "Latitude column"),
		lon:    fs.String("lon-col", def.Longitude, "Longitude column"),
		entity: fs.String("entity-col", def.EntityID, "Entity id column"),
		ts:     fs.String("time-col", def.Time, "Timestamp column"),
	}
}

func (c columnFlags) columnMap(cfg *config.AnalysisConfig) l1fixes.ColumnMap {
	return l1fixes.ColumnMap{
		Latitude:   *c.lat,
		Longitude:  *c.lon,
		EntityID:   *c.entity,
		Time:       *c.ts,
		TimeLayout: cfg.GetTimeLayout(),
		Attributes: cfg.GetAttributeFields(),
	}
}

func loadConfig(path string) (*config.AnalysisConfig, error) {
	if path == "" {
		return config.DefaultAnalysisConfig(), nil
	}
	return config.LoadAnalysisConfig(path)
}

func readFixes(path string, cols l1fixes.ColumnMap) ([]l1fixes.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return l1fixes.ParseCSV(f, cols)
}

// outputs holds the optional export paths of an analyze run.
type outputs struct {
	geojson, plot, chart, events, pairs string
}

// forPair derives per-pair file names for batch runs: out/events.csv
// becomes out/events_A_B.csv. Entity ids are sanitised so they cannot
// leave the output directory.
func (o outputs) forPair(e1, e2 string) outputs {
	tag := "_" + security.SanitizeFilename(e1) + "_" + security.SanitizeFilename(e2)
	suffix := func(p string) string {
		if p == "" {
			return ""
		}
		ext := filepath.Ext(p)
		return strings.TrimSuffix(p, ext) + tag + ext
	}
	return outputs{
		geojson: suffix(o.geojson),
		plot:    suffix(o.plot),
		chart:   suffix(o.chart),
		events:  suffix(o.events),
		pairs:   suffix(o.pairs),
	}
}

func writeFile(path string, write func(w io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", path, err)
	}
	return f.Close()
}

func (o outputs) write(res *pipeline.Result, cfg *config.AnalysisConfig) error {
	tz := cfg.GetDisplayTimezone()
	if o.geojson != "" {
		if err := writeFile(o.geojson, func(w io.Writer) error { return export.WriteGeoJSON(w, res) }); err != nil {
			return err
		}
	}
	if o.plot != "" {
		if err := export.SavePlot(res, export.DefaultPlotOptions(), o.plot); err != nil {
			return err
		}
	}
	if o.chart != "" {
		err := writeFile(o.chart, func(w io.Writer) error {
			return export.RenderCharts(w, res, cfg.GetSpeedUnits(), tz)
		})
		if err != nil {
			return err
		}
	}
	if o.events != "" {
		if err := writeFile(o.events, func(w io.Writer) error { return export.WriteEventsCSV(w, res.Events, tz) }); err != nil {
			return err
		}
	}
	if o.pairs != "" {
		if err := writeFile(o.pairs, func(w io.Writer) error { return export.WritePairTableCSV(w, res.PairTable, tz) }); err != nil {
			return err
		}
	}
	return nil
}

func summarize(w io.Writer, res *pipeline.Result, cfg *config.AnalysisConfig, stats bool) error {
	tz := cfg.GetDisplayTimezone()
	fmt.Fprintf(w, "%s / %s: %d+%d PPAs, %d intersecting pairs, %d episodes\n",
		res.Entity1, res.Entity2, len(res.PPAs1), len(res.PPAs2), len(res.Pairs), len(res.Events))
	if !res.Found() {
		fmt.Fprintln(w, "no interactions found")
	}
	if err := export.WriteEventsCSV(w, res.Events, tz); err != nil {
		return err
	}
	if len(res.ProximityEvents) > 0 {
		fmt.Fprintf(w, "proximity episodes: %d\n", len(res.ProximityEvents))
		if err := export.WriteEventsCSV(w, res.ProximityEvents, tz); err != nil {
			return err
		}
	}
	if stats {
		return report.Build(res, cfg.GetSpeedUnits(), cfg.GetMaxGap()).WriteText(w)
	}
	return nil
}

func runAnalyze(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("analyze", flag.ContinueOnError)
	input := fs.String("input", "", "CSV file of fixes (default: fixes stored in -db)")
	configPath := fs.String("config", "", "Analysis config JSON (default: built-in defaults)")
	dbPath := fs.String("db", "", "SQLite database to record runs in")
	stats := fs.Bool("stats", false, "Print descriptive statistics")
	var out outputs
	fs.StringVar(&out.geojson, "geojson", "", "Write tracks and PPAs as GeoJSON")
	fs.StringVar(&out.plot, "plot", "", "Write a PNG plot of tracks and PPAs")
	fs.StringVar(&out.chart, "chart", "", "Write an HTML chart page")
	fs.StringVar(&out.events, "events", "", "Write the episode table as CSV")
	fs.StringVar(&out.pairs, "pairs", "", "Write the pair table as CSV")
	cols := addColumnFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" && *dbPath == "" {
		return errors.New("analyze: -input or -db is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	opts, err := pipeline.OptionsFromConfig(cfg)
	if err != nil {
		return err
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return err
	}

	var store *db.DB
	if *dbPath != "" {
		store, err = db.NewDB(*dbPath)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer store.Close()
	}

	var records []l1fixes.Record
	if *input != "" {
		records, err = readFixes(*input, cols.columnMap(cfg))
	} else {
		records, err = store.Fixes(ctx)
	}
	if err != nil {
		return err
	}
	log.Printf("loaded %d fixes", len(records))

	if len(l1fixes.EntityIDs(records)) == 2 {
		res, err := pipeline.Analyze(records, opts)
		if err != nil {
			return err
		}
		if store != nil {
			if err := store.RecordRun(ctx, res, string(cfgJSON)); err != nil {
				return err
			}
			log.Printf("recorded run %s", res.RunID)
		}
		if err := out.write(res, cfg); err != nil {
			return err
		}
		return summarize(stdout, res, cfg, *stats)
	}

	items, err := pipeline.RunBatch(ctx, records, opts)
	if err != nil {
		return err
	}
	failed := 0
	for _, item := range items {
		if item.Err != nil {
			failed++
			fmt.Fprintf(stdout, "%s / %s: %v\n", item.Entity1, item.Entity2, item.Err)
			if store != nil {
				if _, err := store.RecordFailure(ctx, item.Entity1, item.Entity2, item.Err, string(cfgJSON)); err != nil {
					return err
				}
			}
			continue
		}
		if store != nil {
			if err := store.RecordRun(ctx, item.Result, string(cfgJSON)); err != nil {
				return err
			}
		}
		if err := out.forPair(item.Entity1, item.Entity2).write(item.Result, cfg); err != nil {
			return err
		}
		if err := summarize(stdout, item.Result, cfg, *stats); err != nil {
			return err
		}
	}
	log.Printf("batch finished: %d pairs, %d failed", len(items), failed)
	return nil
}

func runImport(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("import", flag.ContinueOnError)
	input := fs.String("input", "", "CSV file of fixes")
	configPath := fs.String("config", "", "Analysis config JSON for time layout and attribute fields")
	dbPath := fs.String("db", "encounter.db", "SQLite database")
	cols := addColumnFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *input == "" {
		return errors.New("import: -input is required")
	}

	cfg, err := loadConfig(*configPath)
	if err != nil {
		return err
	}
	records, err := readFixes(*input, cols.columnMap(cfg))
	if err != nil {
		return err
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	n, err := store.InsertFixes(ctx, records)
	if err != nil {
		return err
	}
	entities, err := store.EntityCount(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "imported %d fixes, %d entities stored\n", n, entities)
	return nil
}

func runRuns(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	dbPath := fs.String("db", "encounter.db", "SQLite database")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	runs, err := store.Runs(ctx)
	if err != nil {
		return err
	}
	for _, r := range runs {
		fmt.Fprintln(stdout, r.String())
	}
	return nil
}

func runServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	dbPath := fs.String("db", "encounter.db", "SQLite database")
	listen := fs.String("listen", "localhost:8080", "Listen address")
	if err := fs.Parse(args); err != nil {
		return err
	}

	store, err := db.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer store.Close()

	mux := http.NewServeMux()
	if err := store.AttachAdminRoutes(mux); err != nil {
		return err
	}
	server := &http.Server{
		Addr:    *listen,
		Handler: mux,
	}

	errc := make(chan error, 1)
	go func() {
		log.Printf("serving debug pages on http://%s/debug/", *listen)
		errc <- server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		return server.Close()
	}
	return nil
}
