package db

import (
	"compress/gzip"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/tailscale/tailsql/server/tailsql"
	"tailscale.com/tsweb"

	"github.com/banshee-data/encounter.report/internal/encounter/l4episodes"
	"github.com/banshee-data/encounter.report/internal/httputil"
)

// AttachAdminRoutes mounts the debug pages under /debug/: a live SQL
// console over the store, a JSON list of runs and a gzip backup download.
func (db *DB) AttachAdminRoutes(mux *http.ServeMux) error {
	debug := tsweb.Debugger(mux)

	tsql, err := tailsql.NewServer(tailsql.Options{
		RoutePrefix: "/debug/tailsql/",
	})
	if err != nil {
		return fmt.Errorf("failed to create tailsql server: %w", err)
	}
	tsql.SetDB("sqlite://encounter.db", db.DB, &tailsql.DBOptions{
		Label: "Encounter DB",
	})
	debug.Handle("tailsql/", "SQL live debugging", tsql.NewMux())

	debug.Handle("runs", "Stored analysis runs (JSON)", http.HandlerFunc(db.handleRuns))
	debug.HandleSilentFunc("run", db.handleRun)
	debug.Handle("backup", "Create and download a backup of the database now", http.HandlerFunc(db.handleBackup))
	return nil
}

type runJSON struct {
	ID       string    `json:"run_id"`
	Started  time.Time `json:"started"`
	Entity1  string    `json:"entity1"`
	Entity2  string    `json:"entity2"`
	Version  string    `json:"version"`
	PPAs1    int       `json:"ppas1"`
	PPAs2    int       `json:"ppas2"`
	Pairs    int       `json:"pairs"`
	Episodes int       `json:"episodes"`
	Error    string    `json:"error,omitempty"`
}

func toRunJSON(run Run) runJSON {
	return runJSON{
		ID:       run.ID.String(),
		Started:  run.Started,
		Entity1:  run.Entity1,
		Entity2:  run.Entity2,
		Version:  run.Version,
		PPAs1:    run.PPAs1,
		PPAs2:    run.PPAs2,
		Pairs:    run.Pairs,
		Episodes: run.Events,
		Error:    run.Error,
	}
}

func (db *DB) handleRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := db.Runs(r.Context())
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to list runs: %v", err))
		return
	}
	out := make([]runJSON, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunJSON(run))
	}
	httputil.WriteJSONOK(w, out)
}

type eventJSON struct {
	No              int       `json:"no"`
	Start           time.Time `json:"start"`
	End             time.Time `json:"end"`
	DurationMinutes float64   `json:"duration_minutes"`
}

type runDetailJSON struct {
	runJSON
	Events          []eventJSON `json:"events"`
	ProximityEvents []eventJSON `json:"proximity_events"`
}

func toEventsJSON(events []l4episodes.Event) []eventJSON {
	out := make([]eventJSON, 0, len(events))
	for _, ev := range events {
		out = append(out, eventJSON{No: ev.No, Start: ev.Start, End: ev.End, DurationMinutes: ev.DurationMinutes})
	}
	return out
}

// handleRun serves one run with its episodes: /debug/run?id=<uuid>.
func (db *DB) handleRun(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		httputil.BadRequest(w, "id must be a run uuid")
		return
	}
	run, err := db.Run(r.Context(), id)
	if errors.Is(err, ErrRunNotFound) {
		httputil.NotFound(w, err.Error())
		return
	} else if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	events, err := db.Events(r.Context(), id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	prox, err := db.ProximityEvents(r.Context(), id)
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, runDetailJSON{
		runJSON:         toRunJSON(run),
		Events:          toEventsJSON(events),
		ProximityEvents: toEventsJSON(prox),
	})
}

func (db *DB) handleBackup(w http.ResponseWriter, r *http.Request) {
	name := fmt.Sprintf("backup-%d.db", time.Now().Unix())
	backupPath := filepath.Join(os.TempDir(), name)
	if _, err := db.ExecContext(r.Context(), "VACUUM INTO ?", backupPath); err != nil {
		http.Error(w, fmt.Sprintf("Failed to create backup: %v", err), http.StatusInternalServerError)
		return
	}

	backupFile, err := os.Open(backupPath)
	if err != nil {
		http.Error(w, fmt.Sprintf("Failed to open backup file: %v", err), http.StatusInternalServerError)
		return
	}
	// remove the file once it has been sent
	defer func() {
		backupFile.Close()
		if err := os.Remove(backupPath); err != nil {
			log.Printf("Failed to remove backup file: %v", err)
		}
	}()

	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%s.gz", name))
	w.Header().Set("Content-Type", "application/gzip")

	gzipWriter := gzip.NewWriter(w)
	defer gzipWriter.Close()
	if _, err := io.Copy(gzipWriter, backupFile); err != nil {
		log.Printf("Failed to write backup: %v", err)
	}
}
