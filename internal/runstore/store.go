// Package runstore keeps on-disk bookkeeping of reconstruction runs: which
// archives were ingested, their lifecycle state and the cached parse summary.
package runstore

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/reconlab/scene.report/internal/httputil"
	"github.com/reconlab/scene.report/internal/monitoring"
	"github.com/reconlab/scene.report/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Run lifecycle states.
const (
	StatePending  = "pending"
	StateRunning  = "running"
	StateComplete = "complete"
	StateFailed   = "failed"
)

// ErrNotFound is returned when a run id does not exist.
var ErrNotFound = errors.New("run not found")

// Run is one reconstruction run record.
type Run struct {
	ID          string    `json:"id"`
	Label       string    `json:"label"`
	ArchivePath string    `json:"archivePath"`
	State       string    `json:"state"`
	FrameCount  int       `json:"frameCount"`
	Error       string    `json:"error,omitempty"`
	SummaryJSON []byte    `json:"-"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// Store wraps the sqlite handle.
type Store struct {
	*sql.DB

	clock timeutil.Clock
}

// NewStore opens (creating if needed) the run database at path and applies
// pending migrations.
func NewStore(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	s := &Store{DB: db, clock: timeutil.RealClock{}}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}

	monitoring.Logf("run store ready at %s", path)
	return s, nil
}

// migrateUp applies all pending migrations from the embedded source.
func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("open migration source: %w", err)
	}
	driver, err := migratesqlite.WithInstance(s.DB, &migratesqlite.Config{})
	if err != nil {
		return fmt.Errorf("open migration driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}
	// The migrate instance is not closed here: closing it would close the
	// underlying DB connection.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// SetClock swaps the timestamp source. Tests use a timeutil.MockClock to get
// deterministic created/updated times.
func (s *Store) SetClock(clock timeutil.Clock) {
	s.clock = clock
}

// CreateRun inserts a new pending run and returns it.
func (s *Store) CreateRun(label, archivePath string) (*Run, error) {
	now := s.clock.Now().UTC()
	run := &Run{
		ID:          uuid.NewString(),
		Label:       label,
		ArchivePath: archivePath,
		State:       StatePending,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	_, err := s.Exec(
		`INSERT INTO runs (run_id, label, archive_path, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, run.Label, run.ArchivePath, run.State, run.CreatedAt, run.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// SetState transitions a run and records an optional error message.
func (s *Store) SetState(id, state, errMsg string) error {
	res, err := s.Exec(
		`UPDATE runs SET state = ?, error = ?, updated_at = ? WHERE run_id = ?`,
		state, errMsg, s.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update run state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// SetSummary marks a run complete and caches its parse summary.
func (s *Store) SetSummary(id string, frameCount int, summaryJSON []byte) error {
	res, err := s.Exec(
		`UPDATE runs SET state = ?, frame_count = ?, summary_json = ?, error = '', updated_at = ?
		 WHERE run_id = ?`,
		StateComplete, frameCount, string(summaryJSON), s.clock.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("store run summary: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return nil
}

// GetRun fetches one run by id.
func (s *Store) GetRun(id string) (*Run, error) {
	row := s.QueryRow(
		`SELECT run_id, label, archive_path, state, frame_count, error,
		        COALESCE(summary_json, ''), created_at, updated_at
		 FROM runs WHERE run_id = ?`, id)
	return scanRun(row)
}

// ListRuns returns all runs, newest first.
func (s *Store) ListRuns() ([]*Run, error) {
	rows, err := s.Query(
		`SELECT run_id, label, archive_path, state, frame_count, error,
		        COALESCE(summary_json, ''), created_at, updated_at
		 FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var run Run
	var summary string
	err := row.Scan(&run.ID, &run.Label, &run.ArchivePath, &run.State,
		&run.FrameCount, &run.Error, &summary, &run.CreatedAt, &run.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan run: %w", err)
	}
	if summary != "" {
		run.SummaryJSON = []byte(summary)
	}
	return &run, nil
}

// AttachAdminRoutes mounts debugging endpoints on mux. Dev-mode only; the
// handlers expose raw bookkeeping state.
func (s *Store) AttachAdminRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/debug/runs", func(w http.ResponseWriter, r *http.Request) {
		runs, err := s.ListRuns()
		if err != nil {
			httputil.WriteError(w, http.StatusInternalServerError, fmt.Sprintf("failed to list runs: %v", err))
			return
		}
		counts := map[string]int{}
		for _, run := range runs {
			counts[run.State]++
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]any{
			"total":  len(runs),
			"states": counts,
		})
	})
}
