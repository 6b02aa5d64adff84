package report

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cellquant/internal/frame"
	"cellquant/internal/logger"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const storeComponent = "Store"

const schema = `
CREATE TABLE IF NOT EXISTS runs (
	run_id      TEXT PRIMARY KEY,
	stack       TEXT NOT NULL,
	config      TEXT NOT NULL,
	started_at  TIMESTAMP NOT NULL,
	finished_at TIMESTAMP,
	processed   INTEGER,
	failed      INTEGER
);
CREATE TABLE IF NOT EXISTS frames (
	run_id             TEXT NOT NULL,
	frame_id           TEXT NOT NULL,
	depth              INTEGER NOT NULL,
	astrocytes         INTEGER NOT NULL,
	neurons            INTEGER NOT NULL,
	discarded          INTEGER NOT NULL,
	proximity_mean     DOUBLE NOT NULL,
	proximity_stddev   DOUBLE NOT NULL,
	synapse_total_low  INTEGER NOT NULL,
	synapse_total_high INTEGER NOT NULL,
	synapse_bins_low   TEXT NOT NULL,
	synapse_bins_high  TEXT NOT NULL,
	PRIMARY KEY (run_id, frame_id),
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
CREATE TABLE IF NOT EXISTS frame_errors (
	run_id   TEXT NOT NULL,
	frame_id TEXT NOT NULL,
	depth    INTEGER NOT NULL,
	message  TEXT NOT NULL,
	FOREIGN KEY (run_id) REFERENCES runs(run_id)
);
`

// Store persists runs and their frame records in SQLite.
type Store struct {
	db  *sql.DB
	log logger.Logger
}

// OpenStore opens or creates the database at path.
func OpenStore(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = logger.Nop()
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open results db: %w", err)
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("apply %q: %w", pragma, err)
		}
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// BeginRun registers a run and returns its id.
func (s *Store) BeginRun(stack string, config []byte) (string, error) {
	id := uuid.NewString()
	_, err := s.db.Exec(
		"INSERT INTO runs (run_id, stack, config, started_at) VALUES (?, ?, ?, ?)",
		id, stack, string(config), time.Now().UTC(),
	)
	if err != nil {
		return "", fmt.Errorf("insert run: %w", err)
	}
	s.log.Info(storeComponent, "run started", map[string]interface{}{"run": id, "stack": stack})
	return id, nil
}

// FinishRun stores the batch outcome, including every frame error.
func (s *Store) FinishRun(runID string, sum frame.Summary) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	for _, fe := range sum.Errors {
		if _, err := tx.Exec(
			"INSERT INTO frame_errors (run_id, frame_id, depth, message) VALUES (?, ?, ?, ?)",
			runID, fe.FrameID, fe.Depth, fe.Err.Error(),
		); err != nil {
			return fmt.Errorf("insert frame error: %w", err)
		}
	}
	res, err := tx.Exec(
		"UPDATE runs SET finished_at = ?, processed = ?, failed = ? WHERE run_id = ?",
		time.Now().UTC(), sum.Processed, sum.Failed, runID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, _ := res.RowsAffected(); n != 1 {
		return fmt.Errorf("unknown run %s", runID)
	}
	return tx.Commit()
}

// Save stores one record under runID.
func (s *Store) Save(runID string, r frame.Record) error {
	low, err := json.Marshal(r.SynapseBinsLow)
	if err != nil {
		return err
	}
	high, err := json.Marshal(r.SynapseBinsHigh)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(`INSERT INTO frames (
		run_id, frame_id, depth, astrocytes, neurons, discarded,
		proximity_mean, proximity_stddev, synapse_total_low, synapse_total_high,
		synapse_bins_low, synapse_bins_high
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		runID, r.FrameID, r.Depth, r.AstrocyteCount, r.NeuronCount, r.DiscardedCount,
		r.ProximityMean, r.ProximityStdDev, r.SynapseTotalLow, r.SynapseTotalHigh,
		string(low), string(high),
	)
	if err != nil {
		return fmt.Errorf("insert frame %s: %w", r.FrameID, err)
	}
	return nil
}

// Sink returns a frame.Sink that saves under runID.
func (s *Store) Sink(runID string) frame.Sink {
	return frame.SinkFunc(func(r frame.Record) error { return s.Save(runID, r) })
}

// Records returns the records of a run ordered by depth.
func (s *Store) Records(runID string) ([]frame.Record, error) {
	rows, err := s.db.Query(`SELECT
		frame_id, depth, astrocytes, neurons, discarded,
		proximity_mean, proximity_stddev, synapse_total_low, synapse_total_high,
		synapse_bins_low, synapse_bins_high
	FROM frames WHERE run_id = ? ORDER BY depth, frame_id`, runID)
	if err != nil {
		return nil, fmt.Errorf("query frames: %w", err)
	}
	defer rows.Close()

	var out []frame.Record
	for rows.Next() {
		var (
			r         frame.Record
			low, high string
		)
		if err := rows.Scan(
			&r.FrameID, &r.Depth, &r.AstrocyteCount, &r.NeuronCount, &r.DiscardedCount,
			&r.ProximityMean, &r.ProximityStdDev, &r.SynapseTotalLow, &r.SynapseTotalHigh,
			&low, &high,
		); err != nil {
			return nil, fmt.Errorf("scan frame: %w", err)
		}
		if err := json.Unmarshal([]byte(low), &r.SynapseBinsLow); err != nil {
			return nil, fmt.Errorf("decode low bins of %s: %w", r.FrameID, err)
		}
		if err := json.Unmarshal([]byte(high), &r.SynapseBinsHigh); err != nil {
			return nil, fmt.Errorf("decode high bins of %s: %w", r.FrameID, err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// FrameErrors returns the stored failure messages of a run keyed by frame.
func (s *Store) FrameErrors(runID string) (map[string]string, error) {
	rows, err := s.db.Query("SELECT frame_id, message FROM frame_errors WHERE run_id = ?", runID)
	if err != nil {
		return nil, fmt.Errorf("query frame errors: %w", err)
	}
	defer rows.Close()

	out := map[string]string{}
	for rows.Next() {
		var id, msg string
		if err := rows.Scan(&id, &msg); err != nil {
			return nil, err
		}
		out[id] = msg
	}
	return out, rows.Err()
}
