package tracking

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/teranos/tripline/errors"
	"github.com/teranos/tripline/logger"
)

// Store persists tracking data in a migrated SQLite database
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
	now    func() time.Time
	newID  func() string
}

// NewStore creates a tracking store over db. The schema must already be
// migrated (db.Migrate).
func NewStore(db *sql.DB, log *zap.SugaredLogger) *Store {
	return &Store{
		db:     db,
		logger: logger.OrNop(log),
		now:    func() time.Time { return time.Now().UTC() },
		newID:  uuid.NewString,
	}
}

// GetOrCreateExperiment returns the experiment with name, creating it on first use
func (s *Store) GetOrCreateExperiment(name string) (*Experiment, error) {
	if name == "" {
		return nil, errors.New("experiment name cannot be empty")
	}

	res, err := s.db.Exec(`INSERT OR IGNORE INTO experiments (name, created_at) VALUES (?, ?)`, name, s.now())
	if err != nil {
		return nil, errors.Wrapf(err, "failed to create experiment %s", name)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		s.logger.Infow("Experiment created", "experiment", name)
	}

	return s.GetExperimentByName(name)
}

// GetExperimentByName looks up an experiment. Returns a NotFound error if absent.
func (s *Store) GetExperimentByName(name string) (*Experiment, error) {
	var e Experiment
	err := s.db.QueryRow(`SELECT id, name, created_at FROM experiments WHERE name = ?`, name).
		Scan(&e.ID, &e.Name, &e.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("experiment %q not found", name)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get experiment %s", name)
	}
	return &e, nil
}

// ListExperiments returns all experiments ordered by name
func (s *Store) ListExperiments() ([]Experiment, error) {
	rows, err := s.db.Query(`SELECT id, name, created_at FROM experiments ORDER BY name`)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list experiments")
	}
	defer rows.Close()

	var out []Experiment
	for rows.Next() {
		var e Experiment
		if err := rows.Scan(&e.ID, &e.Name, &e.CreatedAt); err != nil {
			return nil, errors.Wrap(err, "failed to scan experiment")
		}
		out = append(out, e)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate experiments")
}

// StartRun opens a new RUNNING run under experimentID
func (s *Store) StartRun(experimentID int64) (*Run, error) {
	run := &Run{
		ID:           s.newID(),
		ExperimentID: experimentID,
		Status:       RunRunning,
		StartedAt:    s.now(),
	}

	_, err := s.db.Exec(`INSERT INTO runs (id, experiment_id, status, started_at) VALUES (?, ?, ?, ?)`,
		run.ID, run.ExperimentID, string(run.Status), run.StartedAt)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to start run in experiment %d", experimentID)
	}

	s.logger.Debugw("Run started", logger.FieldRunID, run.ID, logger.FieldExperimentID, experimentID)
	return run, nil
}

// LogParam records a string parameter. Parameters are write-once per run.
func (s *Store) LogParam(runID, key, value string) error {
	_, err := s.db.Exec(`INSERT INTO run_params (run_id, key, value) VALUES (?, ?, ?)`, runID, key, value)
	if err != nil {
		return errors.Wrapf(err, "failed to log param %s for run %s", key, runID)
	}
	return nil
}

// LogParams records several parameters
func (s *Store) LogParams(runID string, params map[string]string) error {
	for k, v := range params {
		if err := s.LogParam(runID, k, v); err != nil {
			return err
		}
	}
	return nil
}

// LogMetric records a numeric metric, replacing an earlier value for the same key
func (s *Store) LogMetric(runID, key string, value float64) error {
	_, err := s.db.Exec(`INSERT OR REPLACE INTO run_metrics (run_id, key, value, logged_at) VALUES (?, ?, ?, ?)`,
		runID, key, value, s.now())
	if err != nil {
		return errors.Wrapf(err, "failed to log metric %s for run %s", key, runID)
	}
	return nil
}

// EndRun moves a run to a terminal status
func (s *Store) EndRun(runID string, status RunStatus) error {
	if !status.Terminal() {
		return errors.Newf("cannot end run with non-terminal status %s", status)
	}

	res, err := s.db.Exec(`UPDATE runs SET status = ?, ended_at = ? WHERE id = ?`, string(status), s.now(), runID)
	if err != nil {
		return errors.Wrapf(err, "failed to end run %s", runID)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return errors.Wrapf(err, "failed to end run %s", runID)
	}
	if n == 0 {
		return errors.NewNotFoundError("run %s not found", runID)
	}

	s.logger.Debugw("Run ended", logger.FieldRunID, runID, "status", status)
	return nil
}

const runColumns = `id, experiment_id, status, started_at, ended_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var r Run
	var status string
	var ended sql.NullTime
	if err := row.Scan(&r.ID, &r.ExperimentID, &status, &r.StartedAt, &ended); err != nil {
		return nil, err
	}
	r.Status = RunStatus(status)
	if ended.Valid {
		t := ended.Time
		r.EndedAt = &t
	}
	return &r, nil
}

// GetRun returns a run by id
func (s *Store) GetRun(runID string) (*Run, error) {
	r, err := scanRun(s.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, runID))
	if err == sql.ErrNoRows {
		return nil, errors.NewNotFoundError("run %s not found", runID)
	}
	if err != nil {
		return nil, errors.Wrapf(err, "failed to get run %s", runID)
	}
	return r, nil
}

// ListRuns returns the runs of an experiment, newest first
func (s *Store) ListRuns(experimentID int64) ([]Run, error) {
	rows, err := s.db.Query(`SELECT `+runColumns+` FROM runs WHERE experiment_id = ? ORDER BY started_at DESC, rowid DESC`, experimentID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to list runs for experiment %d", experimentID)
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan run")
		}
		out = append(out, *r)
	}
	return out, errors.Wrap(rows.Err(), "failed to iterate runs")
}

// RunParams returns all parameters of a run
func (s *Store) RunParams(runID string) (map[string]string, error) {
	rows, err := s.db.Query(`SELECT key, value FROM run_params WHERE run_id = ?`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query params for run %s", runID)
	}
	defer rows.Close()

	params := make(map[string]string)
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errors.Wrap(err, "failed to scan param")
		}
		params[k] = v
	}
	return params, errors.Wrap(rows.Err(), "failed to iterate params")
}

// RunMetrics returns all metrics of a run
func (s *Store) RunMetrics(runID string) (map[string]float64, error) {
	rows, err := s.db.Query(`SELECT key, value FROM run_metrics WHERE run_id = ?`, runID)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to query metrics for run %s", runID)
	}
	defer rows.Close()

	metrics := make(map[string]float64)
	for rows.Next() {
		var k string
		var v float64
		if err := rows.Scan(&k, &v); err != nil {
			return nil, errors.Wrap(err, "failed to scan metric")
		}
		metrics[k] = v
	}
	return metrics, errors.Wrap(rows.Err(), "failed to iterate metrics")
}
