// Package store provides SQLite-backed persistence for dagsmith.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fentz26/dagsmith/internal/models"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// ErrProjectNotFound indicates no project is stored under the given name.
var ErrProjectNotFound = errors.New("project not found")

// ErrDeploymentNotFound indicates no deployment has the given ID.
var ErrDeploymentNotFound = errors.New("deployment not found")

// ErrDeploymentChanged indicates the deployment moved since it was read.
var ErrDeploymentChanged = errors.New("deployment changed concurrently")

// Store provides access to the dagsmith SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and runs migrations.
func New(dbPath string) (*Store, error) {
	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer at a time
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS projects (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL UNIQUE,
		config TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS deployments (
		id TEXT PRIMARY KEY,
		project TEXT NOT NULL,
		mode TEXT NOT NULL,
		phase TEXT NOT NULL,
		step_done INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		deployment_id TEXT NOT NULL,
		phase TEXT NOT NULL,
		commands TEXT NOT NULL,
		output TEXT,
		outcome TEXT,
		started_at DATETIME NOT NULL,
		ended_at DATETIME,
		FOREIGN KEY (deployment_id) REFERENCES deployments(id)
	);

	CREATE TABLE IF NOT EXISTS pdr (
		id TEXT PRIMARY KEY,
		action TEXT NOT NULL,
		inputs_hash TEXT NOT NULL,
		outcome TEXT NOT NULL,
		project TEXT,
		details TEXT,
		timestamp DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_deployments_project ON deployments(project);
	CREATE INDEX IF NOT EXISTS idx_runs_deployment_id ON runs(deployment_id);
	CREATE INDEX IF NOT EXISTS idx_pdr_project ON pdr(project);
	`

	_, err := s.db.Exec(schema)
	return err
}

// --- Project Operations ---

// SaveProject inserts cfg or replaces the stored config with the same name.
// The caller's value is copied before encoding.
func (s *Store) SaveProject(ctx context.Context, cfg *models.ProjectConfig) (*models.ProjectRecord, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, fmt.Errorf("save project: %w: project name is required", models.ErrInvalidConfig)
	}
	snapshot := cfg.Clone()
	data, err := json.Marshal(snapshot)
	if err != nil {
		return nil, fmt.Errorf("encode project: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	rec := &models.ProjectRecord{Name: snapshot.Name, Config: snapshot, UpdatedAt: now}

	err = tx.QueryRowContext(ctx, `SELECT id, created_at FROM projects WHERE name = ?`, snapshot.Name).
		Scan(&rec.ID, &rec.CreatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		rec.ID = uuid.New().String()
		rec.CreatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO projects (id, name, config, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			rec.ID, rec.Name, string(data), rec.CreatedAt, rec.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("insert project: %w", err)
		}
	case err != nil:
		return nil, fmt.Errorf("query project: %w", err)
	default:
		_, err = tx.ExecContext(ctx,
			`UPDATE projects SET config = ?, updated_at = ? WHERE id = ?`,
			string(data), rec.UpdatedAt, rec.ID,
		)
		if err != nil {
			return nil, fmt.Errorf("update project: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit project: %w", err)
	}
	return rec, nil
}

// GetProject retrieves a stored project by name.
func (s *Store) GetProject(ctx context.Context, name string) (*models.ProjectRecord, error) {
	rec := &models.ProjectRecord{}
	var data string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, config, created_at, updated_at FROM projects WHERE name = ?`, name,
	).Scan(&rec.ID, &rec.Name, &data, &rec.CreatedAt, &rec.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("query project: %w", err)
	}
	if err := json.Unmarshal([]byte(data), &rec.Config); err != nil {
		return nil, fmt.Errorf("decode project %s: %w", name, err)
	}
	return rec, nil
}

// LoadProject returns a fresh copy of the stored config.
func (s *Store) LoadProject(ctx context.Context, name string) (*models.ProjectConfig, error) {
	rec, err := s.GetProject(ctx, name)
	if err != nil {
		return nil, err
	}
	return &rec.Config, nil
}

// ListProjects returns a summary of every stored project, most recently
// updated first.
func (s *Store) ListProjects(ctx context.Context) ([]models.ProjectSummary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, config, updated_at FROM projects ORDER BY updated_at DESC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("query projects: %w", err)
	}
	defer rows.Close()

	var out []models.ProjectSummary
	for rows.Next() {
		var (
			id, data string
			updated  time.Time
			cfg      models.ProjectConfig
		)
		if err := rows.Scan(&id, &data, &updated); err != nil {
			return nil, fmt.Errorf("scan project: %w", err)
		}
		if err := json.Unmarshal([]byte(data), &cfg); err != nil {
			return nil, fmt.Errorf("decode project %s: %w", id, err)
		}
		sum := cfg.Summary()
		sum.ID = id
		sum.UpdatedAt = updated
		out = append(out, sum)
	}
	return out, rows.Err()
}

// DeleteProject removes a project by name.
func (s *Store) DeleteProject(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM projects WHERE name = ?`, name)
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrProjectNotFound, name)
	}
	return nil
}

// --- Deployment Operations ---

// CreateDeployment starts a deployment record for project.
func (s *Store) CreateDeployment(ctx context.Context, project, mode, phase string) (*models.Deployment, error) {
	now := time.Now().UTC()
	d := &models.Deployment{
		ID:        uuid.New().String(),
		Project:   project,
		Mode:      mode,
		Phase:     phase,
		CreatedAt: now,
		UpdatedAt: now,
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO deployments (id, project, mode, phase, step_done, created_at, updated_at) VALUES (?, ?, ?, ?, 0, ?, ?)`,
		d.ID, d.Project, d.Mode, d.Phase, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert deployment: %w", err)
	}
	return d, nil
}

// GetDeployment retrieves a deployment by ID.
func (s *Store) GetDeployment(ctx context.Context, id string) (*models.Deployment, error) {
	d := &models.Deployment{}
	err := s.db.QueryRowContext(ctx,
		`SELECT id, project, mode, phase, step_done, created_at, updated_at FROM deployments WHERE id = ?`, id,
	).Scan(&d.ID, &d.Project, &d.Mode, &d.Phase, &d.StepDone, &d.CreatedAt, &d.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrDeploymentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("query deployment: %w", err)
	}
	return d, nil
}

// UpdateDeploymentPhase stores the current phase and step state.
func (s *Store) UpdateDeploymentPhase(ctx context.Context, id, phase string, stepDone bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE deployments SET phase = ?, step_done = ?, updated_at = ? WHERE id = ?`,
		phase, stepDone, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update deployment: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrDeploymentNotFound, id)
	}
	return nil
}

// TransitionDeployment moves a deployment from the state (fromPhase,
// fromDone) to (phase, stepDone). It returns ErrDeploymentChanged when the
// stored state no longer matches the one the caller read.
func (s *Store) TransitionDeployment(ctx context.Context, id, fromPhase string, fromDone bool, phase string, stepDone bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE deployments SET phase = ?, step_done = ?, updated_at = ? WHERE id = ? AND phase = ? AND step_done = ?`,
		phase, stepDone, time.Now().UTC(), id, fromPhase, fromDone,
	)
	if err != nil {
		return fmt.Errorf("transition deployment: %w", err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	if _, err := s.GetDeployment(ctx, id); err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is no longer %s", ErrDeploymentChanged, id, fromPhase)
}

// ListDeployments returns the deployments of a project, newest first.
func (s *Store) ListDeployments(ctx context.Context, project string) ([]models.Deployment, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, project, mode, phase, step_done, created_at, updated_at FROM deployments WHERE project = ? ORDER BY created_at DESC`,
		project,
	)
	if err != nil {
		return nil, fmt.Errorf("query deployments: %w", err)
	}
	defer rows.Close()

	var out []models.Deployment
	for rows.Next() {
		var d models.Deployment
		if err := rows.Scan(&d.ID, &d.Project, &d.Mode, &d.Phase, &d.StepDone, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan deployment: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// --- Run Operations ---

// CreateRun records the start of a command sequence.
func (s *Store) CreateRun(ctx context.Context, deploymentID, phase string, commands []string) (*models.Run, error) {
	cmdJSON, _ := json.Marshal(commands)
	run := &models.Run{
		ID:           uuid.New().String(),
		DeploymentID: deploymentID,
		Phase:        phase,
		Commands:     commands,
		StartedAt:    time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, deployment_id, phase, commands, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.DeploymentID, run.Phase, string(cmdJSON), run.StartedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// FinishRun stores the transcript and outcome of a run.
func (s *Store) FinishRun(ctx context.Context, id, output, outcome string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE runs SET output = ?, outcome = ?, ended_at = ? WHERE id = ?`,
		output, outcome, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	return nil
}

// GetRunsForDeployment returns the runs of a deployment in start order.
func (s *Store) GetRunsForDeployment(ctx context.Context, deploymentID string) ([]models.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, deployment_id, phase, commands, output, outcome, started_at, ended_at FROM runs WHERE deployment_id = ? ORDER BY started_at`,
		deploymentID,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var (
			run             models.Run
			cmdJSON         string
			output, outcome sql.NullString
			endedAt         sql.NullTime
		)
		if err := rows.Scan(&run.ID, &run.DeploymentID, &run.Phase, &cmdJSON, &output, &outcome, &run.StartedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if err := json.Unmarshal([]byte(cmdJSON), &run.Commands); err != nil {
			return nil, fmt.Errorf("decode run commands: %w", err)
		}
		run.Output = output.String
		run.Outcome = outcome.String
		if endedAt.Valid {
			run.EndedAt = &endedAt.Time
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// --- PDR Operations ---

// WritePDR writes a Process Decision Record.
func (s *Store) WritePDR(action, inputsHash, outcome, project, details string) (*models.PDREntry, error) {
	now := time.Now().UTC()
	pdr := &models.PDREntry{
		ID:         uuid.New().String(),
		Action:     action,
		InputsHash: inputsHash,
		Outcome:    outcome,
		Project:    project,
		Details:    details,
		Timestamp:  now,
	}

	_, err := s.db.Exec(
		`INSERT INTO pdr (id, action, inputs_hash, outcome, project, details, timestamp) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		pdr.ID, pdr.Action, pdr.InputsHash, pdr.Outcome, pdr.Project, pdr.Details, pdr.Timestamp,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pdr: %w", err)
	}
	return pdr, nil
}

// ListPDR returns audit records, newest first. An empty project lists all.
func (s *Store) ListPDR(ctx context.Context, project string, limit int) ([]models.PDREntry, error) {
	query := `SELECT id, action, inputs_hash, outcome, project, details, timestamp FROM pdr`
	var args []interface{}
	if project != "" {
		query += ` WHERE project = ?`
		args = append(args, project)
	}
	query += ` ORDER BY timestamp DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pdr: %w", err)
	}
	defer rows.Close()

	var out []models.PDREntry
	for rows.Next() {
		var (
			e                models.PDREntry
			project, details sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.InputsHash, &e.Outcome, &project, &details, &e.Timestamp); err != nil {
			return nil, fmt.Errorf("scan pdr: %w", err)
		}
		e.Project = project.String
		e.Details = details.String
		out = append(out, e)
	}
	return out, rows.Err()
}
