// Package db persists project configuration and the run history in a
// per-project sqlite database.
package db

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/chmdznr/box-folder-sync/pkg/models"
	_ "github.com/mattn/go-sqlite3"
)

const timeLayout = "2006-01-02 15:04:05"

// DB represents a database connection
type DB struct {
	*sql.DB
}

// New creates a new database connection for a project. Each project gets
// its own <name>.db in the working directory.
func New(projectName string) (*DB, error) {
	dbPath := fmt.Sprintf("%s.db", projectName)
	sqlDB, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	db := &DB{sqlDB}
	if err := db.initialize(); err != nil {
		sqlDB.Close()
		return nil, err
	}

	return db, nil
}

// initialize creates the necessary tables if they don't exist
func (db *DB) initialize() error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS projects (
			name TEXT PRIMARY KEY,
			internal_path TEXT,
			external_path TEXT,
			report_path TEXT,
			keep_backups INTEGER,
			checksum_algo TEXT
		);
		CREATE TABLE IF NOT EXISTS runs (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			project_name TEXT,
			started_at DATETIME,
			finished_at DATETIME,
			copied INTEGER,
			verified INTEGER,
			mismatched INTEGER,
			missing INTEGER,
			errors INTEGER,
			FOREIGN KEY (project_name) REFERENCES projects(name)
		);
		CREATE INDEX IF NOT EXISTS idx_runs_project ON runs(project_name, started_at);
		PRAGMA journal_mode=WAL;
		PRAGMA synchronous=NORMAL;
	`)
	return err
}

// GetProject retrieves a project by name
func (db *DB) GetProject(name string) (*models.Project, error) {
	var project models.Project
	err := db.QueryRow(`
		SELECT name, internal_path, external_path, report_path, keep_backups, checksum_algo
		FROM projects WHERE name = ?
	`, name).Scan(
		&project.Name,
		&project.InternalPath,
		&project.ExternalPath,
		&project.ReportPath,
		&project.KeepBackups,
		&project.ChecksumAlgo,
	)
	if err != nil {
		return nil, fmt.Errorf("project not found: %v", err)
	}
	return &project, nil
}

// CreateProject creates a new project
func (db *DB) CreateProject(project *models.Project) error {
	_, err := db.Exec(`
		INSERT INTO projects (name, internal_path, external_path, report_path, keep_backups, checksum_algo)
		VALUES (?, ?, ?, ?, ?, ?)
	`,
		project.Name,
		project.InternalPath,
		project.ExternalPath,
		project.ReportPath,
		project.KeepBackups,
		project.ChecksumAlgo,
	)
	return err
}

// RecordRun appends one run's aggregate counters to the history table.
func (db *DB) RecordRun(projectName string, startedAt, finishedAt time.Time, result *models.RunResult) error {
	_, err := db.Exec(`
		INSERT INTO runs (project_name, started_at, finished_at, copied, verified, mismatched, missing, errors)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`,
		projectName,
		startedAt.Format(timeLayout),
		finishedAt.Format(timeLayout),
		result.Copied,
		result.Verified,
		result.Mismatched,
		result.Missing,
		len(result.ErrorLines),
	)
	return err
}

// GetRuns retrieves the run history for a project, newest first. A limit
// of zero or less returns everything.
func (db *DB) GetRuns(projectName string, limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := db.Query(`
		SELECT id, project_name, started_at, finished_at, copied, verified, mismatched, missing, errors
		FROM runs
		WHERE project_name = ?
		ORDER BY id DESC
		LIMIT ?
	`, projectName, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []models.Run
	for rows.Next() {
		var run models.Run
		var started, finished string
		err = rows.Scan(
			&run.ID,
			&run.Project,
			&started,
			&finished,
			&run.Copied,
			&run.Verified,
			&run.Mismatched,
			&run.Missing,
			&run.Errors,
		)
		if err != nil {
			return nil, err
		}
		run.StartedAt, _ = time.Parse(timeLayout, started)
		run.FinishedAt, _ = time.Parse(timeLayout, finished)
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// GetLastRun returns the most recent run, or nil when none exist.
func (db *DB) GetLastRun(projectName string) (*models.Run, error) {
	runs, err := db.GetRuns(projectName, 1)
	if err != nil {
		return nil, err
	}
	if len(runs) == 0 {
		return nil, nil
	}
	return &runs[0], nil
}

// GetStats returns run history totals for the project.
func (db *DB) GetStats(projectName string) (*models.Stats, error) {
	var stats models.Stats
	err := db.QueryRow(`
		SELECT
			COUNT(*) as total_runs,
			COALESCE(SUM(copied), 0) as total_copied,
			COALESCE(SUM(verified), 0) as total_verified,
			COALESCE(SUM(mismatched), 0) as total_mismatched,
			COALESCE(SUM(missing), 0) as total_missing,
			COALESCE(SUM(errors), 0) as total_errors
		FROM runs
		WHERE project_name = ?
	`, projectName).Scan(
		&stats.TotalRuns,
		&stats.TotalCopied,
		&stats.TotalVerified,
		&stats.TotalMismatched,
		&stats.TotalMissing,
		&stats.TotalErrors,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to get stats: %v", err)
	}
	return &stats, nil
}
