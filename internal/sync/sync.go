// Package sync implements the reconciliation pass between the internal
// mirror (Folder 1) and the external source of truth (Folder 2): copy
// files never copied before, verify the rest by size and checksum, and
// collect an audit trail for the report.
package sync

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/chmdznr/box-folder-sync/internal/report"
	"github.com/chmdznr/box-folder-sync/pkg/checksum"
	"github.com/chmdznr/box-folder-sync/pkg/models"
)

// ProgressFunc receives (processed, total) after every inventory record.
type ProgressFunc func(current, total int)

// StatusFunc receives a short human-readable message per file. Consumers
// must return quickly; callbacks run on the sync worker.
type StatusFunc func(message string)

// ErrRunInProgress is returned when Run is called while another run on the
// same Syncer has not finished. One run at a time is the only concurrency
// control: the pass itself is strictly sequential.
var ErrRunInProgress = errors.New("a sync run is already in progress")

// Syncer executes reconciliation runs for one project.
type Syncer struct {
	project     *models.Project
	keepBackups int
	progress    ProgressFunc
	status      StatusFunc
	running     int32

	// hashFile indirects digest computation so tests can count calls.
	hashFile func(path string) (string, error)
	now      func() time.Time
}

// SyncerConfig holds optional knobs for a Syncer. Zero values fall back to
// the project's persisted settings and then to package defaults.
type SyncerConfig struct {
	KeepBackups  int
	ChecksumAlgo string
	Progress     ProgressFunc
	Status       StatusFunc
}

// NewSyncer creates a syncer for the given project.
func NewSyncer(project *models.Project, config *SyncerConfig) (*Syncer, error) {
	if config == nil {
		config = &SyncerConfig{}
	}

	algo := config.ChecksumAlgo
	if algo == "" {
		algo = project.ChecksumAlgo
	}
	hasher, err := checksum.New(algo)
	if err != nil {
		return nil, err
	}

	keep := config.KeepBackups
	if keep <= 0 {
		keep = project.KeepBackups
	}
	if keep <= 0 {
		keep = report.DefaultKeepBackups
	}

	progress := config.Progress
	if progress == nil {
		progress = func(int, int) {}
	}
	status := config.Status
	if status == nil {
		status = func(string) {}
	}

	return &Syncer{
		project:     project,
		keepBackups: keep,
		progress:    progress,
		status:      status,
		hashFile:    hasher.File,
		now:         time.Now,
	}, nil
}

// Run executes one full pass over the inventory in persisted order and
// returns the aggregate counters plus the error-log lines. Per-file
// failures never abort the pass; inventory load and save failures do.
// Backup and audit-append failures are demoted to error lines because the
// inventory itself stays durable without them.
func (s *Syncer) Run(forceRecopy bool) (*models.RunResult, error) {
	if !atomic.CompareAndSwapInt32(&s.running, 0, 1) {
		return nil, ErrRunInProgress
	}
	defer atomic.StoreInt32(&s.running, 0)

	runTS := s.now().Format(models.RunTimestampLayout)
	result := &models.RunResult{}

	if err := report.Backup(s.project.ReportPath, runTS, s.keepBackups); err != nil {
		result.ErrorLines = append(result.ErrorLines, s.errorLine(err.Error()))
	}

	records, err := report.Load(s.project.ReportPath, s.project.ExternalPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load inventory: %v", err)
	}

	audit := make([]models.AuditRecord, 0, len(records))
	total := len(records)
	for i := range records {
		status := s.reconcile(&records[i], forceRecopy, result)
		audit = append(audit, models.AuditRecord{
			Timestamp:    runTS,
			RelativePath: records[i].RelativePath,
			Status:       status,
		})
		s.progress(i+1, total)
	}

	if err := report.Save(records, s.project.ReportPath); err != nil {
		return nil, fmt.Errorf("failed to save inventory: %v", err)
	}

	if err := report.AppendAudit(s.project.ReportPath, runTS, audit); err != nil {
		line := fmt.Sprintf("Failed to append audit sheet: %v", err)
		result.ErrorLines = append(result.ErrorLines, s.errorLine(line))
	}

	return result, nil
}

// reconcile applies the per-file decision to one record and returns its
// final status for the audit trail.
func (s *Syncer) reconcile(rec *models.FileRecord, forceRecopy bool, result *models.RunResult) string {
	destPath := filepath.Join(s.project.InternalPath, rec.RelativePath)

	rec.ExistsInternal = fileExists(destPath)
	rec.ExistsExternal = fileExists(rec.SourcePath)

	s.status("Processing: " + rec.RelativePath)

	// A file gone from the external tree is terminal: nothing to copy,
	// nothing to verify against.
	if !rec.ExistsExternal {
		result.Missing++
		line := models.StatusMissingExternal + " - " + rec.RelativePath
		result.ErrorLines = append(result.ErrorLines, s.errorLine(line))
		return models.StatusMissingExternal
	}

	if !rec.ExistsInternal && forceRecopy {
		// Treat the file as never copied so the copy branch below runs in
		// this same pass.
		rec.DateCopied = ""
	}

	var status string
	if rec.DateCopied == "" {
		if err := s.copyFile(rec.SourcePath, destPath); err != nil {
			status = fmt.Sprintf("Error copying: %v", err)
			result.ErrorLines = append(result.ErrorLines, s.errorLine(status+" - "+rec.RelativePath))
			// Verification is skipped for this record this run.
			return status
		}
		rec.DateCopied = s.now().Format(models.DateCopiedLayout)
		rec.ExistsInternal = true
		result.Copied++
		status = models.StatusCopied
	} else {
		status = models.StatusAlreadyCopied
	}

	if !fileExists(destPath) {
		// Already-copied on record but gone from the internal tree and no
		// force-recopy: nothing to verify this run.
		return status
	}

	if fileSize(rec.SourcePath) != fileSize(destPath) {
		// Size is the fast short-circuit; checksums are never computed on
		// a length mismatch.
		result.Mismatched++
		return models.StatusSizeMismatch
	}

	srcSum, err := s.hashFile(rec.SourcePath)
	var dstSum string
	if err == nil {
		dstSum, err = s.hashFile(destPath)
	}
	if err != nil {
		status = fmt.Sprintf("Error hashing: %v", err)
		result.ErrorLines = append(result.ErrorLines, s.errorLine(status+" - "+rec.RelativePath))
		return status
	}

	if srcSum != dstSum {
		result.Mismatched++
		return models.StatusChecksumMismatch
	}

	result.Verified++
	if status != models.StatusCopied {
		// A freshly copied file keeps Copied as its status for the run
		// even though it verified clean.
		status = models.StatusVerified
	}
	return status
}

// copyFile copies src to dst whole, creating parent directories and
// carrying over the source modification time.
func (s *Syncer) copyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

func (s *Syncer) errorLine(msg string) string {
	return fmt.Sprintf("[%s] %s", s.now().Format(models.DateCopiedLayout), msg)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// fileSize returns -1 when the file cannot be statted, which can never
// collide with a real length.
func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return -1
	}
	return info.Size()
}
