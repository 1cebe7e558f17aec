package report

import (
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// DefaultKeepBackups bounds backup retention when a project does not set
// its own limit.
const DefaultKeepBackups = 7

// Backup snapshots the report to <base>_backup_<runTS><ext> beside it,
// preserving the modification time, then prunes old snapshots down to
// keepLast. Nothing happens when the report does not exist yet (first
// run). Prune failures are logged, never returned.
func Backup(reportPath, runTS string, keepLast int) error {
	info, err := os.Stat(reportPath)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat report %s: %v", reportPath, err)
	}

	backupPath := backupName(reportPath, runTS)
	if err := copyFile(reportPath, backupPath, info.ModTime()); err != nil {
		return fmt.Errorf("failed to back up report to %s: %v", backupPath, err)
	}

	pruneBackups(reportPath, keepLast)
	return nil
}

func backupName(reportPath, runTS string) string {
	ext := filepath.Ext(reportPath)
	base := strings.TrimSuffix(reportPath, ext)
	return fmt.Sprintf("%s_backup_%s%s", base, runTS, ext)
}

func backupPattern(reportPath string) string {
	ext := filepath.Ext(reportPath)
	base := strings.TrimSuffix(reportPath, ext)
	return base + "_backup_*" + ext
}

func copyFile(src, dst string, modTime time.Time) error {
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
	return os.Chtimes(dst, modTime, modTime)
}

// pruneBackups deletes every backup past the keepLast most recent by
// modification time. Retention is best effort.
func pruneBackups(reportPath string, keepLast int) {
	if keepLast <= 0 {
		keepLast = DefaultKeepBackups
	}

	matches, err := filepath.Glob(backupPattern(reportPath))
	if err != nil {
		log.Printf("Failed to list backups for %s: %v", reportPath, err)
		return
	}

	type backup struct {
		path    string
		modTime time.Time
	}
	var backups []backup
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			continue
		}
		backups = append(backups, backup{path: m, modTime: info.ModTime()})
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].modTime.After(backups[j].modTime)
	})

	for _, old := range backups[min(keepLast, len(backups)):] {
		if err := os.Remove(old.path); err != nil {
			log.Printf("Failed to delete old backup %s: %v", old.path, err)
		}
	}
}
