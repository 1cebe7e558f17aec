package db

import (
	"os"
	"testing"
	"time"

	"github.com/chmdznr/box-folder-sync/pkg/models"
)

// newTestDB opens a project database inside a temp working directory, since
// New resolves <name>.db relative to the working directory.
func newTestDB(t *testing.T) *DB {
	t.Helper()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatal(err)
	}
	if err := os.Chdir(t.TempDir()); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { os.Chdir(wd) })

	database, err := New("testproj")
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

func testProject() *models.Project {
	return &models.Project{
		Name:         "testproj",
		InternalPath: "/data/mirror",
		ExternalPath: "/mnt/box",
		ReportPath:   "/data/missing_files_report.xlsx",
		KeepBackups:  7,
		ChecksumAlgo: "sha256",
	}
}

func TestCreateAndGetProject(t *testing.T) {
	database := newTestDB(t)

	want := testProject()
	if err := database.CreateProject(want); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	got, err := database.GetProject("testproj")
	if err != nil {
		t.Fatalf("GetProject: %v", err)
	}
	if *got != *want {
		t.Errorf("GetProject = %+v; want %+v", got, want)
	}
}

func TestGetProjectMissing(t *testing.T) {
	database := newTestDB(t)

	if _, err := database.GetProject("no-such-project"); err == nil {
		t.Fatal("GetProject on unknown name should return an error")
	}
}

func TestRecordAndListRuns(t *testing.T) {
	database := newTestDB(t)
	if err := database.CreateProject(testProject()); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	base := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	results := []*models.RunResult{
		{Copied: 5, Verified: 5},
		{Copied: 0, Verified: 5, Mismatched: 1},
		{Copied: 2, Verified: 7, Missing: 1, ErrorLines: []string{"[ts] Missing in Folder 2 - x"}},
	}
	for i, result := range results {
		started := base.Add(time.Duration(i) * time.Hour)
		err := database.RecordRun("testproj", started, started.Add(time.Minute), result)
		if err != nil {
			t.Fatalf("RecordRun %d: %v", i, err)
		}
	}

	runs, err := database.GetRuns("testproj", 0)
	if err != nil {
		t.Fatalf("GetRuns: %v", err)
	}
	if len(runs) != 3 {
		t.Fatalf("got %d runs; want 3", len(runs))
	}
	// Newest first.
	if runs[0].Copied != 2 || runs[0].Missing != 1 || runs[0].Errors != 1 {
		t.Errorf("latest run = %+v; want the third recorded run", runs[0])
	}
	if !runs[0].StartedAt.After(runs[2].StartedAt) {
		t.Errorf("runs not newest-first: %v then %v", runs[0].StartedAt, runs[2].StartedAt)
	}

	limited, err := database.GetRuns("testproj", 2)
	if err != nil {
		t.Fatalf("GetRuns limited: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d runs with limit 2; want 2", len(limited))
	}

	last, err := database.GetLastRun("testproj")
	if err != nil {
		t.Fatalf("GetLastRun: %v", err)
	}
	if last == nil || last.Verified != 7 {
		t.Errorf("GetLastRun = %+v; want the third recorded run", last)
	}
}

func TestGetLastRunEmpty(t *testing.T) {
	database := newTestDB(t)
	if err := database.CreateProject(testProject()); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	last, err := database.GetLastRun("testproj")
	if err != nil {
		t.Fatalf("GetLastRun: %v", err)
	}
	if last != nil {
		t.Errorf("GetLastRun = %+v; want nil with no history", last)
	}
}

func TestGetStatsSumsHistory(t *testing.T) {
	database := newTestDB(t)
	if err := database.CreateProject(testProject()); err != nil {
		t.Fatalf("CreateProject: %v", err)
	}

	now := time.Now()
	runs := []*models.RunResult{
		{Copied: 3, Verified: 3},
		{Verified: 3, Mismatched: 2, Missing: 1},
	}
	for _, result := range runs {
		if err := database.RecordRun("testproj", now, now, result); err != nil {
			t.Fatalf("RecordRun: %v", err)
		}
	}

	stats, err := database.GetStats("testproj")
	if err != nil {
		t.Fatalf("GetStats: %v", err)
	}
	want := models.Stats{
		TotalRuns:       2,
		TotalCopied:     3,
		TotalVerified:   6,
		TotalMismatched: 2,
		TotalMissing:    1,
	}
	if *stats != want {
		t.Errorf("GetStats = %+v; want %+v", stats, want)
	}
}
