package main

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/cheggaaa/pb/v3"
	"github.com/chmdznr/box-folder-sync/internal/db"
	"github.com/chmdznr/box-folder-sync/internal/report"
	"github.com/chmdznr/box-folder-sync/internal/sync"
	"github.com/chmdznr/box-folder-sync/pkg/checksum"
	"github.com/chmdznr/box-folder-sync/pkg/models"
	"github.com/chmdznr/box-folder-sync/pkg/utils"
	"github.com/chmdznr/box-folder-sync/pkg/version"
	"github.com/eiannone/keyboard"
	"github.com/urfave/cli/v2"
)

const defaultReportName = "missing_files_report.xlsx"

func main() {
	cli.VersionFlag = &cli.BoolFlag{
		Name:    "version",
		Aliases: []string{"v"},
		Usage:   "print the version",
	}

	app := &cli.App{
		Name:                 "boxsync",
		Usage:                "Folder sync and audit tool for mirroring an external folder with verification",
		Version:              version.Version,
		EnableBashCompletion: true,
		Commands: []*cli.Command{
			{
				Name:  "version",
				Usage: "Print detailed version information",
				Action: func(c *cli.Context) error {
					fmt.Printf("Version:    %s\n", version.Version)
					fmt.Printf("Git commit: %s\n", version.GitCommit)
					fmt.Printf("Built:      %s\n", version.BuildTime)
					return nil
				},
			},
			{
				Name:  "create",
				Usage: "Create a new sync project",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "name",
						Usage:    "Project name",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "internal",
						Usage:    "Internal folder (Folder 1), the mirror being filled",
						Required: true,
					},
					&cli.StringFlag{
						Name:     "external",
						Usage:    "External folder (Folder 2), the source of truth",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "report",
						Usage: "Path of the report workbook",
						Value: defaultReportName,
					},
					&cli.IntFlag{
						Name:  "keep-backups",
						Usage: "Number of report backups to retain",
						Value: report.DefaultKeepBackups,
					},
					&cli.StringFlag{
						Name:  "checksum",
						Usage: "Checksum algorithm (sha256, sha512, blake2b-256)",
						Value: checksum.DefaultAlgorithm,
					},
				},
				Action: createProject,
			},
			{
				Name:  "sync",
				Usage: "Run a sync and verify pass",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "project",
						Usage:    "Project name",
						Required: true,
					},
					&cli.BoolFlag{
						Name:  "force-recopy",
						Usage: "Re-copy files missing from the internal folder even if marked copied",
					},
					&cli.BoolFlag{
						Name:  "yes",
						Usage: "Skip the force-recopy confirmation prompt",
					},
					&cli.StringFlag{
						Name:  "log",
						Usage: "Error log path, written only when failures occurred",
						Value: "copy_errors.log",
					},
				},
				Action: startSync,
			},
			{
				Name:  "status",
				Usage: "Show project configuration and run totals",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "project",
						Usage:    "Project name",
						Required: true,
					},
				},
				Action: showStatus,
			},
			{
				Name:  "history",
				Usage: "List past runs",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "project",
						Usage:    "Project name",
						Required: true,
					},
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of runs to show (0 = all)",
						Value: 20,
					},
				},
				Action: showHistory,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// createProject registers a new sync pair: the internal mirror, the
// external source folder and the report workbook location.
func createProject(c *cli.Context) error {
	projectName := c.String("name")

	for _, flag := range []string{"internal", "external"} {
		info, err := os.Stat(c.String(flag))
		if err != nil {
			return fmt.Errorf("invalid %s folder: %v", flag, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("invalid %s folder: %s is not a directory", flag, c.String(flag))
		}
	}

	if _, err := checksum.New(c.String("checksum")); err != nil {
		return err
	}

	db, err := db.New(projectName)
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	project := &models.Project{
		Name:         projectName,
		InternalPath: c.String("internal"),
		ExternalPath: c.String("external"),
		ReportPath:   c.String("report"),
		KeepBackups:  c.Int("keep-backups"),
		ChecksumAlgo: c.String("checksum"),
	}

	if err := db.CreateProject(project); err != nil {
		return fmt.Errorf("failed to create project: %v", err)
	}

	fmt.Printf("Project '%s' created successfully\n", projectName)
	return nil
}

func startSync(c *cli.Context) error {
	projectName := c.String("project")
	force := c.Bool("force-recopy")

	db, err := db.New(projectName)
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	project, err := db.GetProject(projectName)
	if err != nil {
		return fmt.Errorf("failed to get project: %v", err)
	}

	if force && !c.Bool("yes") {
		ok, err := confirmForceRecopy()
		if err != nil {
			return err
		}
		if !ok {
			fmt.Println("Aborted.")
			return nil
		}
	}

	bar := pb.New(0)
	bar.SetTemplate(`{{counters . }} {{bar . }} {{percent . }} {{string . "file"}}`)
	barStarted := false

	syncerConfig := sync.SyncerConfig{
		Progress: func(current, total int) {
			if !barStarted {
				bar.SetTotal(int64(total))
				bar.Start()
				barStarted = true
			}
			bar.SetCurrent(int64(current))
		},
		Status: func(msg string) {
			bar.Set("file", msg)
		},
	}

	syncer, err := sync.NewSyncer(project, &syncerConfig)
	if err != nil {
		return fmt.Errorf("failed to create syncer: %v", err)
	}

	startedAt := time.Now()
	result, err := syncer.Run(force)
	if barStarted {
		bar.Finish()
	}
	if err != nil {
		return fmt.Errorf("sync failed: %v", err)
	}
	finishedAt := time.Now()

	if err := db.RecordRun(projectName, startedAt, finishedAt, result); err != nil {
		log.Printf("Failed to record run history: %v", err)
	}

	fmt.Printf("\nSync completed in %s:\n", utils.FormatDuration(finishedAt.Sub(startedAt)))
	fmt.Printf("- Copied:     %d\n", result.Copied)
	fmt.Printf("- Verified:   %d\n", result.Verified)
	fmt.Printf("- Mismatched: %d\n", result.Mismatched)
	fmt.Printf("- Missing:    %d\n", result.Missing)

	if len(result.ErrorLines) > 0 {
		logPath := c.String("log")
		content := strings.Join(result.ErrorLines, "\n") + "\n"
		if err := os.WriteFile(logPath, []byte(content), 0o644); err != nil {
			log.Printf("Failed to write error log %s: %v", logPath, err)
		}
		fmt.Printf("- Errors:     %d (see %s)\n", len(result.ErrorLines), logPath)
	}
	return nil
}

// confirmForceRecopy asks for a single y/N keypress before a force-recopy
// run, since it re-copies over anything missing from the internal folder.
func confirmForceRecopy() (bool, error) {
	fmt.Print("Force re-copy files missing from the internal folder? [y/N] ")
	char, key, err := keyboard.GetSingleKey()
	if err != nil {
		return false, fmt.Errorf("failed to read keyboard: %v", err)
	}
	if key == keyboard.KeyEnter || char == 0 {
		fmt.Println()
		return false, nil
	}
	fmt.Println(string(char))
	return char == 'y' || char == 'Y', nil
}

func showStatus(c *cli.Context) error {
	projectName := c.String("project")

	db, err := db.New(projectName)
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	project, err := db.GetProject(projectName)
	if err != nil {
		return fmt.Errorf("failed to get project: %v", err)
	}

	stats, err := db.GetStats(projectName)
	if err != nil {
		return fmt.Errorf("failed to get stats: %v", err)
	}

	fmt.Printf("Project: %s\n", project.Name)
	fmt.Printf("Internal Folder: %s\n", project.InternalPath)
	fmt.Printf("External Folder: %s\n", project.ExternalPath)
	fmt.Printf("Report: %s (keeping %d backups)\n", project.ReportPath, project.KeepBackups)
	fmt.Printf("Checksum: %s\n", project.ChecksumAlgo)
	fmt.Printf("Runs: %d\n", stats.TotalRuns)
	fmt.Printf("Total Copied: %d\n", stats.TotalCopied)
	fmt.Printf("Total Verified: %d\n", stats.TotalVerified)
	fmt.Printf("Total Mismatched: %d\n", stats.TotalMismatched)
	fmt.Printf("Total Missing: %d\n", stats.TotalMissing)

	last, err := db.GetLastRun(projectName)
	if err != nil {
		return fmt.Errorf("failed to get last run: %v", err)
	}
	if last != nil {
		fmt.Printf("Last Run: %s (took %s)\n",
			last.StartedAt.Format("2006-01-02 15:04:05"),
			utils.FormatDuration(last.FinishedAt.Sub(last.StartedAt)))
	}
	return nil
}

func showHistory(c *cli.Context) error {
	projectName := c.String("project")

	db, err := db.New(projectName)
	if err != nil {
		return fmt.Errorf("failed to open database: %v", err)
	}
	defer db.Close()

	runs, err := db.GetRuns(projectName, c.Int("limit"))
	if err != nil {
		return fmt.Errorf("failed to get run history: %v", err)
	}
	if len(runs) == 0 {
		fmt.Println("No runs recorded yet")
		return nil
	}

	fmt.Printf("%-20s %-10s %8s %9s %11s %8s %7s\n",
		"Started", "Duration", "Copied", "Verified", "Mismatched", "Missing", "Errors")
	for _, run := range runs {
		fmt.Printf("%-20s %-10s %8d %9d %11d %8d %7d\n",
			run.StartedAt.Format("2006-01-02 15:04:05"),
			utils.FormatDuration(run.FinishedAt.Sub(run.StartedAt)),
			run.Copied,
			run.Verified,
			run.Mismatched,
			run.Missing,
			run.Errors,
		)
	}
	return nil
}
