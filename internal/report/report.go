// Package report owns the persisted spreadsheet artifact: the inventory on
// the primary sheet, one audit sheet per run, and rotated backup copies of
// the workbook.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/chmdznr/box-folder-sync/pkg/models"
	"github.com/xuri/excelize/v2"
)

// inventorySheet names the primary sheet when the workbook is first
// created. Loading and saving always target the first sheet regardless of
// its name, so workbooks renamed by hand keep working.
const inventorySheet = "Sheet1"

// inventoryHeader lists the primary sheet columns in order. The header text
// is part of the artifact format.
var inventoryHeader = []interface{}{
	"Relative Path",
	"Source Path",
	"Date Copied to Folder 1",
	"Exists in Folder 1",
	"Exists in Folder 2",
}

// Load reads the inventory from the report workbook, then walks the
// external tree and appends one record per file not yet known, so trees
// that grow between runs are picked up. When no report exists the walk
// bootstraps the whole inventory. Row order of previously persisted
// records is preserved; new files land at the end in walk order.
func Load(reportPath, externalRoot string) ([]models.FileRecord, error) {
	var records []models.FileRecord

	if _, err := os.Stat(reportPath); err == nil {
		records, err = readInventory(reportPath)
		if err != nil {
			return nil, err
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to stat report %s: %v", reportPath, err)
	}

	known := make(map[string]bool, len(records))
	for _, rec := range records {
		known[rec.RelativePath] = true
	}

	err := filepath.Walk(externalRoot, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		relPath, err := filepath.Rel(externalRoot, path)
		if err != nil {
			return err
		}
		if known[relPath] {
			return nil
		}
		records = append(records, models.FileRecord{
			RelativePath:   relPath,
			SourcePath:     path,
			ExistsExternal: true,
		})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan external tree %s: %v", externalRoot, err)
	}

	return records, nil
}

func readInventory(reportPath string) ([]models.FileRecord, error) {
	f, err := excelize.OpenFile(reportPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open report %s: %v", reportPath, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("report %s has no sheets", reportPath)
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read report %s: %v", reportPath, err)
	}

	var records []models.FileRecord
	for i, row := range rows {
		if i == 0 {
			continue // header row
		}
		if cell(row, 0) == "" {
			continue
		}
		records = append(records, models.FileRecord{
			RelativePath:   cell(row, 0),
			SourcePath:     cell(row, 1),
			DateCopied:     cell(row, 2),
			ExistsInternal: parseBool(cell(row, 3)),
			ExistsExternal: parseBool(cell(row, 4)),
		})
	}
	return records, nil
}

// cell tolerates short rows; excelize drops trailing empty cells.
func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// parseBool accepts both the TRUE/FALSE excelize renders for boolean cells
// and the raw 1/0 stored in the sheet XML.
func parseBool(s string) bool {
	return strings.EqualFold(s, "true") || s == "1"
}

// Save rewrites the primary sheet with the full record set, leaving audit
// sheets from earlier runs untouched. The workbook is created when absent.
func Save(records []models.FileRecord, reportPath string) error {
	var f *excelize.File
	sheet := inventorySheet

	if _, err := os.Stat(reportPath); err == nil {
		f, err = excelize.OpenFile(reportPath)
		if err != nil {
			return fmt.Errorf("failed to open report %s: %v", reportPath, err)
		}
		if sheets := f.GetSheetList(); len(sheets) > 0 {
			sheet = sheets[0]
		}
	} else if os.IsNotExist(err) {
		f = excelize.NewFile()
	} else {
		return fmt.Errorf("failed to stat report %s: %v", reportPath, err)
	}
	defer f.Close()

	oldRows, err := f.GetRows(sheet)
	if err != nil {
		return fmt.Errorf("failed to read report %s: %v", reportPath, err)
	}

	if err := f.SetSheetRow(sheet, "A1", &inventoryHeader); err != nil {
		return fmt.Errorf("failed to write header: %v", err)
	}
	for i, rec := range records {
		row := []interface{}{
			rec.RelativePath,
			rec.SourcePath,
			rec.DateCopied,
			rec.ExistsInternal,
			rec.ExistsExternal,
		}
		if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("failed to write row %d: %v", i+2, err)
		}
	}

	// Clear stale rows below the new record set, bottom up so indices stay
	// valid.
	for r := len(oldRows); r > len(records)+1; r-- {
		if err := f.RemoveRow(sheet, r); err != nil {
			return fmt.Errorf("failed to remove stale row %d: %v", r, err)
		}
	}

	if err := f.SaveAs(reportPath); err != nil {
		return fmt.Errorf("failed to save report %s: %v", reportPath, err)
	}
	return nil
}
