package report

import (
	"fmt"

	"github.com/chmdznr/box-folder-sync/pkg/models"
	"github.com/xuri/excelize/v2"
)

// auditHeader lists the columns of every audit sheet.
var auditHeader = []interface{}{"Timestamp", "Relative Path", "Status"}

// highlightColor is the fill applied to problem rows on the primary sheet.
const highlightColor = "FFC7CE"

// problemStatuses drive row highlighting on the primary sheet.
var problemStatuses = map[string]bool{
	models.StatusMissingInternal:  true,
	models.StatusMissingExternal:  true,
	models.StatusSizeMismatch:     true,
	models.StatusChecksumMismatch: true,
}

// AppendAudit adds the run's audit sheet named audit_<runTS> to the
// workbook and flags problem rows on the primary sheet. The inventory must
// already be saved; audit records are in inventory order, so record i maps
// to primary-sheet row i+2. Callers treat a failure here as loggable, not
// fatal — the inventory data is durable by the time this runs.
func AppendAudit(reportPath, runTS string, records []models.AuditRecord) error {
	f, err := excelize.OpenFile(reportPath)
	if err != nil {
		return fmt.Errorf("failed to open report %s: %v", reportPath, err)
	}
	defer f.Close()

	sheetName := "audit_" + runTS
	if _, err := f.NewSheet(sheetName); err != nil {
		return fmt.Errorf("failed to create audit sheet %s: %v", sheetName, err)
	}
	if err := f.SetSheetRow(sheetName, "A1", &auditHeader); err != nil {
		return fmt.Errorf("failed to write audit header: %v", err)
	}
	for i, rec := range records {
		row := []interface{}{rec.Timestamp, rec.RelativePath, rec.Status}
		if err := f.SetSheetRow(sheetName, fmt.Sprintf("A%d", i+2), &row); err != nil {
			return fmt.Errorf("failed to write audit row %d: %v", i+2, err)
		}
	}

	if err := highlightProblems(f, records); err != nil {
		return err
	}

	if err := f.Save(); err != nil {
		return fmt.Errorf("failed to save report %s: %v", reportPath, err)
	}
	return nil
}

func highlightProblems(f *excelize.File, records []models.AuditRecord) error {
	style, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{highlightColor}},
	})
	if err != nil {
		return fmt.Errorf("failed to create highlight style: %v", err)
	}

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return fmt.Errorf("report has no primary sheet")
	}
	main := sheets[0]

	for i, rec := range records {
		if !problemStatuses[rec.Status] {
			continue
		}
		row := i + 2
		err := f.SetCellStyle(main, fmt.Sprintf("A%d", row), fmt.Sprintf("E%d", row), style)
		if err != nil {
			return fmt.Errorf("failed to highlight row %d: %v", row, err)
		}
	}
	return nil
}
