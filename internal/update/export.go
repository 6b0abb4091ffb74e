package update

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

// Dry-run export formats.
const (
	FormatCSV  = "csv"
	FormatXLSX = "xlsx"
)

// XLSX sheet names.
const (
	sheetChanges = "Changes"
	sheetSummary = "Summary"
	sheetErrors  = "Errors"
)

var (
	changeHeader  = []string{"package_id", "package_name", "field", "old_value", "new_value"}
	summaryHeader = []string{
		"run_id", "total_packages", "processed_packages", "updated_packages",
		"skipped_packages", "failed_packages", "repository_updates",
		"publication_updates", "github_data_updates", "citation_updates",
		"total_changes",
	}
	errorHeader = []string{"package_id", "error", "type", "timestamp"}
)

// ExportDryRun writes the captured dry-run changes to outputPath. The CSV
// format produces the changes file plus summary and errors siblings; the
// XLSX format produces a single workbook with one sheet each. The path's
// extension decides the format when it names one, the format argument
// otherwise. A run without captured changes is not exported.
func ExportDryRun(sum Summary, outputPath, format string, logger zerolog.Logger) error {
	if len(sum.Changes) == 0 {
		logger.Warn().Msg("no dry run changes to export")
		return nil
	}

	switch resolveFormat(outputPath, format) {
	case FormatXLSX:
		return exportXLSX(sum, ensureExt(outputPath, ".xlsx"), logger)
	default:
		return exportCSV(sum, ensureExt(outputPath, ".csv"), logger)
	}
}

// resolveFormat picks the export format: a recognized path extension wins,
// then the explicit format, then CSV.
func resolveFormat(outputPath, format string) string {
	switch strings.ToLower(filepath.Ext(outputPath)) {
	case ".xlsx":
		return FormatXLSX
	case ".csv":
		return FormatCSV
	}
	if strings.EqualFold(format, FormatXLSX) {
		return FormatXLSX
	}
	return FormatCSV
}

// ensureExt swaps the path's extension for ext.
func ensureExt(path, ext string) string {
	if strings.EqualFold(filepath.Ext(path), ext) {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

func exportCSV(sum Summary, path string, logger zerolog.Logger) error {
	if err := writeCSV(path, changeHeader, changeRows(sum.Changes)); err != nil {
		return fmt.Errorf("writing changes: %w", err)
	}

	stem := strings.TrimSuffix(path, filepath.Ext(path))
	summaryPath := stem + "_summary.csv"
	if err := writeCSV(summaryPath, summaryHeader, [][]string{summaryRow(sum)}); err != nil {
		return fmt.Errorf("writing summary: %w", err)
	}
	logger.Info().
		Str("changes", path).
		Str("summary", summaryPath).
		Msg("dry run results exported")

	if len(sum.Errors) > 0 {
		errorsPath := stem + "_errors.csv"
		if err := writeCSV(errorsPath, errorHeader, errorRows(sum.Errors)); err != nil {
			return fmt.Errorf("writing errors: %w", err)
		}
		logger.Info().Str("errors", errorsPath).Msg("run errors exported")
	}
	return nil
}

func exportXLSX(sum Summary, path string, logger zerolog.Logger) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetChanges); err != nil {
		return fmt.Errorf("renaming changes sheet: %w", err)
	}
	if err := writeSheet(f, sheetChanges, changeHeader, changeRows(sum.Changes)); err != nil {
		return err
	}

	if _, err := f.NewSheet(sheetSummary); err != nil {
		return fmt.Errorf("creating summary sheet: %w", err)
	}
	if err := writeSheet(f, sheetSummary, summaryHeader, [][]string{summaryRow(sum)}); err != nil {
		return err
	}

	if len(sum.Errors) > 0 {
		if _, err := f.NewSheet(sheetErrors); err != nil {
			return fmt.Errorf("creating errors sheet: %w", err)
		}
		if err := writeSheet(f, sheetErrors, errorHeader, errorRows(sum.Errors)); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	logger.Info().Str("path", path).Msg("dry run results exported")
	return nil
}

func changeRows(changes []Change) [][]string {
	rows := make([][]string, len(changes))
	for i, c := range changes {
		rows[i] = []string{c.RecordID, c.Name, c.Field, c.Old, c.New}
	}
	return rows
}

func summaryRow(sum Summary) []string {
	return []string{
		sum.RunID,
		strconv.Itoa(sum.Total),
		strconv.Itoa(sum.Processed),
		strconv.Itoa(sum.Updated),
		strconv.Itoa(sum.Skipped),
		strconv.Itoa(sum.Failed),
		strconv.Itoa(sum.RepositoryUpdates),
		strconv.Itoa(sum.PublicationUpdates),
		strconv.Itoa(sum.GitHubDataUpdates),
		strconv.Itoa(sum.CitationUpdates),
		strconv.Itoa(len(sum.Changes)),
	}
}

func errorRows(errs []RunError) [][]string {
	rows := make([][]string, len(errs))
	for i, e := range errs {
		rows[i] = []string{
			e.RecordID,
			e.Message,
			string(e.Category),
			e.Timestamp.UTC().Format(time.RFC3339),
		}
	}
	return rows
}

func writeCSV(path string, header []string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return fmt.Errorf("writing header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		return fmt.Errorf("writing rows: %w", err)
	}
	return w.Error()
}

func writeSheet(f *excelize.File, sheet string, header []string, rows [][]string) error {
	if err := setRow(f, sheet, 1, header); err != nil {
		return err
	}
	for i, row := range rows {
		if err := setRow(f, sheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func setRow(f *excelize.File, sheet string, row int, values []string) error {
	cells := make([]any, len(values))
	for i, v := range values {
		cells[i] = v
	}
	if err := f.SetSheetRow(sheet, fmt.Sprintf("A%d", row), &cells); err != nil {
		return fmt.Errorf("writing %s row %d: %w", sheet, row, err)
	}
	return nil
}
