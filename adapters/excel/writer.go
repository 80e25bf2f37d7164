package excel

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"gobogey/domain/bogey"
	"gobogey/internal"

	"github.com/xuri/excelize/v2"
)

// ResultWriter writes evaluated records as a flat table.
type ResultWriter struct {
	filePath string
	logger   *internal.Logger
}

// NewResultWriter writes XLSX when filePath ends in .xlsx and CSV otherwise.
func NewResultWriter(filePath string, logger *internal.Logger) *ResultWriter {
	return &ResultWriter{filePath: filePath, logger: logger.With("ResultWriter")}
}

// Write replaces the output file with one row per record, in record order.
func (w *ResultWriter) Write(records []*bogey.Record) error {
	rows := make([][]string, 0, len(records)+1)
	rows = append(rows, ResultColumns)
	for _, r := range records {
		rows = append(rows, ResultRow(r))
	}

	var err error
	if strings.EqualFold(filepath.Ext(w.filePath), ".xlsx") {
		err = w.writeExcel(rows)
	} else {
		err = w.writeCSV(rows)
	}
	if err != nil {
		return err
	}
	w.logger.Info("wrote %d results to %s", len(records), w.filePath)
	return nil
}

func (w *ResultWriter) writeCSV(rows [][]string) error {
	file, err := os.Create(w.filePath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %w", err)
	}
	defer file.Close()

	cw := csv.NewWriter(file)
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write CSV file: %w", err)
	}
	return file.Close()
}

func (w *ResultWriter) writeExcel(rows [][]string) error {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Sheet1"
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return err
		}
		values := make([]interface{}, len(row))
		for j, v := range row {
			values[j] = cellValue(i, v)
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}
	if err := f.SaveAs(w.filePath); err != nil {
		return fmt.Errorf("failed to save Excel file: %w", err)
	}
	return nil
}

// cellValue stores numbers as numeric cells so spreadsheets can sort them.
func cellValue(row int, v string) interface{} {
	if row == 0 || v == "" {
		return v
	}
	if f, err := strconv.ParseFloat(v, 64); err == nil {
		return f
	}
	return v
}

// ResultRow renders one record in ResultColumns order. Missing values are
// empty cells.
func ResultRow(r *bogey.Record) []string {
	row := []string{
		r.Pair.P1,
		r.Pair.P2,
		bogey.FormatSequence(r.Historical),
		bogey.FormatSequence(r.Upsets),
		strconv.Itoa(r.Step1.Runs),
		strconv.Itoa(r.Step1.Count(bogey.NonUpset)),
		strconv.Itoa(r.Step1.Count(bogey.Upset)),
		strconv.Itoa(r.Matches()),
		formatFloat(r.Step1.Z),
		formatFloat(r.Step1.POneSided),
		formatFloat(r.Step1.PTwoSided),
	}

	if r.Step2.Performed {
		row = append(row,
			strconv.Itoa(r.Step2.Runs),
			strconv.Itoa(r.Step2.Count(bogey.UpsetWin)),
			strconv.Itoa(r.Step2.Count(bogey.UpsetLoss)),
		)
	} else {
		row = append(row, "", "", "")
	}

	return append(row,
		formatFloat(r.Step2.Z),
		formatFloat(r.Step2.POneSided),
		formatFloat(r.Step2.PTwoSided),
		formatFloat(r.Adjusted.POneSidedStep1),
		formatFloat(r.Adjusted.PTwoSidedStep1),
		formatFloat(r.Adjusted.POneSidedStep2),
		formatFloat(r.Adjusted.PTwoSidedStep2),
		string(r.State),
	)
}

func formatFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'g', -1, 64)
}
