package excel

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gobogey/domain/core"
	"gobogey/domain/match"
	"gobogey/internal"

	"github.com/xuri/excelize/v2"
)

// DataReader handles reading Excel and CSV files
type DataReader struct {
	filePath string
	fileType string // "xlsx" or "csv"
	logger   *internal.Logger
}

// NewDataReader creates a new data reader that handles both Excel and CSV files
func NewDataReader(filePath string, logger *internal.Logger) *DataReader {
	ext := strings.ToLower(filepath.Ext(filePath))
	fileType := "xlsx"
	if ext == ".csv" {
		fileType = "csv"
	}
	return &DataReader{filePath: filePath, fileType: fileType, logger: logger.With("DataReader")}
}

// ReadData reads data from Excel or CSV files into structured format
func (r *DataReader) ReadData() (*TableData, error) {
	r.logger.Debug("reading %s file: %s", r.fileType, r.filePath)

	if _, err := os.Stat(r.filePath); os.IsNotExist(err) {
		return nil, fmt.Errorf("%s file not found: %s", strings.ToUpper(r.fileType), r.filePath)
	}

	switch r.fileType {
	case "csv":
		return r.readCSVData()
	case "xlsx":
		return r.readExcelData()
	default:
		return nil, fmt.Errorf("unsupported file type: %s", r.fileType)
	}
}

// readExcelData reads the first sheet of a workbook
func (r *DataReader) readExcelData() (*TableData, error) {
	startTime := time.Now()
	f, err := excelize.OpenFile(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open Excel file: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("Excel file has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %s: %w", sheets[0], err)
	}
	r.logger.Debug("sheet %s read in %.2fms (%d rows)", sheets[0], float64(time.Since(startTime).Nanoseconds())/1e6, len(rows))

	if len(rows) < 1 {
		return nil, fmt.Errorf("Excel file must have a header row")
	}
	return r.processRows(rows), nil
}

// readCSVData reads CSV data into structured format
func (r *DataReader) readCSVData() (*TableData, error) {
	file, err := os.Open(r.filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open CSV file: %w", err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	readStart := time.Now()
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV file: %w", err)
	}
	r.logger.Debug("CSV file read in %.2fms (%d rows)", float64(time.Since(readStart).Nanoseconds())/1e6, len(rows))

	if len(rows) < 1 {
		return nil, fmt.Errorf("CSV file must have a header row")
	}
	return r.processRows(rows), nil
}

// processRows converts raw string rows into TableData format
func (r *DataReader) processRows(rows [][]string) *TableData {
	headerRow := rows[0]
	headers := make([]string, len(headerRow))
	for i, header := range headerRow {
		// Strip a UTF-8 BOM left by spreadsheet exports.
		headers[i] = strings.TrimSpace(strings.TrimPrefix(header, "\ufeff"))
	}

	dataRows := make([]RawRowData, 0, len(rows)-1)
	for i := 1; i < len(rows); i++ {
		rowData := make(RawRowData, len(headers))
		for j, cell := range rows[i] {
			if j < len(headers) {
				rowData[headers[j]] = strings.TrimSpace(cell)
			}
		}
		dataRows = append(dataRows, rowData)
	}

	return &TableData{Headers: headers, Rows: dataRows}
}

// MatchReader loads a head-to-head match table.
type MatchReader struct {
	reader *DataReader
	filter Filter
	logger *internal.Logger
}

// NewMatchReader reads filePath (CSV or XLSX by extension) through filter.
func NewMatchReader(filePath string, filter Filter, logger *internal.Logger) *MatchReader {
	return &MatchReader{
		reader: NewDataReader(filePath, logger),
		filter: filter,
		logger: logger.With("MatchReader"),
	}
}

// ReadMatches loads, parses and filters the table. Row is the 1-based data
// row of the source so that tie-breaks and error messages point at the file.
// Any unparseable value fails the whole load.
func (m *MatchReader) ReadMatches() ([]match.Match, error) {
	if err := m.filter.Validate(); err != nil {
		return nil, err
	}

	data, err := m.reader.ReadData()
	if err != nil {
		return nil, err
	}
	return ParseMatches(data, m.filter, m.logger)
}

// ParseMatches converts an already read table into matches.
func ParseMatches(data *TableData, filter Filter, logger *internal.Logger) ([]match.Match, error) {
	for _, col := range RequiredColumns {
		if !data.HasColumn(col) {
			return nil, fmt.Errorf("%w: missing column %q", core.ErrMalformedMatch, col)
		}
	}

	var (
		matches    []match.Match
		filtered   int
		backfilled int
	)
	for i, row := range data.Rows {
		rowNum := i + 1
		if isBlank(row) {
			continue
		}

		date, err := parseDate(row[ColDate])
		if err != nil {
			return nil, core.NewMalformedMatchError(rowNum, err.Error())
		}
		if !filter.Keep(date, row[ColTournament], row[ColSeries]) {
			filtered++
			continue
		}

		m := match.Match{
			Row:        rowNum,
			Date:       date,
			PlayerA:    row[ColPlayerI],
			PlayerB:    row[ColPlayerJ],
			Winner:     row[ColWinner],
			Loser:      row[ColLoser],
			Tournament: row[ColTournament],
			Series:     row[ColSeries],
		}
		if m.PlayerA == "" || m.PlayerB == "" || m.Winner == "" || m.Loser == "" {
			return nil, core.NewMalformedMatchError(rowNum, "empty player, winner or loser")
		}

		var filled bool
		if m.AvgWinOdds, filled, err = parseOdds(row, ColAvgW, ColB365W); err != nil {
			return nil, core.NewMalformedMatchError(rowNum, err.Error())
		}
		if filled {
			backfilled++
		}
		if m.AvgLossOdds, filled, err = parseOdds(row, ColAvgL, ColB365L); err != nil {
			return nil, core.NewMalformedMatchError(rowNum, err.Error())
		}
		if filled {
			backfilled++
		}

		eloI, err := parseOptional(row[ColEloI])
		if err != nil {
			return nil, core.NewMalformedMatchError(rowNum, ColEloI+": "+err.Error())
		}
		eloJ, err := parseOptional(row[ColEloJ])
		if err != nil {
			return nil, core.NewMalformedMatchError(rowNum, ColEloJ+": "+err.Error())
		}
		if m.Winner == m.PlayerA {
			m.EloWinner, m.EloLoser = eloI, eloJ
		} else {
			m.EloWinner, m.EloLoser = eloJ, eloI
		}

		matches = append(matches, m)
	}

	logger.With("MatchReader").Info("loaded %d matches (%d filtered out, %d odds backfilled from B365)",
		len(matches), filtered, backfilled)
	return matches, nil
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"1/2/2006",
	"01-02-06",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// parseOdds reads primary and falls back to backup when primary is missing
// ("", NA or NaN, as R and pandas write them). Both missing gives NaN, which
// the odds classifier rejects for pairs that need it.
func parseOdds(row RawRowData, primary, backup string) (odds float64, backfilled bool, err error) {
	col, raw := primary, row[primary]
	if isMissing(raw) {
		col, raw = backup, row[backup]
		backfilled = !isMissing(raw)
	}
	if isMissing(raw) {
		return math.NaN(), false, nil
	}
	odds, err = strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, false, fmt.Errorf("%s: unparseable odds %q", col, raw)
	}
	return odds, backfilled, nil
}

func parseOptional(s string) (*float64, error) {
	if isMissing(s) {
		return nil, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return nil, fmt.Errorf("not a number: %q", s)
	}
	return &v, nil
}

func isMissing(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || strings.EqualFold(s, "NA") || strings.EqualFold(s, "NaN")
}

func isBlank(row RawRowData) bool {
	for _, v := range row {
		if v != "" {
			return false
		}
	}
	return true
}
