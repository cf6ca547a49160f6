package csvfile

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/gridlens-labs/gridlens/pkg/core"
)

// readDelimited parses a CSV/TSV file into rows keyed by the header line.
func readDelimited(path string, comma rune) ([]core.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer func() { _ = f.Close() }()

	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse file: %w", err)
	}
	return recordsToRows(records)
}

// readWorkbook parses one sheet of an XLSX workbook. An empty sheet name
// selects the first sheet.
func readWorkbook(path, sheet string) ([]core.Row, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	if sheet == "" {
		sheet = f.GetSheetName(0)
	}
	records, err := f.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return recordsToRows(records)
}

// recordsToRows keys each record by the header line and coerces cell
// values. Short records are padded with nulls.
func recordsToRows(records [][]string) ([]core.Row, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("file has no header row")
	}

	header := records[0]
	for i, name := range header {
		if strings.TrimSpace(name) == "" {
			header[i] = fmt.Sprintf("column_%d", i+1)
		}
	}

	rows := make([]core.Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(core.Row, len(header))
		for i, name := range header {
			if i < len(record) {
				row[name] = coerceCell(record[i])
			} else {
				row[name] = nil
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// coerceCell turns a raw cell into a typed value so inference and filtering
// see numbers and booleans, not their string renderings. Empty cells are
// nulls.
func coerceCell(s string) any {
	if s == "" {
		return nil
	}
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return int(n)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	}
	return s
}
