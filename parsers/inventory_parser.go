package parsers

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"barinv/model"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

// ItemColumns is the column order of the inventory spreadsheet.
var ItemColumns = []string{
	"name", "category", "unit", "case_size", "par_cases", "par_units",
	"current_units", "vendor", "cost_per_case", "lead_time_days", "notes",
}

// ParsedItemRecord is one spreadsheet row. Present marks the columns that had
// a non-empty value, so importers can merge without clobbering.
type ParsedItemRecord struct {
	Line    int
	Item    model.Item
	Present map[string]bool
}

// RowError describes a row the lenient import parser skipped.
type RowError struct {
	Line int
	Err  error
}

func (e RowError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

// ParseSeedFile reads the seed spreadsheet strictly: the first malformed row
// or duplicate vendor/name pair fails the whole file.
func ParseSeedFile(path, encoding string) ([]model.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("could not open seed file %s: %w", path, err)
	}
	defer f.Close()

	var rows [][]string
	if strings.EqualFold(filepath.Ext(path), ".xlsx") {
		rows, err = readXLSXRows(f)
	} else {
		rows, err = readCSVRows(f, encoding)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read seed file %s: %w", path, err)
	}
	return parseSeedRows(rows)
}

func parseSeedRows(rows [][]string) ([]model.Item, error) {
	if len(rows) == 0 {
		return nil, errors.New("seed file is empty")
	}
	colIndex, err := getColIndex(rows[0], []string{"name", "vendor"})
	if err != nil {
		return nil, err
	}

	items := make([]model.Item, 0, len(rows)-1)
	seen := make(map[string]int)
	for i, row := range rows[1:] {
		line := i + 2
		if isBlankRow(row) {
			continue
		}
		rec, err := parseItemRow(row, colIndex)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if rec.Item.Name == "" {
			return nil, fmt.Errorf("line %d: %w: name is required", line, model.ErrInvalidItem)
		}
		key := model.ItemKey(rec.Item.Vendor, rec.Item.Name)
		if first, dup := seen[key]; dup {
			return nil, fmt.Errorf("line %d: duplicate vendor/spirit %q/%q (first seen on line %d)",
				line, rec.Item.Vendor, rec.Item.Name, first)
		}
		seen[key] = line
		items = append(items, rec.Item)
	}
	return items, nil
}

// ParseImportCSV は品目CSVを寛容に解析します。不正行はスキップして RowError に記録します。
func ParseImportCSV(r io.Reader, encoding string) ([]ParsedItemRecord, []RowError, error) {
	rows, err := readCSVRows(r, encoding)
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, errors.New("CSV file is empty")
	}
	colIndex, err := getColIndex(rows[0], []string{"name"})
	if err != nil {
		return nil, nil, err
	}

	var (
		records []ParsedItemRecord
		skipped []RowError
	)
	for i, row := range rows[1:] {
		line := i + 2
		rec, err := parseItemRow(row, colIndex)
		if err != nil {
			log.Printf("WARN: import CSV line %d skipped: %v", line, err)
			skipped = append(skipped, RowError{Line: line, Err: err})
			continue
		}
		if rec.Item.Name == "" {
			continue
		}
		rec.Line = line
		records = append(records, rec)
	}
	return records, skipped, nil
}

func readCSVRows(r io.Reader, encoding string) ([][]string, error) {
	decoded, err := Decode(r, encoding)
	if err != nil {
		return nil, err
	}
	reader := csv.NewReader(decoded)
	reader.LazyQuotes = true
	reader.FieldsPerRecord = -1
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read CSV: %w", err)
	}
	return rows, nil
}

func readXLSXRows(r io.Reader) ([][]string, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
}

func isBlankRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseItemRow(row []string, colIndex map[string]int) (ParsedItemRecord, error) {
	rec := ParsedItemRecord{Present: make(map[string]bool)}
	get := func(key string) string {
		if idx, ok := colIndex[key]; ok && idx < len(row) {
			v := strings.TrimSpace(row[idx])
			if v != "" {
				rec.Present[key] = true
			}
			return v
		}
		return ""
	}

	it := &rec.Item
	it.Name = get("name")
	it.Category = get("category")
	it.Unit = get("unit")
	it.Vendor = get("vendor")
	it.Notes = get("notes")

	var err error
	if it.CaseSize, err = optionalInt(get("case_size"), 0); err != nil {
		return rec, fmt.Errorf("case_size: %w", err)
	}
	if it.CurrentUnits, err = optionalInt(get("current_units"), 0); err != nil {
		return rec, fmt.Errorf("current_units: %w", err)
	}
	if it.ParCases, err = nullableInt(get("par_cases")); err != nil {
		return rec, fmt.Errorf("par_cases: %w", err)
	}
	if it.ParUnits, err = nullableInt(get("par_units")); err != nil {
		return rec, fmt.Errorf("par_units: %w", err)
	}
	if it.LeadTimeDays, err = nullableInt(get("lead_time_days")); err != nil {
		return rec, fmt.Errorf("lead_time_days: %w", err)
	}
	if cost := get("cost_per_case"); cost != "" {
		d, err := decimal.NewFromString(strings.TrimPrefix(cost, "$"))
		if err != nil {
			return rec, fmt.Errorf("cost_per_case: invalid number %q", cost)
		}
		it.CostPerCase = decimal.NewNullDecimal(d)
	}

	it.Normalize()
	if err := it.Validate(); err != nil && it.Name != "" {
		return rec, err
	}
	return rec, nil
}

var (
	minInt = decimal.NewFromInt(math.MinInt)
	maxInt = decimal.NewFromInt(math.MaxInt)
)

// ParseInt accepts integers and whole-number decimals such as "6.0", the way
// spreadsheet exports often write counts.
func ParseInt(s string) (int, error) {
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil || !d.Equal(d.Truncate(0)) ||
		d.LessThan(minInt) || d.GreaterThan(maxInt) {
		return 0, fmt.Errorf("invalid whole number %q", s)
	}
	return int(d.IntPart()), nil
}

func optionalInt(s string, def int) (int, error) {
	if s == "" {
		return def, nil
	}
	return ParseInt(s)
}

func nullableInt(s string) (*int, error) {
	if s == "" {
		return nil, nil
	}
	n, err := ParseInt(s)
	if err != nil {
		return nil, err
	}
	return &n, nil
}
