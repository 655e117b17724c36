package export

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"barinv/model"
	"barinv/parsers"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const (
	SummarySheet = "All Vendors"
	EmptySheet   = "No Items"
	totalLabel   = "Vendor Total"
	dateLayout   = "2006-01-02"
	maxSheetName = 31
	maxColWidth  = 40
)

// OrderHeaders is the header row of every vendor sheet.
var OrderHeaders = []string{
	"Vendor", "Category", "Item", "Case Size", "Par (units)", "On Hand (units)",
	"Need (units)", "Order (cases)", "Cost/Case", "Est. Total", "Notes",
}

const (
	colCost     = 9
	colEstTotal = 10
	colTotalTag = 8
)

// BuildOrderWorkbook は発注シートから Excel ブックを作成します。
// One sheet per vendor, then the "All Vendors" summary.
func BuildOrderWorkbook(sheet model.OrderSheet) (*excelize.File, error) {
	f := excelize.NewFile()
	defaultSheet := f.GetSheetName(0)

	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		f.Close()
		return nil, err
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, err
	}

	used := map[string]bool{
		strings.ToLower(SummarySheet): true,
		strings.ToLower(EmptySheet):   true,
		strings.ToLower(defaultSheet): true,
	}
	if len(sheet.Vendors) == 0 {
		if _, err := f.NewSheet(EmptySheet); err != nil {
			f.Close()
			return nil, err
		}
		if err := f.SetCellValue(EmptySheet, "A1", "Nothing to export based on current inputs/filters."); err != nil {
			f.Close()
			return nil, err
		}
	}
	for _, g := range sheet.Vendors {
		name := uniqueSheetName(g.Vendor, used)
		if err := writeVendorSheet(f, name, g, moneyStyle, boldStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("vendor %s: %w", g.Vendor, err)
		}
	}
	if err := writeSummarySheet(f, sheet, moneyStyle, boldStyle); err != nil {
		f.Close()
		return nil, err
	}

	if err := f.DeleteSheet(defaultSheet); err != nil {
		f.Close()
		return nil, err
	}
	f.SetActiveSheet(0)
	return f, nil
}

// WriteOrderWorkbook builds the workbook and writes it to w.
func WriteOrderWorkbook(w io.Writer, sheet model.OrderSheet) error {
	f, err := BuildOrderWorkbook(sheet)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteTo(w)
	return err
}

func writeVendorSheet(f *excelize.File, name string, g model.VendorGroup, moneyStyle, boldStyle int) error {
	if _, err := f.NewSheet(name); err != nil {
		return err
	}
	widths := make([]int, len(OrderHeaders))
	setRow := func(row int, values []interface{}) error {
		for i, v := range values {
			if s := cellText(v); utf8.RuneCountInString(s) > widths[i] {
				widths[i] = utf8.RuneCountInString(s)
			}
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		return f.SetSheetRow(name, cell, &values)
	}

	header := make([]interface{}, len(OrderHeaders))
	for i, h := range OrderHeaders {
		header[i] = h
	}
	if err := setRow(1, header); err != nil {
		return err
	}
	last, _ := excelize.CoordinatesToCellName(len(OrderHeaders), 1)
	if err := f.SetCellStyle(name, "A1", last, boldStyle); err != nil {
		return err
	}

	row := 2
	for _, l := range g.Lines {
		values := []interface{}{
			g.Vendor, l.Category, l.Spirit, l.CaseSize, l.ParUnits, l.OnHand,
			l.NeedUnits, l.CasesNeeded, moneyCell(l.CostPerCase), moneyCell(l.EstTotal), l.Notes,
		}
		if err := setRow(row, values); err != nil {
			return err
		}
		row++
	}
	if len(g.Lines) > 0 {
		from, _ := excelize.CoordinatesToCellName(colCost, 2)
		to, _ := excelize.CoordinatesToCellName(colEstTotal, row-1)
		if err := f.SetCellStyle(name, from, to, moneyStyle); err != nil {
			return err
		}
	}

	// Blank row, then the vendor total.
	row++
	totalRow := make([]interface{}, len(OrderHeaders))
	for i := range totalRow {
		totalRow[i] = ""
	}
	totalRow[colTotalTag-1] = totalLabel
	totalRow[colEstTotal-1] = g.Total.InexactFloat64()
	if err := setRow(row, totalRow); err != nil {
		return err
	}
	from, _ := excelize.CoordinatesToCellName(colTotalTag, row)
	to, _ := excelize.CoordinatesToCellName(colEstTotal, row)
	if err := f.SetCellStyle(name, from, to, boldStyle); err != nil {
		return err
	}
	totalCell, _ := excelize.CoordinatesToCellName(colEstTotal, row)
	if err := f.SetCellStyle(name, totalCell, totalCell, moneyStyle); err != nil {
		return err
	}

	for i, w := range widths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		width := w + 2
		if width > maxColWidth {
			width = maxColWidth
		}
		if err := f.SetColWidth(name, col, col, float64(width)); err != nil {
			return err
		}
	}
	return nil
}

func writeSummarySheet(f *excelize.File, sheet model.OrderSheet, moneyStyle, boldStyle int) error {
	if _, err := f.NewSheet(SummarySheet); err != nil {
		return err
	}
	generated := sheet.GeneratedAt
	if generated.IsZero() {
		generated = time.Now()
	}
	rows := [][]interface{}{
		{"Generated", generated.Format(dateLayout)},
		{"Grand Total (if costs set)", sheet.GrandTotal.InexactFloat64()},
		{},
		{"Vendor", "Lines", "Total"},
	}
	for _, g := range sheet.Vendors {
		rows = append(rows, []interface{}{g.Vendor, len(g.Lines), g.Total.InexactFloat64()})
	}
	for i, r := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(SummarySheet, cell, &r); err != nil {
			return err
		}
	}
	if err := f.SetCellStyle(SummarySheet, "B2", "B2", moneyStyle); err != nil {
		return err
	}
	if err := f.SetCellStyle(SummarySheet, "A4", "C4", boldStyle); err != nil {
		return err
	}
	if len(sheet.Vendors) > 0 {
		last, _ := excelize.CoordinatesToCellName(3, len(rows))
		if err := f.SetCellStyle(SummarySheet, "C5", last, moneyStyle); err != nil {
			return err
		}
	}
	return f.SetColWidth(SummarySheet, "A", "A", 28)
}

// uniqueSheetName makes a valid, unused Excel sheet name from a vendor name.
// Names are compared case-insensitively, as Excel does.
func uniqueSheetName(vendor string, used map[string]bool) string {
	base := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '_'
		}
		return r
	}, vendor)
	base = strings.Trim(strings.TrimSpace(base), "'")
	if base == "" {
		base = "Vendor"
	}
	base = truncateRunes(base, maxSheetName)

	name := base
	for n := 2; used[strings.ToLower(name)]; n++ {
		suffix := fmt.Sprintf(" (%d)", n)
		name = truncateRunes(base, maxSheetName-len(suffix)) + suffix
	}
	used[strings.ToLower(name)] = true
	return name
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

func moneyCell(d decimal.NullDecimal) interface{} {
	if !d.Valid {
		return ""
	}
	return d.Decimal.InexactFloat64()
}

func cellText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return decimal.NewFromFloat(t).StringFixed(2)
	default:
		return fmt.Sprint(t)
	}
}

// ReadOrderWorkbook parses a workbook written by WriteOrderWorkbook back into
// an order sheet. Vendor names come from column A, so truncated sheet names
// do not matter.
func ReadOrderWorkbook(r io.Reader) (model.OrderSheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return model.OrderSheet{}, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer f.Close()

	sheet := model.OrderSheet{GrandTotal: decimal.Zero}
	found := false
	for _, name := range f.GetSheetList() {
		switch name {
		case SummarySheet:
			found = true
			if err := readSummary(f, &sheet); err != nil {
				return model.OrderSheet{}, err
			}
			continue
		case EmptySheet:
			continue
		}
		g, err := readVendorSheet(f, name)
		if err != nil {
			return model.OrderSheet{}, fmt.Errorf("sheet %s: %w", name, err)
		}
		sheet.Vendors = append(sheet.Vendors, g)
		sheet.LineCount += len(g.Lines)
	}
	if !found {
		return model.OrderSheet{}, errors.New("workbook has no " + SummarySheet + " sheet")
	}
	return sheet, nil
}

func readSummary(f *excelize.File, sheet *model.OrderSheet) error {
	rows, err := f.GetRows(SummarySheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return err
	}
	for _, row := range rows {
		if len(row) < 2 {
			continue
		}
		switch row[0] {
		case "Generated":
			t, err := time.ParseInLocation(dateLayout, row[1], time.Local)
			if err != nil {
				return fmt.Errorf("invalid generated date %q", row[1])
			}
			sheet.GeneratedAt = t
		case "Grand Total (if costs set)":
			d, err := decimal.NewFromString(row[1])
			if err != nil {
				return fmt.Errorf("invalid grand total %q", row[1])
			}
			sheet.GrandTotal = d
		}
	}
	return nil
}

func readVendorSheet(f *excelize.File, name string) (model.VendorGroup, error) {
	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return model.VendorGroup{}, err
	}
	if len(rows) == 0 || len(rows[0]) == 0 || rows[0][0] != OrderHeaders[0] {
		return model.VendorGroup{}, errors.New("missing header row")
	}

	g := model.VendorGroup{Vendor: name, Total: decimal.Zero}
	for i, row := range rows[1:] {
		line := i + 2
		cell := func(col int) string {
			if col-1 < len(row) {
				return strings.TrimSpace(row[col-1])
			}
			return ""
		}
		if cell(colTotalTag) == totalLabel {
			total, err := decimal.NewFromString(cell(colEstTotal))
			if err != nil {
				return g, fmt.Errorf("row %d: invalid vendor total", line)
			}
			g.Total = total
			continue
		}
		if strings.TrimSpace(strings.Join(row, "")) == "" {
			continue
		}

		l := model.OrderLine{Vendor: cell(1), Category: cell(2), Spirit: cell(3), Notes: cell(11)}
		ints := []struct {
			col int
			dst *int
		}{
			{4, &l.CaseSize}, {5, &l.ParUnits}, {6, &l.OnHand}, {7, &l.NeedUnits}, {8, &l.CasesNeeded},
		}
		for _, c := range ints {
			n, err := parsers.ParseInt(cell(c.col))
			if err != nil {
				return g, fmt.Errorf("row %d, column %s: %w", line, OrderHeaders[c.col-1], err)
			}
			*c.dst = n
		}
		if l.CostPerCase, err = readMoney(cell(colCost)); err != nil {
			return g, fmt.Errorf("row %d: %w", line, err)
		}
		if l.EstTotal, err = readMoney(cell(colEstTotal)); err != nil {
			return g, fmt.Errorf("row %d: %w", line, err)
		}
		g.Vendor = l.Vendor
		g.Lines = append(g.Lines, l)
	}
	return g, nil
}

func readMoney(s string) (decimal.NullDecimal, error) {
	if s == "" {
		return decimal.NullDecimal{}, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.NullDecimal{}, fmt.Errorf("invalid amount %q", s)
	}
	return decimal.NewNullDecimal(d), nil
}
