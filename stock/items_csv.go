package stock

import (
	"encoding/csv"
	"io"
	"strconv"

	"barinv/model"
	"barinv/parsers"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// WriteItemsCSV は全品目をインポートと同じ列順でCSV出力します (UTF-8 BOM 付き)。
func WriteItemsCSV(w io.Writer, items []model.Item) error {
	if _, err := w.Write(utf8BOM); err != nil {
		return err
	}
	writer := csv.NewWriter(w)
	if err := writer.Write(parsers.ItemColumns); err != nil {
		return err
	}
	for _, it := range items {
		cost := ""
		if it.CostPerCase.Valid {
			cost = it.CostPerCase.Decimal.StringFixed(2)
		}
		record := []string{
			it.Name,
			it.Category,
			it.Unit,
			strconv.Itoa(it.CaseSize),
			optInt(it.ParCases),
			optInt(it.ParUnits),
			strconv.Itoa(it.CurrentUnits),
			it.Vendor,
			cost,
			optInt(it.LeadTimeDays),
			it.Notes,
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func optInt(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}
