package valuation

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"barinv/database"
	"barinv/model"
	"barinv/render"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// DetailRow は品目ごとの在庫金額です。
type DetailRow struct {
	ID           int64               `json:"id"`
	Vendor       string              `json:"vendor"`
	Name         string              `json:"name"`
	CurrentUnits int                 `json:"currentUnits"`
	CaseSize     int                 `json:"caseSize"`
	CostPerCase  decimal.NullDecimal `json:"costPerCase"`
	UnitCost     decimal.NullDecimal `json:"unitCost"`
	Value        decimal.NullDecimal `json:"value"`
}

// Group sums the rows of one category. Unpriced counts rows without a case cost.
type Group struct {
	Category   string          `json:"category"`
	DetailRows []DetailRow     `json:"detailRows"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Unpriced   int             `json:"unpriced"`
}

type Report struct {
	Groups     []Group         `json:"groups"`
	TotalValue decimal.Decimal `json:"totalValue"`
	Unpriced   int             `json:"unpriced"`
}

// Calculate values the stock on hand at cost: units × cost per case ÷ case size.
func Calculate(items []model.Item) Report {
	groups := make(map[string]*Group)
	report := Report{Groups: []Group{}, TotalValue: decimal.Zero}
	for _, it := range items {
		it.Normalize()
		row := DetailRow{
			ID:           it.ID,
			Vendor:       it.DisplayVendor(),
			Name:         it.Name,
			CurrentUnits: it.CurrentUnits,
			CaseSize:     it.CaseSize,
			CostPerCase:  it.CostPerCase,
		}
		g, ok := groups[it.Category]
		if !ok {
			g = &Group{Category: it.Category, TotalValue: decimal.Zero}
			groups[it.Category] = g
		}
		if it.CostPerCase.Valid {
			unit := it.CostPerCase.Decimal.Div(decimal.NewFromInt(int64(it.CaseSize)))
			value := unit.Mul(decimal.NewFromInt(int64(it.CurrentUnits))).Round(2)
			row.UnitCost = decimal.NewNullDecimal(unit.Round(2))
			row.Value = decimal.NewNullDecimal(value)
			g.TotalValue = g.TotalValue.Add(value)
		} else {
			g.Unpriced++
		}
		g.DetailRows = append(g.DetailRows, row)
	}

	c := collate.New(language.Und, collate.IgnoreCase)
	less := func(a, b string) bool {
		if r := c.CompareString(a, b); r != 0 {
			return r < 0
		}
		return a < b
	}
	for _, g := range groups {
		sort.SliceStable(g.DetailRows, func(i, j int) bool {
			return less(g.DetailRows[i].Name, g.DetailRows[j].Name)
		})
		report.Groups = append(report.Groups, *g)
		report.TotalValue = report.TotalValue.Add(g.TotalValue)
		report.Unpriced += g.Unpriced
	}
	sort.Slice(report.Groups, func(i, j int) bool {
		return less(report.Groups[i].Category, report.Groups[j].Category)
	})
	return report
}

func loadReport(r *http.Request, conn *sqlx.DB) (Report, error) {
	q := r.URL.Query()
	items, err := database.SearchItems(r.Context(), conn, model.ItemFilters{
		Category: q.Get("category"),
		Vendor:   q.Get("vendor"),
	})
	if err != nil {
		return Report{}, err
	}
	return Calculate(items), nil
}

// GetValuationHandler は在庫評価データをJSONで返します。
func GetValuationHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := loadReport(r, conn)
		if err != nil {
			log.Printf("ERROR: stock valuation: %v", err)
			render.JSONError(w, http.StatusInternalServerError, "failed to get stock valuation")
			return
		}
		render.JSON(w, http.StatusOK, report)
	}
}

// ExportValuationCSVHandler
func ExportValuationCSVHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		report, err := loadReport(r, conn)
		if err != nil {
			log.Printf("ERROR: stock valuation export: %v", err)
			http.Error(w, "Failed to get stock valuation for export", http.StatusInternalServerError)
			return
		}

		if report.Unpriced > 0 {
			log.Printf("WARN: %d items have no cost and are left out of the stock value", report.Unpriced)
		}

		var buf bytes.Buffer
		if err := WriteCSV(&buf, report); err != nil {
			log.Printf("ERROR: writing valuation CSV: %v", err)
			http.Error(w, "Failed to write the CSV file", http.StatusInternalServerError)
			return
		}

		filename := fmt.Sprintf("bar_stock_value_%s.csv", time.Now().Format("20060102"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
		w.Write(buf.Bytes())
	}
}

// WriteCSV writes one row per item followed by the grand total (UTF-8 BOM).
func WriteCSV(buf *bytes.Buffer, report Report) error {
	buf.Write([]byte{0xEF, 0xBB, 0xBF})
	cw := csv.NewWriter(buf)
	cw.Write([]string{"category", "vendor", "name", "current_units", "case_size", "cost_per_case", "unit_cost", "value"})
	money := func(d decimal.NullDecimal) string {
		if !d.Valid {
			return ""
		}
		return d.Decimal.StringFixed(2)
	}
	for _, g := range report.Groups {
		for _, row := range g.DetailRows {
			cw.Write([]string{
				g.Category,
				row.Vendor,
				row.Name,
				strconv.Itoa(row.CurrentUnits),
				strconv.Itoa(row.CaseSize),
				money(row.CostPerCase),
				money(row.UnitCost),
				money(row.Value),
			})
		}
	}
	cw.Write([]string{"Total", "", "", "", "", "", "", report.TotalValue.StringFixed(2)})
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return nil
}
