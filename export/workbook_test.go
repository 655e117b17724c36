package export

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"barinv/config"
	"barinv/database/dbtest"
	"barinv/model"
	"barinv/reorder"
	"barinv/render"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func sampleItems() []model.Item {
	cost := func(s string) decimal.NullDecimal { return decimal.NewNullDecimal(decimal.RequireFromString(s)) }
	return []model.Item{
		{Vendor: "VendorA", Name: "Gin", Category: "Gin", CaseSize: 6, ParUnits: model.IntPtr(12), CurrentUnits: 2, CostPerCase: cost("120.50"), Notes: "London dry"},
		{Vendor: "VendorA", Name: "Vodka", Category: "Vodka", CaseSize: 1, ParUnits: model.IntPtr(4), CurrentUnits: 6},
		{Vendor: "VendorB", Name: "Rum", Category: "Rum", CaseSize: 1, ParUnits: model.IntPtr(3), CurrentUnits: 0, CostPerCase: cost("20")},
		{Vendor: "", Name: "Bitters", Category: "Mixers", CaseSize: 12, ParCases: model.IntPtr(1), CurrentUnits: 3},
		{Vendor: "A Very Long Vendor Name: Imports/Exports [Intl]", Name: "Mezcal", CaseSize: 1, ParUnits: model.IntPtr(2)},
	}
}

func calculate(includeAll bool) model.OrderSheet {
	items := sampleItems()
	for i := range items {
		items[i].Normalize()
	}
	return reorder.Calculate(items, reorder.Options{IncludeAll: includeAll, GeneratedAt: time.Date(2026, 3, 14, 18, 30, 0, 0, time.Local)})
}

func assertSameSheet(t *testing.T, got, want model.OrderSheet) {
	t.Helper()
	if len(got.Vendors) != len(want.Vendors) {
		t.Fatalf("vendors = %d, want %d", len(got.Vendors), len(want.Vendors))
	}
	for i, wg := range want.Vendors {
		gg := got.Vendors[i]
		if gg.Vendor != wg.Vendor || !gg.Total.Equal(wg.Total) || len(gg.Lines) != len(wg.Lines) {
			t.Fatalf("group %d = %s/%s/%d lines, want %s/%s/%d lines",
				i, gg.Vendor, gg.Total, len(gg.Lines), wg.Vendor, wg.Total, len(wg.Lines))
		}
		for j, wl := range wg.Lines {
			gl := gg.Lines[j]
			if gl.Spirit != wl.Spirit || gl.Category != wl.Category || gl.CasesNeeded != wl.CasesNeeded ||
				gl.NeedUnits != wl.NeedUnits || gl.ParUnits != wl.ParUnits || gl.OnHand != wl.OnHand ||
				gl.CaseSize != wl.CaseSize || gl.Notes != wl.Notes {
				t.Errorf("line %d/%d = %+v, want %+v", i, j, gl, wl)
			}
			if gl.CostPerCase.Valid != wl.CostPerCase.Valid || !gl.CostPerCase.Decimal.Equal(wl.CostPerCase.Decimal) {
				t.Errorf("line %d/%d cost = %v, want %v", i, j, gl.CostPerCase, wl.CostPerCase)
			}
			if gl.EstTotal.Valid != wl.EstTotal.Valid || !gl.EstTotal.Decimal.Equal(wl.EstTotal.Decimal) {
				t.Errorf("line %d/%d est = %v, want %v", i, j, gl.EstTotal, wl.EstTotal)
			}
		}
	}
	if !got.GrandTotal.Equal(want.GrandTotal) || got.LineCount != want.LineCount {
		t.Errorf("grand total/lines = %s/%d, want %s/%d", got.GrandTotal, got.LineCount, want.GrandTotal, want.LineCount)
	}
	if got.GeneratedAt.Format(dateLayout) != want.GeneratedAt.Format(dateLayout) {
		t.Errorf("generated = %s, want %s", got.GeneratedAt, want.GeneratedAt)
	}
}

func TestOrderWorkbook_RoundTrip(t *testing.T) {
	for _, includeAll := range []bool{false, true} {
		sheet := calculate(includeAll)
		var buf bytes.Buffer
		if err := WriteOrderWorkbook(&buf, sheet); err != nil {
			t.Fatalf("WriteOrderWorkbook failed: %v", err)
		}
		got, err := ReadOrderWorkbook(bytes.NewReader(buf.Bytes()))
		if err != nil {
			t.Fatalf("ReadOrderWorkbook failed: %v", err)
		}
		assertSameSheet(t, got, sheet)
	}
}

func TestOrderWorkbook_Layout(t *testing.T) {
	f, err := BuildOrderWorkbook(calculate(false))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	want := []string{"A Very Long Vendor Name_ Import", "VendorA", "VendorB", model.UnassignedVendor, SummarySheet}
	if strings.Join(sheets, ",") != strings.Join(want, ",") {
		t.Fatalf("sheets = %v, want %v", sheets, want)
	}

	rows, err := f.GetRows("VendorA")
	if err != nil {
		t.Fatal(err)
	}
	if strings.Join(rows[0], ",") != strings.Join(OrderHeaders, ",") {
		t.Errorf("header = %v", rows[0])
	}
	// header, Gin, blank, total
	if len(rows) != 4 || rows[1][2] != "Gin" || rows[3][colTotalTag-1] != "Vendor Total" {
		t.Errorf("unexpected rows: %v", rows)
	}
}

func TestOrderWorkbook_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteOrderWorkbook(&buf, model.OrderSheet{GrandTotal: decimal.Zero}); err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if got := f.GetSheetList(); len(got) != 2 || got[0] != EmptySheet || got[1] != SummarySheet {
		t.Errorf("sheets = %v", got)
	}

	sheet, err := ReadOrderWorkbook(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(sheet.Vendors) != 0 || !sheet.GrandTotal.IsZero() {
		t.Errorf("unexpected sheet: %+v", sheet)
	}
}

func TestUniqueSheetName(t *testing.T) {
	used := map[string]bool{"all vendors": true}
	tests := []struct{ in, want string }{
		{"VendorA", "VendorA"},
		{"vendora", "vendora (2)"},
		{"All Vendors", "All Vendors (2)"},
		{"a/b?c", "a_b_c"},
		{"", "Vendor"},
		{strings.Repeat("x", 40), strings.Repeat("x", 31)},
		{strings.Repeat("x", 35), strings.Repeat("x", 27) + " (2)"},
	}
	for _, tt := range tests {
		if got := uniqueSheetName(tt.in, used); got != tt.want {
			t.Errorf("uniqueSheetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestWorkbookFileName(t *testing.T) {
	now := time.Date(2026, 1, 2, 9, 0, 0, 0, time.UTC)
	if got := WorkbookFileName(now, false); got != "bar_order_2026-01-02.xlsx" {
		t.Errorf("got %s", got)
	}
	if got := WorkbookFileName(now, true); got != "bar_order_2026-01-02_all.xlsx" {
		t.Errorf("got %s", got)
	}
}

func TestOrderWorkbookHandler(t *testing.T) {
	archiveDir := filepath.Join(t.TempDir(), "exports")
	t.Setenv("BARINV_CONFIG", filepath.Join(t.TempDir(), "config.json"))
	if err := config.SaveConfig(config.Config{ExportFolderPath: archiveDir}); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { config.SaveConfig(config.Config{}) })

	db := dbtest.Open(t)
	dbtest.Insert(t, db, sampleItems()...)
	rd, err := render.New()
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	OrderWorkbookHandler(db, rd)(rec, httptest.NewRequest(http.MethodGet, "/order.xlsx?vendor=VendorA", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != xlsxContentType {
		t.Errorf("Content-Type = %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "bar_order_") || strings.Contains(cd, "_all") {
		t.Errorf("Content-Disposition = %s", cd)
	}

	sheet, err := ReadOrderWorkbook(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	if len(sheet.Vendors) != 1 || sheet.Vendors[0].Vendor != "VendorA" || sheet.Vendors[0].Lines[0].CasesNeeded != 2 {
		t.Errorf("unexpected sheet: %+v", sheet)
	}

	archived, err := os.ReadDir(archiveDir)
	if err != nil || len(archived) != 1 {
		t.Errorf("expected one archived workbook, got %v (%v)", archived, err)
	}
}
