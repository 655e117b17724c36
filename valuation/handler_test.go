package valuation

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"

	"barinv/database/dbtest"
	"barinv/model"

	"github.com/shopspring/decimal"
)

func cost(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(decimal.RequireFromString(s))
}

func TestCalculate(t *testing.T) {
	report := Calculate([]model.Item{
		{Vendor: "VendorA", Name: "Tanqueray", Category: "Gin", CaseSize: 12, CurrentUnits: 8, CostPerCase: cost("264")},
		{Vendor: "VendorA", Name: "beefeater", Category: "Gin", CaseSize: 6, CurrentUnits: 1, CostPerCase: cost("100")},
		{Vendor: "", Name: "Bitters", Category: "Mixers", CaseSize: 12, CurrentUnits: 3},
	})

	if len(report.Groups) != 2 || report.Groups[0].Category != "Gin" {
		t.Fatalf("groups = %+v", report.Groups)
	}
	gin := report.Groups[0]
	if gin.DetailRows[0].Name != "beefeater" {
		t.Errorf("rows not sorted case-insensitively: %s first", gin.DetailRows[0].Name)
	}
	// 8 × 264/12 = 176, 1 × 100/6 = 16.67
	if !gin.TotalValue.Equal(decimal.RequireFromString("192.67")) {
		t.Errorf("Gin total = %s", gin.TotalValue)
	}
	if !report.TotalValue.Equal(gin.TotalValue) || report.Unpriced != 1 {
		t.Errorf("report total/unpriced = %s/%d", report.TotalValue, report.Unpriced)
	}
	mixers := report.Groups[1]
	if mixers.DetailRows[0].Value.Valid || mixers.DetailRows[0].Vendor != model.UnassignedVendor {
		t.Errorf("unpriced row = %+v", mixers.DetailRows[0])
	}
}

func TestExportValuationCSVHandler(t *testing.T) {
	db := dbtest.Open(t)
	dbtest.Insert(t, db,
		model.Item{Vendor: "VendorA", Name: "Gin", Category: "Gin", CaseSize: 6, CurrentUnits: 3, CostPerCase: cost("120")},
		model.Item{Vendor: "VendorB", Name: "Rum", Category: "Rum", CaseSize: 1, CurrentUnits: 2, CostPerCase: cost("20")},
	)

	rec := httptest.NewRecorder()
	ExportValuationCSVHandler(db)(rec, httptest.NewRequest(http.MethodGet, "/api/valuation/export_csv?vendor=VendorA", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	records, err := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(rec.Body.Bytes(), []byte{0xEF, 0xBB, 0xBF}))).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// header, Gin, total
	if len(records) != 3 || records[1][2] != "Gin" || records[1][7] != "60.00" || records[2][7] != "60.00" {
		t.Errorf("records = %v", records)
	}
}
