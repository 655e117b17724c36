package reorder

import (
	"testing"

	"barinv/model"

	"github.com/shopspring/decimal"
)

func item(vendor, name string, onHand, par int) model.Item {
	it := model.Item{Vendor: vendor, Name: name, CurrentUnits: onHand, ParUnits: model.IntPtr(par)}
	it.Normalize()
	return it
}

func TestCalculate_Example(t *testing.T) {
	items := []model.Item{
		item("VendorA", "Gin", 2, 5),
		item("VendorA", "Vodka", 6, 4),
		item("VendorB", "Rum", 0, 3),
	}

	sheet := Calculate(items, Options{})

	if len(sheet.Vendors) != 2 {
		t.Fatalf("expected 2 vendors, got %d: %+v", len(sheet.Vendors), sheet.Vendors)
	}
	want := []struct {
		vendor, spirit string
		cases          int
	}{
		{"VendorA", "Gin", 3},
		{"VendorB", "Rum", 3},
	}
	for i, w := range want {
		g := sheet.Vendors[i]
		if g.Vendor != w.vendor || len(g.Lines) != 1 {
			t.Fatalf("group %d = %+v, want vendor %s with 1 line", i, g, w.vendor)
		}
		if g.Lines[0].Spirit != w.spirit || g.Lines[0].CasesNeeded != w.cases {
			t.Errorf("group %d line = %+v, want %s: %d", i, g.Lines[0], w.spirit, w.cases)
		}
	}
	if sheet.LineCount != 2 {
		t.Errorf("LineCount = %d, want 2", sheet.LineCount)
	}
}

func TestCalculate_Ordering(t *testing.T) {
	items := []model.Item{
		item("", "Bitters", 0, 2),
		item("zeta spirits", "gin", 0, 1),
		item("Zeta Spirits", "Gin", 0, 1),
		item("alpha", "vodka", 0, 1),
		item("alpha", "Absinthe", 0, 1),
		item("Älpler", "Kirsch", 0, 1),
	}

	sheet := Calculate(items, Options{})

	var vendors []string
	for _, g := range sheet.Vendors {
		vendors = append(vendors, g.Vendor)
	}
	wantVendors := []string{"alpha", "Älpler", "Zeta Spirits", "zeta spirits", model.UnassignedVendor}
	if len(vendors) != len(wantVendors) {
		t.Fatalf("vendors = %v, want %v", vendors, wantVendors)
	}
	for i := range wantVendors {
		if vendors[i] != wantVendors[i] {
			t.Errorf("vendors = %v, want %v", vendors, wantVendors)
			break
		}
	}
	if l := sheet.Vendors[0].Lines; l[0].Spirit != "Absinthe" || l[1].Spirit != "vodka" {
		t.Errorf("lines not sorted case-insensitively: %+v", l)
	}

	// Same input in a different order gives the same result.
	reversed := make([]model.Item, len(items))
	for i := range items {
		reversed[len(items)-1-i] = items[i]
	}
	again := Calculate(reversed, Options{})
	for i := range sheet.Vendors {
		if again.Vendors[i].Vendor != sheet.Vendors[i].Vendor {
			t.Fatalf("ordering depends on input order: %v vs %v", again.Vendors[i].Vendor, sheet.Vendors[i].Vendor)
		}
	}
}

func TestCalculate_CasesAndTotals(t *testing.T) {
	whiskey := model.Item{Vendor: "Dist", Name: "Whiskey", CaseSize: 6, ParCases: model.IntPtr(2), CurrentUnits: 5,
		CostPerCase: decimal.NewNullDecimal(decimal.RequireFromString("150.50"))}
	tequila := model.Item{Vendor: "Dist", Name: "Tequila", CaseSize: 12, ParUnits: model.IntPtr(13), CurrentUnits: 0}
	noPar := model.Item{Vendor: "Dist", Name: "Mezcal", CaseSize: 6, CurrentUnits: 0}
	for _, it := range []*model.Item{&whiskey, &tequila, &noPar} {
		it.Normalize()
	}

	sheet := Calculate([]model.Item{whiskey, tequila, noPar}, Options{})
	if len(sheet.Vendors) != 1 || len(sheet.Vendors[0].Lines) != 2 {
		t.Fatalf("unexpected sheet: %+v", sheet)
	}
	lines := sheet.Vendors[0].Lines
	// Tequila sorts before Whiskey.
	if lines[0].CasesNeeded != 2 || lines[0].NeedUnits != 13 {
		t.Errorf("tequila line = %+v, want 13 units / 2 cases", lines[0])
	}
	if lines[0].EstTotal.Valid {
		t.Errorf("tequila has no cost, EstTotal should be null")
	}
	if lines[1].NeedUnits != 7 || lines[1].CasesNeeded != 2 || lines[1].ParUnits != 12 {
		t.Errorf("whiskey line = %+v, want par 12, need 7, 2 cases", lines[1])
	}
	if !lines[1].EstTotal.Decimal.Equal(decimal.RequireFromString("301")) {
		t.Errorf("whiskey EstTotal = %s, want 301", lines[1].EstTotal.Decimal)
	}
	if !sheet.GrandTotal.Equal(decimal.RequireFromString("301")) || !sheet.Vendors[0].Total.Equal(sheet.GrandTotal) {
		t.Errorf("totals = %s / %s, want 301", sheet.Vendors[0].Total, sheet.GrandTotal)
	}

	all := Calculate([]model.Item{whiskey, tequila, noPar}, Options{IncludeAll: true})
	if all.LineCount != 3 {
		t.Errorf("IncludeAll LineCount = %d, want 3", all.LineCount)
	}
}

func TestCalculate_Empty(t *testing.T) {
	sheet := Calculate(nil, Options{})
	if len(sheet.Vendors) != 0 || sheet.LineCount != 0 || !sheet.GrandTotal.IsZero() {
		t.Errorf("unexpected sheet for no items: %+v", sheet)
	}
}
