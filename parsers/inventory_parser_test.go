package parsers

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseSeedFile_CSV(t *testing.T) {
	csvData := "\xEF\xBB\xBFname,category,case_size,par_units,current_units,vendor,cost_per_case\n" +
		"Gin,Gin,1,5,2,VendorA,$120.00\n" +
		"Vodka,Vodka,1,4,6,VendorA,\n" +
		"\n" +
		"Rum,Rum,6.0,3,0,VendorB,88.5\n"
	path := writeFile(t, "seed.csv", []byte(csvData))

	items, err := ParseSeedFile(path, "")
	if err != nil {
		t.Fatalf("ParseSeedFile failed: %v", err)
	}
	if len(items) != 3 {
		t.Fatalf("expected 3 items, got %d", len(items))
	}
	if items[0].Name != "Gin" || items[0].Vendor != "VendorA" || items[0].CurrentUnits != 2 {
		t.Errorf("unexpected first item: %+v", items[0])
	}
	if !items[0].CostPerCase.Valid || !items[0].CostPerCase.Decimal.Equal(decimal.NewFromInt(120)) {
		t.Errorf("cost not parsed: %+v", items[0].CostPerCase)
	}
	if items[1].CostPerCase.Valid {
		t.Error("empty cost should be NULL")
	}
	if items[2].CaseSize != 6 {
		t.Errorf("CaseSize = %d, want 6", items[2].CaseSize)
	}
}

func TestParseSeedFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantSub string
	}{
		{"bad number", "name,vendor,par_units\nGin,A,five\n", "line 2"},
		{"negative on hand", "name,vendor,current_units\nGin,A,1\nRum,B,-4\n", "line 3"},
		{"missing name", "name,vendor\n,A\n", "name is required"},
		{"duplicate pair", "name,vendor\nGin,A\nRum,A\ngin ,a\n", "first seen on line 2"},
		{"missing header", "spirit,vendor\nGin,A\n", "required header"},
		{"empty", "", "empty"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, "seed.csv", []byte(tt.data))
			_, err := ParseSeedFile(path, "")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantSub) {
				t.Errorf("error %q does not mention %q", err, tt.wantSub)
			}
		})
	}
}

func TestParseSeedFile_MissingFile(t *testing.T) {
	if _, err := ParseSeedFile(filepath.Join(t.TempDir(), "nope.csv"), ""); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParseSeedFile_Windows1252(t *testing.T) {
	// "Añejo" with ñ encoded as 0xF1, as Excel on Windows saves it.
	data := []byte("name,vendor\nA\xF1ejo,Casa\n")
	path := writeFile(t, "seed.csv", data)

	items, err := ParseSeedFile(path, "windows-1252")
	if err != nil {
		t.Fatalf("ParseSeedFile failed: %v", err)
	}
	if items[0].Name != "Añejo" {
		t.Errorf("Name = %q, want Añejo", items[0].Name)
	}

	if _, err := ParseSeedFile(path, "klingon-8"); err == nil {
		t.Error("expected error for unknown encoding")
	}
}

func TestParseSeedFile_XLSX(t *testing.T) {
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	rows := [][]interface{}{
		{"name", "vendor", "par_units", "current_units"},
		{"Gin", "VendorA", 5, 2},
		{"Rum", "VendorB", 3, 0},
	}
	for i, row := range rows {
		cell, _ := excelize.CoordinatesToCellName(1, i+1)
		if err := f.SetSheetRow(sheet, cell, &row); err != nil {
			t.Fatal(err)
		}
	}
	path := filepath.Join(t.TempDir(), "seed.xlsx")
	if err := f.SaveAs(path); err != nil {
		t.Fatal(err)
	}

	items, err := ParseSeedFile(path, "")
	if err != nil {
		t.Fatalf("ParseSeedFile failed: %v", err)
	}
	if len(items) != 2 || items[1].Name != "Rum" || *items[1].ParUnits != 3 {
		t.Errorf("unexpected items: %+v", items)
	}
}

func TestParseImportCSV_SkipsBadRows(t *testing.T) {
	data := "Name,Vendor,Current_Units,Notes\n" +
		"Gin,A,3,top shelf\n" +
		"Rum,B,lots,\n" +
		",C,1,\n" +
		"Vodka,,2,\n"

	records, skipped, err := ParseImportCSV(strings.NewReader(data), "")
	if err != nil {
		t.Fatalf("ParseImportCSV failed: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if len(skipped) != 1 || skipped[0].Line != 3 {
		t.Errorf("unexpected skipped rows: %v", skipped)
	}
	if !records[0].Present["current_units"] || records[0].Present["par_units"] {
		t.Errorf("Present flags wrong: %v", records[0].Present)
	}
	if records[1].Line != 5 || records[1].Item.Vendor != "" {
		t.Errorf("unexpected second record: %+v", records[1])
	}
}

func TestParseInt(t *testing.T) {
	for in, want := range map[string]int{"6": 6, "6.0": 6, "-2": -2, "12.00": 12} {
		got, err := ParseInt(in)
		if err != nil || got != want {
			t.Errorf("ParseInt(%q) = %d, %v; want %d", in, got, err, want)
		}
	}
	for _, in := range []string{"6.5", "abc", "", "18446744073709551617", "9223372036854775808", "-9223372036854775809.0"} {
		if _, err := ParseInt(in); err == nil {
			t.Errorf("ParseInt(%q) should fail", in)
		}
	}
}
