package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// UnassignedVendor は仕入先が未設定の品目をまとめるラベルです。
const UnassignedVendor = "Unassigned Vendor"

// OrderLine は発注計算の1行です。永続化はされず、表示のたびに再計算されます。
type OrderLine struct {
	Vendor      string              `json:"vendor"`
	Category    string              `json:"category"`
	Spirit      string              `json:"spirit"`
	CaseSize    int                 `json:"caseSize"`
	ParUnits    int                 `json:"parUnits"`
	OnHand      int                 `json:"onHand"`
	NeedUnits   int                 `json:"needUnits"`
	CasesNeeded int                 `json:"casesNeeded"`
	CostPerCase decimal.NullDecimal `json:"costPerCase"`
	EstTotal    decimal.NullDecimal `json:"estTotal"`
	Notes       string              `json:"notes"`
}

// VendorGroup groups order lines of one vendor, sorted by spirit.
type VendorGroup struct {
	Vendor string          `json:"vendor"`
	Lines  []OrderLine     `json:"lines"`
	Total  decimal.Decimal `json:"total"`
}

// OrderSheet is the full "What to Order" result.
type OrderSheet struct {
	Vendors     []VendorGroup   `json:"vendors"`
	GrandTotal  decimal.Decimal `json:"grandTotal"`
	LineCount   int             `json:"lineCount"`
	GeneratedAt time.Time       `json:"generatedAt"`
}
