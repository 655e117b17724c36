package model

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	DefaultCategory = "Spirits"
	DefaultUnit     = "bottle"
)

// ErrInvalidItem は入力検証エラーの共通センチネルです。
var ErrInvalidItem = errors.New("invalid item")

// Item は items テーブルのレコードを表します。
// Name はスピリッツ名、CurrentUnits は本数単位の手持ち在庫です。
type Item struct {
	ID           int64               `db:"id" json:"id"`
	Name         string              `db:"name" json:"name"`
	Category     string              `db:"category" json:"category"`
	Unit         string              `db:"unit" json:"unit"`
	CaseSize     int                 `db:"case_size" json:"caseSize"`
	ParCases     *int                `db:"par_cases" json:"parCases"`
	ParUnits     *int                `db:"par_units" json:"parUnits"`
	CurrentUnits int                 `db:"current_units" json:"currentUnits"`
	Vendor       string              `db:"vendor" json:"vendor"`
	CostPerCase  decimal.NullDecimal `db:"cost_per_case" json:"costPerCase"`
	LeadTimeDays *int                `db:"lead_time_days" json:"leadTimeDays"`
	Notes        string              `db:"notes" json:"notes"`
	UpdatedAt    time.Time           `db:"updated_at" json:"updatedAt"`
}

// Normalize trims text fields and fills the defaults the form and importers rely on.
func (i *Item) Normalize() {
	i.Name = strings.TrimSpace(i.Name)
	i.Vendor = strings.TrimSpace(i.Vendor)
	if strings.EqualFold(i.Vendor, UnassignedVendor) {
		// 表示用ラベルは空の仕入先として保存する
		i.Vendor = ""
	}
	i.Category = strings.TrimSpace(i.Category)
	if i.Category == "" {
		i.Category = DefaultCategory
	}
	i.Unit = strings.TrimSpace(i.Unit)
	if i.Unit == "" {
		i.Unit = DefaultUnit
	}
	if i.CaseSize == 0 {
		i.CaseSize = 1
	}
	i.Notes = strings.TrimSpace(i.Notes)
}

// Validate checks the invariants every persisted item must hold.
func (i *Item) Validate() error {
	if i.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if i.CaseSize < 1 {
		return fmt.Errorf("%w: case size must be at least 1 (got %d)", ErrInvalidItem, i.CaseSize)
	}
	if i.CurrentUnits < 0 {
		return fmt.Errorf("%w: on-hand units cannot be negative (got %d)", ErrInvalidItem, i.CurrentUnits)
	}
	if i.ParCases != nil && *i.ParCases < 0 {
		return fmt.Errorf("%w: par cases cannot be negative (got %d)", ErrInvalidItem, *i.ParCases)
	}
	if i.ParUnits != nil && *i.ParUnits < 0 {
		return fmt.Errorf("%w: par units cannot be negative (got %d)", ErrInvalidItem, *i.ParUnits)
	}
	if i.LeadTimeDays != nil && *i.LeadTimeDays < 0 {
		return fmt.Errorf("%w: lead time cannot be negative (got %d)", ErrInvalidItem, *i.LeadTimeDays)
	}
	if i.CostPerCase.Valid && i.CostPerCase.Decimal.IsNegative() {
		return fmt.Errorf("%w: cost per case cannot be negative", ErrInvalidItem)
	}
	return nil
}

// ParInUnits returns the par level in units. par_units overrides par_cases.
func (i *Item) ParInUnits() (int, bool) {
	if i.ParUnits != nil {
		return *i.ParUnits, true
	}
	if i.ParCases != nil && i.CaseSize > 0 {
		return *i.ParCases * i.CaseSize, true
	}
	return 0, false
}

// NeedUnits は par に対する不足本数です (不足がなければ 0)。
func (i *Item) NeedUnits() int {
	par, ok := i.ParInUnits()
	if !ok {
		return 0
	}
	if need := par - i.CurrentUnits; need > 0 {
		return need
	}
	return 0
}

// CasesToOrder rounds the shortfall up to whole cases.
func (i *Item) CasesToOrder() int {
	need := i.NeedUnits()
	if need == 0 || i.CaseSize <= 0 {
		return 0
	}
	return (need + i.CaseSize - 1) / i.CaseSize
}

// DisplayVendor returns the vendor label used on pages and exports.
func (i *Item) DisplayVendor() string {
	if i.Vendor == "" {
		return UnassignedVendor
	}
	return i.Vendor
}

// ItemKey is the case-insensitive identity used for import matching and de-duplication.
func ItemKey(vendor, name string) string {
	return strings.ToLower(strings.TrimSpace(vendor)) + "|" + strings.ToLower(strings.TrimSpace(name))
}

// IntPtr はフォームやCSVから任意項目を組み立てるためのヘルパーです。
func IntPtr(v int) *int {
	return &v
}
