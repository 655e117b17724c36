package reorder

import (
	"sort"
	"strings"
	"time"

	"barinv/model"

	"github.com/shopspring/decimal"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// Options は発注計算の動作を切り替えます。
type Options struct {
	// IncludeAll keeps items with no shortfall (the "all items" export).
	IncludeAll  bool
	GeneratedAt time.Time
}

// Calculate groups the items that need ordering by vendor.
// Vendors and lines are sorted case-insensitively; the unassigned group is last.
func Calculate(items []model.Item, opts Options) model.OrderSheet {
	groups := make(map[string]*model.VendorGroup)
	for i := range items {
		line := BuildLine(&items[i])
		if line.CasesNeeded == 0 && !opts.IncludeAll {
			continue
		}
		g, ok := groups[line.Vendor]
		if !ok {
			g = &model.VendorGroup{Vendor: line.Vendor, Total: decimal.Zero}
			groups[line.Vendor] = g
		}
		g.Lines = append(g.Lines, line)
		if line.EstTotal.Valid {
			g.Total = g.Total.Add(line.EstTotal.Decimal)
		}
	}

	sheet := model.OrderSheet{
		Vendors:     make([]model.VendorGroup, 0, len(groups)),
		GrandTotal:  decimal.Zero,
		GeneratedAt: opts.GeneratedAt,
	}
	cmp := NewComparer()
	for _, g := range groups {
		sort.SliceStable(g.Lines, func(a, b int) bool {
			la, lb := g.Lines[a], g.Lines[b]
			if c := cmp.Compare(la.Spirit, lb.Spirit); c != 0 {
				return c < 0
			}
			return cmp.Compare(la.Category, lb.Category) < 0
		})
		sheet.Vendors = append(sheet.Vendors, *g)
		sheet.GrandTotal = sheet.GrandTotal.Add(g.Total)
		sheet.LineCount += len(g.Lines)
	}
	sort.Slice(sheet.Vendors, func(a, b int) bool {
		va, vb := sheet.Vendors[a].Vendor, sheet.Vendors[b].Vendor
		if (va == model.UnassignedVendor) != (vb == model.UnassignedVendor) {
			return vb == model.UnassignedVendor
		}
		return cmp.Compare(va, vb) < 0
	})
	return sheet
}

// BuildLine computes the order line of a single item.
func BuildLine(it *model.Item) model.OrderLine {
	par, _ := it.ParInUnits()
	line := model.OrderLine{
		Vendor:      it.DisplayVendor(),
		Category:    it.Category,
		Spirit:      it.Name,
		CaseSize:    it.CaseSize,
		ParUnits:    par,
		OnHand:      it.CurrentUnits,
		NeedUnits:   it.NeedUnits(),
		CasesNeeded: it.CasesToOrder(),
		CostPerCase: it.CostPerCase,
		Notes:       it.Notes,
	}
	if line.CasesNeeded > 0 && it.CostPerCase.Valid {
		line.EstTotal = decimal.NewNullDecimal(it.CostPerCase.Decimal.Mul(decimal.NewFromInt(int64(line.CasesNeeded))))
	}
	return line
}

// Comparer gives the listing order used across the app: collation ignoring
// case, then raw bytes. collate.Collator is not safe for concurrent use, so
// build one per sort.
type Comparer struct {
	c *collate.Collator
}

func NewComparer() Comparer {
	return Comparer{c: collate.New(language.Und, collate.IgnoreCase)}
}

func (c Comparer) Compare(a, b string) int {
	if r := c.c.CompareString(a, b); r != 0 {
		return r
	}
	return strings.Compare(a, b)
}
