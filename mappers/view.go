package mappers

import (
	"fmt"
	"net/url"
	"strings"

	"barinv/model"
	"barinv/parsers"

	"github.com/shopspring/decimal"
)

// ItemView は一覧画面用に計算済みの値を持つ品目です。
type ItemView struct {
	model.Item
	VendorLabel  string `json:"vendorLabel"`
	ParInUnits   *int   `json:"parInUnits"`
	NeedUnits    int    `json:"needUnits"`
	CasesToOrder int    `json:"casesToOrder"`
}

// CategorySection と VendorSection は「仕入先ごと」表示のグループです。
type CategorySection struct {
	Category string
	Items    []ItemView
}

type VendorSection struct {
	Vendor     string
	Categories []CategorySection
}

// ToItemView は model.Item を画面表示用の ItemView に変換します。
func ToItemView(it model.Item) ItemView {
	v := ItemView{
		Item:         it,
		VendorLabel:  it.DisplayVendor(),
		NeedUnits:    it.NeedUnits(),
		CasesToOrder: it.CasesToOrder(),
	}
	if par, ok := it.ParInUnits(); ok {
		v.ParInUnits = &par
	}
	return v
}

// ToItemViews converts items and optionally drops those with nothing to order.
func ToItemViews(items []model.Item, onlyToOrder bool) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, it := range items {
		v := ToItemView(it)
		if onlyToOrder && v.CasesToOrder == 0 {
			continue
		}
		views = append(views, v)
	}
	return views
}

// GroupByVendor groups views vendor → category, keeping the input order
// within each level. Unassigned items go last.
func GroupByVendor(views []ItemView) []VendorSection {
	var sections []VendorSection
	vendorIdx := make(map[string]int)
	catIdx := make(map[string]int)
	for _, v := range views {
		idx, ok := vendorIdx[v.VendorLabel]
		if !ok {
			idx = len(sections)
			vendorIdx[v.VendorLabel] = idx
			sections = append(sections, VendorSection{Vendor: v.VendorLabel})
		}
		sec := &sections[idx]

		cat := v.Category
		if cat == "" {
			cat = "Other"
		}
		key := v.VendorLabel + "|" + cat
		ci, ok := catIdx[key]
		if !ok {
			ci = len(sec.Categories)
			catIdx[key] = ci
			sec.Categories = append(sec.Categories, CategorySection{Category: cat})
		}
		sec.Categories[ci].Items = append(sec.Categories[ci].Items, v)
	}

	if idx, ok := vendorIdx[model.UnassignedVendor]; ok && idx != len(sections)-1 {
		un := sections[idx]
		sections = append(sections[:idx], sections[idx+1:]...)
		sections = append(sections, un)
	}
	return sections
}

// FiltersFromQuery reads the q, category and vendor parameters.
func FiltersFromQuery(q url.Values) model.ItemFilters {
	return model.ItemFilters{
		Query:    strings.TrimSpace(q.Get("q")),
		Category: strings.TrimSpace(q.Get("category")),
		Vendor:   strings.TrimSpace(q.Get("vendor")),
	}
}

// ItemFromForm builds an item from the edit form. Optional numeric fields
// left blank stay NULL. The result is normalized but not validated.
func ItemFromForm(form url.Values) (model.Item, error) {
	get := func(key string) string { return strings.TrimSpace(form.Get(key)) }

	it := model.Item{
		Name:     get("name"),
		Category: get("category"),
		Unit:     get("unit"),
		Vendor:   get("vendor"),
		Notes:    get("notes"),
	}

	var err error
	if s := get("case_size"); s != "" {
		if it.CaseSize, err = parsers.ParseInt(s); err != nil {
			return it, fmt.Errorf("%w: case size: %v", model.ErrInvalidItem, err)
		}
	}
	if s := get("current_units"); s != "" {
		if it.CurrentUnits, err = parsers.ParseInt(s); err != nil {
			return it, fmt.Errorf("%w: on hand: %v", model.ErrInvalidItem, err)
		}
	}
	optional := []struct {
		key   string
		label string
		dst   **int
	}{
		{"par_cases", "par cases", &it.ParCases},
		{"par_units", "par units", &it.ParUnits},
		{"lead_time_days", "lead time", &it.LeadTimeDays},
	}
	for _, o := range optional {
		s := get(o.key)
		if s == "" {
			continue
		}
		n, err := parsers.ParseInt(s)
		if err != nil {
			return it, fmt.Errorf("%w: %s: %v", model.ErrInvalidItem, o.label, err)
		}
		*o.dst = &n
	}
	if s := get("cost_per_case"); s != "" {
		d, err := decimal.NewFromString(strings.TrimPrefix(s, "$"))
		if err != nil {
			return it, fmt.Errorf("%w: cost per case: invalid number %q", model.ErrInvalidItem, s)
		}
		it.CostPerCase = decimal.NewNullDecimal(d)
	}

	it.Normalize()
	return it, nil
}
