package reorder

import (
	"context"
	"html/template"
	"log"
	"net/http"
	"net/url"
	"time"

	"barinv/database"
	"barinv/mappers"
	"barinv/model"
	"barinv/render"

	"github.com/jmoiron/sqlx"
)

// OrderPage は「発注リスト」画面のデータです。
type OrderPage struct {
	render.Page
	Sheet       model.OrderSheet
	Filters     model.ItemFilters
	Categories  []string
	Vendors     []model.Vendor
	ExcelURL    template.URL
	ExcelAllURL template.URL
	PDFURL      template.URL
}

// LoadSheet reads the filtered items and calculates the order sheet.
func LoadSheet(ctx context.Context, db sqlx.ExtContext, filters model.ItemFilters, includeAll bool) (model.OrderSheet, error) {
	items, err := database.SearchItems(ctx, db, filters)
	if err != nil {
		return model.OrderSheet{}, err
	}
	return Calculate(items, Options{IncludeAll: includeAll, GeneratedAt: time.Now()}), nil
}

// BuildOrderPage assembles the page data, including pick-lists and export links.
func BuildOrderPage(ctx context.Context, db sqlx.ExtContext, filters model.ItemFilters) (*OrderPage, error) {
	sheet, err := LoadSheet(ctx, db, filters, false)
	if err != nil {
		return nil, err
	}
	categories, err := database.GetCategories(ctx, db)
	if err != nil {
		return nil, err
	}
	vendors, err := database.GetVendors(ctx, db)
	if err != nil {
		return nil, err
	}

	q := filterQuery(filters)
	all := filterQuery(filters)
	all.Set("all", "1")
	return &OrderPage{
		Page:        render.Page{Title: "What to Order"},
		Sheet:       sheet,
		Filters:     filters,
		Categories:  categories,
		Vendors:     vendors,
		ExcelURL:    template.URL("/order.xlsx?" + q.Encode()),
		ExcelAllURL: template.URL("/order.xlsx?" + all.Encode()),
		PDFURL:      template.URL("/order.pdf?" + q.Encode()),
	}, nil
}

func filterQuery(f model.ItemFilters) url.Values {
	q := url.Values{}
	if f.Query != "" {
		q.Set("q", f.Query)
	}
	if f.Category != "" {
		q.Set("category", f.Category)
	}
	if f.Vendor != "" {
		q.Set("vendor", f.Vendor)
	}
	return q
}

// OrderPageHandler renders GET /order.
func OrderPageHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := BuildOrderPage(r.Context(), db, mappers.FiltersFromQuery(r.URL.Query()))
		if err != nil {
			log.Printf("ERROR: building order page: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Failed to load the order list.")
			return
		}
		rd.HTML(w, http.StatusOK, "order.html", page)
	}
}

// OrderJSONHandler serves GET /api/order. all=1 includes items with no shortfall.
func OrderJSONHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		sheet, err := LoadSheet(r.Context(), db, mappers.FiltersFromQuery(q), q.Get("all") == "1")
		if err != nil {
			log.Printf("ERROR: calculating order sheet: %v", err)
			render.JSONError(w, http.StatusInternalServerError, "failed to calculate order")
			return
		}
		render.JSON(w, http.StatusOK, sheet)
	}
}
