package inventory

import (
	"log"
	"net/http"

	"barinv/database"
	"barinv/mappers"
	"barinv/render"

	"github.com/jmoiron/sqlx"
)

// ListItemsHandler serves GET /api/items with the same filters as the list page.
func ListItemsHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		items, err := database.SearchItems(r.Context(), db, mappers.FiltersFromQuery(q))
		if err != nil {
			log.Printf("ERROR: /api/items: %v", err)
			render.JSONError(w, http.StatusInternalServerError, "failed to list items")
			return
		}
		render.JSON(w, http.StatusOK, mappers.ToItemViews(items, q.Get("to_order") == "1"))
	}
}

// ListCategoriesHandler serves GET /api/categories.
func ListCategoriesHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		categories, err := database.GetCategories(r.Context(), db)
		if err != nil {
			log.Printf("ERROR: /api/categories: %v", err)
			render.JSONError(w, http.StatusInternalServerError, "failed to list categories")
			return
		}
		render.JSON(w, http.StatusOK, categories)
	}
}
