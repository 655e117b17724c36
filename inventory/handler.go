package inventory

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"barinv/database"
	"barinv/mappers"
	"barinv/model"
	"barinv/render"

	"github.com/jmoiron/sqlx"
)

// IndexPage は品目一覧画面のデータです。
type IndexPage struct {
	render.Page
	Items       []mappers.ItemView
	Grouped     []mappers.VendorSection
	Filters     model.ItemFilters
	Categories  []string
	Vendors     []model.Vendor
	OnlyToOrder bool
	Group       string
}

// EditPage backs both the new and edit forms.
type EditPage struct {
	render.Page
	Item       model.Item
	IsNew      bool
	Action     string
	Error      string
	Categories []string
	Vendors    []model.Vendor
}

// IndexHandler serves GET /.
func IndexHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			rd.Error(w, http.StatusNotFound, "Page not found.")
			return
		}
		ctx := r.Context()
		q := r.URL.Query()
		filters := mappers.FiltersFromQuery(q)

		items, err := database.SearchItems(ctx, db, filters)
		if err != nil {
			log.Printf("ERROR: listing items: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Failed to load items.")
			return
		}
		categories, err := database.GetCategories(ctx, db)
		if err != nil {
			log.Printf("ERROR: listing categories: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Failed to load items.")
			return
		}
		vendors, err := database.GetVendors(ctx, db)
		if err != nil {
			log.Printf("ERROR: listing vendors: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Failed to load items.")
			return
		}

		page := IndexPage{
			Page:        render.Page{Title: "Bar Inventory", Flash: render.FlashFrom(r)},
			Filters:     filters,
			Categories:  categories,
			Vendors:     vendors,
			OnlyToOrder: q.Get("to_order") == "1",
			Group:       q.Get("group"),
		}
		page.Items = mappers.ToItemViews(items, page.OnlyToOrder)
		if page.Group == "vendor" {
			page.Grouped = mappers.GroupByVendor(page.Items)
		}
		rd.HTML(w, http.StatusOK, "index.html", page)
	}
}

// NewItemHandler serves GET and POST /item/new.
func NewItemHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := EditPage{
			Page:   render.Page{Title: "New Item"},
			Item:   model.Item{Category: model.DefaultCategory, Unit: model.DefaultUnit, CaseSize: 1},
			IsNew:  true,
			Action: "/item/new",
		}
		switch r.Method {
		case http.MethodGet:
			renderForm(w, r, db, rd, http.StatusOK, page)
		case http.MethodPost:
			item, err := mappers.ItemFromForm(formValues(r))
			page.Item = item
			if err == nil {
				err = database.CreateItem(r.Context(), db, &page.Item)
			}
			if err != nil {
				formError(w, r, db, rd, page, err)
				return
			}
			log.Printf("Item created: %d (%s / %s)", page.Item.ID, page.Item.Vendor, page.Item.Name)
			render.Redirect(w, r, "/", "Item created.")
		default:
			w.Header().Set("Allow", "GET, POST")
			rd.Error(w, http.StatusMethodNotAllowed, "")
		}
	}
}

// EditItemHandler serves GET and POST /item/{id}/edit.
func EditItemHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := itemID(w, r, rd)
		if !ok {
			return
		}
		existing, err := database.GetItemByID(r.Context(), db, id)
		if err != nil {
			itemLookupError(w, rd, id, err)
			return
		}
		page := EditPage{
			Page:   render.Page{Title: "Edit " + existing.Name},
			Item:   *existing,
			Action: fmt.Sprintf("/item/%d/edit", id),
		}

		switch r.Method {
		case http.MethodGet:
			renderForm(w, r, db, rd, http.StatusOK, page)
		case http.MethodPost:
			item, err := mappers.ItemFromForm(formValues(r))
			item.ID = id
			page.Item = item
			if err == nil {
				err = database.UpdateItem(r.Context(), db, &page.Item)
			}
			if errors.Is(err, database.ErrItemNotFound) {
				rd.Error(w, http.StatusNotFound, "Item not found.")
				return
			}
			if err != nil {
				formError(w, r, db, rd, page, err)
				return
			}
			render.Redirect(w, r, "/", "Item updated.")
		default:
			w.Header().Set("Allow", "GET, POST")
			rd.Error(w, http.StatusMethodNotAllowed, "")
		}
	}
}

// DeleteItemHandler serves POST /item/{id}/delete.
func DeleteItemHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			rd.Error(w, http.StatusMethodNotAllowed, "")
			return
		}
		id, ok := itemID(w, r, rd)
		if !ok {
			return
		}
		if err := database.DeleteItem(r.Context(), db, id); err != nil {
			itemLookupError(w, rd, id, err)
			return
		}
		log.Printf("Item deleted: %d", id)
		render.Redirect(w, r, "/", "Item deleted.")
	}
}

func itemID(w http.ResponseWriter, r *http.Request, rd *render.Renderer) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		rd.Error(w, http.StatusNotFound, "Item not found.")
		return 0, false
	}
	return id, true
}

func itemLookupError(w http.ResponseWriter, rd *render.Renderer, id int64, err error) {
	if errors.Is(err, database.ErrItemNotFound) {
		rd.Error(w, http.StatusNotFound, "Item not found.")
		return
	}
	log.Printf("ERROR: item %d: %v", id, err)
	rd.Error(w, http.StatusInternalServerError, "Database error.")
}

func formValues(r *http.Request) url.Values {
	if err := r.ParseForm(); err != nil {
		log.Printf("WARN: parsing form: %v", err)
	}
	return r.PostForm
}

// formError re-renders the form: 400 for invalid input, 409 for a duplicate.
func formError(w http.ResponseWriter, r *http.Request, db *sqlx.DB, rd *render.Renderer, page EditPage, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidItem):
		page.Error = err.Error()
		renderForm(w, r, db, rd, http.StatusBadRequest, page)
	case errors.Is(err, database.ErrDuplicateItem):
		page.Error = fmt.Sprintf("%q from %q already exists.", page.Item.Name, page.Item.DisplayVendor())
		renderForm(w, r, db, rd, http.StatusConflict, page)
	default:
		log.Printf("ERROR: saving item: %v", err)
		rd.Error(w, http.StatusInternalServerError, "Failed to save the item.")
	}
}

func renderForm(w http.ResponseWriter, r *http.Request, db *sqlx.DB, rd *render.Renderer, status int, page EditPage) {
	var err error
	if page.Categories, err = database.GetCategories(r.Context(), db); err != nil {
		log.Printf("WARN: loading categories for form: %v", err)
	}
	if page.Vendors, err = database.GetVendors(r.Context(), db); err != nil {
		log.Printf("WARN: loading vendors for form: %v", err)
	}
	rd.HTML(w, status, "edit.html", page)
}
