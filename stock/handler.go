package stock

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"time"

	"barinv/config"
	"barinv/database"
	"barinv/parsers"
	"barinv/render"

	"github.com/jmoiron/sqlx"
)

const maxUploadBytes = 10 << 20

// ImportPage は CSV 取込画面のデータです。
type ImportPage struct {
	render.Page
	Encoding string
	Result   *ImportResult
}

// ExportItemsHandler serves GET /export.
func ExportItemsHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		items, err := database.GetAllItems(r.Context(), db)
		if err != nil {
			log.Printf("ERROR: exporting items: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Failed to load items.")
			return
		}

		var buf bytes.Buffer
		if err := WriteItemsCSV(&buf, items); err != nil {
			log.Printf("ERROR: writing items CSV: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Failed to write the CSV file.")
			return
		}

		filename := fmt.Sprintf("bar_inventory_export_%s.csv", time.Now().Format("20060102"))
		w.Header().Set("Content-Type", "text/csv; charset=utf-8")
		w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(filename))
		w.Write(buf.Bytes())
	}
}

// ImportHandler serves GET and POST /import.
func ImportHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page := ImportPage{
			Page:     render.Page{Title: "Import Items", Flash: render.FlashFrom(r)},
			Encoding: config.GetConfig().SeedEncoding,
		}

		switch r.Method {
		case http.MethodGet:
			rd.HTML(w, http.StatusOK, "import.html", page)
			return
		case http.MethodPost:
		default:
			w.Header().Set("Allow", "GET, POST")
			rd.Error(w, http.StatusMethodNotAllowed, "")
			return
		}

		r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
		file, _, err := r.FormFile("file")
		if err != nil {
			page.Flash = "No file selected."
			rd.HTML(w, http.StatusBadRequest, "import.html", page)
			return
		}
		defer file.Close()

		page.Encoding = r.FormValue("encoding")
		records, skipped, err := parsers.ParseImportCSV(file, page.Encoding)
		if err != nil {
			page.Flash = "Could not read the CSV file: " + err.Error()
			rd.HTML(w, http.StatusBadRequest, "import.html", page)
			return
		}

		result, err := ImportItems(r.Context(), db, records)
		if err != nil {
			log.Printf("ERROR: importing items: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Import failed; no changes were saved.")
			return
		}
		result.Skipped = append(skipped, result.Skipped...)
		log.Printf("Imported items CSV: %d new, %d updated, %d skipped", result.Created, result.Updated, len(result.Skipped))

		page.Result = &result
		page.Flash = fmt.Sprintf("Imported %d new items (%d existing updated).", result.Created, result.Updated)
		rd.HTML(w, http.StatusOK, "import.html", page)
	}
}

// DedupeHandler serves POST /admin/dedupe.
func DedupeHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			rd.Error(w, http.StatusMethodNotAllowed, "")
			return
		}
		removed, err := Dedupe(r.Context(), db)
		if err != nil {
			log.Printf("ERROR: de-duplicating items: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Failed to merge duplicates.")
			return
		}
		render.Redirect(w, r, "/", fmt.Sprintf("Removed %d duplicates.", removed))
	}
}
