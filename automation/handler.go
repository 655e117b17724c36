package automation

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"barinv/config"
	"barinv/mappers"
	"barinv/reorder"
	"barinv/render"

	"github.com/jmoiron/sqlx"
)

const printTimeout = 60 * time.Second

// OrderPDFHandler serves GET /order.pdf: the order page printed by a headless browser.
func OrderPDFHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := reorder.BuildOrderPage(r.Context(), db, mappers.FiltersFromQuery(r.URL.Query()))
		if err != nil {
			log.Printf("ERROR: building order page for PDF: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Failed to load the order list.")
			return
		}
		page.Print = true

		var html bytes.Buffer
		if err := rd.Render(&html, "order.html", page); err != nil {
			log.Printf("ERROR: rendering order page for PDF: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Failed to render the order list.")
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), printTimeout)
		defer cancel()

		log.Println("Printing order sheet to PDF...")
		pdf, err := PrintPDF(ctx, config.GetConfig().BrowserPath, html.String())
		if err != nil {
			if errors.Is(err, ErrNoBrowser) {
				log.Printf("WARN: PDF requested but no browser is available")
				rd.Error(w, http.StatusServiceUnavailable, "PDF export needs Chrome or Chromium. Set browserPath in the settings or use the Excel export.")
				return
			}
			log.Printf("ERROR: printing PDF: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Failed to print the order list.")
			return
		}

		fileName := fmt.Sprintf("bar_order_%s.pdf", page.Sheet.GeneratedAt.Format("2006-01-02"))
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
		w.Write(pdf)
	}
}
