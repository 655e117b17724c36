package export

import (
	"bytes"
	"fmt"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"barinv/config"
	"barinv/mappers"
	"barinv/reorder"
	"barinv/render"

	"github.com/jmoiron/sqlx"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// WorkbookFileName は bar_order_<日付>[_all].xlsx を返します。
func WorkbookFileName(now time.Time, includeAll bool) string {
	suffix := ""
	if includeAll {
		suffix = "_all"
	}
	return fmt.Sprintf("bar_order_%s%s.xlsx", now.Format(dateLayout), suffix)
}

// OrderWorkbookHandler serves GET /order.xlsx. all=1 exports every item.
func OrderWorkbookHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		includeAll := q.Get("all") == "1"

		sheet, err := reorder.LoadSheet(r.Context(), db, mappers.FiltersFromQuery(q), includeAll)
		if err != nil {
			log.Printf("ERROR: loading order sheet for export: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Failed to load the order list.")
			return
		}

		var buf bytes.Buffer
		if err := WriteOrderWorkbook(&buf, sheet); err != nil {
			log.Printf("ERROR: building order workbook: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Failed to build the Excel file.")
			return
		}

		fileName := WorkbookFileName(sheet.GeneratedAt, includeAll)
		if folder := config.GetConfig().ExportFolderPath; folder != "" {
			if path, err := archive(folder, fileName, buf.Bytes()); err != nil {
				log.Printf("WARN: failed to archive %s: %v", fileName, err)
			} else {
				log.Printf("Order workbook archived to %s", path)
			}
		}

		w.Header().Set("Content-Type", xlsxContentType)
		w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, fileName))
		w.Write(buf.Bytes())
	}
}

func archive(folder, fileName string, data []byte) (string, error) {
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", err
	}
	path := filepath.Join(folder, fileName)
	return path, os.WriteFile(path, data, 0644)
}
