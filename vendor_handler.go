package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"

	"barinv/database"
	"barinv/model"
	"barinv/render"

	"github.com/jmoiron/sqlx"
)

// ListVendorsHandler は仕入先一覧を返します。
func ListVendorsHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vendors, err := database.GetVendors(r.Context(), db)
		if err != nil {
			log.Printf("Error getting vendors: %v", err)
			render.JSONError(w, http.StatusInternalServerError, "failed to list vendors")
			return
		}
		render.JSON(w, http.StatusOK, vendors)
	}
}

// RenameVendorHandler moves every item of one vendor to another name.
func RenameVendorHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			render.JSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var input struct {
			From string `json:"from"`
			To   string `json:"to"`
		}
		if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
			render.JSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		from, to := strings.TrimSpace(input.From), strings.TrimSpace(input.To)
		if strings.EqualFold(from, model.UnassignedVendor) {
			from = ""
		}
		if strings.EqualFold(to, model.UnassignedVendor) {
			to = ""
		}
		if from == to {
			render.JSONError(w, http.StatusBadRequest, "from and to must differ")
			return
		}

		n, err := database.RenameVendor(r.Context(), db, from, to)
		if err != nil {
			if errors.Is(err, database.ErrDuplicateItem) {
				render.JSONError(w, http.StatusConflict, "the target vendor already carries an item with the same name")
				return
			}
			log.Printf("Error renaming vendor %q to %q: %v", from, to, err)
			render.JSONError(w, http.StatusInternalServerError, "failed to rename vendor")
			return
		}
		log.Printf("Vendor %q renamed to %q (%d items)", from, to, n)
		render.JSON(w, http.StatusOK, map[string]interface{}{"updated": n})
	}
}
