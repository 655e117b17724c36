package inventoryadjustment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"sort"

	"barinv/database"
	"barinv/model"
	"barinv/render"
	"barinv/reorder"

	"github.com/jmoiron/sqlx"
)

// CountRow is one line of the stock-count sheet.
type CountRow struct {
	ID           int64  `json:"id"`
	Vendor       string `json:"vendor"`
	Category     string `json:"category"`
	Name         string `json:"name"`
	Unit         string `json:"unit"`
	CurrentUnits int    `json:"currentUnits"`
}

// SavePayload maps item id to the counted units.
type SavePayload struct {
	Counts map[int64]int `json:"counts"`
}

// GetCountSheetHandler は棚卸用の品目一覧を返します。
func GetCountSheetHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		items, err := database.SearchItems(r.Context(), conn, model.ItemFilters{
			Category: q.Get("category"),
			Vendor:   q.Get("vendor"),
		})
		if err != nil {
			log.Printf("[GetCountSheetHandler] ERROR: %v", err)
			render.JSONError(w, http.StatusInternalServerError, "failed to load items")
			return
		}
		render.JSON(w, http.StatusOK, CountSheet(items))
	}
}

// CountSheet orders the items the way they are shelved: category, then name.
func CountSheet(items []model.Item) []CountRow {
	rows := make([]CountRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, CountRow{
			ID:           it.ID,
			Vendor:       it.Vendor,
			Category:     it.Category,
			Name:         it.Name,
			Unit:         it.Unit,
			CurrentUnits: it.CurrentUnits,
		})
	}
	cmp := reorder.NewComparer()
	sort.SliceStable(rows, func(i, j int) bool {
		if c := cmp.Compare(rows[i].Category, rows[j].Category); c != 0 {
			return c < 0
		}
		return cmp.Compare(rows[i].Name, rows[j].Name) < 0
	})
	return rows
}

// SaveCounts writes every count or none of them.
func SaveCounts(ctx context.Context, conn *sqlx.DB, counts map[int64]int) (err error) {
	ids := make([]int64, 0, len(counts))
	for id, units := range counts {
		if units < 0 {
			return fmt.Errorf("%w: item %d: on hand must be >= 0", model.ErrInvalidItem, id)
		}
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	tx, err := conn.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()

	for _, id := range ids {
		if err = database.SetCurrentUnits(ctx, tx, id, counts[id]); err != nil {
			return err
		}
	}
	return nil
}

// SaveCountsHandler serves POST /api/count/save.
func SaveCountsHandler(conn *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.Header().Set("Allow", "POST")
			render.JSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		var payload SavePayload
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			render.JSONError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if len(payload.Counts) == 0 {
			render.JSONError(w, http.StatusBadRequest, "no counts given")
			return
		}

		err := SaveCounts(r.Context(), conn, payload.Counts)
		switch {
		case errors.Is(err, model.ErrInvalidItem):
			render.JSONError(w, http.StatusBadRequest, err.Error())
			return
		case errors.Is(err, database.ErrItemNotFound):
			render.JSONError(w, http.StatusNotFound, err.Error())
			return
		case err != nil:
			log.Printf("[SaveCountsHandler] ERROR: %v", err)
			render.JSONError(w, http.StatusInternalServerError, "failed to save counts")
			return
		}

		log.Printf("[SaveCountsHandler] Saved %d stock counts", len(payload.Counts))
		render.JSON(w, http.StatusOK, map[string]interface{}{"saved": len(payload.Counts)})
	}
}
