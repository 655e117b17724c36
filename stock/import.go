package stock

import (
	"context"
	"errors"
	"fmt"
	"log"

	"barinv/database"
	"barinv/model"
	"barinv/parsers"

	"github.com/jmoiron/sqlx"
)

// ImportResult summarizes a CSV merge.
type ImportResult struct {
	Created int
	Updated int
	Skipped []parsers.RowError
}

// ImportItems merges parsed rows into storage in one transaction.
//
// Rows match existing items case-insensitively on (vendor, name). A match takes
// every non-empty numeric column from the row, keeps the larger on-hand count
// and appends the row's notes. Unmatched rows are inserted. Rows that would
// break an item invariant are skipped; any other database error aborts the
// whole import.
func ImportItems(ctx context.Context, db *sqlx.DB, records []parsers.ParsedItemRecord) (result ImportResult, err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return ImportResult{}, fmt.Errorf("failed to begin transaction: %w", err)
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

	for _, rec := range records {
		existing, err := database.FindItemByKey(ctx, tx, rec.Item.Vendor, rec.Item.Name)
		if err != nil {
			return ImportResult{}, err
		}

		if existing == nil {
			item := rec.Item
			err = database.CreateItem(ctx, tx, &item)
			if err == nil {
				result.Created++
			}
		} else {
			MergeRecord(existing, rec)
			err = database.UpdateItem(ctx, tx, existing)
			if err == nil {
				result.Updated++
			}
		}
		if err != nil {
			if errors.Is(err, model.ErrInvalidItem) {
				log.Printf("WARN: import CSV line %d skipped: %v", rec.Line, err)
				result.Skipped = append(result.Skipped, parsers.RowError{Line: rec.Line, Err: err})
				continue
			}
			return ImportResult{}, fmt.Errorf("line %d: %w", rec.Line, err)
		}
	}
	return result, nil
}

// MergeRecord applies an import row to an existing item.
func MergeRecord(dst *model.Item, rec parsers.ParsedItemRecord) {
	src := rec.Item
	if rec.Present["case_size"] {
		dst.CaseSize = src.CaseSize
	}
	if rec.Present["par_cases"] {
		dst.ParCases = src.ParCases
	}
	if rec.Present["par_units"] {
		dst.ParUnits = src.ParUnits
	}
	if rec.Present["cost_per_case"] {
		dst.CostPerCase = src.CostPerCase
	}
	if rec.Present["lead_time_days"] {
		dst.LeadTimeDays = src.LeadTimeDays
	}
	if src.CurrentUnits > dst.CurrentUnits {
		dst.CurrentUnits = src.CurrentUnits
	}
	dst.Notes = appendNote(dst.Notes, src.Notes)
}

func appendNote(existing, add string) string {
	switch {
	case add == "":
		return existing
	case existing == "":
		return add
	}
	return existing + " | " + add
}
