package stock

import (
	"context"
	"fmt"
	"log"
	"sort"

	"barinv/database"
	"barinv/model"

	"github.com/jmoiron/sqlx"
)

// Dedupe merges items whose trimmed, case-folded (vendor, name) collide.
// The lowest id survives and absorbs the others; it returns how many rows were removed.
func Dedupe(ctx context.Context, db *sqlx.DB) (removed int, err error) {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
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

	items, err := database.GetAllItems(ctx, tx)
	if err != nil {
		return 0, err
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	groups := make(map[string][]*model.Item)
	var keys []string
	for i := range items {
		key := model.ItemKey(items[i].Vendor, items[i].Name)
		if _, ok := groups[key]; !ok {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], &items[i])
	}

	for _, key := range keys {
		group := groups[key]
		if len(group) < 2 {
			continue
		}
		keep := group[0]
		for _, dup := range group[1:] {
			MergeDuplicate(keep, dup)
			if err = database.DeleteItem(ctx, tx, dup.ID); err != nil {
				return 0, err
			}
			removed++
		}
		if err = database.UpdateItem(ctx, tx, keep); err != nil {
			return 0, fmt.Errorf("failed to merge into item %d: %w", keep.ID, err)
		}
		log.Printf("Merged %d duplicate(s) into item %d (%s / %s)", len(group)-1, keep.ID, keep.Vendor, keep.Name)
	}
	return removed, nil
}

// MergeDuplicate folds dup into keep: the larger on-hand count wins, missing
// fields are filled and notes are appended.
func MergeDuplicate(keep, dup *model.Item) {
	if dup.CurrentUnits > keep.CurrentUnits {
		keep.CurrentUnits = dup.CurrentUnits
	}
	if keep.CaseSize <= 1 && dup.CaseSize > 1 {
		keep.CaseSize = dup.CaseSize
	}
	if keep.ParCases == nil && dup.ParCases != nil {
		keep.ParCases = dup.ParCases
	}
	if keep.ParUnits == nil && dup.ParUnits != nil {
		keep.ParUnits = dup.ParUnits
	}
	if !keep.CostPerCase.Valid && dup.CostPerCase.Valid {
		keep.CostPerCase = dup.CostPerCase
	}
	if keep.LeadTimeDays == nil && dup.LeadTimeDays != nil {
		keep.LeadTimeDays = dup.LeadTimeDays
	}
	keep.Notes = appendNote(keep.Notes, dup.Notes)
}
