package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"barinv/model"

	"github.com/jmoiron/sqlx"
)

const itemColumns = `id, name, category, unit, case_size, par_cases, par_units, current_units,
	vendor, cost_per_case, lead_time_days, notes, updated_at`

const insertItemQuery = `
	INSERT INTO items (name, category, unit, case_size, par_cases, par_units, current_units,
		vendor, cost_per_case, lead_time_days, notes, updated_at)
	VALUES (:name, :category, :unit, :case_size, :par_cases, :par_units, :current_units,
		:vendor, :cost_per_case, :lead_time_days, :notes, :updated_at)`

const updateItemQuery = `
	UPDATE items SET
		name = :name,
		category = :category,
		unit = :unit,
		case_size = :case_size,
		par_cases = :par_cases,
		par_units = :par_units,
		current_units = :current_units,
		vendor = :vendor,
		cost_per_case = :cost_per_case,
		lead_time_days = :lead_time_days,
		notes = :notes,
		updated_at = :updated_at
	WHERE id = :id`

// CountItems returns the number of stored items.
func CountItems(ctx context.Context, e sqlx.ExtContext) (int, error) {
	var n int
	if err := sqlx.GetContext(ctx, e, &n, "SELECT COUNT(*) FROM items"); err != nil {
		return 0, fmt.Errorf("failed to count items: %w", err)
	}
	return n, nil
}

// GetAllItems は全品目を仕入先・カテゴリ・品名順で返します。
func GetAllItems(ctx context.Context, e sqlx.ExtContext) ([]model.Item, error) {
	return SearchItems(ctx, e, model.ItemFilters{})
}

// likeEscaper makes LIKE wildcards in a search query literal. '!' is used
// because backslash is itself special in MySQL string literals.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// SearchItems applies the list filters in SQL. Query matches name, category
// and vendor case-insensitively.
func SearchItems(ctx context.Context, e sqlx.ExtContext, f model.ItemFilters) ([]model.Item, error) {
	var (
		conds []string
		args  []interface{}
	)
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		like := "%" + likeEscaper.Replace(q) + "%"
		conds = append(conds, "(LOWER(name) LIKE ? ESCAPE '!' OR LOWER(category) LIKE ? ESCAPE '!' OR LOWER(vendor) LIKE ? ESCAPE '!')")
		args = append(args, like, like, like)
	}
	if c := strings.TrimSpace(f.Category); c != "" {
		conds = append(conds, "category = ?")
		args = append(args, c)
	}
	if v := strings.TrimSpace(f.Vendor); v != "" {
		if strings.EqualFold(v, model.UnassignedVendor) {
			v = ""
		}
		conds = append(conds, "vendor = ?")
		args = append(args, v)
	}

	query := "SELECT " + itemColumns + " FROM items"
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	query += " ORDER BY vendor, category, name, id"

	items := []model.Item{}
	if err := sqlx.SelectContext(ctx, e, &items, e.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to search items: %w", err)
	}
	return items, nil
}

func GetItemByID(ctx context.Context, e sqlx.ExtContext, id int64) (*model.Item, error) {
	var item model.Item
	err := sqlx.GetContext(ctx, e, &item, e.Rebind("SELECT "+itemColumns+" FROM items WHERE id = ?"), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrItemNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get item %d: %w", id, err)
	}
	return &item, nil
}

// FindItemByKey looks an item up by vendor and name, ignoring case and
// surrounding spaces. It returns nil when nothing matches.
//
// SQL LOWER() only folds ASCII on SQLite, so the exact pair is tried first and
// the case-insensitive match is done in Go.
func FindItemByKey(ctx context.Context, e sqlx.ExtContext, vendor, name string) (*model.Item, error) {
	vendor, name = strings.TrimSpace(vendor), strings.TrimSpace(name)

	var item model.Item
	err := sqlx.GetContext(ctx, e, &item, e.Rebind(`
		SELECT `+itemColumns+` FROM items
		WHERE vendor = ? AND name = ?`), vendor, name)
	if err == nil {
		return &item, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("FindItemByKey (Vendor: %s, Name: %s) failed: %w", vendor, name, err)
	}

	var keys []struct {
		ID     int64  `db:"id"`
		Vendor string `db:"vendor"`
		Name   string `db:"name"`
	}
	if err := sqlx.SelectContext(ctx, e, &keys, "SELECT id, vendor, name FROM items ORDER BY id"); err != nil {
		return nil, fmt.Errorf("FindItemByKey (Vendor: %s, Name: %s) failed: %w", vendor, name, err)
	}
	want := model.ItemKey(vendor, name)
	for _, k := range keys {
		if model.ItemKey(k.Vendor, k.Name) == want {
			return GetItemByID(ctx, e, k.ID)
		}
	}
	return nil, nil
}

// CreateItem validates and inserts item, filling in its ID and UpdatedAt.
func CreateItem(ctx context.Context, e sqlx.ExtContext, item *model.Item) error {
	item.Normalize()
	if err := item.Validate(); err != nil {
		return err
	}
	item.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	query, args, err := e.BindNamed(insertItemQuery, item)
	if err != nil {
		return fmt.Errorf("CreateItem bind failed: %w", err)
	}

	if e.DriverName() == DriverPostgres {
		err = e.QueryRowxContext(ctx, query+" RETURNING id", args...).Scan(&item.ID)
	} else {
		var res sql.Result
		res, err = e.ExecContext(ctx, query, args...)
		if err == nil {
			item.ID, err = res.LastInsertId()
		}
	}
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("CreateItem (Vendor: %s, Name: %s): %w", item.Vendor, item.Name, ErrDuplicateItem)
		}
		return fmt.Errorf("CreateItem (Vendor: %s, Name: %s) failed: %w", item.Vendor, item.Name, err)
	}
	return nil
}

// UpdateItem overwrites every column of the stored item. Last write wins.
func UpdateItem(ctx context.Context, e sqlx.ExtContext, item *model.Item) error {
	item.Normalize()
	if err := item.Validate(); err != nil {
		return err
	}
	item.UpdatedAt = time.Now().UTC().Truncate(time.Second)

	query, args, err := e.BindNamed(updateItemQuery, item)
	if err != nil {
		return fmt.Errorf("UpdateItem bind failed: %w", err)
	}
	res, err := e.ExecContext(ctx, query, args...)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("UpdateItem (ID: %d): %w", item.ID, ErrDuplicateItem)
		}
		return fmt.Errorf("UpdateItem (ID: %d) failed: %w", item.ID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}

func DeleteItem(ctx context.Context, e sqlx.ExtContext, id int64) error {
	res, err := e.ExecContext(ctx, e.Rebind("DELETE FROM items WHERE id = ?"), id)
	if err != nil {
		return fmt.Errorf("failed to delete item with id %d: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrItemNotFound
	}
	return nil
}

// InsertItemsInTx inserts every item or none of them.
func InsertItemsInTx(ctx context.Context, tx *sqlx.Tx, items []model.Item) error {
	for i := range items {
		if err := CreateItem(ctx, tx, &items[i]); err != nil {
			return fmt.Errorf("row %d: %w", i+1, err)
		}
	}
	return nil
}

// GetCategories は登録済みカテゴリの一覧を返します。
func GetCategories(ctx context.Context, e sqlx.ExtContext) ([]string, error) {
	categories := []string{}
	if err := sqlx.SelectContext(ctx, e, &categories, "SELECT DISTINCT category FROM items ORDER BY category"); err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	return categories, nil
}

// GetVendors returns every vendor with its item count. The unassigned bucket
// is reported under model.UnassignedVendor.
func GetVendors(ctx context.Context, e sqlx.ExtContext) ([]model.Vendor, error) {
	var vendors []model.Vendor
	err := sqlx.SelectContext(ctx, e, &vendors,
		"SELECT vendor, COUNT(*) AS item_count FROM items GROUP BY vendor ORDER BY vendor")
	if err != nil {
		return nil, fmt.Errorf("failed to get vendors: %w", err)
	}

	result := make([]model.Vendor, 0, len(vendors))
	var unassigned *model.Vendor
	for i := range vendors {
		if vendors[i].Name == "" {
			vendors[i].Name = model.UnassignedVendor
			unassigned = &vendors[i]
			continue
		}
		result = append(result, vendors[i])
	}
	if unassigned != nil {
		result = append(result, *unassigned)
	}
	return result, nil
}

// GetItemMetrics counts data-quality gaps for the metrics page.
func GetItemMetrics(ctx context.Context, e sqlx.ExtContext) (model.ItemMetrics, error) {
	var m model.ItemMetrics
	err := sqlx.GetContext(ctx, e, &m, `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(CASE WHEN case_size <= 1 THEN 1 ELSE 0 END), 0) AS missing_case,
			COALESCE(SUM(CASE WHEN par_cases IS NULL AND par_units IS NULL THEN 1 ELSE 0 END), 0) AS missing_par,
			COALESCE(SUM(CASE WHEN cost_per_case IS NULL THEN 1 ELSE 0 END), 0) AS without_cost
		FROM items`)
	if err != nil {
		return model.ItemMetrics{}, fmt.Errorf("failed to get item metrics: %w", err)
	}
	return m, nil
}

// RenameVendor moves every item of vendor from to vendor to and returns the
// number of rows changed.
func RenameVendor(ctx context.Context, e sqlx.ExtContext, from, to string) (int64, error) {
	res, err := e.ExecContext(ctx, e.Rebind("UPDATE items SET vendor = ?, updated_at = ? WHERE vendor = ?"),
		to, time.Now().UTC().Truncate(time.Second), from)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, fmt.Errorf("RenameVendor (%s -> %s): %w", from, to, ErrDuplicateItem)
		}
		return 0, fmt.Errorf("RenameVendor (%s -> %s) failed: %w", from, to, err)
	}
	return res.RowsAffected()
}

// SetCurrentUnits records a counted on-hand quantity for one item.
func SetCurrentUnits(ctx context.Context, e sqlx.ExtContext, id int64, units int) error {
	if units < 0 {
		return fmt.Errorf("%w: on hand must be >= 0", model.ErrInvalidItem)
	}
	res, err := e.ExecContext(ctx, e.Rebind("UPDATE items SET current_units = ?, updated_at = ? WHERE id = ?"),
		units, time.Now().UTC().Truncate(time.Second), id)
	if err != nil {
		return fmt.Errorf("SetCurrentUnits (ID: %d) failed: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("SetCurrentUnits (ID: %d): %w", id, ErrItemNotFound)
	}
	return nil
}
