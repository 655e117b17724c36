package model

// ItemFilters は一覧・発注画面の絞り込み条件です。
type ItemFilters struct {
	Query    string
	Category string
	Vendor   string
}

// Vendor is a pick-list entry with the number of items it supplies.
type Vendor struct {
	Name      string `db:"vendor" json:"name"`
	ItemCount int    `db:"item_count" json:"itemCount"`
}

// ItemMetrics backs the data-quality page.
type ItemMetrics struct {
	Total        int `db:"total" json:"total"`
	MissingCase  int `db:"missing_case" json:"missingCase"`
	MissingPar   int `db:"missing_par" json:"missingPar"`
	WithoutCost  int `db:"without_cost" json:"withoutCost"`
	NeedingOrder int `json:"needingOrder"`
}
