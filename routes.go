package main

import (
	"net/http"

	"barinv/automation"
	"barinv/export"
	"barinv/inventory"
	"barinv/inventoryadjustment"
	"barinv/render"
	"barinv/reorder"
	"barinv/stock"
	"barinv/valuation"

	"github.com/jmoiron/sqlx"
)

func SetupRoutes(mux *http.ServeMux, dbConn *sqlx.DB, rd *render.Renderer) {
	// 在庫一覧と品目の編集
	mux.HandleFunc("/", inventory.IndexHandler(dbConn, rd))
	mux.HandleFunc("/item/new", inventory.NewItemHandler(dbConn, rd))
	mux.HandleFunc("/item/{id}/edit", inventory.EditItemHandler(dbConn, rd))
	mux.HandleFunc("/item/{id}/delete", inventory.DeleteItemHandler(dbConn, rd))

	mux.HandleFunc("/api/items", inventory.ListItemsHandler(dbConn))
	mux.HandleFunc("/api/categories", inventory.ListCategoriesHandler(dbConn))
	mux.HandleFunc("/api/vendors", ListVendorsHandler(dbConn))
	mux.HandleFunc("/api/vendors/rename", RenameVendorHandler(dbConn))

	// 棚卸と在庫評価
	mux.HandleFunc("/api/count", inventoryadjustment.GetCountSheetHandler(dbConn))
	mux.HandleFunc("/api/count/save", inventoryadjustment.SaveCountsHandler(dbConn))
	mux.HandleFunc("/api/valuation", valuation.GetValuationHandler(dbConn))
	mux.HandleFunc("/api/valuation/export_csv", valuation.ExportValuationCSVHandler(dbConn))

	// 発注リスト
	mux.HandleFunc("/order", reorder.OrderPageHandler(dbConn, rd))
	mux.HandleFunc("/api/order", reorder.OrderJSONHandler(dbConn))
	mux.HandleFunc("/order.xlsx", export.OrderWorkbookHandler(dbConn, rd))
	mux.HandleFunc("/order.pdf", automation.OrderPDFHandler(dbConn, rd))

	mux.HandleFunc("/export", stock.ExportItemsHandler(dbConn, rd))
	mux.HandleFunc("/import", stock.ImportHandler(dbConn, rd))
	mux.HandleFunc("/admin/dedupe", stock.DedupeHandler(dbConn, rd))

	mux.HandleFunc("/admin/ready", ReadyHandler())
	mux.HandleFunc("/admin/health", HealthHandler(dbConn))
	mux.HandleFunc("/admin/db-metrics", DBMetricsHandler(dbConn, rd))

	mux.HandleFunc("/api/config", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			GetConfigHandler()(w, r)
		case http.MethodPost:
			SaveConfigHandler()(w, r)
		default:
			render.JSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	})
}
