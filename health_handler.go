package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"barinv/database"
	"barinv/model"
	"barinv/render"
	"barinv/reorder"

	"github.com/jmoiron/sqlx"
)

const healthTimeout = 3 * time.Second

// MetricsPage is the data of health.html.
type MetricsPage struct {
	render.Page
	Metrics model.ItemMetrics
}

// ReadyHandler answers without touching the database.
func ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// HealthHandler はDB接続を確認し、所要時間とともに返します。
func HealthHandler(db *sqlx.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		start := time.Now()
		err := database.Ping(ctx, db)
		elapsed := time.Since(start).Milliseconds()
		if err != nil {
			log.Printf("WARN: health check failed: %v", err)
			render.JSON(w, http.StatusServiceUnavailable, map[string]interface{}{
				"status":      "degraded",
				"db":          "error",
				"duration_ms": elapsed,
				"error":       err.Error(),
			})
			return
		}
		render.JSON(w, http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"db":          "connected",
			"duration_ms": elapsed,
		})
	}
}

// DBMetricsHandler renders the data-quality counters.
func DBMetricsHandler(db *sqlx.DB, rd *render.Renderer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		metrics, err := database.GetItemMetrics(ctx, db)
		if err != nil {
			log.Printf("ERROR: loading item metrics: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Could not load database metrics.")
			return
		}
		items, err := database.GetAllItems(ctx, db)
		if err != nil {
			log.Printf("ERROR: loading items for metrics: %v", err)
			rd.Error(w, http.StatusInternalServerError, "Could not load database metrics.")
			return
		}
		metrics.NeedingOrder = reorder.Calculate(items, reorder.Options{}).LineCount

		rd.HTML(w, http.StatusOK, "health.html", MetricsPage{
			Page:    render.Page{Title: "Database Metrics", Flash: render.FlashFrom(r)},
			Metrics: metrics,
		})
	}
}
