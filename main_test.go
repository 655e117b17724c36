package main

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"barinv/config"
	"barinv/database"
	"barinv/database/dbtest"
	"barinv/model"
	"barinv/render"

	"github.com/jmoiron/sqlx"
)

func newServer(t *testing.T) (*sqlx.DB, http.Handler) {
	t.Helper()
	db := dbtest.Open(t)
	rd, err := render.New()
	if err != nil {
		t.Fatal(err)
	}
	mux := http.NewServeMux()
	SetupRoutes(mux, db, rd)
	return db, RequestLogger(mux)
}

func do(h http.Handler, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestRequestLogger_RequestID(t *testing.T) {
	h := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d", rec.Code)
	}
	if len(rec.Header().Get(requestIDHeader)) != 36 {
		t.Errorf("generated request ID = %q", rec.Header().Get(requestIDHeader))
	}

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if got := rec.Header().Get(requestIDHeader); got != "abc-123" {
		t.Errorf("incoming request ID not kept: %q", got)
	}
}

func TestReadyAndHealth(t *testing.T) {
	db, h := newServer(t)

	rec := do(h, http.MethodGet, "/admin/ready", nil)
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"ok"`) {
		t.Errorf("ready = %d %s", rec.Code, rec.Body.String())
	}

	var body map[string]interface{}
	rec = do(h, http.MethodGet, "/admin/health", nil)
	json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusOK || body["db"] != "connected" {
		t.Errorf("health = %d %v", rec.Code, body)
	}
	if _, ok := body["duration_ms"]; !ok {
		t.Error("duration_ms missing")
	}

	db.Close()
	rec = do(h, http.MethodGet, "/admin/health", nil)
	body = nil
	json.Unmarshal(rec.Body.Bytes(), &body)
	if rec.Code != http.StatusServiceUnavailable || body["status"] != "degraded" || body["error"] == nil {
		t.Errorf("health after close = %d %v", rec.Code, body)
	}
	if rec = do(h, http.MethodGet, "/admin/ready", nil); rec.Code != http.StatusOK {
		t.Errorf("ready must not depend on the database, got %d", rec.Code)
	}
}

func TestDBMetrics(t *testing.T) {
	db, h := newServer(t)
	dbtest.Insert(t, db,
		model.Item{Vendor: "VendorA", Name: "Gin", CaseSize: 6, ParUnits: model.IntPtr(12), CurrentUnits: 2},
		model.Item{Vendor: "VendorA", Name: "Rum"},
	)

	rec := do(h, http.MethodGet, "/admin/db-metrics", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	for _, want := range []string{"Total items", "Needing an order", "Merge duplicate items"} {
		if !strings.Contains(rec.Body.String(), want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestConfigHandlers(t *testing.T) {
	t.Setenv("BARINV_CONFIG", filepath.Join(t.TempDir(), "config.json"))
	t.Cleanup(func() { config.SaveConfig(config.Config{}) })
	_, h := newServer(t)
	folder := t.TempDir()

	tests := []struct {
		name string
		body string
		want int
	}{
		{"valid folder", `{"exportFolderPath":"` + filepath.ToSlash(folder) + `"}`, http.StatusOK},
		{"missing folder", `{"exportFolderPath":"` + filepath.ToSlash(filepath.Join(folder, "nope")) + `"}`, http.StatusBadRequest},
		{"missing browser", `{"browserPath":"/no/such/chrome"}`, http.StatusBadRequest},
		{"bad json", `{`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(h, http.MethodPost, "/api/config", []byte(tt.body))
			if rec.Code != tt.want {
				t.Errorf("status = %d, want %d: %s", rec.Code, tt.want, rec.Body.String())
			}
		})
	}

	var got config.Config
	rec := do(h, http.MethodGet, "/api/config", nil)
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatal(err)
	}
	if filepath.Clean(got.ExportFolderPath) != filepath.Clean(folder) {
		t.Errorf("ExportFolderPath = %q, want %q", got.ExportFolderPath, folder)
	}

	if rec := do(h, http.MethodDelete, "/api/config", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("DELETE status = %d", rec.Code)
	}
}

func TestRenameVendor(t *testing.T) {
	db, h := newServer(t)
	ctx := context.Background()
	dbtest.Insert(t, db,
		model.Item{Vendor: "Southern", Name: "Gin"},
		model.Item{Vendor: "Southern", Name: "Rum"},
		model.Item{Vendor: "RNDC", Name: "Rum"},
	)

	rec := do(h, http.MethodPost, "/api/vendors/rename", []byte(`{"from":"Southern","to":"RNDC"}`))
	if rec.Code != http.StatusConflict {
		t.Errorf("colliding rename status = %d, want 409", rec.Code)
	}

	rec = do(h, http.MethodPost, "/api/vendors/rename", []byte(`{"from":"Southern","to":"Southern Glazer's"}`))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"updated":2`) {
		t.Fatalf("rename = %d %s", rec.Code, rec.Body.String())
	}
	if it, _ := database.FindItemByKey(ctx, db, "Southern Glazer's", "Gin"); it == nil {
		t.Error("renamed item not found")
	}

	var vendors []model.Vendor
	json.Unmarshal(do(h, http.MethodGet, "/api/vendors", nil).Body.Bytes(), &vendors)
	if len(vendors) != 2 {
		t.Errorf("vendors = %+v", vendors)
	}

	if rec := do(h, http.MethodGet, "/api/vendors/rename", nil); rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("GET rename status = %d", rec.Code)
	}
}
