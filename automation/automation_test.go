package automation

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"barinv/config"
	"barinv/database/dbtest"
	"barinv/model"
	"barinv/render"

	"github.com/go-rod/rod/lib/launcher"
)

func TestFindBrowser(t *testing.T) {
	if got, err := FindBrowser("/opt/chrome/chrome"); err != nil || got != "/opt/chrome/chrome" {
		t.Errorf("FindBrowser(configured) = %q, %v", got, err)
	}
	if _, ok := launcher.LookPath(); !ok {
		if _, err := FindBrowser(""); !errors.Is(err, ErrNoBrowser) {
			t.Errorf("expected ErrNoBrowser, got %v", err)
		}
	}
}

func TestPrintPDF(t *testing.T) {
	if _, ok := launcher.LookPath(); !ok {
		t.Skip("Chrome not available, skipping test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pdf, err := PrintPDF(ctx, "", "<html><body><h1>What to Order</h1></body></html>")
	if err != nil {
		t.Fatalf("PrintPDF failed: %v", err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Errorf("output is not a PDF: %q", pdf[:min(len(pdf), 16)])
	}
}

func TestOrderPDFHandler_NoBrowser(t *testing.T) {
	if _, ok := launcher.LookPath(); ok {
		t.Skip("a browser is installed; the unavailable path cannot be exercised")
	}
	t.Setenv("BARINV_CONFIG", filepath.Join(t.TempDir(), "config.json"))
	if _, err := config.LoadConfig(); err != nil {
		t.Fatal(err)
	}

	db := dbtest.Open(t)
	dbtest.Insert(t, db, model.Item{Vendor: "VendorA", Name: "Gin", ParUnits: model.IntPtr(5)})
	rd, err := render.New()
	if err != nil {
		t.Fatal(err)
	}

	rec := httptest.NewRecorder()
	OrderPDFHandler(db, rd)(rec, httptest.NewRequest(http.MethodGet, "/order.pdf", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", rec.Code)
	}
}
