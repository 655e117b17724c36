package render

import (
	"bytes"
	"embed"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"log"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

//go:embed templates/*.html
var templateFS embed.FS

const layoutFile = "templates/layout.html"

// Page is embedded by every page's data so the layout can read it.
type Page struct {
	Title string
	Flash string
	// Print hides navigation, used when the page is printed to PDF.
	Print bool
}

// ErrorPage is the data of error.html.
type ErrorPage struct {
	Page
	Status     int
	StatusText string
	Message    string
}

// Renderer holds one parsed template set per page, each combined with the layout.
type Renderer struct {
	pages map[string]*template.Template
}

var funcs = template.FuncMap{
	"money":     Money,
	"nullMoney": NullMoney,
	"intp":      IntPtr,
	"date": func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Local().Format("2006-01-02 15:04")
	},
}

// New parses the embedded templates.
func New() (*Renderer, error) {
	files, err := fs.Glob(templateFS, "templates/*.html")
	if err != nil {
		return nil, err
	}
	r := &Renderer{pages: make(map[string]*template.Template)}
	for _, file := range files {
		if file == layoutFile {
			continue
		}
		t, err := template.New(path.Base(layoutFile)).Funcs(funcs).ParseFS(templateFS, layoutFile, file)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", file, err)
		}
		r.pages[path.Base(file)] = t
	}
	return r, nil
}

// Render executes the named page into w.
func (r *Renderer) Render(w io.Writer, name string, data interface{}) error {
	t, ok := r.pages[name]
	if !ok {
		return fmt.Errorf("template %s not found", name)
	}
	return t.ExecuteTemplate(w, path.Base(layoutFile), data)
}

// HTML renders the page to a buffer first so a template error still yields a clean 500.
func (r *Renderer) HTML(w http.ResponseWriter, status int, name string, data interface{}) {
	var buf bytes.Buffer
	if err := r.Render(&buf, name, data); err != nil {
		log.Printf("ERROR: rendering %s: %v", name, err)
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// Error renders the error page with the given status.
func (r *Renderer) Error(w http.ResponseWriter, status int, message string) {
	r.HTML(w, status, "error.html", ErrorPage{
		Page:       Page{Title: http.StatusText(status)},
		Status:     status,
		StatusText: http.StatusText(status),
		Message:    message,
	})
}

// Money formats an amount with two decimals.
func Money(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// NullMoney は未設定の金額を空欄で返します。
func NullMoney(d decimal.NullDecimal) string {
	if !d.Valid {
		return ""
	}
	return Money(d.Decimal)
}

func IntPtr(p *int) string {
	if p == nil {
		return ""
	}
	return strconv.Itoa(*p)
}

// JSON writes v as a JSON response.
func JSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("WARN: encoding JSON response: %v", err)
	}
}

// JSONError writes {"error": message}.
func JSONError(w http.ResponseWriter, status int, message string) {
	JSON(w, status, map[string]string{"error": message})
}

// Redirect sends a 303 to target, carrying a one-line flash message.
func Redirect(w http.ResponseWriter, r *http.Request, target, flash string) {
	if flash != "" {
		target += "?flash=" + url.QueryEscape(flash)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

// FlashFrom returns the flash message carried by a Redirect.
func FlashFrom(r *http.Request) string {
	return r.URL.Query().Get("flash")
}
