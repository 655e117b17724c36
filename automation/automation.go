package automation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

// ErrNoBrowser is returned when no Chrome/Chromium binary can be found.
var ErrNoBrowser = errors.New("no headless browser available")

// FindBrowser returns the configured browser, or one found on this machine.
func FindBrowser(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	if path, ok := launcher.LookPath(); ok {
		return path, nil
	}
	return "", ErrNoBrowser
}

// PrintPDF はヘッドレスブラウザでHTMLを描画し、PDFに変換します。
func PrintPDF(ctx context.Context, browserPath string, html string) ([]byte, error) {
	bin, err := FindBrowser(browserPath)
	if err != nil {
		return nil, err
	}

	// Leakless(false) でセキュリティソフト対策
	l := launcher.New().
		Bin(bin).
		Headless(true).
		Leakless(false).
		Context(ctx)
	defer l.Cleanup()

	u, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	defer l.Kill()

	browser := rod.New().ControlURL(u).Context(ctx)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}
	defer func() {
		if err := browser.Close(); err != nil {
			log.Printf("WARN: failed to close browser: %v", err)
		}
	}()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("failed to open page: %w", err)
	}
	if err := page.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("failed to set page content: %w", err)
	}
	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page did not load: %w", err)
	}

	margin := 0.4
	stream, err := page.PDF(&proto.PagePrintToPDF{
		Landscape:       true,
		PrintBackground: true,
		MarginTop:       &margin,
		MarginBottom:    &margin,
		MarginLeft:      &margin,
		MarginRight:     &margin,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to print PDF: %w", err)
	}
	defer stream.Close()
	return io.ReadAll(stream)
}
