// Package web holds the waiting page template and its static assets.
//
// Both are embedded at build time. watcher.wasm and a matching
// wasm_exec.js are produced by go generate; the page falls back to
// watcher.js when the bundle is missing. A static directory on disk can be
// used instead, so a freshly built bundle is served without rebuilding
// the server.
package web

//go:generate sh -c "GOOS=js GOARCH=wasm go build -o static/watcher.wasm ../cmd/watcher-wasm"
//go:generate sh -c "cp $GOROOT/lib/wasm/wasm_exec.js static/ 2>/dev/null || cp $GOROOT/misc/wasm/wasm_exec.js static/"

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"
)

// FallbackScript is the plain JavaScript watcher the page runs when the
// wasm bundle cannot be loaded.
const FallbackScript = "watcher.js"

// DefaultWasmURL is where the page loads the watcher bundle from.
const DefaultWasmURL = "/static/watcher.wasm"

//go:embed templates/*.html static/*
var assets embed.FS

var pageTemplate = template.Must(template.ParseFS(assets, "templates/index.html"))

// Page is the data rendered into the waiting page.
type Page struct {
	// RedirectHost is baked into the page; the watcher navigates to
	// https://<RedirectHost>/ once the app is ready.
	RedirectHost string
	WasmURL      string
}

// RenderPage writes the waiting page to w. The page is rendered in full
// before anything is written so a template error never produces a
// truncated response.
func RenderPage(w io.Writer, p Page) error {
	if p.WasmURL == "" {
		p.WasmURL = DefaultWasmURL
	}
	var buf bytes.Buffer
	if err := pageTemplate.Execute(&buf, p); err != nil {
		return fmt.Errorf("failed to render page: %w", err)
	}
	_, err := buf.WriteTo(w)
	return err
}

// Static returns the filesystem served under /static/. When dir names an
// existing directory it is served from disk, otherwise the embedded
// assets are used.
func Static(dir string) fs.FS {
	if dir != "" {
		if stat, err := os.Stat(dir); err == nil && stat.IsDir() {
			return os.DirFS(dir)
		}
	}

	sub, err := fs.Sub(assets, "static")
	if err != nil {
		// Only reachable if the embed directive above is broken.
		panic("failed to access embedded static assets: " + err.Error())
	}
	return sub
}
