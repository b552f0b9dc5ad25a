//go:build js && wasm

// Command watcher-wasm runs the unidle watcher inside the waiting page.
//
// Build it, together with the matching wasm_exec.js, with
//
//	go generate ./web
//
// which embeds both in the server on its next build.
package main

import (
	"os"

	"github.com/thruflo/unidlewatch/internal/dom"
	"github.com/thruflo/unidlewatch/internal/logging"
	"github.com/thruflo/unidlewatch/internal/watcher"
)

func main() {
	logger := logging.NewWithWriter(os.Stdout, logging.FormatLogfmt)
	logger.SetLevel(logging.LevelInfo)

	page, err := dom.CurrentPage()
	if err != nil {
		logger.Error("failed to read page location", "error", err)
		return
	}

	if _, err := dom.Start(page, watcher.DefaultRedirectDelay, logger); err != nil {
		logger.Error("failed to start watcher", "error", err)
		return
	}

	// Callbacks run on the browser's event loop; keep the program alive.
	select {}
}
