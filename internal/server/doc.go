// Package server hosts the unidle waiting page and its event stream.
//
// Rendering the page for a host starts an unidle for that host through the
// configured Unidler, which narrates its progress through a Reporter. Every
// report is published to the host's group in a Broker and pushed to the
// pages watching that host as Server-Sent Events.
//
// # Endpoints
//
//   - GET / - Waiting page with the redirect host baked in
//   - GET /events/ - Server-Sent Events for the host (?host= overrides the Host header)
//   - GET /static/ - Stylesheet and the optional watcher.wasm bundle
//   - GET /healthz - Liveness check
package server
