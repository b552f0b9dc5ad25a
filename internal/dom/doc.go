// Package dom hosts the watcher in a browser. The page's status element,
// outcome regions, EventSource and location are reached through
// syscall/js; the state machine itself lives in package watcher.
//
// Element lookup and the handling of stream events are written against
// the small Document and Element interfaces so they build on every
// platform. Only the js/wasm files touch syscall/js.
package dom
