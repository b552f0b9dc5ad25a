package watcher

import (
	"net/url"
)

// EventsBasePath is the path of the subscription endpoint.
const EventsBasePath = "/events/"

// HostQueryParam is the page query parameter selecting which target's
// stream to watch.
const HostQueryParam = "host"

// HostParam returns the host query parameter of the page URL, or "" when
// it is absent.
func HostParam(page *url.URL) string {
	if page == nil {
		return ""
	}
	return page.Query().Get(HostQueryParam)
}

// EventsPath returns the subscription path for host. The query string is
// only added when host is set.
func EventsPath(host string) string {
	if host == "" {
		return EventsBasePath
	}
	return EventsBasePath + "?" + url.Values{HostQueryParam: {host}}.Encode()
}
