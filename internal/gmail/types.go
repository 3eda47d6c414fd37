package gmail

import (
	gmail "google.golang.org/api/gmail/v1"
)

const (
	// PackageQuery matches shipping notifications from the last week.
	PackageQuery = `newer_than:7d ("your order has shipped" OR "out for delivery" OR "order update")`

	// PackageMaxResults caps how many notifications PackageUpdates reports.
	PackageMaxResults = 10

	// maxPageSize is the largest page the messages.list endpoint serves.
	maxPageSize = 500
)

// Headers maps a header name to its value. When a header repeats, the
// last value wins.
type Headers map[string]string

// Get returns the header value, or def when it is missing.
func (h Headers) Get(name, def string) string {
	if v, ok := h[name]; ok {
		return v
	}
	return def
}

// toHeaders collects the headers of a message payload.
func toHeaders(msg *gmail.Message) Headers {
	headers := Headers{}
	if msg == nil || msg.Payload == nil {
		return headers
	}
	for _, h := range msg.Payload.Headers {
		headers[h.Name] = h.Value
	}
	return headers
}

// packageLine renders a notification as "{Subject} from {From}".
func packageLine(h Headers) string {
	return h.Get("Subject", "(no subject)") + " from " + h.Get("From", "(unknown sender)")
}
