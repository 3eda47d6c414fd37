// Package briefing composes the morning briefing from its four sources:
// weather, news, calendar and mail.
//
// Sources are called one after another. Each call is isolated: an error or
// a panic in one source substitutes that source's fallback value and the
// briefing is still produced. Compose therefore always returns text.
package briefing
