// Package news fetches top stories from the New York Times Top Stories API
// and turns them into short spoken-style items for the morning briefing.
//
// TopNews never fails: a missing API key, a failed request or an empty
// section each yield a single labelled placeholder item instead.
package news
