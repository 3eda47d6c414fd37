// Package gmail reads message metadata from the Gmail API.
//
// Only the read-only scope of the "gmail" account is used: the client
// searches for messages and fetches their headers, never the bodies.
// PackageUpdates is the briefing's view of the mailbox and lists recent
// shipping notifications.
package gmail
