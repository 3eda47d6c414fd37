// Package google provides OAuth2 credential management for the Google account
// data sources of the briefing (calendar and mail).
//
// Tokens are kept in a small keyed file store, one JSON file per account scope,
// so an interactive login is only needed once per account. The TokenProvider
// interface lets callers load a token, transparently refresh it when it has
// expired, and fall back to an interactive consent flow (Authorizer) when no
// usable token exists. Every refreshed or newly granted token is persisted.
package google
