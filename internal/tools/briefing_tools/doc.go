// Package briefing_tools exposes the morning briefing to MCP clients such as
// a voice assistant. Every tool goes through the composer, so a tool call
// never fails because a source is down; the source's fallback text is
// returned instead.
package briefing_tools
