// Package cmd implements the command-line interface for agentpark.
//
// This package provides the following commands:
//   - brief: Print the morning briefing (default)
//   - serve: Serve the briefing over HTTP, or as MCP tools over stdio
//   - auth: Authorize Google Calendar and Gmail access ahead of time
//   - version: Display version information
//   - generate-docs: Generate markdown documentation for the MCP tools
package cmd
