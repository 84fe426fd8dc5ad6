// Package cmd implements the command-line interface for inboxagent.
//
// This package provides the following commands:
//   - run: Process the email of a scenario file, applying its review decisions
//     or prompting for them
//   - resume: Continue a session saved by run --save with a review decision
//   - serve: Start the MCP server
//   - generate-docs: Generate markdown documentation for the MCP and agent tools
//   - version: Display version information
package cmd
