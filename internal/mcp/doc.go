// Package mcp provides the Model Context Protocol (MCP) server implementation
// for docdex using mcp-go.
//
// This package implements an MCP server that allows AI assistants to search
// and read a locally synchronized documentation corpus through a standardized
// protocol. The server exposes tools for free-text search, paginated reading,
// directory tree listing, and repository synchronization, and registers each
// documentation file as an MCP resource with a description taken from its
// frontmatter when present.
//
// # Implementation
//
// The package uses the mcp-go library (github.com/mark3labs/mcp-go).
//
// # Security
//
// Security is handled through the underlying storage package:
//   - Path validation to prevent directory traversal
//   - Access restricted to the configured documentation directory
//   - Symlink resolution with containment checks
//   - Read-only access to documentation files
//
// # Usage
//
// The MCP server is typically started as a subprocess by AI assistants that
// support MCP integration. It can also be started manually for testing:
//
//	docdex serve
//
// The server reads JSON-RPC requests from stdin and writes responses to
// stdout until it receives EOF or is terminated. All logging goes to stderr
// or a file so the stdio transport stays clean.
//
// # References
//
// - MCP Specification: https://modelcontextprotocol.io/specification
// - mcp-go Library: https://github.com/mark3labs/mcp-go
package mcp
