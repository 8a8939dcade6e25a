// Package api provides the HTTP server that accepts campaign exports and
// returns their KPIs and insights.
package api

// Config is the API server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":5000")
	ListenAddr string

	// BodyLimit is the maximum request body size in bytes.
	BodyLimit int

	// CORSOrigins is a comma-separated list of allowed origins, "*" for any.
	CORSOrigins string

	// MCPEnabled mounts the MCP endpoint at /mcp.
	MCPEnabled bool
}
