package tool

import (
	"context"
	"strings"

	"github.com/lookatitude/agentcore/schema"
)

// MCPServerInfo describes one known MCP server: how to reach it and, once
// discovered, which tools it offers.
type MCPServerInfo struct {
	Name      string
	URL       string
	Tools     []schema.ToolDefinition
	Transport string
}

// MCPRegistry discovers and searches known MCP servers, distinct from
// Registry (which holds already-adapted Tools): an MCPRegistry only knows
// about servers, not live connections.
type MCPRegistry interface {
	Discover(ctx context.Context) ([]MCPServerInfo, error)
	Search(ctx context.Context, query string) ([]MCPServerInfo, error)
}

// StaticMCPRegistry is an MCPRegistry backed by a fixed, caller-supplied
// list of servers — useful for configuration-driven deployments where the
// set of MCP servers is known up front rather than discovered dynamically.
type StaticMCPRegistry struct {
	servers []MCPServerInfo
}

// NewStaticMCPRegistry builds a StaticMCPRegistry over servers.
func NewStaticMCPRegistry(servers ...MCPServerInfo) *StaticMCPRegistry {
	return &StaticMCPRegistry{servers: servers}
}

// Discover returns a copy of the configured server list.
func (r *StaticMCPRegistry) Discover(ctx context.Context) ([]MCPServerInfo, error) {
	out := make([]MCPServerInfo, len(r.servers))
	copy(out, r.servers)
	return out, nil
}

// Search returns every server whose name contains query, case-insensitively.
// An empty query matches every server.
func (r *StaticMCPRegistry) Search(ctx context.Context, query string) ([]MCPServerInfo, error) {
	var matches []MCPServerInfo
	for _, s := range r.servers {
		if containsCI(s.Name, query) {
			matches = append(matches, s)
		}
	}
	return matches, nil
}

// containsCI reports whether s contains substr, ignoring case.
func containsCI(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

var _ MCPRegistry = (*StaticMCPRegistry)(nil)
