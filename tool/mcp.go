package tool

import (
	"context"

	"github.com/lookatitude/agentcore/core"
)

// mcpOptions configures an MCPClient.
type mcpOptions struct {
	sessionID   string
	lastEventID string
	headers     map[string]string
}

// MCPOption configures an MCPClient or a FromMCP call.
type MCPOption func(*mcpOptions)

// WithSessionID attaches an existing MCP session id to requests (MCP
// streamable-http session resumption).
func WithSessionID(id string) MCPOption {
	return func(o *mcpOptions) { o.sessionID = id }
}

// WithLastEventID resumes an SSE stream from the given event id.
func WithLastEventID(id string) MCPOption {
	return func(o *mcpOptions) { o.lastEventID = id }
}

// WithMCPHeaders sets extra HTTP headers (e.g. Authorization) on every
// request to the MCP server.
func WithMCPHeaders(headers map[string]string) MCPOption {
	return func(o *mcpOptions) {
		for k, v := range headers {
			o.headers[k] = v
		}
	}
}

// MCPClient is a connection to one Model Context Protocol server over
// streamable-http. The transport is not yet implemented: this module's
// scope stops at the Tool/Registry contract tools are adapted into, same as
// mcp_agent.rs delegates the actual wire protocol to a separate
// noema-mcp-core crate this spec does not distill.
type MCPClient struct {
	serverURL string
	opts      mcpOptions
}

// NewMCPClient creates a client targeting serverURL.
func NewMCPClient(serverURL string, opts ...MCPOption) *MCPClient {
	c := &MCPClient{
		serverURL: serverURL,
		opts:      mcpOptions{headers: make(map[string]string)},
	}
	for _, opt := range opts {
		opt(&c.opts)
	}
	return c
}

func notImplemented(op string) error {
	return core.NewError(op, core.ErrIO, "MCP transport not implemented", nil)
}

// Connect establishes the MCP session.
func (c *MCPClient) Connect(ctx context.Context) error {
	return notImplemented("tool.MCPClient.Connect")
}

// ListTools lists the server's tool definitions.
func (c *MCPClient) ListTools(ctx context.Context) ([]Tool, error) {
	return nil, notImplemented("tool.MCPClient.ListTools")
}

// ExecuteTool invokes a tool by name on the server.
func (c *MCPClient) ExecuteTool(ctx context.Context, name string, args map[string]any) (*Result, error) {
	return nil, notImplemented("tool.MCPClient.ExecuteTool")
}

// Close tears down the MCP session.
func (c *MCPClient) Close(ctx context.Context) error {
	return notImplemented("tool.MCPClient.Close")
}

// FromMCP connects to serverURL and returns its tools adapted to the Tool
// interface, ready to Registry.Add.
func FromMCP(ctx context.Context, serverURL string, opts ...MCPOption) ([]Tool, error) {
	c := NewMCPClient(serverURL, opts...)
	if err := c.Connect(ctx); err != nil {
		return nil, err
	}
	return c.ListTools(ctx)
}
