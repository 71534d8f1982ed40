package mcpmgr

import (
	"context"
	"fmt"
	"net/http"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// HTTPServerDescriptor describes an upstream MCP server reachable over
// streamable HTTP.
type HTTPServerDescriptor struct {
	IDValue string
	URL     string
	Headers map[string]string
}

func (d *HTTPServerDescriptor) ID() string { return d.IDValue }

// headerTransport injects a fixed set of headers on every outbound
// request, the way static bearer tokens or API keys get attached to
// upstream calls.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if len(t.headers) > 0 {
		req = req.Clone(req.Context())
		for k, v := range t.headers {
			req.Header.Set(k, v)
		}
	}
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(req)
}

// clientSession adapts *mcp.ClientSession to the connector's narrower
// session interface.
type clientSession struct{ s *mcp.ClientSession }

func (c clientSession) ListTools(ctx context.Context, p *mcp.ListToolsParams) (*mcp.ListToolsResult, error) {
	return c.s.ListTools(ctx, p)
}

func (c clientSession) ListPrompts(ctx context.Context, p *mcp.ListPromptsParams) (*mcp.ListPromptsResult, error) {
	return c.s.ListPrompts(ctx, p)
}

func (c clientSession) CallTool(ctx context.Context, p *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	return c.s.CallTool(ctx, p)
}

func (c clientSession) GetPrompt(ctx context.Context, p *mcp.GetPromptParams) (*mcp.GetPromptResult, error) {
	return c.s.GetPrompt(ctx, p)
}

func (c clientSession) Close() error { return c.s.Close() }

// NewHTTPConnector builds a Connector for a streamable-HTTP upstream
// server. clientName/version identify this gateway to the upstream
// during MCP initialisation.
func NewHTTPConnector(desc *HTTPServerDescriptor, clientName, clientVersion string) Connector {
	connect := func(ctx context.Context) (session, error) {
		hc := &http.Client{Transport: &headerTransport{headers: desc.Headers}}
		transport := &mcp.StreamableClientTransport{
			Endpoint:   desc.URL,
			HTTPClient: hc,
		}
		client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: clientVersion}, nil)
		sess, err := client.Connect(ctx, transport, nil)
		if err != nil {
			return nil, fmt.Errorf("mcpmgr: connect %s: %w", desc.IDValue, err)
		}
		return clientSession{sess}, nil
	}
	return &baseConnector{id: desc.IDValue, connect: connect}
}
