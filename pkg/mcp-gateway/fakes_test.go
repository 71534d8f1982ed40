package mcpgateway

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/mcphub/gateway/pkg/mcpmgr"
)

// fakeConnector is a minimal in-memory stand-in for mcpmgr.Connector,
// used so resolver/profile tests don't need a real upstream transport.
type fakeConnector struct {
	id        string
	tools     []*mcp.Tool
	prompts   []*mcp.Prompt
	readyErr  error
	listTErr  error
	listPErr  error
	callCount int
	lastCall  string
}

func (f *fakeConnector) ID() string { return f.id }

func (f *fakeConnector) EnsureReady(ctx context.Context) error { return f.readyErr }

func (f *fakeConnector) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	if f.listTErr != nil {
		return nil, f.listTErr
	}
	out := make([]*mcp.Tool, len(f.tools))
	copy(out, f.tools)
	return out, nil
}

func (f *fakeConnector) ListPrompts(ctx context.Context) ([]*mcp.Prompt, error) {
	if f.listPErr != nil {
		return nil, f.listPErr
	}
	out := make([]*mcp.Prompt, len(f.prompts))
	copy(out, f.prompts)
	return out, nil
}

func (f *fakeConnector) CallTool(ctx context.Context, p *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	f.callCount++
	f.lastCall = p.Name
	return &mcp.CallToolResult{}, nil
}

func (f *fakeConnector) GetPrompt(ctx context.Context, p *mcp.GetPromptParams) (*mcp.GetPromptResult, error) {
	return &mcp.GetPromptResult{}, nil
}

func (f *fakeConnector) Dispose(ctx context.Context) error { return nil }

// fakeRegistry implements ServerLookup over a fixed map, mirroring
// mcpmgr.Registry's Get semantics without pulling in a real registry.
type fakeRegistry struct {
	m map[string]mcpmgr.Connector
}

func newFakeRegistry(conns ...*fakeConnector) *fakeRegistry {
	m := make(map[string]mcpmgr.Connector, len(conns))
	for _, c := range conns {
		m[c.id] = c
	}
	return &fakeRegistry{m: m}
}

func (r *fakeRegistry) Get(id string) (mcpmgr.Connector, bool) {
	c, ok := r.m[id]
	return c, ok
}

var errBoom = errors.New("boom")
