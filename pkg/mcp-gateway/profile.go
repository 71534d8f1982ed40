package mcpgateway

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// Profile is an immutable snapshot of a resolved profile. It never
// initialises connectors itself — the Resolver that produced it already
// did that work.
type Profile struct {
	name    string
	tools   *orderedMap[*ToolEntry]
	prompts *orderedMap[*PromptEntry]
}

// NewProfile wraps a ResolvedProfile as a Profile ready to serve
// requests.
func NewProfile(rp *ResolvedProfile) *Profile {
	return &Profile{name: rp.Name, tools: rp.tools, prompts: rp.prompts}
}

func (p *Profile) Name() string { return p.name }

// ListTools returns a defensive copy of the profile's exported tool
// descriptors, in resolution order.
func (p *Profile) ListTools() []*mcp.Tool {
	entries := p.tools.list()
	out := make([]*mcp.Tool, len(entries))
	for i, e := range entries {
		clone := *e.Descriptor
		out[i] = &clone
	}
	return out
}

// ListPrompts mirrors ListTools for prompts.
func (p *Profile) ListPrompts() []*mcp.Prompt {
	entries := p.prompts.list()
	out := make([]*mcp.Prompt, len(entries))
	for i, e := range entries {
		clone := *e.Descriptor
		out[i] = &clone
	}
	return out
}

// CallTool rewrites params.Name to the upstream's original name and
// forwards to the owning connector.
func (p *Profile) CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	entry, ok := p.tools.get(params.Name)
	if !ok {
		return nil, methodNotFoundf("unknown tool: %s", params.Name)
	}
	forwarded := *params
	forwarded.Name = entry.OriginalName
	return entry.Connector.CallTool(ctx, &forwarded)
}

// GetPrompt is the prompt-side equivalent of CallTool.
func (p *Profile) GetPrompt(ctx context.Context, params *mcp.GetPromptParams) (*mcp.GetPromptResult, error) {
	entry, ok := p.prompts.get(params.Name)
	if !ok {
		return nil, methodNotFoundf("unknown prompt: %s", params.Name)
	}
	forwarded := *params
	forwarded.Name = entry.OriginalName
	return entry.Connector.GetPrompt(ctx, &forwarded)
}
