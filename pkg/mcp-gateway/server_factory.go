package mcpgateway

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// newEphemeralServer builds a fresh *mcp.Server bound to profile. One of
// these is created per inbound request: registrations are closures over
// the profile, so the server never needs to know about the resolver,
// the registry, or any other request.
func newEphemeralServer(impl *mcp.Implementation, profile *Profile) *mcp.Server {
	server := mcp.NewServer(impl, nil)

	for _, tool := range profile.ListTools() {
		server.AddTool(tool, makeToolHandler(profile))
	}
	for _, prompt := range profile.ListPrompts() {
		server.AddPrompt(prompt, makePromptHandler(profile))
	}
	return server
}

func makeToolHandler(profile *Profile) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		raw := req.Params
		if raw == nil {
			return nil, invalidRequestf("missing call-tool params")
		}
		params := &mcp.CallToolParams{Meta: raw.Meta, Name: raw.Name, Arguments: raw.Arguments}
		return profile.CallTool(ctx, params)
	}
}

func makePromptHandler(profile *Profile) mcp.PromptHandler {
	return func(ctx context.Context, req *mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
		params := req.Params
		if params == nil {
			return nil, invalidRequestf("missing get-prompt params")
		}
		return profile.GetPrompt(ctx, params)
	}
}
