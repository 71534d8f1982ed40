// Package mcpmgr owns the connection lifecycle to a single upstream MCP
// server: lazy, coalesced initialisation, cached tool/prompt listings, and
// idempotent disposal. A Registry owns one Connector per configured server
// and is the only way the rest of the gateway reaches an upstream.
package mcpmgr

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/sync/singleflight"
)

// ErrDisposed is returned (optionally wrapped) by any Connector method
// invoked after Dispose has completed.
var ErrDisposed = errors.New("mcpmgr: connector disposed")

// ErrMethodNotFound is returned by ListTools/ListPrompts when the upstream
// server does not implement the corresponding capability at all. Callers
// are expected to treat this as "this upstream exposes nothing here".
var ErrMethodNotFound = errors.New("mcpmgr: method not found")

// Connector represents one upstream MCP server. Implementations must be
// safe for concurrent use; EnsureReady coalesces concurrent initialisation
// attempts and ListTools/ListPrompts serve cached, defensively-copied
// snapshots once populated.
type Connector interface {
	// ID returns the server-id this connector was constructed for.
	ID() string
	// EnsureReady performs (or awaits an in-flight) initialisation. It is
	// idempotent: once a session is established it returns nil immediately.
	EnsureReady(ctx context.Context) error
	// ListTools ensures readiness, then returns a defensive copy of the
	// cached tool listing, populating the cache on first call.
	ListTools(ctx context.Context) ([]*mcp.Tool, error)
	// ListPrompts is the prompt-side equivalent of ListTools.
	ListPrompts(ctx context.Context) ([]*mcp.Prompt, error)
	// CallTool forwards params (name already translated to the upstream's
	// original name) to the upstream server.
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
	// GetPrompt is the prompt-side equivalent of CallTool.
	GetPrompt(ctx context.Context, params *mcp.GetPromptParams) (*mcp.GetPromptResult, error)
	// Dispose idempotently tears down the connector. Subsequent calls to
	// any other method fail with ErrDisposed.
	Dispose(ctx context.Context) error
}

// session abstracts the subset of *mcp.ClientSession the connector needs,
// so tests can supply a fake without standing up a real MCP transport.
type session interface {
	ListTools(ctx context.Context, params *mcp.ListToolsParams) (*mcp.ListToolsResult, error)
	ListPrompts(ctx context.Context, params *mcp.ListPromptsParams) (*mcp.ListPromptsResult, error)
	CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error)
	GetPrompt(ctx context.Context, params *mcp.GetPromptParams) (*mcp.GetPromptResult, error)
	Close() error
}

// baseConnector holds the state and logic shared by every transport
// variant: the lazy-singleton session, the tool/prompt caches, and
// disposal bookkeeping. Variants supply a connect function that knows how
// to build their specific transport.
type baseConnector struct {
	id string

	connect func(ctx context.Context) (session, error)

	initGroup singleflight.Group

	mu        sync.RWMutex
	sess      session
	disposed  bool
	toolsOK   bool
	tools     []*mcp.Tool
	promptsOK bool
	prompts   []*mcp.Prompt
}

func newBaseConnector(id string, connect func(ctx context.Context) (session, error)) *baseConnector {
	return &baseConnector{id: id, connect: connect}
}

func (c *baseConnector) ID() string { return c.id }

// EnsureReady is a classic once-guard with a retryable failure: concurrent
// callers on an uninitialised connector collapse onto a single in-flight
// attempt via singleflight; a failed attempt leaves nothing latched so the
// next caller retries from scratch.
func (c *baseConnector) EnsureReady(ctx context.Context) error {
	c.mu.RLock()
	if c.disposed {
		c.mu.RUnlock()
		return fmt.Errorf("mcpmgr: %s: %w", c.id, ErrDisposed)
	}
	if c.sess != nil {
		c.mu.RUnlock()
		return nil
	}
	c.mu.RUnlock()

	_, err, _ := c.initGroup.Do(c.id, func() (any, error) {
		c.mu.RLock()
		already := c.sess != nil
		disposed := c.disposed
		c.mu.RUnlock()
		if disposed {
			return nil, fmt.Errorf("mcpmgr: %s: %w", c.id, ErrDisposed)
		}
		if already {
			return nil, nil
		}
		sess, err := c.connect(ctx)
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		if c.disposed {
			c.mu.Unlock()
			_ = sess.Close()
			return nil, fmt.Errorf("mcpmgr: %s: %w", c.id, ErrDisposed)
		}
		c.sess = sess
		c.mu.Unlock()
		return nil, nil
	})
	return err
}

func (c *baseConnector) ListTools(ctx context.Context) ([]*mcp.Tool, error) {
	if err := c.EnsureReady(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	if c.toolsOK {
		out := make([]*mcp.Tool, len(c.tools))
		copy(out, c.tools)
		c.mu.RUnlock()
		return out, nil
	}
	sess := c.sess
	c.mu.RUnlock()

	res, err := sess.ListTools(ctx, nil)
	if err != nil {
		if isMethodUnavailable(err) {
			return nil, ErrMethodNotFound
		}
		return nil, err
	}
	var tools []*mcp.Tool
	if res != nil {
		tools = res.Tools
	}
	c.mu.Lock()
	c.tools = append([]*mcp.Tool(nil), tools...)
	c.toolsOK = true
	c.mu.Unlock()

	out := make([]*mcp.Tool, len(tools))
	copy(out, tools)
	return out, nil
}

func (c *baseConnector) ListPrompts(ctx context.Context) ([]*mcp.Prompt, error) {
	if err := c.EnsureReady(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	if c.promptsOK {
		out := make([]*mcp.Prompt, len(c.prompts))
		copy(out, c.prompts)
		c.mu.RUnlock()
		return out, nil
	}
	sess := c.sess
	c.mu.RUnlock()

	res, err := sess.ListPrompts(ctx, nil)
	if err != nil {
		if isMethodUnavailable(err) {
			return nil, ErrMethodNotFound
		}
		return nil, err
	}
	var prompts []*mcp.Prompt
	if res != nil {
		prompts = res.Prompts
	}
	c.mu.Lock()
	c.prompts = append([]*mcp.Prompt(nil), prompts...)
	c.promptsOK = true
	c.mu.Unlock()

	out := make([]*mcp.Prompt, len(prompts))
	copy(out, prompts)
	return out, nil
}

func (c *baseConnector) CallTool(ctx context.Context, params *mcp.CallToolParams) (*mcp.CallToolResult, error) {
	if err := c.EnsureReady(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	sess := c.sess
	c.mu.RUnlock()
	return sess.CallTool(ctx, params)
}

func (c *baseConnector) GetPrompt(ctx context.Context, params *mcp.GetPromptParams) (*mcp.GetPromptResult, error) {
	if err := c.EnsureReady(ctx); err != nil {
		return nil, err
	}
	c.mu.RLock()
	sess := c.sess
	c.mu.RUnlock()
	return sess.GetPrompt(ctx, params)
}

func (c *baseConnector) Dispose(ctx context.Context) error {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return nil
	}
	c.disposed = true
	sess := c.sess
	c.sess = nil
	c.tools = nil
	c.toolsOK = false
	c.prompts = nil
	c.promptsOK = false
	c.mu.Unlock()

	if sess == nil {
		return nil
	}
	return sess.Close()
}

func isMethodUnavailable(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, needle := range []string{"method not found", "not implemented", "unimplemented", "unsupported", "does not support"} {
		if strings.Contains(msg, needle) {
			return true
		}
	}
	return false
}
