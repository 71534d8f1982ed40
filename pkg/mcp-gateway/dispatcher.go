package mcpgateway

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/cors"
)

// ProfileSource supplies the profile definitions a Dispatcher resolves
// against. A static map (loaded once at startup) satisfies this
// directly; it is an interface only so tests can substitute fixtures.
type ProfileSource interface {
	Profiles() map[string]ProfileDefinition
}

// StaticProfileSource is the common case: a fixed set of profile
// definitions loaded once at startup and never mutated (no hot reload).
type StaticProfileSource map[string]ProfileDefinition

func (s StaticProfileSource) Profiles() map[string]ProfileDefinition { return s }

// Dispatcher is the HTTP Dispatcher (C7): it validates inbound requests
// against the single `/mcp` endpoint, resolves the requested profile
// with a fresh Resolver, assembles a per-request ephemeral MCP server,
// and hands off to the SDK's own streamable-HTTP wire implementation.
type Dispatcher struct {
	servers        ServerLookup
	profiles       ProfileSource
	implementation *mcp.Implementation
	logger         *slog.Logger
	cors           *cors.Cors
	streamOpts     *mcp.StreamableHTTPOptions
}

// DispatcherOptions configures a Dispatcher. Implementation, Servers,
// and Profiles are required; the rest have defaults matching a
// sessionless, CORS-open gateway.
type DispatcherOptions struct {
	Servers        ServerLookup
	Profiles       ProfileSource
	Implementation *mcp.Implementation
	Logger         *slog.Logger
	CORS           *cors.Cors
	Streamable     *mcp.StreamableHTTPOptions
}

// NewDispatcher builds a Dispatcher.
func NewDispatcher(opts DispatcherOptions) *Dispatcher {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	c := opts.CORS
	if c == nil {
		c = cors.AllowAll()
	}
	streamOpts := opts.Streamable
	if streamOpts == nil {
		streamOpts = &mcp.StreamableHTTPOptions{Stateless: true, JSONResponse: true}
	}
	return &Dispatcher{
		servers:        opts.Servers,
		profiles:       opts.Profiles,
		implementation: opts.Implementation,
		logger:         logger,
		cors:           c,
		streamOpts:     streamOpts,
	}
}

// Handler returns an http.Handler serving exactly the `/mcp` endpoint,
// with CORS applied.
func (d *Dispatcher) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/mcp", d.serveMCP)
	mux.HandleFunc("/", d.serveNotFound)
	return d.cors.Handler(mux)
}

func (d *Dispatcher) serveNotFound(w http.ResponseWriter, r *http.Request) {
	d.writeJSONRPCError(w, http.StatusNotFound, invalidRequestf("not found: %s", r.URL.Path))
}

func (d *Dispatcher) serveMCP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost, http.MethodGet, http.MethodDelete:
	default:
		d.writeJSONRPCError(w, http.StatusMethodNotAllowed, invalidRequestf("method not allowed: %s", r.Method))
		return
	}

	profileName := r.URL.Query().Get("profile")
	if profileName == "" {
		d.writeJSONRPCError(w, http.StatusBadRequest, invalidRequestf("Missing profile query parameter"))
		return
	}

	requestID := uuid.NewString()
	logger := d.logger.With("request_id", requestID, "profile", profileName)

	resolver := NewResolver(d.servers, d.profiles.Profiles(), logger)
	resolved, err := resolver.Resolve(r.Context(), profileName)
	if err != nil {
		logger.Warn("profile resolution failed", "err", err)
		d.writeJSONRPCError(w, http.StatusBadRequest, err)
		return
	}

	profile := NewProfile(resolved)
	server := newEphemeralServer(d.implementation, profile)

	cleanup := NewCleanupManager(profileName, logger)

	emitter := newRequestEmitter(r.Context())
	cleanup.WatchEmitter(emitter, []string{"close", "finish", "error"})
	defer cleanup.Run(nil)

	handler := mcp.NewStreamableHTTPHandler(func(*http.Request) *mcp.Server {
		return server
	}, d.streamOpts)

	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("panic during dispatch", "panic", rec)
			cleanup.Run(nil)
		}
	}()

	handler.ServeHTTP(w, r)
}

func (d *Dispatcher) writeJSONRPCError(w http.ResponseWriter, status int, err error) {
	code := -32603
	msg := err.Error()
	if ge, ok := AsError(err); ok {
		code = ge.Code()
		msg = ge.Msg
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	body := map[string]any{
		"jsonrpc": "2.0",
		"error": map[string]any{
			"code":    code,
			"message": msg,
		},
		"id": nil,
	}
	_ = json.NewEncoder(w).Encode(body)
}

// requestEmitter adapts an inbound HTTP request's context cancellation
// into the "close" event the Cleanup Manager watches for. It satisfies
// offEmitter, the Cleanup Manager's preferred subscription style.
type requestEmitter struct {
	ctx context.Context
}

func newRequestEmitter(ctx context.Context) *requestEmitter {
	return &requestEmitter{ctx: ctx}
}

func (e *requestEmitter) On(event string, fn func(any)) (off func()) {
	if event != "close" {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-e.ctx.Done():
			fn(e.ctx.Err())
		case <-done:
		}
	}()
	return func() { close(done) }
}
