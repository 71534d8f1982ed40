package mcpgateway

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/mcphub/gateway/pkg/mcpmgr"
)

// ServerLookup resolves a server-id to its connector. *mcpmgr.Registry
// satisfies this directly.
type ServerLookup interface {
	Get(id string) (mcpmgr.Connector, bool)
}

// ResolvedProfile is the immutable, flat result of resolving a profile
// definition: an ordered exported-name -> entry mapping for tools and
// for prompts.
type ResolvedProfile struct {
	Name    string
	tools   *orderedMap[*ToolEntry]
	prompts *orderedMap[*PromptEntry]
}

func (r *ResolvedProfile) toolNames() []string   { return r.tools.keys() }
func (r *ResolvedProfile) promptNames() []string { return r.prompts.keys() }

// Resolver recursively composes profile definitions into ResolvedProfile
// values. One Resolver instance is used per request (or per CLI
// invocation): its cache is never shared across requests, matching the
// "config is immutable per request, but isolate caches anyway" design.
type Resolver struct {
	servers  ServerLookup
	profiles map[string]ProfileDefinition
	logger   *slog.Logger

	cache map[string]*ResolvedProfile
}

// NewResolver builds a Resolver over the given server registry and the
// full set of declared profile definitions.
func NewResolver(servers ServerLookup, profiles map[string]ProfileDefinition, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		servers:  servers,
		profiles: profiles,
		logger:   logger,
		cache:    make(map[string]*ResolvedProfile),
	}
}

// Resolve resolves name into a ResolvedProfile.
func (r *Resolver) Resolve(ctx context.Context, name string) (*ResolvedProfile, error) {
	return r.resolve(ctx, name, nil)
}

func (r *Resolver) resolve(ctx context.Context, name string, stack []string) (*ResolvedProfile, error) {
	if cached, ok := r.cache[name]; ok {
		return cached, nil
	}
	for _, s := range stack {
		if s == name {
			chain := append(append([]string{}, stack...), name)
			return nil, invalidRequestf("cycle detected: %s", strings.Join(chain, " -> "))
		}
	}

	def, ok := r.profiles[name]
	if !ok {
		return nil, invalidRequestf("unknown profile: %s", name)
	}

	stack = append(stack, name)

	tools := newOrderedMap[*ToolEntry]()
	prompts := newOrderedMap[*PromptEntry]()

	for _, entryName := range def.entries() {
		sel, _ := def.selection(entryName)
		if conn, ok := r.servers.Get(entryName); ok {
			r.applyServerEntry(ctx, conn, entryName, name, sel, tools, prompts)
			continue
		}
		if _, ok := r.profiles[entryName]; ok {
			nested, err := r.resolve(ctx, entryName, stack)
			if err != nil {
				return nil, err
			}
			applyNestedEntry(nested, sel, tools, prompts)
			continue
		}
		return nil, invalidRequestf("unknown server or profile: %s", entryName)
	}

	rp := &ResolvedProfile{Name: name, tools: tools, prompts: prompts}
	r.cache[name] = rp
	return rp, nil
}

func (r *Resolver) applyServerEntry(ctx context.Context, conn mcpmgr.Connector, serverID, profileName string, sel Selection, tools *orderedMap[*ToolEntry], prompts *orderedMap[*PromptEntry]) {
	if err := conn.EnsureReady(ctx); err != nil {
		r.logger.Warn("server init failed, contributing nothing", "err", err, "server_id", serverID, "profile", profileName)
		return
	}
	prefix := sel.Prefix.Resolve(serverID + "__")

	upstreamTools, err := conn.ListTools(ctx)
	if err != nil && !errors.Is(err, mcpmgr.ErrMethodNotFound) {
		r.logger.Warn("list-tools failed, treating as empty", "err", err, "server_id", serverID, "profile", profileName)
	}
	for _, t := range upstreamTools {
		if !sel.allowsTool(t.Name) {
			continue
		}
		exported := prefix + t.Name
		clone := *t
		clone.Name = exported
		tools.setIfAbsent(exported, &ToolEntry{Connector: conn, Descriptor: &clone, OriginalName: t.Name})
	}

	upstreamPrompts, err := conn.ListPrompts(ctx)
	if err != nil && !errors.Is(err, mcpmgr.ErrMethodNotFound) {
		r.logger.Warn("list-prompts failed, treating as empty", "err", err, "server_id", serverID, "profile", profileName)
	}
	for _, p := range upstreamPrompts {
		if !sel.allowsPrompt(p.Name) {
			continue
		}
		exported := prefix + p.Name
		clone := *p
		clone.Name = exported
		prompts.setIfAbsent(exported, &PromptEntry{Connector: conn, Descriptor: &clone, OriginalName: p.Name})
	}
}

func applyNestedEntry(nested *ResolvedProfile, sel Selection, tools *orderedMap[*ToolEntry], prompts *orderedMap[*PromptEntry]) {
	prefix := sel.Prefix.Resolve("")

	for _, name := range nested.toolNames() {
		if !sel.allowsTool(name) {
			continue
		}
		entry, _ := nested.tools.get(name)
		exported := prefix + name
		tools.setIfAbsent(exported, entry)
	}
	for _, name := range nested.promptNames() {
		if !sel.allowsPrompt(name) {
			continue
		}
		entry, _ := nested.prompts.get(name)
		exported := prefix + name
		prompts.setIfAbsent(exported, entry)
	}
}
