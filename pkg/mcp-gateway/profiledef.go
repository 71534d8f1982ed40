package mcpgateway

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/mcphub/gateway/pkg/mcpmgr"
)

// Connector is an alias for mcpmgr.Connector so resolved entries in this
// package can name the type without every caller importing mcpmgr too.
type Connector = mcpmgr.Connector

// PrefixOption is a tri-state: absent (caller picks a context-dependent
// default), an explicit string, or explicitly empty (the config's
// `prefix: false` sentinel, distinct from never having set prefix at
// all).
type PrefixOption struct {
	present bool
	value   string
}

// PrefixAbsent is the zero value: no prefix was configured.
var PrefixAbsent = PrefixOption{}

// PrefixString sets an explicit, possibly non-empty prefix.
func PrefixString(s string) PrefixOption {
	return PrefixOption{present: true, value: s}
}

// PrefixEmpty is the explicit "false" sentinel: a prefix was configured
// and it is the empty string, as opposed to not being configured at all.
func PrefixEmpty() PrefixOption {
	return PrefixOption{present: true, value: ""}
}

// Resolve returns the configured prefix, or def if none was set.
func (p PrefixOption) Resolve(def string) string {
	if !p.present {
		return def
	}
	return p.value
}

// Selection is one entry in a profile definition: what to take from the
// referenced server or nested profile.
type Selection struct {
	// Tools is nil when absent (allow everything); non-nil (including an
	// empty slice) is an explicit allow-list.
	Tools *[]string
	// Prompts mirrors Tools for prompts.
	Prompts *[]string
	Prefix  PrefixOption
}

func (s Selection) allowsTool(name string) bool {
	return allowed(s.Tools, name)
}

func (s Selection) allowsPrompt(name string) bool {
	return allowed(s.Prompts, name)
}

func allowed(list *[]string, name string) bool {
	if list == nil {
		return true
	}
	for _, n := range *list {
		if n == name {
			return true
		}
	}
	return false
}

// ProfileDefinition is an ordered mapping from entry-name (a server-id or
// another profile name) to Selection, preserving the order entries were
// declared in so first-wins resolution is deterministic.
type ProfileDefinition struct {
	m *orderedMap[Selection]
}

// NewProfileDefinition builds a ProfileDefinition from entries in the
// order they should be resolved. Later duplicate entry names are
// ignored; the resolver only ever sees the first. (The config loader
// never passes duplicates: it keeps one entry per key, holding the
// value of the key's last occurrence.)
func NewProfileDefinition(entries []ProfileEntry) ProfileDefinition {
	m := newOrderedMap[Selection]()
	for _, e := range entries {
		m.setIfAbsent(e.Name, e.Selection)
	}
	return ProfileDefinition{m: m}
}

// ProfileEntry is one named entry used to build a ProfileDefinition.
type ProfileEntry struct {
	Name      string
	Selection Selection
}

func (d ProfileDefinition) entries() []string { return d.m.keys() }

func (d ProfileDefinition) selection(name string) (Selection, bool) {
	return d.m.get(name)
}

// ToolEntry is a resolved tool: the upstream connector that owns it, its
// exported descriptor (name already rewritten), and the name to use when
// forwarding calls to that connector.
type ToolEntry struct {
	Connector    Connector
	Descriptor   *mcp.Tool
	OriginalName string
}

// PromptEntry mirrors ToolEntry for prompts.
type PromptEntry struct {
	Connector    Connector
	Descriptor   *mcp.Prompt
	OriginalName string
}
