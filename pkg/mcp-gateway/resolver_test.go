package mcpgateway

import (
	"context"
	"log/slog"
	"reflect"
	"strings"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

func strs(ss ...string) *[]string { return &ss }

func def(entries ...ProfileEntry) ProfileDefinition { return NewProfileDefinition(entries) }

func quietResolver(servers ServerLookup, profiles map[string]ProfileDefinition) *Resolver {
	return NewResolver(servers, profiles, slog.New(slog.DiscardHandler))
}

func toolNamed(names ...string) []*mcp.Tool {
	out := make([]*mcp.Tool, len(names))
	for i, n := range names {
		out[i] = &mcp.Tool{Name: n}
	}
	return out
}

func promptNamed(names ...string) []*mcp.Prompt {
	out := make([]*mcp.Prompt, len(names))
	for i, n := range names {
		out[i] = &mcp.Prompt{Name: n}
	}
	return out
}

// Scenario A — default prefix + allow-list.
func TestScenarioA_DefaultPrefixAndAllowList(t *testing.T) {
	alpha := &fakeConnector{id: "alpha", tools: toolNamed("time", "date"), prompts: promptNamed("timezone", "format")}
	registry := newFakeRegistry(alpha)
	profiles := map[string]ProfileDefinition{
		"default": def(ProfileEntry{Name: "alpha", Selection: Selection{Tools: strs("time"), Prompts: strs("timezone")}}),
	}
	r := quietResolver(registry, profiles)

	rp, err := r.Resolve(context.Background(), "default")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := rp.toolNames(); !reflect.DeepEqual(got, []string{"alpha__time"}) {
		t.Fatalf("tools = %v", got)
	}
	if got := rp.promptNames(); !reflect.DeepEqual(got, []string{"alpha__timezone"}) {
		t.Fatalf("prompts = %v", got)
	}
}

// Scenario B — explicit empty prefix.
func TestScenarioB_ExplicitEmptyPrefix(t *testing.T) {
	alpha := &fakeConnector{id: "alpha", tools: toolNamed("search", "summarize")}
	registry := newFakeRegistry(alpha)
	profiles := map[string]ProfileDefinition{
		"default": def(ProfileEntry{Name: "alpha", Selection: Selection{Prefix: PrefixEmpty()}}),
	}
	r := quietResolver(registry, profiles)

	rp, err := r.Resolve(context.Background(), "default")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := rp.toolNames(); !reflect.DeepEqual(got, []string{"search", "summarize"}) {
		t.Fatalf("tools = %v", got)
	}
}

// Scenario C — nested profile with prefix and allow-list.
func TestScenarioC_NestedProfile(t *testing.T) {
	alpha := &fakeConnector{id: "alpha", tools: toolNamed("search", "summarize")}
	registry := newFakeRegistry(alpha)
	profiles := map[string]ProfileDefinition{
		"base":   def(ProfileEntry{Name: "alpha", Selection: Selection{}}),
		"nested": def(ProfileEntry{Name: "base", Selection: Selection{Prefix: PrefixString("nested__"), Tools: strs("alpha__search")}}),
	}
	r := quietResolver(registry, profiles)

	rp, err := r.Resolve(context.Background(), "nested")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := rp.toolNames(); !reflect.DeepEqual(got, []string{"nested__alpha__search"}) {
		t.Fatalf("tools = %v", got)
	}
}

// Scenario D — two-level prefix stacking.
func TestScenarioD_TwoLevelPrefixStacking(t *testing.T) {
	github := &fakeConnector{id: "github", tools: toolNamed("list_commits")}
	registry := newFakeRegistry(github)
	profiles := map[string]ProfileDefinition{
		"github-readonly": def(ProfileEntry{Name: "github", Selection: Selection{Prefix: PrefixString("github__"), Tools: strs("list_commits")}}),
		"default":         def(ProfileEntry{Name: "github-readonly", Selection: Selection{Prefix: PrefixString("gh__"), Tools: strs("github__list_commits")}}),
	}
	r := quietResolver(registry, profiles)

	rp, err := r.Resolve(context.Background(), "default")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := rp.toolNames(); !reflect.DeepEqual(got, []string{"gh__github__list_commits"}) {
		t.Fatalf("tools = %v", got)
	}
}

// Scenario E — server initialisation failure.
func TestScenarioE_ServerInitFailure(t *testing.T) {
	alpha := &fakeConnector{id: "alpha", readyErr: errBoom}
	registry := newFakeRegistry(alpha)
	profiles := map[string]ProfileDefinition{
		"default": def(ProfileEntry{Name: "alpha", Selection: Selection{}}),
	}
	r := quietResolver(registry, profiles)

	rp, err := r.Resolve(context.Background(), "default")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := rp.toolNames(); len(got) != 0 {
		t.Fatalf("tools = %v, want empty", got)
	}
	if got := rp.promptNames(); len(got) != 0 {
		t.Fatalf("prompts = %v, want empty", got)
	}
}

// Scenario F — cycle.
func TestScenarioF_Cycle(t *testing.T) {
	registry := newFakeRegistry()
	profiles := map[string]ProfileDefinition{
		"loopA": def(ProfileEntry{Name: "loopB", Selection: Selection{}}),
		"loopB": def(ProfileEntry{Name: "loopA", Selection: Selection{}}),
	}
	r := quietResolver(registry, profiles)

	_, err := r.Resolve(context.Background(), "loopA")
	if err == nil {
		t.Fatalf("expected cycle error")
	}
	if !strings.Contains(err.Error(), "loopA -> loopB -> loopA") {
		t.Fatalf("err = %v, want cycle message", err)
	}
}

// Scenario G — name translation on dispatch.
func TestScenarioG_NameTranslationOnDispatch(t *testing.T) {
	alpha := &fakeConnector{id: "alpha", tools: toolNamed("search")}
	registry := newFakeRegistry(alpha)
	profiles := map[string]ProfileDefinition{
		"default": def(ProfileEntry{Name: "alpha", Selection: Selection{}}),
	}
	r := quietResolver(registry, profiles)

	rp, err := r.Resolve(context.Background(), "default")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	p := NewProfile(rp)

	if _, err := p.CallTool(context.Background(), &mcp.CallToolParams{Name: "alpha__search"}); err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if alpha.callCount != 1 {
		t.Fatalf("callCount = %d", alpha.callCount)
	}
	if alpha.lastCall != "search" {
		t.Fatalf("forwarded name = %q, want %q", alpha.lastCall, "search")
	}
}

func TestUnknownProfileFails(t *testing.T) {
	r := quietResolver(newFakeRegistry(), map[string]ProfileDefinition{})
	if _, err := r.Resolve(context.Background(), "missing"); err == nil {
		t.Fatalf("expected error for unknown profile")
	}
}

func TestUnknownEntryFails(t *testing.T) {
	profiles := map[string]ProfileDefinition{
		"default": def(ProfileEntry{Name: "nope", Selection: Selection{}}),
	}
	r := quietResolver(newFakeRegistry(), profiles)
	if _, err := r.Resolve(context.Background(), "default"); err == nil {
		t.Fatalf("expected error for unknown entry")
	}
}

func TestEmptyAllowListExportsNothing(t *testing.T) {
	alpha := &fakeConnector{id: "alpha", tools: toolNamed("search", "summarize")}
	registry := newFakeRegistry(alpha)
	empty := []string{}
	profiles := map[string]ProfileDefinition{
		"default": def(ProfileEntry{Name: "alpha", Selection: Selection{Tools: &empty}}),
	}
	r := quietResolver(registry, profiles)

	rp, err := r.Resolve(context.Background(), "default")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if got := rp.toolNames(); len(got) != 0 {
		t.Fatalf("tools = %v, want empty", got)
	}
}

func TestFirstWinsOnConflict(t *testing.T) {
	a := &fakeConnector{id: "a", tools: toolNamed("x")}
	b := &fakeConnector{id: "b", tools: toolNamed("x")}
	registry := newFakeRegistry(a, b)
	profiles := map[string]ProfileDefinition{
		"default": def(
			ProfileEntry{Name: "a", Selection: Selection{Prefix: PrefixEmpty()}},
			ProfileEntry{Name: "b", Selection: Selection{Prefix: PrefixEmpty()}},
		),
	}
	r := quietResolver(registry, profiles)

	rp, err := r.Resolve(context.Background(), "default")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	entry, ok := rp.tools.get("x")
	if !ok {
		t.Fatalf("expected tool x present")
	}
	if entry.Connector.ID() != "a" {
		t.Fatalf("first-wins violated: winner = %s", entry.Connector.ID())
	}
}

func TestResolveIsDeterministicAcrossRepeatedCalls(t *testing.T) {
	alpha := &fakeConnector{id: "alpha", tools: toolNamed("time")}
	registry := newFakeRegistry(alpha)
	profiles := map[string]ProfileDefinition{
		"default": def(ProfileEntry{Name: "alpha", Selection: Selection{}}),
	}
	r := quietResolver(registry, profiles)

	first, err := r.Resolve(context.Background(), "default")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	second, err := r.Resolve(context.Background(), "default")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if !reflect.DeepEqual(first.toolNames(), second.toolNames()) {
		t.Fatalf("non-deterministic resolution")
	}
}
