package gwconfig

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"

	mcpgateway "github.com/mcphub/gateway/pkg/mcp-gateway"
	"github.com/mcphub/gateway/pkg/mcpmgr"
)

var listenPattern = regexp.MustCompile(`^[\w.-]+:\d+$`)

// Load reads and parses the config file at path (JSON or YAML, chosen
// by extension), substitutes `${VAR}` references from the process
// environment, and validates the result. A missing environment
// variable substitutes the empty string and is logged as a warning
// rather than failing the load.
func Load(path string, logger *slog.Logger) (*Config, error) {
	if logger == nil {
		logger = slog.Default()
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("gwconfig: read %s: %w", path, err)
	}

	expanded := os.Expand(string(raw), func(name string) string {
		v, ok := os.LookupEnv(name)
		if !ok {
			logger.Warn("config references undefined environment variable", "var", name)
			return ""
		}
		return v
	})

	var cfg Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("gwconfig: parse yaml: %w", err)
		}
	case ".json", "":
		if err := json.Unmarshal([]byte(expanded), &cfg); err != nil {
			return nil, fmt.Errorf("gwconfig: parse json: %w", err)
		}
	default:
		return nil, fmt.Errorf("gwconfig: unsupported config extension %q", ext)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate enforces the config's structural rules: listen shape, server
// descriptor completeness, and that every profile entry resolves to a
// declared server or another declared profile.
func (c *Config) Validate() error {
	if !listenPattern.MatchString(c.Listen) {
		return fmt.Errorf("gwconfig: listen %q does not match host:port", c.Listen)
	}

	for id, s := range c.MCPServers {
		switch s.Type {
		case "http":
			if _, err := url.ParseRequestURI(s.URL); err != nil {
				return fmt.Errorf("gwconfig: server %q: invalid url %q: %w", id, s.URL, err)
			}
		case "stdio":
			if strings.TrimSpace(s.Command) == "" {
				return fmt.Errorf("gwconfig: server %q: command must not be empty", id)
			}
		default:
			return fmt.Errorf("gwconfig: server %q: unknown type %q", id, s.Type)
		}
	}

	for name, def := range c.Profiles {
		for _, entry := range def.EntriesOrder {
			_, isServer := c.MCPServers[entry]
			_, isProfile := c.Profiles[entry]
			if !isServer && !isProfile {
				return fmt.Errorf("gwconfig: profile %q: entry %q is neither a declared server nor profile", name, entry)
			}
		}
	}
	return nil
}

// BuildRegistry instantiates one connector per declared server and
// returns them as an mcpmgr.Registry.
func (c *Config) BuildRegistry(clientName, clientVersion string, logger *slog.Logger) *mcpmgr.Registry {
	connectors := make(map[string]mcpmgr.Connector, len(c.MCPServers))
	for id, s := range c.MCPServers {
		switch s.Type {
		case "http":
			connectors[id] = mcpmgr.NewHTTPConnector(&mcpmgr.HTTPServerDescriptor{
				IDValue: id,
				URL:     s.URL,
				Headers: s.Headers,
			}, clientName, clientVersion)
		case "stdio":
			connectors[id] = mcpmgr.NewStdioConnector(&mcpmgr.StdioServerDescriptor{
				IDValue: id,
				Command: s.Command,
				Args:    s.Args,
				Env:     s.Env,
			}, clientName, clientVersion, logger)
		}
	}
	return mcpmgr.NewRegistry(connectors)
}

// BuildProfiles converts the raw profile configs into
// mcpgateway.ProfileDefinition values ready for a Resolver.
func (c *Config) BuildProfiles() (map[string]mcpgateway.ProfileDefinition, error) {
	out := make(map[string]mcpgateway.ProfileDefinition, len(c.Profiles))
	for name, def := range c.Profiles {
		entries := make([]mcpgateway.ProfileEntry, 0, len(def.EntriesOrder))
		for _, key := range def.EntriesOrder {
			raw := def.Entries[key]
			prefix, err := prefixFromRaw(raw.Prefix)
			if err != nil {
				return nil, fmt.Errorf("gwconfig: profile %q entry %q: %w", name, key, err)
			}
			entries = append(entries, mcpgateway.ProfileEntry{
				Name: key,
				Selection: mcpgateway.Selection{
					Tools:   raw.Tools,
					Prompts: raw.Prompts,
					Prefix:  prefix,
				},
			})
		}
		out[name] = mcpgateway.NewProfileDefinition(entries)
	}
	return out, nil
}

func prefixFromRaw(raw any) (mcpgateway.PrefixOption, error) {
	switch v := raw.(type) {
	case nil:
		return mcpgateway.PrefixAbsent, nil
	case string:
		return mcpgateway.PrefixString(v), nil
	case bool:
		if v {
			return mcpgateway.PrefixAbsent, fmt.Errorf("prefix: true is not a valid value (use a string, or false for no prefix)")
		}
		return mcpgateway.PrefixEmpty(), nil
	default:
		return mcpgateway.PrefixAbsent, fmt.Errorf("prefix: unsupported value %v", raw)
	}
}
