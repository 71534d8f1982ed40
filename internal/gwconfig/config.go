// Package gwconfig loads and validates the gateway's JSON/YAML config
// file: the listen address, the declared upstream servers, and the
// named profiles built from them.
package gwconfig

// Config is the top-level, fully-validated configuration.
type Config struct {
	Listen     string                   `json:"listen" yaml:"listen"`
	MCPServers map[string]ServerConfig  `json:"mcpServers" yaml:"mcpServers"`
	Profiles   map[string]ProfileConfig `json:"profiles" yaml:"profiles"`
}

// ServerConfig is the raw, tagged-union server descriptor as it appears
// in the config file, before being turned into a concrete
// mcpmgr.HTTPServerDescriptor / StdioServerDescriptor.
type ServerConfig struct {
	Type string `json:"type" yaml:"type"`

	// HTTP fields.
	URL     string            `json:"url,omitempty" yaml:"url,omitempty"`
	Headers map[string]string `json:"headers,omitempty" yaml:"headers,omitempty"`

	// Stdio fields.
	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Args    []string          `json:"args,omitempty" yaml:"args,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
}

// IsHTTP reports whether this descriptor is the HTTP variant.
func (s ServerConfig) IsHTTP() bool { return s.Type == "http" }

// IsStdio reports whether this descriptor is the stdio variant.
func (s ServerConfig) IsStdio() bool { return s.Type == "stdio" }

// ProfileConfig is a raw profile definition: entry-name -> selection,
// keyed the way config files naturally express it (a map). Order is
// recorded in EntriesOrder during decoding by the UnmarshalJSON and
// UnmarshalYAML methods (see decode.go), since encoding/json and
// yaml.v3 both erase map key order on their own.
type ProfileConfig struct {
	Entries      map[string]SelectionConfig
	EntriesOrder []string
}

// SelectionConfig is the raw form of mcpgateway.Selection.
type SelectionConfig struct {
	Tools   *[]string   `json:"tools,omitempty" yaml:"tools,omitempty"`
	Prompts *[]string   `json:"prompts,omitempty" yaml:"prompts,omitempty"`
	Prefix  interface{} `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}
