package mcpmgr

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// StdioServerDescriptor describes an upstream MCP server spawned as a
// local subprocess communicating over stdin/stdout.
type StdioServerDescriptor struct {
	IDValue string
	Command string
	Args    []string
	Env     map[string]string
}

func (d *StdioServerDescriptor) ID() string { return d.IDValue }

// NewStdioConnector builds a Connector that spawns the descriptor's
// command on first EnsureReady. The child's environment is the parent's
// environment overlaid with the descriptor's Env (descriptor entries win
// on conflict). Stderr is forwarded line-by-line to logger, prefixed with
// the server id, so a crashing upstream's diagnostics end up in the
// gateway's own log stream instead of disappearing.
func NewStdioConnector(desc *StdioServerDescriptor, clientName, clientVersion string, logger *slog.Logger) Connector {
	if logger == nil {
		logger = slog.Default()
	}
	connect := func(ctx context.Context) (session, error) {
		cmd := exec.Command(desc.Command, desc.Args...)
		cmd.Env = mergeEnv(os.Environ(), desc.Env)

		stderr, err := cmd.StderrPipe()
		if err != nil {
			return nil, fmt.Errorf("mcpmgr: stderr pipe %s: %w", desc.IDValue, err)
		}
		go forwardStderr(desc.IDValue, stderr, logger)

		transport := &mcp.CommandTransport{Command: cmd}
		client := mcp.NewClient(&mcp.Implementation{Name: clientName, Version: clientVersion}, nil)
		sess, err := client.Connect(ctx, transport, nil)
		if err != nil {
			return nil, fmt.Errorf("mcpmgr: connect %s: %w", desc.IDValue, err)
		}
		return clientSession{sess}, nil
	}
	return &baseConnector{id: desc.IDValue, connect: connect}
}

func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	out := make([]string, 0, len(base)+len(overrides))
	for _, kv := range base {
		key := kv
		for i, r := range kv {
			if r == '=' {
				key = kv[:i]
				break
			}
		}
		if _, override := overrides[key]; override {
			continue
		}
		out = append(out, kv)
	}
	for k, v := range overrides {
		out = append(out, k+"="+v)
	}
	return out
}

func forwardStderr(serverID string, r io.Reader, logger *slog.Logger) {
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		logger.Warn("upstream stderr", "server_id", serverID, "time", time.Now().Format(time.RFC3339), "line", scanner.Text())
	}
}
