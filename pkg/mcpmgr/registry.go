package mcpmgr

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
)

// Registry owns one Connector per configured upstream server. It is
// read-only after construction: server lists are fixed at startup in
// this gateway (no hot reload, no add/remove at runtime).
type Registry struct {
	connectors map[string]Connector
}

// NewRegistry builds a Registry from id -> Connector. It does not
// connect to anything; connectors stay idle until first used.
func NewRegistry(connectors map[string]Connector) *Registry {
	cp := make(map[string]Connector, len(connectors))
	for id, c := range connectors {
		cp[id] = c
	}
	return &Registry{connectors: cp}
}

// Get returns the connector registered under id, or false if no server
// with that id was configured.
func (r *Registry) Get(id string) (Connector, bool) {
	c, ok := r.connectors[id]
	return c, ok
}

// IDs returns the registered server ids in no particular order.
func (r *Registry) IDs() []string {
	out := make([]string, 0, len(r.connectors))
	for id := range r.connectors {
		out = append(out, id)
	}
	return out
}

// DisposeAll disposes every connector concurrently and waits for all of
// them to finish, regardless of individual failures. It must not
// short-circuit on the first error: every connector gets a chance to
// release its resources, and every failure is reported.
func (r *Registry) DisposeAll(ctx context.Context) error {
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs []string
	)
	for id, c := range r.connectors {
		wg.Add(1)
		go func(id string, c Connector) {
			defer wg.Done()
			if err := c.Dispose(ctx); err != nil {
				mu.Lock()
				errs = append(errs, fmt.Sprintf("%s: %v", id, err))
				mu.Unlock()
				slog.Warn("dispose failed", "server_id", id, "err", err)
			}
		}(id, c)
	}
	wg.Wait()
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("mcpmgr: dispose-all: %s", strings.Join(errs, "; "))
}
