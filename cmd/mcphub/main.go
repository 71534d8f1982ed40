// Command mcphub runs the MCP gateway: it loads a config file describing
// upstream servers and profiles, then either serves the aggregated /mcp
// endpoint or prints a profile's resolved tool/prompt names.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/mcphub/gateway/internal/gwconfig"
	mcpgateway "github.com/mcphub/gateway/pkg/mcp-gateway"
)

const (
	clientName    = "mcphub"
	clientVersion = "0.1.0"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	var err error
	switch os.Args[1] {
	case "serve":
		err = runServe(os.Args[2:])
	case "list-tools":
		err = runList(os.Args[2:], listTools)
	case "list-prompts":
		err = runList(os.Args[2:], listPrompts)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "mcphub:", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: mcphub <serve|list-tools|list-prompts> -config <path> [profile]")
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	configPath := fs.String("config", "mcphub.json", "path to the config file")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := gwconfig.Load(*configPath, slog.Default())
	if err != nil {
		return err
	}
	profiles, err := cfg.BuildProfiles()
	if err != nil {
		return err
	}
	registry := cfg.BuildRegistry(clientName, clientVersion, slog.Default())

	dispatcher := mcpgateway.NewDispatcher(mcpgateway.DispatcherOptions{
		Servers:        registry,
		Profiles:       mcpgateway.StaticProfileSource(profiles),
		Implementation: &mcp.Implementation{Name: clientName, Version: clientVersion},
		Logger:         slog.Default(),
		Streamable:     &mcp.StreamableHTTPOptions{Stateless: true, JSONResponse: true},
	})

	server := &http.Server{Addr: cfg.Listen, Handler: dispatcher.Handler()}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		slog.Info("gateway listening", "addr", cfg.Listen)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
	case <-ctx.Done():
		slog.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Warn("http shutdown failed", "err", err)
		}
		if err := registry.DisposeAll(shutdownCtx); err != nil {
			slog.Warn("dispose-all failed", "err", err)
		}
	}
	return nil
}

func listTools(p *mcpgateway.Profile) []string {
	names := make([]string, 0)
	for _, t := range p.ListTools() {
		names = append(names, t.Name)
	}
	return names
}

func listPrompts(p *mcpgateway.Profile) []string {
	names := make([]string, 0)
	for _, pr := range p.ListPrompts() {
		names = append(names, pr.Name)
	}
	return names
}

func runList(args []string, extract func(*mcpgateway.Profile) []string) error {
	fs := flag.NewFlagSet("list", flag.ExitOnError)
	configPath := fs.String("config", "mcphub.json", "path to the config file")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() < 1 {
		return fmt.Errorf("missing profile name")
	}
	profileName := fs.Arg(0)

	cfg, err := gwconfig.Load(*configPath, slog.Default())
	if err != nil {
		return err
	}
	profiles, err := cfg.BuildProfiles()
	if err != nil {
		return err
	}
	registry := cfg.BuildRegistry(clientName, clientVersion, slog.Default())
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = registry.DisposeAll(ctx)
	}()

	resolver := mcpgateway.NewResolver(registry, profiles, slog.Default())
	resolved, err := resolver.Resolve(context.Background(), profileName)
	if err != nil {
		return err
	}
	profile := mcpgateway.NewProfile(resolved)

	for _, name := range extract(profile) {
		fmt.Println(name)
	}
	return nil
}
