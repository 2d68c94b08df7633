// agentdb: Context Index MCP Server
//
// A stdio MCP server that gives AI coding tools a durable, queryable
// index of a codebase: content-addressed file tracking, layered symbol
// documentation, and a calls/inherits relationship graph.
//
// Usage:
//
//	agentdb serve    # Start MCP server (stdio transport)
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	dbserver "agentdb/internal/server"
	"github.com/mark3labs/mcp-go/server"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	switch os.Args[1] {
	case "serve":
		if err := run(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case "--help", "-h", "help":
		printUsage()
		os.Exit(0)
	case "--version", "-v", "version":
		fmt.Printf("agentdb v%s\n", dbserver.Version)
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", os.Args[1])
		printUsage()
		os.Exit(1)
	}
}

func run() error {
	s, cleanup, err := dbserver.New()
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}
	defer cleanup()

	// Graceful shutdown on interrupt.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		cancel()
	}()

	_ = ctx // stdio server manages its own lifecycle

	return server.ServeStdio(s)
}

func printUsage() {
	fmt.Fprintf(os.Stderr, `agentdb v%s — Context Index MCP Server

Usage:
  agentdb serve    Start the MCP server (stdio transport)

Environment:
  AGENTDB_ROOT                Repository root (default: .)
  AGENTDB_STORE               SQLite store path (default: .agentdb/index.db)
  AGENTDB_MAX_METADATA_BYTES  Metadata block size limit (default: 100000)
  AGENTDB_MAX_NESTING_DEPTH   Metadata JSON depth limit (default: 10)
  AGENTDB_MAX_FOCUS_DEPTH     Graph traversal depth cap (default: 5)

Configuration:
  Add to your AI tool's MCP config:

  {
    "mcpServers": {
      "agentdb": {
        "command": "agentdb",
        "args": ["serve"]
      }
    }
  }
`, dbserver.Version)
}
