package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/gops/agent"
	"github.com/scott-cotton/cli"

	"github.com/evo-sim/simd/debug"
	"github.com/evo-sim/simd/server"
)

func serve(cfg *ServeConfig, cc *cli.Context, args []string) error {
	_, err := cfg.Serve.Parse(cc, args)
	if err != nil {
		return err
	}

	// Start gops agent for debugging
	if err := agent.Listen(agent.Options{}); err != nil {
		fmt.Fprintf(cc.Out, "gops agent failed: %v\n", err)
	}

	// Load configuration
	serverConfig := server.DefaultConfig()
	if cfg.ConfigFile != "" {
		serverConfig, err = server.LoadConfig(cfg.ConfigFile)
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}
	}

	// Flags override the config file
	if cfg.Addr != "" {
		serverConfig.Listen = cfg.Addr
	}
	if cfg.BufferSize > 0 {
		serverConfig.BufferSize = cfg.BufferSize
	}
	if cfg.sessionsSet() {
		serverConfig.MaxSessions = cfg.MaxSessions
	}
	if err := serverConfig.Validate(); err != nil {
		return err
	}
	if debug.Config() {
		debug.LogAny(serverConfig)
	}

	// Set up signal handling for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		fmt.Fprintf(cc.Out, "\nShutting down...\n")
		cancel()
	}()

	// Create and start the server
	srv := server.New(&server.Spec{
		Config: serverConfig,
	})

	if err := srv.StartTCP(""); err != nil {
		return fmt.Errorf("failed to start TCP listener: %w", err)
	}
	fmt.Fprintf(cc.Out, "simd listening on %s\n", srv.TCPAddr())
	defer srv.StopTCP()

	// Wait for shutdown signal
	<-ctx.Done()

	return nil
}
