// Package main is the entry point for the gcpbox MCP server.
//
// gcpbox implements a Model Context Protocol (MCP) server that brokers tool
// calls into Google Cloud API operations. Its core is an in-process sandbox
// that executes untrusted JavaScript fragments against a closed capability
// registry under a wall-clock deadline. The server supports both stdio and
// HTTP transports.
//
// The application uses Uber's fx framework for dependency injection and
// lifecycle management, with zap for structured logging and viper for
// configuration.
package main

import (
	"context"

	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"github.com/gcpbox/gcpbox/capability"
	"github.com/gcpbox/gcpbox/config"
	"github.com/gcpbox/gcpbox/engine"
	"github.com/gcpbox/gcpbox/logger"
	"github.com/gcpbox/gcpbox/mcpserver"
	"github.com/gcpbox/gcpbox/retry"
	"github.com/gcpbox/gcpbox/selection"
)

func main() {
	app := fx.New(
		// Provide dependencies
		fx.Provide(
			// Config
			config.New,

			// Logger with configuration
			logger.NewFromConfig,

			// Credential handle for the Google API clients
			func(cfg *config.Config) *capability.Credential {
				return capability.NewCredential(cfg.GCP.CredentialsFile)
			},

			// Capability registry, populated once per process
			capability.NewRegistry,

			// Selection state with the configured default region
			func(log *zap.Logger, cfg *config.Config) *selection.Store {
				return selection.NewStore(log, cfg.GCP.DefaultRegion)
			},

			// Sandbox execution engine
			func(log *zap.Logger, cfg *config.Config, reg *capability.Registry, store *selection.Store) *engine.Engine {
				return engine.New(log, reg, store, cfg.EngineTimeout())
			},

			// Retry supervisor wrapping the engine at the dispatch layer
			func(log *zap.Logger, cfg *config.Config) *retry.Supervisor {
				return retry.New(log, cfg.Engine.MaxAttempts, cfg.RetryDelay())
			},

			// Interface bindings for the MCP server
			func(e *engine.Engine) mcpserver.CodeRunner { return e },
			func(r *capability.Registry) mcpserver.CapabilityResolver { return r },

			// MCP Server
			mcpserver.New,
		),

		fx.Invoke(
			// Clear the selection on graceful shutdown
			func(lc fx.Lifecycle, store *selection.Store) {
				lc.Append(fx.Hook{
					OnStop: func(context.Context) error {
						store.Clear()
						return nil
					},
				})
			},

			// Start the appropriate transport based on config
			func(cfg *config.Config, server *mcpserver.MCPServer) {
				switch cfg.Server.Transport {
				case "stdio":
					go func() {
						if err := server.ServeStdio(); err != nil {
							panic(err)
						}
					}()
				case "http":
					go func() {
						if err := server.ServeHTTP(); err != nil {
							panic(err)
						}
					}()
				default:
					panic("unsupported transport: " + cfg.Server.Transport)
				}
			},
		),

		// Use the application logger for fx logs
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log}
		}),
	)

	// Start the application
	app.Run()
}
