// Package crawlchat provides a high-level façade over the agent lifecycle
// manager, the conversation processor and the HTTP gateway. Most applications
// interact with this package by:
//  1. Loading configuration via config.Load()
//  2. Creating an App via New()
//  3. Calling Run(), which initializes the agent and serves HTTP until the
//     context is cancelled
//
// The façade delegates lifecycle orchestration to agent.Manager while keeping
// setup and usage ergonomics concise.
package crawlchat

import (
	"context"
	"time"

	"github.com/crawlchat/crawlchat/agent"
	"github.com/crawlchat/crawlchat/config"
	"github.com/crawlchat/crawlchat/core"
	"github.com/crawlchat/crawlchat/logging"
	"github.com/crawlchat/crawlchat/server"
)

// ShutdownTimeout bounds graceful HTTP shutdown before teardown proceeds.
const ShutdownTimeout = 10 * time.Second

// Options configures the App.
type Options struct {
	// Logger defaults to a structured logger built from the config's
	// logging settings when nil.
	Logger logging.Logger

	// ManagerOptions are forwarded to the lifecycle manager, mainly so
	// tests can inject fakes.
	ManagerOptions []func(o *agent.Options)
}

// App wires configuration, the lifecycle manager, the processor and the HTTP
// gateway into one runnable unit.
type App struct {
	cfg       *config.Config
	logger    logging.Logger
	manager   *agent.Manager
	processor *agent.Processor
	server    *server.Server
}

// New assembles an App from configuration. It does not start anything.
func New(cfg *config.Config, optFns ...func(o *Options)) (*App, error) {
	var opts Options
	for _, fn := range optFns {
		fn(&opts)
	}

	logger := opts.Logger
	if logger == nil {
		l, err := logging.New(&logging.Config{
			Level:    logging.ParseLevel(cfg.LogLevel),
			Format:   cfg.LogFormat,
			FilePath: cfg.LogFile,
		})
		if err != nil {
			return nil, core.NewConfigurationError("failed to build logger", err)
		}
		logger = l
	}

	managerOpts := append([]func(o *agent.Options){func(o *agent.Options) {
		o.Logger = logger
	}}, opts.ManagerOptions...)

	manager := agent.NewManager(cfg, managerOpts...)
	processor := agent.NewProcessor(manager, logger)
	srv := server.New(cfg.Addr(), manager, processor, func(o *server.Options) {
		o.Logger = logger
	})

	return &App{
		cfg:       cfg,
		logger:    logger,
		manager:   manager,
		processor: processor,
		server:    srv,
	}, nil
}

// Manager exposes the lifecycle manager, mainly for tests and CLIs.
func (a *App) Manager() *agent.Manager { return a.manager }

// Processor exposes the conversation processor.
func (a *App) Processor() *agent.Processor { return a.processor }

// Run initializes the agent in the background and serves HTTP until ctx is
// cancelled, then shuts down gracefully and tears the agent down. The HTTP
// server comes up before initialization finishes so /health can report
// progress; /chat returns 503 until the agent is ready.
func (a *App) Run(ctx context.Context) error {
	initDone := make(chan error, 1)
	go func() {
		initDone <- a.manager.Initialize(ctx)
	}()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- a.server.ListenAndServe()
	}()

	defer a.manager.Cleanup()

	for {
		select {
		case err := <-initDone:
			if err != nil {
				a.logger.Error("startup failed", "error", err)
				shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
				defer cancel()
				_ = a.server.Shutdown(shutdownCtx)
				return err
			}
			initDone = nil
		case err := <-serveErr:
			return err
		case <-ctx.Done():
			a.logger.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
			defer cancel()
			if err := a.server.Shutdown(shutdownCtx); err != nil {
				a.logger.Warn("http shutdown error", "error", err)
			}
			return nil
		}
	}
}
