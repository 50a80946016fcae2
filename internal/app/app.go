package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/gdamore/tcell/v2"

	server "swarm/server"
	"swarm/server/internal/config"
	servernet "swarm/server/internal/net"
	"swarm/server/internal/render"
	"swarm/server/internal/telemetry"
	"swarm/server/logging"
	loggingSinks "swarm/server/logging/sinks"
)

type Options struct {
	// ConfigPath is an optional YAML file layered over the built-in defaults.
	ConfigPath string
	// View draws the match on the controlling terminal while serving.
	View   bool
	Logger telemetry.Logger
	Getenv func(string) string
}

func Run(ctx context.Context, opts Options) error {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return err
	}

	stdLogger := log.Default()
	if opts.View {
		stdLogger = log.New(io.Discard, "", 0)
	}
	telemetryLogger := opts.Logger
	if telemetryLogger == nil {
		telemetryLogger = telemetry.WrapLogger(stdLogger)
	}

	if err := cfg.ApplyEnv(opts.Getenv); err != nil {
		telemetryLogger.Printf("ignoring environment overrides: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	starters, err := cfg.StarterKinds()
	if err != nil {
		return err
	}

	metrics := logging.NewMetrics()
	logConfig := loggingConfig(cfg.Logging)
	sinks, closers, err := buildSinks(logConfig, cfg.Logging, opts.View)
	if err != nil {
		return err
	}
	defer func() {
		for _, c := range closers {
			c.Close()
		}
	}()

	router := logging.NewRouter(logging.SystemClock{}, metrics, logConfig, sinks)
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if cerr := router.Close(closeCtx); cerr != nil {
			telemetryLogger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	hubCfg := server.DefaultHubConfig()
	hubCfg.Seed = cfg.Match.Seed
	hubCfg.Terrain = cfg.Terrain
	hubCfg.Rules = cfg.Rules
	hubCfg.StarterKinds = starters
	hubCfg.TickRate = cfg.Match.TickRate
	hubCfg.HeartbeatTimeout = cfg.HeartbeatTimeout()
	hubCfg.TelemetryWindow = cfg.Telemetry.WindowTicks
	hubCfg.CommandCapacity = cfg.Match.CommandCapacity
	hubCfg.PerPlayerCommands = cfg.Match.PerPlayerCommands
	hubCfg.Logger = telemetryLogger
	hubCfg.Metrics = metrics

	if cfg.Telemetry.CSVPath != "" {
		file, err := os.Create(cfg.Telemetry.CSVPath)
		if err != nil {
			return fmt.Errorf("opening telemetry csv: %w", err)
		}
		defer file.Close()
		hubCfg.Telemetry = file
	}

	hub := server.NewHubWithConfig(hubCfg, router)
	defer hub.Close()
	stop := make(chan struct{})
	go hub.RunSimulation(stop)
	defer close(stop)

	clientDir := cfg.Server.ClientDir
	if clientDir == "" {
		clientDir = resolveClientDir()
	}
	handler := servernet.NewHTTPHandler(hub, servernet.HTTPHandlerConfig{
		ClientDir:     clientDir,
		Logger:        stdLogger,
		Observability: cfg.Observability,
	})
	srv := &http.Server{Addr: cfg.Server.ListenAddr, Handler: handler}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	serveErr := make(chan error, 1)
	go func() {
		telemetryLogger.Printf("server listening on %s", srv.Addr)
		serveErr <- srv.ListenAndServe()
	}()

	if opts.View {
		go func() {
			if err := runView(ctx, hub); err != nil {
				telemetryLogger.Printf("terminal view stopped: %v", err)
			}
			cancel()
		}()
	}

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, done := context.WithTimeout(context.Background(), 5*time.Second)
	defer done()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}
	return nil
}

func loggingConfig(cfg config.LoggingConfig) logging.Config {
	out := logging.DefaultConfig()
	out.EnabledSinks = cfg.Sinks
	if cfg.BufferSize > 0 {
		out.BufferSize = cfg.BufferSize
	}
	if cfg.MinSeverity != "" {
		out.MinimumSeverity = logging.ParseSeverity(cfg.MinSeverity)
	}
	out.JSON.FilePath = cfg.JSONPath
	if cfg.JSONFlush > 0 {
		out.JSON.FlushInterval = cfg.JSONFlush
	}
	return out
}

// buildSinks constructs the enabled event sinks. The console sink is skipped
// while the terminal view owns stdout.
func buildSinks(logConfig logging.Config, cfg config.LoggingConfig, view bool) ([]logging.NamedSink, []io.Closer, error) {
	var (
		sinks   []logging.NamedSink
		closers []io.Closer
	)
	if logConfig.HasSink("console") && !view {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsole(os.Stdout)})
	}
	if logConfig.HasSink("json") {
		var w io.Writer = os.Stdout
		if logConfig.JSON.FilePath != "" {
			file, err := os.OpenFile(logConfig.JSON.FilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
			if err != nil {
				return nil, nil, fmt.Errorf("opening json log: %w", err)
			}
			closers = append(closers, file)
			w = file
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(w, logConfig.JSON.FlushInterval)})
	}
	if logConfig.HasSink("zap") {
		zapSink, err := loggingSinks.NewZap(cfg.ZapLevel, cfg.ZapProduction)
		if err != nil {
			for _, c := range closers {
				c.Close()
			}
			return nil, nil, fmt.Errorf("building zap sink: %w", err)
		}
		sinks = append(sinks, logging.NamedSink{Name: "zap", Sink: zapSink})
	}
	return sinks, closers, nil
}

func runView(ctx context.Context, hub *server.Hub) error {
	screen, err := tcell.NewScreen()
	if err != nil {
		return fmt.Errorf("opening terminal: %w", err)
	}
	if err := screen.Init(); err != nil {
		return fmt.Errorf("initialising terminal: %w", err)
	}
	defer screen.Fini()
	return render.Run(ctx, screen, hub, hub.TickInterval())
}
