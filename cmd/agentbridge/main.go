// Package main implements the AgentBridge daemon: a cross-paradigm
// translation service for AI agent protocols. It wires the translation
// engine, the three-tier cache, and the priority queue behind a NATS
// connection and a Prometheus scrape endpoint.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"runtime"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/c360/agentbridge/adapter"
	"github.com/c360/agentbridge/cache"
	"github.com/c360/agentbridge/config"
	"github.com/c360/agentbridge/engine"
	"github.com/c360/agentbridge/event"
	"github.com/c360/agentbridge/health"
	"github.com/c360/agentbridge/message"
	"github.com/c360/agentbridge/metric"
	"github.com/c360/agentbridge/natsclient"
	"github.com/c360/agentbridge/queue"
)

const (
	appName = "agentbridge"
	version = "0.1.0"

	// translateTimeout bounds a single queued translation.
	translateTimeout = 30 * time.Second
)

type cliFlags struct {
	configPath  string
	validate    bool
	showVersion bool
}

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\n%s\n", r, buf[:n])
			os.Exit(2)
		}
	}()

	if err := run(); err != nil {
		slog.Error("application failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	flags := parseFlags()
	if flags.showVersion {
		fmt.Printf("%s version %s\n", appName, version)
		return nil
	}

	cfg, err := config.Load(flags.configPath)
	if err != nil {
		return err
	}
	if flags.validate {
		fmt.Println("configuration is valid")
		return nil
	}

	logger := setupLogger(cfg.Logging)
	slog.SetDefault(logger)
	logger.Info("starting agentbridge", "version", version, "config", flags.configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	registry := metric.NewRegistry()
	bus := event.NewBus(logger)

	mgr, natsClient, err := buildCache(ctx, cfg, registry.Core, bus, logger)
	if err != nil {
		return err
	}
	if natsClient != nil {
		defer natsClient.Close()
	}

	eng, err := buildEngine(cfg, mgr, registry.Core, bus, logger)
	if err != nil {
		return err
	}

	q := queue.New(queueConfig(cfg.Queue),
		queue.WithLogger(logger),
		queue.WithBus(bus),
		queue.WithDepthGauge(registry.Core.QueueDepth),
		queue.WithDeadLetterCounter(registry.Core.DeadLetterTotal),
	)
	registerProcessors(q, eng)
	if err := q.Start(ctx); err != nil {
		return err
	}

	if cfg.Cache.WarmLimit > 0 {
		if n, err := mgr.Warm(ctx, cfg.Cache.WarmLimit); err != nil {
			logger.Warn("cache warm failed", "error", err)
		} else if n > 0 {
			logger.Info("cache warmed", "entries", n)
		}
	}

	g, gctx := errgroup.WithContext(ctx)

	monitor := buildHealthMonitor(cfg, natsClient, mgr, q, bus, logger)
	g.Go(func() error {
		monitor.Run(gctx)
		return nil
	})

	var metricsServer *metric.Server
	if cfg.Metrics.Enabled {
		metricsServer = metric.NewServer(cfg.Metrics.Port, cfg.Metrics.Path, registry)
		g.Go(func() error {
			logger.Info("metrics listening", "address", metricsServer.Address())
			return metricsServer.Start()
		})
	}

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")

		q.Close()
		if err := eng.Shutdown(); err != nil {
			logger.Error("engine shutdown", "error", err)
		}
		if metricsServer != nil {
			if err := metricsServer.Stop(); err != nil {
				logger.Error("metrics server stop", "error", err)
			}
		}
		return gctx.Err()
	})

	if err := g.Wait(); err != nil && err != context.Canceled {
		return err
	}
	logger.Info("agentbridge stopped")
	return nil
}

func parseFlags() *cliFlags {
	flags := &cliFlags{}
	flag.StringVar(&flags.configPath, "config", "", "path to YAML configuration file")
	flag.BoolVar(&flags.validate, "validate", false, "validate configuration and exit")
	flag.BoolVar(&flags.showVersion, "version", false, "print version and exit")
	flag.Parse()
	return flags
}

func setupLogger(cfg config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if strings.EqualFold(cfg.Format, "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	return slog.New(handler)
}

// buildCache assembles the tier stack the config enables: L1 always, L2
// when NATS is enabled, L3 when a SQLite path is set.
func buildCache(ctx context.Context, cfg *config.Config, core *metric.Core, bus *event.Bus, logger *slog.Logger) (*cache.Manager, *natsclient.Client, error) {
	opts := []cache.ManagerOption{
		cache.WithL1Capacity(cfg.Cache.L1Capacity),
		cache.WithBus(bus),
		cache.WithLookupCounter(core.CacheLookups),
	}

	var client *natsclient.Client
	if cfg.NATS.Enabled {
		var err error
		client, err = natsclient.Connect(strings.Join(cfg.NATS.URLs, ","),
			natsclient.WithName(cfg.NATS.Name),
			natsclient.WithMaxReconnects(cfg.NATS.MaxReconnects),
			natsclient.WithReconnectWait(cfg.NATS.ReconnectWait.Std()),
			natsclient.WithLogger(logger),
			natsclient.WithConnectedGauge(core.NATSConnected),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("nats connect: %w", err)
		}

		bucket, err := client.EnsureKeyValue(ctx, cfg.Cache.L2Bucket, cfg.Cache.L2TTL.Std())
		if err != nil {
			client.Close()
			return nil, nil, fmt.Errorf("kv bucket %s: %w", cfg.Cache.L2Bucket, err)
		}
		opts = append(opts, cache.WithKV(client.NewKVStore(bucket)))
	}

	if cfg.Cache.L3Path != "" {
		store, err := cache.OpenSQLiteStore(ctx, cfg.Cache.L3Path, cfg.Cache.L3TTL.Std(), logger)
		if err != nil {
			if client != nil {
				client.Close()
			}
			return nil, nil, fmt.Errorf("sqlite store %s: %w", cfg.Cache.L3Path, err)
		}
		opts = append(opts, cache.WithDurable(store))
	}

	return cache.NewManager(logger, opts...), client, nil
}

func buildEngine(cfg *config.Config, mgr *cache.Manager, core *metric.Core, bus *event.Bus, logger *slog.Logger) (*engine.Engine, error) {
	eng := engine.New(engine.Config{
		MinConfidence:    cfg.Engine.MinConfidence,
		MaxRetries:       cfg.Engine.MaxRetries,
		RetryBackoff:     cfg.Engine.RetryBackoff.Std(),
		RetryBackoffMax:  cfg.Engine.RetryBackoffMax.Std(),
		DisableFallbacks: cfg.Engine.DisableFallbacks,
	},
		engine.WithLogger(logger),
		engine.WithBus(bus),
		engine.WithCache(mgr),
		engine.WithCoreMetrics(core),
	)

	adapters := []adapter.ProtocolAdapter{
		adapter.NewToolCentric(nil),
		adapter.NewTaskCentric(nil),
		adapter.NewFunctionCalling(nil),
	}
	for _, name := range cfg.Engine.Frameworks {
		adapters = append(adapters, adapter.NewFramework(name, nil))
	}
	if len(cfg.Engine.Frameworks) == 0 {
		adapters = append(adapters, adapter.NewFramework("generic", nil))
	}

	for _, a := range adapters {
		if err := eng.RegisterAdapter(a); err != nil {
			return nil, err
		}
	}
	return eng, nil
}

func queueConfig(cfg config.QueueConfig) queue.Config {
	return queue.Config{
		MaxQueueSize: cfg.MaxQueueSize,
		BatchSize:    cfg.BatchSize,
		BatchTimeout: cfg.BatchTimeout.Std(),
		Concurrency:  cfg.Concurrency,
		MaxRetries:   cfg.MaxRetries,
		RetryBase:    cfg.RetryBase.Std(),
		RetryMax:     cfg.RetryMax.Std(),
	}
}

// buildHealthMonitor registers readiness checks for the NATS connection,
// the cache stack, and the queue backlog.
func buildHealthMonitor(cfg *config.Config, client *natsclient.Client, mgr *cache.Manager, q *queue.Queue, bus *event.Bus, logger *slog.Logger) *health.Monitor {
	monitor := health.NewMonitor(logger, health.WithBus(bus))

	if client != nil {
		monitor.Register("nats", func(context.Context) health.Status {
			if client.IsConnected() {
				return health.Healthy("", "connected")
			}
			return health.Unhealthy("", "disconnected")
		})
	}

	monitor.Register("cache", func(context.Context) health.Status {
		stats := mgr.Stats()
		if stats.L2.Errors > 0 || stats.L3.Errors > 0 {
			return health.Degraded("", fmt.Sprintf("tier errors l2=%d l3=%d", stats.L2.Errors, stats.L3.Errors))
		}
		return health.Healthy("", fmt.Sprintf("l1 entries %d", stats.L1Size))
	})

	backlogLimit := int64(float64(cfg.Queue.MaxQueueSize) * 0.8)
	monitor.Register("queue", func(context.Context) health.Status {
		m := q.Metrics()
		if backlogLimit > 0 && m.Pending+m.Active >= backlogLimit {
			return health.Degraded("", fmt.Sprintf("backlog %d of %d", m.Pending+m.Active, cfg.Queue.MaxQueueSize))
		}
		return health.Healthy("", fmt.Sprintf("throughput %d/s", m.ThroughputPerSec))
	})

	return monitor
}

// registerProcessors binds every ordered paradigm pair to the engine.
func registerProcessors(q *queue.Queue, eng *engine.Engine) {
	paradigms := []message.Paradigm{
		message.ParadigmToolCentric,
		message.ParadigmTaskCentric,
		message.ParadigmFunctionCalling,
		message.ParadigmFrameworkSpecific,
	}

	for _, src := range paradigms {
		for _, tgt := range paradigms {
			if src == tgt {
				continue
			}
			direction := message.Direction{Source: src, Target: tgt}
			q.RegisterProcessor(direction, func(pc *queue.ProcessContext) (*message.ProtocolMessage, error) {
				ctx, cancel := context.WithTimeout(context.Background(), translateTimeout)
				defer cancel()

				result, err := eng.Translate(ctx, pc.Message, pc.Direction.Target, pc.Message.SessionID)
				if err != nil {
					return nil, err
				}
				if !result.Success {
					return nil, result.Err
				}
				return result.Message, nil
			})
		}
	}
}
