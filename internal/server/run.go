package server

import (
	"context"
	"log"
	"time"

	"github.com/mohammad-safakhou/agentea/config"
	"github.com/mohammad-safakhou/agentea/internal/agent"
	"github.com/mohammad-safakhou/agentea/internal/executor"
	"github.com/mohammad-safakhou/agentea/internal/llm"
	"github.com/mohammad-safakhou/agentea/internal/planner"
	"github.com/mohammad-safakhou/agentea/internal/queue/streams"
	"github.com/mohammad-safakhou/agentea/internal/runtime"
	"github.com/mohammad-safakhou/agentea/internal/store"
	"github.com/mohammad-safakhou/agentea/internal/worker"
)

// Version is reported as service.version on exported traces.
var Version = "dev"

// Run wires the service from cfg and serves until ctx is cancelled.
// Postgres and Redis are optional: when they cannot be reached the service
// starts without persistence or the event feed.
func Run(ctx context.Context, cfg *config.Config) error {
	flags := log.LstdFlags
	if cfg.General.Debug {
		flags |= log.Lmicroseconds | log.Lshortfile
		log.SetFlags(flags)
	}
	logger := log.New(log.Writer(), "[HTTP] ", flags)

	var metrics *runtime.Metrics
	var opts []agent.Option
	if cfg.Telemetry.Enabled {
		metrics = runtime.NewMetrics()
		opts = append(opts, agent.WithObserver(metrics))

		tr, err := runtime.SetupTracing(ctx, cfg.Telemetry.OTLPEndpoint, "agentea", Version)
		if err != nil {
			logger.Printf("tracing disabled: %v", err)
		} else {
			defer func() {
				sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := tr.Shutdown(sctx); err != nil {
					logger.Printf("%v", err)
				}
			}()
		}
	}

	var st *store.Store
	if cfg.Storage.Postgres.Enabled() {
		pctx, cancel := context.WithTimeout(ctx, timeoutOr(cfg.Storage.Postgres.Timeout, 5*time.Second))
		s, err := store.NewWithDSN(pctx, cfg.Storage.Postgres.DSN())
		cancel()
		if err != nil {
			logger.Printf("postgres unavailable, running without persistence: %v", err)
		} else {
			st = s
			defer st.Close()
		}
	}

	if cfg.Storage.Redis.Enabled() {
		obs, closeFn, err := taskFeed(ctx, cfg.Storage.Redis, flags)
		if err != nil {
			logger.Printf("redis unavailable, task events disabled: %v", err)
		} else {
			defer closeFn()
			opts = append(opts, agent.WithObserver(obs))
		}
	}

	lat := worker.Latency{}
	if cfg.Agents.SimulatedLatency {
		lat = worker.DefaultLatency
	}

	srv := New(Deps{
		Simple:    worker.NewRegistry(lat, opts...),
		Planning:  PlanningRegistry(cfg.LLM, metrics, st, opts...),
		Store:     st,
		Metrics:   metrics,
		JWTSecret: []byte(cfg.Server.JWTSecret),
		Logger:    logger,
		Debug:     cfg.General.Debug,
	})
	return srv.Serve(ctx, cfg.Server.Address, cfg.Server.ShutdownTimeout)
}

// PlanningRegistry builds the planner and executor agents against the
// configured generation backend. metrics and st may be nil.
func PlanningRegistry(cfg config.LLMConfig, metrics *runtime.Metrics, st *store.Store, opts ...agent.Option) *agent.Registry {
	clientOpts := []llm.ClientOption{llm.WithTimeout(cfg.Timeout)}
	if metrics != nil {
		clientOpts = append(clientOpts, llm.WithObserver(metrics))
	}
	plannerLLM := llm.NewClient(cfg.BaseURL, cfg.PlannerModel, clientOpts...)
	executorLLM := llm.NewClient(cfg.BaseURL, cfg.ExecutorModel, clientOpts...)

	exOpts := []executor.Option{executor.WithMaxTokens(cfg.MaxTokens)}
	if st != nil {
		exOpts = append(exOpts, executor.WithCheckpointManager(executor.NewStoreCheckpointManager(st)))
	}
	if metrics != nil {
		exOpts = append(exOpts, executor.WithMetrics(metrics.ExecutorMetrics()))
	}

	return agent.NewRegistry(
		planner.NewAgent(planner.New(plannerLLM, planner.WithMaxTokens(cfg.MaxTokens)), opts...),
		executor.NewAgent(executor.New(executorLLM, exOpts...), opts...),
	)
}

func taskFeed(ctx context.Context, cfg config.RedisConfig, flags int) (*streams.TaskObserver, func() error, error) {
	rctx, cancel := context.WithTimeout(ctx, timeoutOr(cfg.Timeout, 5*time.Second))
	defer cancel()
	rdb, err := streams.NewRedisClient(rctx, cfg.Addr(), cfg.Password, cfg.DB)
	if err != nil {
		return nil, nil, err
	}
	reg, err := streams.NewTaskSchemaRegistry()
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	logger := log.New(log.Writer(), "[STREAM] ", flags)
	return streams.NewTaskObserver(streams.NewPublisher(rdb, reg), cfg.Stream, cfg.MaxLen, logger), rdb.Close, nil
}

func timeoutOr(d, fallback time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return fallback
}
