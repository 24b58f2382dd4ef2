package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"quote-orchestrator/internal/config"
	"quote-orchestrator/internal/domain/ports/adapter"
	crmAdapters "quote-orchestrator/internal/infra/adapters/crm"
	predAdapters "quote-orchestrator/internal/infra/adapters/predictor"
	rendererAdapters "quote-orchestrator/internal/infra/adapters/renderer"
	"quote-orchestrator/internal/infra/db/memory"
	pg "quote-orchestrator/internal/infra/db/postgres"
	"quote-orchestrator/internal/infra/logging"
	"quote-orchestrator/internal/infra/metrics"
	"quote-orchestrator/internal/infra/ratelimit"
	red "quote-orchestrator/internal/infra/redis"
	"quote-orchestrator/internal/infra/rules"
	"quote-orchestrator/internal/infra/storage"
	"quote-orchestrator/internal/infra/web"
	"quote-orchestrator/internal/infra/worker"
	"quote-orchestrator/internal/usecase"

	"quote-orchestrator/internal/domain/ports/repository"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ---- CLI flags ----
	cfgPath := flag.String("config", "config.yaml", "path to YAML config file")
	devMode := flag.Bool("dev", false, "enable developer mode (in-memory backends, no CRM)")
	flag.Parse()

	cfg, err := config.LoadConfig(*cfgPath, *devMode)
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.Runtime.Dev {
		log.Printf("[DEV MODE] Enabled")
	}

	logger := logging.New(cfg.Log, cfg.Runtime.Dev)
	metrics.MustRegister()

	// ---- Job store ----
	var jobs repository.JobRepository
	var artifactReader storage.Reader
	var artifacts adapter.ArtifactStore
	if cfg.Runtime.Dev {
		jobs = memory.NewJobRepo()
	} else {
		pool, perr := pg.NewPgxPool(ctx, cfg.Database.URL, cfg.Database.MaxConns)
		if perr != nil {
			log.Fatalf("postgres: %v", perr)
		}
		defer pool.Close()
		jobs = pg.NewJobRepo(pool)
		if cfg.Storage.Backend == "postgres" {
			s := storage.NewPostgresStore(pool, cfg.Server.PublicBaseURL)
			artifacts, artifactReader = s, s
		}
	}
	if artifacts == nil {
		s, serr := storage.NewLocalStore(cfg.Storage.LocalDir, cfg.Server.PublicBaseURL)
		if serr != nil {
			log.Fatalf("artifact storage: %v", serr)
		}
		artifacts, artifactReader = s, s
	}

	// ---- Rate limiter ----
	quotas := make(map[string]ratelimit.Quota, len(cfg.RateLimits))
	for op, q := range cfg.RateLimits {
		quotas[op] = ratelimit.Quota{Capacity: q.Capacity, Window: q.Window}
	}
	var counters ratelimit.CounterStore
	if cfg.Runtime.Dev {
		counters = ratelimit.NewMemoryCounter()
	} else {
		redisClient, rerr := red.NewClient(ctx, &cfg.Redis)
		if rerr != nil {
			log.Fatalf("redis: %v", rerr)
		}
		defer redisClient.Close()
		counters = redisClient
	}
	limiter := ratelimit.NewLimiter(counters, quotas, logger)

	// ---- Pricing rules ----
	ruleProvider, err := rules.NewProvider(cfg.Rules.Path, cfg.Rules.ReloadInterval, logger)
	if err != nil {
		log.Fatalf("pricing rules: %v", err)
	}
	go ruleProvider.Watch(ctx)

	// ---- Predictor ----
	var predictor adapter.Predictor
	if cfg.Predictor.Mode == "remote" && !cfg.Runtime.Dev {
		predictor = predAdapters.NewHTTPClient(cfg.Predictor.BaseURL, cfg.Predictor.Timeout)
		log.Printf("predictor: remote base=%s", cfg.Predictor.BaseURL)
	} else {
		predictor = predAdapters.NewHeuristic()
		log.Printf("predictor: heuristic")
	}

	// ---- Renderer ----
	renderer, err := rendererAdapters.NewHTML()
	if err != nil {
		log.Fatalf("renderer: %v", err)
	}

	// ---- CRM ----
	var crm adapter.CRMClient
	if cfg.CRM.Provider == "hubspot" && !cfg.Runtime.Dev {
		crm, err = crmAdapters.NewHubSpotClient(cfg.CRM.BaseURL, cfg.CRM.Token, cfg.CRM.Pipeline, cfg.CRM.Stage)
		if err != nil {
			log.Fatalf("hubspot: %v", err)
		}
	} else {
		crm = crmAdapters.NewNoopClient(logger)
	}

	// ---- Worker pool ----
	pool := worker.NewPool(cfg.Worker.Workers, cfg.Worker.Queue, logger)
	pool.Start(ctx)

	// ---- Orchestrator ----
	orch := usecase.NewQuoteOrchestrator(
		jobs, ruleProvider, limiter,
		predictor, renderer, crm, artifacts,
		pool,
		usecase.StageTimeouts{
			Predict: cfg.Stages.PredictTimeout,
			Render:  cfg.Stages.RenderTimeout,
			Push:    cfg.Stages.PushTimeout,
		},
		logger,
	)

	// ---- HTTP ----
	srv := web.NewServer(orch, artifactReader, cfg.Server.APIKey, logger)
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      srv.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	go func() {
		log.Printf("http listening on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("http server error: %v", err)
		}
	}()

	// ---- Graceful shutdown ----
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	<-sigc
	log.Println("shutdown requested")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("http shutdown: %v", err)
	}
	pool.Stop()
	cancel()
}
