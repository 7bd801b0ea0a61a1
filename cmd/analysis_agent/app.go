package main

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/jonathan/applicant-analyzer/internal/analysis"
	"github.com/jonathan/applicant-analyzer/internal/config"
	"github.com/jonathan/applicant-analyzer/internal/db"
	"github.com/jonathan/applicant-analyzer/internal/llm"
	"github.com/jonathan/applicant-analyzer/internal/logger"
	"github.com/jonathan/applicant-analyzer/internal/runstate"
	"github.com/jonathan/applicant-analyzer/internal/worker"
)

// loadConfig builds the effective configuration: environment first, then the
// optional config file for unset values.
func loadConfig(configPath string) (*config.Config, error) {
	cfg := config.FromEnv()
	if configPath != "" {
		fileCfg, err := config.LoadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to load config: %w", err)
		}
		merged := cfg.MergeWithDefaults(*fileCfg)
		cfg = &merged
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// buildService wires the analysis service and its collaborators. The returned
// cleanup function closes every connection and must run on exit.
func buildService(ctx context.Context, cfg *config.Config, log *zap.Logger) (*analysis.Service, func(), error) {
	database, err := db.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("failed to connect to coordination store: %w", err)
	}

	llmCfg := llm.DefaultConfig()
	llmCfg.CallTimeout = cfg.CallTimeout()
	client, err := llm.NewGeminiClient(ctx, llmCfg, cfg.APIKey)
	if err != nil {
		_ = redisClient.Close()
		database.Close()
		return nil, nil, fmt.Errorf("failed to create model client: %w", err)
	}

	pipeline := worker.NewPipeline(client, database, llm.DefaultRetryConfig(), log)
	dispatcher := worker.NewDispatcher(pipeline, log)
	if cfg.WorkerPoolSize > 0 {
		dispatcher = dispatcher.WithSize(cfg.WorkerPoolSize)
	}

	service := analysis.NewService(analysis.Options{
		Jobs:       database,
		Applicants: database,
		Dispatcher: dispatcher,
		Writer:     db.NewBulkWriter(database, log),
		Results:    database,
		State:      runstate.New(redisClient),
		LockTTL:    cfg.LockTTL(),
		Logger:     log,
	})

	cleanup := func() {
		_ = client.Close()
		_ = redisClient.Close()
		database.Close()
	}
	return service, cleanup, nil
}

// newLogger builds the process logger; debug level when verbose.
func newLogger(verbose bool) (*zap.Logger, error) {
	log, err := logger.New(true, verbose)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}
	return log, nil
}
