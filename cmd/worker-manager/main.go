// cmd/worker-manager/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/camunda/zeebe/clients/go/v8/pkg/zbc"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"evaluation-workers/internal/common/config"
	"evaluation-workers/internal/common/database"
	"evaluation-workers/internal/common/logger"
	"evaluation-workers/internal/common/observability"
	"evaluation-workers/internal/engine/audit"
	"evaluation-workers/internal/engine/bias"
	"evaluation-workers/internal/engine/consensus"
	"evaluation-workers/internal/engine/scoring"

	// Evaluation Workers (3)
	ce "evaluation-workers/internal/workers/evaluation/complete-evaluation"
	cer "evaluation-workers/internal/workers/evaluation/create-evaluation-record"
	ved "evaluation-workers/internal/workers/evaluation/validate-evaluation-data"

	// Consensus Workers (3)
	crr "evaluation-workers/internal/workers/consensus/check-reconciliation-routing"
	cc "evaluation-workers/internal/workers/consensus/confirm-consensus"
	pc "evaluation-workers/internal/workers/consensus/propose-consensus"

	// Analytics Workers (2)
	ab "evaluation-workers/internal/workers/analytics/analyze-bias"
	bat "evaluation-workers/internal/workers/analytics/build-audit-trail"

	// Data Access Workers (2)
	qe "evaluation-workers/internal/workers/data-access/query-elasticsearch"
	qp "evaluation-workers/internal/workers/data-access/query-postgresql"

	// Infrastructure Workers (2)
	brr "evaluation-workers/internal/workers/infrastructure/build-report-response"
	vcr "evaluation-workers/internal/workers/infrastructure/validate-cohort-readiness"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2 // Exponential backoff
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	zapLog := logger.New("info", "console")

	zapLog.Info("Starting worker manager...")

	cfg, err := config.Load()
	if err != nil {
		zapLog.Fatal("config load failed", zap.Error(err))
	}

	// Replace the bootstrap logger with the configured one.
	zapLog = logger.New(cfg.Logging.Level, cfg.Logging.Format)
	log := logger.NewZapAdapter(zapLog)
	defer func() { _ = zapLog.Sync() }()

	obs := observability.New("worker-manager")
	defer obs.Shutdown()

	if cfg.Tracing.Enabled {
		tracing, err := observability.NewTracing(cfg.App.Name, cfg.Tracing.JaegerEndpoint, cfg.Tracing.SampleRatio)
		if err != nil {
			zapLog.Fatal("tracing init failed", zap.Error(err))
		}
		defer tracing.Shutdown()
		zapLog.Info("Tracing enabled", zap.String("endpoint", cfg.Tracing.JaegerEndpoint))
	}

	ctx := context.Background()

	// --- Init Zeebe Client with retry ---
	var zeebeClient zbc.Client
	err = retryWithBackoff(func() error {
		var err error
		zeebeClient, err = zbc.NewClient(&zbc.ClientConfig{
			GatewayAddress:         cfg.Camunda.BrokerAddress,
			UsePlaintextConnection: true,
		})
		return err
	}, 10, 2*time.Second, zapLog, "Zeebe client initialization")

	if err != nil {
		zapLog.Fatal("zeebe client failed after retries", zap.Error(err))
	}
	zapLog.Info("Zeebe client connected successfully")

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		// Test the connection with context
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")

	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected successfully")

	// --- Init Elasticsearch with retry ---
	var esClient *database.ElasticsearchClient
	err = retryWithBackoff(func() error {
		var err error
		esClient, err = database.NewElasticsearch(cfg.Database.Elasticsearch)
		if err != nil {
			return err
		}
		// Test the connection
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")

	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redis *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redis, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		// Test the connection with context
		return redis.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")

	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redis.Close()
	zapLog.Info("Redis connected successfully")

	// Engine thresholds come from one config block so every worker applies the
	// same policy values.
	scoringCfg := scoring.Config{
		AcceptThreshold:     cfg.Engine.Scoring.AcceptThreshold,
		BorderlineThreshold: cfg.Engine.Scoring.BorderlineThreshold,
		ScaleFactor:         cfg.Engine.Scoring.ScaleFactor,
		CompetencyCap:       cfg.Engine.Scoring.CompetencyCap,
	}
	consensusCfg := consensus.Config{
		HighVarianceThreshold: cfg.Engine.Consensus.HighVarianceThreshold,
		MinEvaluations:        cfg.Engine.Consensus.MinEvaluations,
	}
	biasCfg := bias.Config{
		MinSampleSize:         cfg.Engine.Bias.MinSampleSize,
		HighRiskDeviation:     cfg.Engine.Bias.HighRiskDeviation,
		MediumRiskDeviation:   cfg.Engine.Bias.MediumRiskDeviation,
		HighVarianceThreshold: cfg.Engine.Consensus.HighVarianceThreshold,
	}
	auditCfg := audit.Config{
		DefaultLimit:     cfg.Engine.Audit.DefaultLimit,
		MaxLimit:         cfg.Engine.Audit.MaxLimit,
		TopReviewers:     cfg.Engine.Audit.TopReviewers,
		RapidFireMinutes: cfg.Engine.Audit.RapidFireMinutes,
	}

	var jobWorkers []worker.JobWorker

	// --- START: Register ALL 12 Workers ---

	// --- 1. Evaluation Workers (3) ---
	if cfg.Workers[ved.TaskType].Enabled {
		handler := ved.NewHandler(
			&ved.Config{
				Timeout: time.Duration(cfg.Workers[ved.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, ved.TaskType, cfg.Workers[ved.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[cer.TaskType].Enabled {
		handler := cer.NewHandler(
			&cer.Config{
				Timeout: time.Duration(cfg.Workers[cer.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, cer.TaskType, cfg.Workers[cer.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[ce.TaskType].Enabled {
		handler := ce.NewHandler(
			&ce.Config{
				Timeout:            time.Duration(cfg.Workers[ce.TaskType].Timeout) * time.Millisecond,
				CompetencyCacheTTL: config.GetDuration(cfg.Engine.Scoring.CompetencyCacheTTL),
				Scoring:            scoringCfg,
			},
			pg.DB, redis.Client, log,
		)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, ce.TaskType, cfg.Workers[ce.TaskType], handler.Handle, zapLog))
	}

	// --- 2. Consensus Workers (3) ---
	if cfg.Workers[pc.TaskType].Enabled {
		handler := pc.NewHandler(
			&pc.Config{
				Timeout:   time.Duration(cfg.Workers[pc.TaskType].Timeout) * time.Millisecond,
				Consensus: consensusCfg,
				Scoring:   scoringCfg,
			},
			pg.DB, log,
		)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, pc.TaskType, cfg.Workers[pc.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[cc.TaskType].Enabled {
		handler := cc.NewHandler(
			&cc.Config{
				Timeout: time.Duration(cfg.Workers[cc.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, cc.TaskType, cfg.Workers[cc.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[crr.TaskType].Enabled {
		handler := crr.NewHandler(
			&crr.Config{
				Timeout:  time.Duration(cfg.Workers[crr.TaskType].Timeout) * time.Millisecond,
				CacheTTL: 30 * time.Minute,
			},
			pg.DB, redis.Client, log,
		)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, crr.TaskType, cfg.Workers[crr.TaskType], handler.Handle, zapLog))
	}

	// --- 3. Analytics Workers (2) ---
	if cfg.Workers[ab.TaskType].Enabled {
		handler := ab.NewHandler(
			&ab.Config{
				Timeout:        time.Duration(cfg.Workers[ab.TaskType].Timeout) * time.Millisecond,
				ReportCacheTTL: config.GetDuration(cfg.Engine.Bias.ReportCacheTTL),
				ReportsIndex:   cfg.Engine.Bias.ReportIndex,
				Bias:           biasCfg,
			},
			pg.DB, redis.Client, esClient.Client, log,
		)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, ab.TaskType, cfg.Workers[ab.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[bat.TaskType].Enabled {
		handler := bat.NewHandler(
			&bat.Config{
				Timeout:     time.Duration(cfg.Workers[bat.TaskType].Timeout) * time.Millisecond,
				TrailsIndex: cfg.Engine.Audit.SnapshotIndex,
				Audit:       auditCfg,
			},
			pg.DB, esClient.Client, log,
		)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, bat.TaskType, cfg.Workers[bat.TaskType], handler.Handle, zapLog))
	}

	// --- 4. Data Access Workers (2) ---
	if cfg.Workers[qp.TaskType].Enabled {
		handler := qp.NewHandler(
			&qp.Config{
				Timeout: time.Duration(cfg.Workers[qp.TaskType].Timeout) * time.Millisecond,
			},
			pg.DB, log,
		)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, qp.TaskType, cfg.Workers[qp.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[qe.TaskType].Enabled {
		handler := qe.NewHandler(
			&qe.Config{
				Timeout:      time.Duration(cfg.Workers[qe.TaskType].Timeout) * time.Millisecond,
				ReportsIndex: cfg.Engine.Bias.ReportIndex,
				TrailsIndex:  cfg.Engine.Audit.SnapshotIndex,
			},
			esClient.Client, log,
		)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, qe.TaskType, cfg.Workers[qe.TaskType], handler.Handle, zapLog))
	}

	// --- 5. Infrastructure Workers (2) ---
	if cfg.Workers[brr.TaskType].Enabled {
		handler := brr.NewHandler(
			&brr.Config{
				TemplateRegistry: cfg.Template.RegistryPath,
				CacheTTL:         config.GetDuration(cfg.Template.CacheTTL),
				AppVersion:       cfg.App.Version,
				Timeout:          time.Duration(cfg.Workers[brr.TaskType].Timeout) * time.Millisecond,
			},
			log,
		)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, brr.TaskType, cfg.Workers[brr.TaskType], handler.Handle, zapLog))
	}

	if cfg.Workers[vcr.TaskType].Enabled {
		handler := vcr.NewHandler(
			&vcr.Config{
				Timeout:       time.Duration(cfg.Workers[vcr.TaskType].Timeout) * time.Millisecond,
				CacheTTL:      5 * time.Minute,
				MinSampleSize: cfg.Engine.Bias.MinSampleSize,
			},
			pg.DB, redis.Client, log,
		)
		jobWorkers = append(jobWorkers, startWorker(zeebeClient, vcr.TaskType, cfg.Workers[vcr.TaskType], handler.Handle, zapLog))
	}

	zapLog.Info("All 12 workers registered successfully")

	// --- Health & Metrics Server ---
	go func() {
		http.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "healthy",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]string{
				"status": "ready",
				"time":   time.Now().Format(time.RFC3339),
			})
		})
		http.Handle("/metrics", promhttp.Handler())
		zapLog.Info("Health/Metrics server listening on :8080")
		if err := http.ListenAndServe(":8080", nil); err != nil {
			zapLog.Error("Health/Metrics server failed", zap.Error(err))
		}
	}()

	// --- Graceful Shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	zapLog.Info("Shutdown signal received, stopping workers...")
	for _, w := range jobWorkers {
		if w != nil {
			w.Close()
		}
	}

	if err := zeebeClient.Close(); err != nil {
		zapLog.Error("Error closing Zeebe client", zap.Error(err))
	}

	zapLog.Info("Worker manager stopped gracefully")
}

func startWorker(client zbc.Client, taskType string, wcfg config.WorkerConfig, handlerFunc func(worker.JobClient, entities.Job), log *zap.Logger) worker.JobWorker {
	if !wcfg.Enabled {
		log.Info("worker disabled", zap.String("taskType", taskType))
		return nil
	}

	w := client.NewJobWorker().
		JobType(taskType).
		Handler(handlerFunc).
		MaxJobsActive(wcfg.MaxJobsActive).
		Timeout(time.Duration(wcfg.Timeout) * time.Millisecond).
		Open()

	log.Info("worker started",
		zap.String("taskType", taskType),
		zap.Int("maxJobsActive", wcfg.MaxJobsActive),
		zap.Int("timeout_ms", wcfg.Timeout),
	)

	return w
}
