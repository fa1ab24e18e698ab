// cmd/assistant/main.go
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"event-assistant/internal/agents/governance"
	"event-assistant/internal/agents/intent"
	"event-assistant/internal/agents/memory"
	"event-assistant/internal/agents/moderation"
	"event-assistant/internal/agents/orchestrator"
	"event-assistant/internal/agents/ranking"
	"event-assistant/internal/agents/retrieval"
	"event-assistant/internal/agents/roles"
	"event-assistant/internal/common/config"
	"event-assistant/internal/common/database"
	"event-assistant/internal/common/genai"
	"event-assistant/internal/common/logger"
	"event-assistant/internal/common/notify"
	"event-assistant/internal/common/observability"
	"event-assistant/internal/common/vectorindex"
	"event-assistant/internal/models"
	"event-assistant/internal/store"
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
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

// sweepPendingEvents periodically re-moderates events still awaiting
// review and writes the updated flags back. Events that come back safe are
// pushed into the semantic index when one is configured.
func sweepPendingEvents(ctx context.Context, events store.EventStore, scorer *moderation.Scorer, index vectorindex.Index, log logger.Logger) {
	ticker := time.NewTicker(time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pending, err := events.FindByStatus(ctx, []string{models.EventStatusPending}, 50)
			if err != nil {
				log.Warn("pending sweep fetch failed", map[string]interface{}{"error": err.Error()})
				continue
			}
			for _, ev := range pending {
				verdict := scorer.ScoreStoredEvent(ctx, ev)
				if verdict.Status == models.ModerationSafe && index != nil {
					if err := index.UpsertEvent(ctx, ev); err != nil {
						log.Debug("semantic index upsert failed", map[string]interface{}{
							"eventId": ev.ID,
							"error":   err.Error(),
						})
					}
				}
			}
		}
	}
}

// sendDailyDigest mails the governance summary to the configured admins.
func sendDailyDigest(ctx context.Context, reporter *governance.Reporter) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			reporter.SendDigest(ctx)
		}
	}
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("Starting event assistant...",
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	obs := observability.New(cfg.App.Name)
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
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
		return esClient.Ping()
	}, 15, 2*time.Second, zapLog, "Elasticsearch connection")
	if err != nil {
		zapLog.Fatal("elasticsearch failed after retries", zap.Error(err))
	}
	zapLog.Info("Elasticsearch connected successfully")

	// --- Init Redis with retry ---
	var redisClient *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		redisClient, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return redisClient.Ping(ctx)
	}, 10, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Fatal("redis failed after retries", zap.Error(err))
	}
	defer redisClient.Close()
	zapLog.Info("Redis connected successfully")

	// --- External collaborators ---
	prose, embedder, err := genai.New(cfg.GenAI, cfg.VectorIndex.EmbeddingModel, log)
	if err != nil {
		zapLog.Fatal("genai client init failed", zap.Error(err))
	}

	var index vectorindex.Index
	if cfg.VectorIndex.Enabled {
		pineconeIdx, err := vectorindex.NewPineconeIndex(ctx, cfg.VectorIndex, embedder, log)
		if err != nil {
			// The index is advisory; run without it rather than fail startup.
			zapLog.Warn("vector index unavailable, continuing without it", zap.Error(err))
		} else {
			index = pineconeIdx
		}
	}

	var notifier notify.Notifier = notify.NoOpNotifier{}
	if cfg.Notifications.Enabled {
		awsNotifier, err := notify.NewAWSNotifier(ctx, cfg.Notifications, log)
		if err != nil {
			zapLog.Warn("notifier unavailable, continuing without it", zap.Error(err))
		} else {
			notifier = awsNotifier
		}
	}

	// --- Pipeline wiring ---
	proseTimeout := time.Duration(cfg.GenAI.Timeout) * time.Millisecond

	pgStore := store.NewPostgresStore(pg.DB, log)
	searcher := store.NewElasticEventSearcher(esClient.Client, cfg.Database.Elasticsearch.Index, log)
	sessions := memory.NewRedisStore(redisClient.Client,
		time.Duration(cfg.Pipeline.Memory.SessionTTLMinutes)*time.Minute)

	scorer := moderation.NewScorer(cfg.Pipeline.Moderation, proseTimeout, prose, nil, pgStore.Events(), notifier, log)
	reporter := governance.NewReporter(cfg.Pipeline.Governance, pgStore.Events(), pgStore, notifier, log)

	orch := orchestrator.New(
		intent.NewClassifier(cfg.Pipeline.Intent, proseTimeout, prose, log),
		roles.NewResolver(pgStore, log),
		memory.NewManager(cfg.Pipeline.Memory, pgStore, sessions, log),
		retrieval.NewService(cfg.Pipeline.Retrieval, searcher, pgStore.Events(), index, log),
		scorer,
		ranking.NewEngine(cfg.Pipeline.Ranking, proseTimeout, prose, log),
		reporter,
		prose,
		proseTimeout,
		obs,
		log,
	)

	// --- Background governance ---
	bgCtx, bgCancel := context.WithCancel(ctx)
	defer bgCancel()

	go sweepPendingEvents(bgCtx, pgStore.Events(), scorer, index, log)
	if cfg.Notifications.Enabled {
		go sendDailyDigest(bgCtx, reporter)
	}

	// --- HTTP server ---
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	})
	mux.HandleFunc("/v1/chat", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req orchestrator.Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		resp := orch.Handle(r.Context(), req)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(resp)
	})

	server := &http.Server{
		Addr:         cfg.App.ListenAddr,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		zapLog.Info("HTTP server listening", zap.String("addr", cfg.App.ListenAddr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("http server failed", zap.Error(err))
		}
	}()

	// --- Graceful shutdown ---
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	zapLog.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Warn("http shutdown incomplete", zap.Error(err))
	}
	zapLog.Info("Shutdown complete")
}
