package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"time"

	"go.uber.org/zap"

	_ "github.com/bruno-souza/nlw-expert-2024-poll-api/docs"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/bus"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/config"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/poll"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/session"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/domain/vote"
	api "github.com/bruno-souza/nlw-expert-2024-poll-api/internal/http"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/metrics"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/platform/database"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/platform/token"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/repository/postgres"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/tally"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/internal/worker"
	"github.com/bruno-souza/nlw-expert-2024-poll-api/pkg/logger"
)

// @title           Poll API
// @version         1.0
// @description     Real-time poll voting with live tally updates
// @BasePath        /
func main() {
	cfg := config.Load()

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger init error: %v", err)
	}
	defer zl.Sync()

	metrics.Register()
	api.SetLogger(zl)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.NewPostgres(ctx, cfg.DB_DSN)
	if err != nil {
		zl.Fatal("db connect error", zap.Error(err))
	}
	defer db.Close()

	tallyStore, err := tally.NewRedisStore(ctx, cfg.RedisURL)
	if err != nil {
		zl.Fatal("redis connect error", zap.Error(err))
	}
	defer tallyStore.Close()

	var notifyBus bus.Bus
	switch cfg.BusBackend {
	case "kafka":
		kb := bus.NewKafkaBus(cfg.KafkaBrokers, cfg.KafkaTopic)
		defer kb.Close()
		relay := bus.NewRelay(cfg.KafkaBrokers, cfg.KafkaTopic, kb, zl)
		go relay.Run(ctx)
		notifyBus = kb
	default:
		notifyBus = bus.NewMemoryBus()
	}

	pollRepo := postgres.NewPollRepo(db)
	voteRepo := postgres.NewVoteRepo(db)

	pollSvc := poll.NewService(pollRepo, tallyStore)
	voteSvc := vote.NewService(voteRepo, pollRepo, tallyStore, notifyBus, session.NewIssuer(), zl)
	tokens := token.NewManager(cfg.SessionSecret, "")

	auditor := worker.NewAuditWorker(pollRepo, voteRepo, tallyStore, cfg.AuditInterval, zl)
	go auditor.Run(ctx)

	router := api.NewRouter(pollSvc, voteSvc, tokens, notifyBus, db, tallyStore)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		zl.Info("server listening", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zl.Fatal("listen error", zap.Error(err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt)

	<-stop
	zl.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zl.Fatal("server shutdown error", zap.Error(err))
	}

	zl.Info("server stopped")
}
