package cli

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"gauntlet-service/internal/app"
	"gauntlet-service/internal/config"
	"gauntlet-service/internal/domain"
	"gauntlet-service/internal/infra/memory"
	pginfra "gauntlet-service/internal/infra/postgres"
	redisinfra "gauntlet-service/internal/infra/redis"
	transport "gauntlet-service/internal/transport/http"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	return &cobra.Command{
		Use:   "start",
		Short: "Start the competition server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg); err != nil {
			return err
		}
	}

	finalPort := portFlag
	if finalPort == "" {
		finalPort = cfg.Server.Port
	}
	if finalPort == "" {
		finalPort = "8080"
	}

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
	}

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
	}

	var loader memory.CatalogLoader = memory.NewStaticCatalogLoader(sampleChallenges())
	if pool != nil {
		loader = pginfra.NewCatalogLoader(pool)
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var catalog app.ChallengeCatalog
	if redisClient != nil {
		catalog = redisinfra.NewCatalog(redisClient, loader, catalogTTL)
	} else {
		catalog = memory.NewCatalog(loader, catalogTTL)
	}

	var ledger app.ProgressLedger = memory.NewLedger()
	if pool != nil {
		ledger = pginfra.NewLedger(pool)
	}

	var events app.EventStateSource
	switch {
	case pool != nil:
		events = pginfra.NewEventState(pool)
	case redisClient != nil:
		events = redisinfra.NewEventState(redisClient)
	default:
		events = memory.NewEventState(domain.EventState{
			Status:          domain.EventLive,
			AllowNewEntries: true,
		})
	}

	service := app.NewProgressService(catalog, ledger, events)
	wsHandler := transport.NewWSHandler(service)

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", wsHandler.ServeWS)

	server := &http.Server{
		Addr:         ":" + finalPort,
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}

	go func() {
		log.Printf("starting gauntlet service on :%s", finalPort)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("failed to start server: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-stop:
		log.Println("shutting down server...")
	case <-ctx.Done():
		log.Println("context canceled, shutting down server...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

// sampleChallenges seeds demo mode when no Postgres is configured.
func sampleChallenges() []domain.Challenge {
	return []domain.Challenge{
		{
			ID:         1,
			Title:      "Warmup: Caesar",
			PromptMD:   "Decrypt `fdhvdu` with a classic shift.",
			HintMD:     "The shift is three.",
			OrderIndex: 1,
			BasePoints: 100,
			Answer:     domain.AnswerSpec{Value: "caesar"},
			Active:     true,
		},
		{
			ID:         2,
			Title:      "Hidden Flag",
			PromptMD:   "Find the flag in the page source.",
			HintMD:     "View source, search for `flag{`.",
			OrderIndex: 2,
			BasePoints: 150,
			Answer:     domain.AnswerSpec{Value: `flag\{\w+\}`, IsPattern: true},
			Active:     true,
		},
	}
}
