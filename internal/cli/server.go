package cli

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"lyric-quiz-service/internal/app"
	"lyric-quiz-service/internal/config"
	"lyric-quiz-service/internal/domain"
	"lyric-quiz-service/internal/infra/filesystem"
	"lyric-quiz-service/internal/infra/memory"
	pgstore "lyric-quiz-service/internal/infra/postgres"
	redisstore "lyric-quiz-service/internal/infra/redis"
	"lyric-quiz-service/internal/logger"
	transport "lyric-quiz-service/internal/transport/http"
)

// NewStartCmd builds the CLI subcommand to start the server.
func NewStartCmd(configPath, port *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the quiz server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer(cmd.Context(), *configPath, *port)
		},
	}
	cmd.Flags().StringVar(port, "port", "", "port to listen on (overrides config and PORT)")
	return cmd
}

func runServer(ctx context.Context, configPath, portFlag string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if cfg.Postgres.URL != "" {
		if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
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
		defer redisClient.Close()
	}
	redisTTL := config.TTLDuration(cfg.Redis.TTL, 10*time.Minute)

	var pool *pgxpool.Pool
	if cfg.Postgres.URL != "" {
		pool, err = pgxpool.Connect(ctx, cfg.Postgres.URL)
		if err != nil {
			return err
		}
		defer pool.Close()
	}

	var loader memory.SongLoader = memory.NewStaticSongLoader(sampleSongs())
	switch {
	case pool != nil:
		loader = pgstore.NewSongStore(pool)
		log.Info("song catalog from postgres")
	case cfg.Catalog.Path != "":
		loader = filesystem.NewCatalogLoader(cfg.Catalog.Path)
		log.Info("song catalog from file", zap.String("path", cfg.Catalog.Path))
	default:
		log.Info("song catalog from built-in sample")
	}

	catalogTTL := config.TTLDuration(cfg.Catalog.TTL, 10*time.Minute)
	var songRepo app.SongRepository
	if redisClient != nil {
		songRepo = redisstore.NewSongRepository(redisClient, loader, catalogTTL)
	} else {
		songRepo = memory.NewSongRepository(loader, catalogTTL)
	}

	var store app.SessionRepository
	if redisClient != nil {
		store = redisstore.NewSessionStore(redisClient, redisTTL)
	} else {
		store = memory.NewSessionStore()
	}
	service := app.NewQuizService(store, songRepo, log)

	idle := config.TTLDuration(cfg.Session.IdleTTL, 30*time.Minute)
	sweepSpec := cfg.Session.Sweep
	if sweepSpec == "" {
		sweepSpec = "@every 1m"
	}
	sweeper, err := app.NewSweeper(service, idle, sweepSpec, log)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:        ":" + finalPort,
		Handler:     transport.NewRouter(service, log, cfg.Server.StaticDir),
		ReadTimeout: 15 * time.Second,
		// no WriteTimeout: websocket connections stay open for a whole song
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("starting lyric quiz service", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		sweeper.Start()
		<-gctx.Done()
		log.Info("shutting down server...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		sweeper.Stop(shutdownCtx)
		err := server.Shutdown(shutdownCtx)
		// hijacked websocket connections are not tracked by Shutdown
		service.SweepIdle(time.Now().Add(time.Hour))
		return err
	})
	return g.Wait()
}

// sampleSongs provides a built-in song so the server runs without a catalog.
func sampleSongs() map[string]domain.Song {
	return map[string]domain.Song{
		"demo": {
			ID:          "demo",
			DisplayName: "Demo: Bohemian Rhapsody",
			AudioRef:    "/musicas/bohemian.mp3",
			Script: `[00:00.000]Is this the real ___?
options:life, love, world
answer:life

[00:04.200]Is this just ___?
options:fantasy, a dream, a game
answer:fantasy

[00:09.800]Caught in a ___
options:landslide, storm, trap
answer:landslide
`,
		},
	}
}
