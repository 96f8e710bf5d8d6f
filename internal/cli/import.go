package cli

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"lyric-quiz-service/internal/config"
	"lyric-quiz-service/internal/domain"
	"lyric-quiz-service/internal/infra/filesystem"
	pgstore "lyric-quiz-service/internal/infra/postgres"
	redisstore "lyric-quiz-service/internal/infra/redis"
	"lyric-quiz-service/internal/logger"
	"lyric-quiz-service/internal/lyrics"
)

// NewImportCmd copies a file catalog into Postgres.
func NewImportCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "import <descriptor.json>",
		Short: "Import a song catalog descriptor and its lyric scripts into Postgres",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), *configPath, args[0])
		},
	}
}

func runImport(ctx context.Context, configPath, descriptor string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.Env)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	if err := runMigrationsWithConfig(ctx, cfg, log); err != nil {
		return err
	}

	songs, err := filesystem.NewCatalogLoader(descriptor).LoadAll(ctx)
	if err != nil {
		return err
	}
	valid := make([]domain.Song, 0, len(songs))
	for _, song := range songs {
		parsed := lyrics.Parse(song.Script)
		if len(parsed.Segments) == 0 {
			log.Warn("skipping song without playable segments", zap.String("song_id", song.ID))
			continue
		}
		if parsed.Dropped > 0 {
			log.Warn("song has incomplete lyric blocks", zap.String("song_id", song.ID), zap.Int("dropped", parsed.Dropped))
		}
		valid = append(valid, song)
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return fmt.Errorf("connect postgres: %w", err)
	}
	defer pool.Close()

	if err := pgstore.NewSongStore(pool).UpsertSongs(ctx, valid); err != nil {
		return err
	}

	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB})
		defer client.Close()
		cache := redisstore.NewSongRepository(client, nil, 0)
		for _, song := range valid {
			if err := cache.Invalidate(ctx, song.ID); err != nil {
				log.Warn("cache invalidation failed", zap.String("song_id", song.ID), zap.Error(err))
			}
		}
	}

	log.Info("catalog imported", zap.Int("songs", len(valid)), zap.Int("skipped", len(songs)-len(valid)))
	return nil
}
