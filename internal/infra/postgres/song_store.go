package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"lyric-quiz-service/internal/domain"
)

// SongStore reads and writes the song catalog in Postgres.
type SongStore struct {
	pool *pgxpool.Pool
}

func NewSongStore(pool *pgxpool.Pool) *SongStore {
	return &SongStore{pool: pool}
}

func (s *SongStore) LoadSong(ctx context.Context, songID string) (domain.Song, error) {
	var song domain.Song
	err := s.pool.QueryRow(ctx,
		`SELECT id, display_name, cover_ref, audio_ref, lyrics_ref, script FROM songs WHERE id=$1`,
		songID,
	).Scan(&song.ID, &song.DisplayName, &song.CoverImageRef, &song.AudioRef, &song.LyricsScriptRef, &song.Script)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Song{}, domain.ErrSongNotFound
	}
	if err != nil {
		return domain.Song{}, fmt.Errorf("load song: %w", err)
	}
	return song, nil
}

// ListSongs returns catalog metadata without scripts.
func (s *SongStore) ListSongs(ctx context.Context) ([]domain.Song, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, display_name, cover_ref, audio_ref, lyrics_ref FROM songs ORDER BY display_name, id`)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	defer rows.Close()

	var songs []domain.Song
	for rows.Next() {
		var song domain.Song
		if err := rows.Scan(&song.ID, &song.DisplayName, &song.CoverImageRef, &song.AudioRef, &song.LyricsScriptRef); err != nil {
			return nil, fmt.Errorf("scan song: %w", err)
		}
		songs = append(songs, song)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	return songs, nil
}

// UpsertSongs writes songs in one transaction, replacing rows with the same id.
func (s *SongStore) UpsertSongs(ctx context.Context, songs []domain.Song) error {
	return s.pool.BeginFunc(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, song := range songs {
			batch.Queue(`
INSERT INTO songs (id, display_name, cover_ref, audio_ref, lyrics_ref, script, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, now())
ON CONFLICT (id) DO UPDATE SET
    display_name = EXCLUDED.display_name,
    cover_ref    = EXCLUDED.cover_ref,
    audio_ref    = EXCLUDED.audio_ref,
    lyrics_ref   = EXCLUDED.lyrics_ref,
    script       = EXCLUDED.script,
    updated_at   = now()`,
				song.ID, song.DisplayName, song.CoverImageRef, song.AudioRef, song.LyricsScriptRef, song.Script)
		}
		results := tx.SendBatch(ctx, batch)
		for _, song := range songs {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return fmt.Errorf("upsert song %s: %w", song.ID, err)
			}
		}
		return results.Close()
	})
}
