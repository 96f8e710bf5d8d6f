package redis

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"lyric-quiz-service/internal/domain"
	"lyric-quiz-service/internal/infra/memory"
)

// Hash fields for a cached song:
//
//	HSET song:{songID} name {displayName} cover {ref} audio {ref} lyrics {ref} script {text}
const (
	fieldName   = "name"
	fieldCover  = "cover"
	fieldAudio  = "audio"
	fieldLyrics = "lyrics"
	fieldScript = "script"
)

// SongRepository caches songs in Redis (hash per song) and falls back to a loader on cache miss.
type SongRepository struct {
	client *redis.Client
	loader memory.SongLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex
}

func NewSongRepository(client *redis.Client, loader memory.SongLoader, ttl time.Duration) *SongRepository {
	return &SongRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *SongRepository) GetSong(ctx context.Context, songID string) (domain.Song, error) {
	key := r.songKey(songID)

	fields, err := r.client.HGetAll(ctx, key).Result()
	if err == nil && len(fields) > 0 {
		return buildSongFromCache(songID, fields), nil
	}

	result, err, _ := r.sf.Do(songID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		fields, err := r.client.HGetAll(ctx, key).Result()
		if err == nil && len(fields) > 0 {
			return buildSongFromCache(songID, fields), nil
		}

		song, err := r.loader.LoadSong(ctx, songID)
		if err != nil {
			return domain.Song{}, err
		}

		pipe := r.client.Pipeline()
		pipe.HSet(ctx, key,
			fieldName, song.DisplayName,
			fieldCover, song.CoverImageRef,
			fieldAudio, song.AudioRef,
			fieldLyrics, song.LyricsScriptRef,
			fieldScript, song.Script,
		)
		if ttl := r.ttlWithJitter(); ttl > 0 {
			pipe.Expire(ctx, key, ttl)
		}
		_, _ = pipe.Exec(ctx)

		return song, nil
	})
	if err != nil {
		return domain.Song{}, err
	}
	return result.(domain.Song), nil
}

// ListSongs reads the catalog from the loader; only individual songs are cached.
func (r *SongRepository) ListSongs(ctx context.Context) ([]domain.Song, error) {
	return r.loader.ListSongs(ctx)
}

// Invalidate drops a cached song, e.g. after the catalog was re-imported.
func (r *SongRepository) Invalidate(ctx context.Context, songID string) error {
	return r.client.Del(ctx, r.songKey(songID)).Err()
}

func (r *SongRepository) songKey(songID string) string {
	return "song:" + songID
}

func buildSongFromCache(songID string, fields map[string]string) domain.Song {
	return domain.Song{
		ID:              songID,
		DisplayName:     fields[fieldName],
		CoverImageRef:   fields[fieldCover],
		AudioRef:        fields[fieldAudio],
		LyricsScriptRef: fields[fieldLyrics],
		Script:          fields[fieldScript],
	}
}

func (r *SongRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
