package memory

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"lyric-quiz-service/internal/domain"
)

// SongLoader fetches songs and their lyric scripts from a backing store (file catalog, Postgres).
type SongLoader interface {
	LoadSong(ctx context.Context, songID string) (domain.Song, error)
	ListSongs(ctx context.Context) ([]domain.Song, error)
}

// SongRepository caches songs with TTL to avoid re-reading scripts for every session.
type SongRepository struct {
	loader SongLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand
	rndMu  sync.Mutex

	mu    sync.RWMutex
	cache map[string]cachedSong
}

type cachedSong struct {
	song      domain.Song
	expiresAt time.Time
}

func NewSongRepository(loader SongLoader, ttl time.Duration) *SongRepository {
	return &SongRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedSong),
	}
}

func (r *SongRepository) GetSong(ctx context.Context, songID string) (domain.Song, error) {
	if song, ok := r.cached(songID); ok {
		return song, nil
	}

	result, err, _ := r.sf.Do(songID, func() (interface{}, error) {
		if song, ok := r.cached(songID); ok {
			return song, nil
		}

		song, err := r.loader.LoadSong(ctx, songID)
		if err != nil {
			return domain.Song{}, err
		}

		r.mu.Lock()
		r.cache[songID] = cachedSong{
			song:      song,
			expiresAt: r.clock().Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return song, nil
	})
	if err != nil {
		return domain.Song{}, err
	}
	return result.(domain.Song), nil
}

// ListSongs always asks the loader; listings are cheap and must reflect catalog edits.
func (r *SongRepository) ListSongs(ctx context.Context) ([]domain.Song, error) {
	return r.loader.ListSongs(ctx)
}

func (r *SongRepository) cached(songID string) (domain.Song, bool) {
	now := r.clock()
	r.mu.RLock()
	defer r.mu.RUnlock()
	if entry, ok := r.cache[songID]; ok && entry.expiresAt.After(now) {
		return entry.song, true
	}
	return domain.Song{}, false
}

func (r *SongRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	r.rndMu.Lock()
	defer r.rndMu.Unlock()
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticSongLoader is a simple loader backed by an in-memory map (useful for tests/demos).
type StaticSongLoader struct {
	songs map[string]domain.Song
}

func NewStaticSongLoader(songs map[string]domain.Song) *StaticSongLoader {
	return &StaticSongLoader{songs: songs}
}

func (l *StaticSongLoader) LoadSong(_ context.Context, songID string) (domain.Song, error) {
	if song, ok := l.songs[songID]; ok {
		return song, nil
	}
	return domain.Song{}, domain.ErrSongNotFound
}

func (l *StaticSongLoader) ListSongs(_ context.Context) ([]domain.Song, error) {
	songs := make([]domain.Song, 0, len(l.songs))
	for _, song := range l.songs {
		songs = append(songs, song)
	}
	sort.Slice(songs, func(i, j int) bool { return songs[i].DisplayName < songs[j].DisplayName })
	return songs, nil
}
