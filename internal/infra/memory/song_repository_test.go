package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"lyric-quiz-service/internal/domain"
)

func TestSongRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		SongLoader: NewStaticSongLoader(map[string]domain.Song{
			"bohemian": sampleSong(),
		}),
	}
	repo := NewSongRepository(loader, time.Minute)

	if _, err := repo.GetSong(context.Background(), "bohemian"); err != nil {
		t.Fatalf("get song: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	song, err := repo.GetSong(context.Background(), "bohemian")
	if err != nil {
		t.Fatalf("get song 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
	if song.Script == "" {
		t.Fatalf("expected script cached with the song")
	}
}

func TestSongRepositoryExpires(t *testing.T) {
	loader := &countingLoader{
		SongLoader: NewStaticSongLoader(map[string]domain.Song{"bohemian": sampleSong()}),
	}
	repo := NewSongRepository(loader, time.Minute)
	now := time.Now()
	repo.clock = func() time.Time { return now }

	_, _ = repo.GetSong(context.Background(), "bohemian")
	now = now.Add(2 * time.Minute)
	_, _ = repo.GetSong(context.Background(), "bohemian")
	if loader.calls != 2 {
		t.Fatalf("expected reload after ttl, loader calls %d", loader.calls)
	}
}

func TestSongRepositoryUnknownSong(t *testing.T) {
	repo := NewSongRepository(NewStaticSongLoader(nil), time.Minute)
	if _, err := repo.GetSong(context.Background(), "missing"); !errors.Is(err, domain.ErrSongNotFound) {
		t.Fatalf("expected song not found, got %v", err)
	}
}

func TestStaticSongLoaderListsByName(t *testing.T) {
	loader := NewStaticSongLoader(map[string]domain.Song{
		"b": {ID: "b", DisplayName: "Zebra"},
		"a": {ID: "a", DisplayName: "Anthem"},
	})
	songs, err := loader.ListSongs(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(songs) != 2 || songs[0].ID != "a" {
		t.Fatalf("expected songs sorted by name, got %+v", songs)
	}
}

type countingLoader struct {
	SongLoader
	calls int
}

func (l *countingLoader) LoadSong(ctx context.Context, songID string) (domain.Song, error) {
	l.calls++
	return l.SongLoader.LoadSong(ctx, songID)
}

func sampleSong() domain.Song {
	return domain.Song{
		ID:          "bohemian",
		DisplayName: "Bohemian Rhapsody",
		AudioRef:    "/musicas/bohemian.mp3",
		Script:      "[00:00.000]Is this the real\noptions:life, love\nanswer:life\n",
	}
}
