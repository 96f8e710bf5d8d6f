// Package filesystem serves the song catalog from a JSON descriptor on disk.
package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"lyric-quiz-service/internal/domain"
)

// CatalogLoader reads a descriptor file listing songs. Lyric script refs are resolved
// relative to the descriptor's directory unless absolute.
type CatalogLoader struct {
	path string
}

func NewCatalogLoader(path string) *CatalogLoader {
	return &CatalogLoader{path: path}
}

// ReadDescriptor parses the descriptor without touching the scripts.
func ReadDescriptor(path string) ([]domain.Song, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}
	var songs []domain.Song
	if err := json.Unmarshal(data, &songs); err != nil {
		return nil, fmt.Errorf("parse catalog %s: %w", path, err)
	}
	for i, song := range songs {
		if song.ID == "" {
			return nil, fmt.Errorf("catalog %s: entry %d has no id", path, i)
		}
	}
	return songs, nil
}

// LoadAll returns every song with its script text.
func (l *CatalogLoader) LoadAll(ctx context.Context) ([]domain.Song, error) {
	songs, err := ReadDescriptor(l.path)
	if err != nil {
		return nil, err
	}
	for i := range songs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if songs[i].Script, err = l.readScript(songs[i]); err != nil {
			return nil, err
		}
	}
	return songs, nil
}

func (l *CatalogLoader) LoadSong(ctx context.Context, songID string) (domain.Song, error) {
	songs, err := ReadDescriptor(l.path)
	if err != nil {
		return domain.Song{}, err
	}
	for _, song := range songs {
		if song.ID != songID {
			continue
		}
		if err := ctx.Err(); err != nil {
			return domain.Song{}, err
		}
		if song.Script, err = l.readScript(song); err != nil {
			return domain.Song{}, err
		}
		return song, nil
	}
	return domain.Song{}, domain.ErrSongNotFound
}

func (l *CatalogLoader) ListSongs(_ context.Context) ([]domain.Song, error) {
	songs, err := ReadDescriptor(l.path)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(songs, func(i, j int) bool { return songs[i].DisplayName < songs[j].DisplayName })
	return songs, nil
}

func (l *CatalogLoader) readScript(song domain.Song) (string, error) {
	if song.LyricsScriptRef == "" {
		return "", fmt.Errorf("song %s: %w", song.ID, domain.ErrNoScript)
	}
	ref := song.LyricsScriptRef
	if !filepath.IsAbs(ref) {
		ref = filepath.Join(filepath.Dir(l.path), ref)
	}
	data, err := os.ReadFile(ref)
	if err != nil {
		return "", fmt.Errorf("read script for %s: %w", song.ID, err)
	}
	return string(data), nil
}
