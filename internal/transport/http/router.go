package http

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"lyric-quiz-service/internal/app"
	"lyric-quiz-service/internal/domain"
)

// NewRouter mounts the quiz endpoints. When staticDir is set it also serves the web
// client together with the audio and cover files the catalog refers to.
func NewRouter(service *app.QuizService, logger *zap.Logger, staticDir string) *http.ServeMux {
	if logger == nil {
		logger = zap.NewNop()
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", NewWSHandler(service, logger).ServeWS)
	mux.HandleFunc("/songs", songsHandler(service, logger))
	if staticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(staticDir)))
	}
	return mux
}

func songsHandler(service *app.QuizService, logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		songs, err := service.Songs(r.Context())
		if err != nil {
			logger.Error("list songs failed", zap.Error(err))
			http.Error(w, "catalog unavailable", http.StatusInternalServerError)
			return
		}
		if songs == nil {
			songs = []domain.Song{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(songs)
	}
}
