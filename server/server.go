package server

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/Benso1tana/MusicMasher/config"
	"github.com/Benso1tana/MusicMasher/core/audio"
	"github.com/Benso1tana/MusicMasher/core/engine"
	"github.com/Benso1tana/MusicMasher/core/importer"
	"github.com/Benso1tana/MusicMasher/logger"
)

// Start initializes the session and runs the HTTP server until interrupted.
func Start() {
	cfg := config.Load()

	logger.InitLogger(logger.Config{
		Level:      logger.LogLevel(cfg.LogLevel),
		OutputPath: cfg.LogPath,
		MaxSize:    cfg.LogMaxSize,
		MaxBackups: cfg.LogMaxBackups,
		MaxAge:     cfg.LogMaxAge,
	})

	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	bridge := NewWebAudioBridge(hub)
	decoder := audio.NewDecoder(cfg.FFmpegPath, cfg.SampleRate)
	session := engine.NewSession(bridge, decoder, cfg.TickInterval, cfg.LookAhead)
	defer session.Close()

	// Every mutation and tick publishes a snapshot; relay them to browsers.
	session.Subscribe(func(snap engine.Snapshot) {
		hub.BroadcastMessage(MsgTypeSnapshot, snap)
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.WatchDir != "" {
		watcher := importer.NewWatcher(cfg.WatchDir, session, 500*time.Millisecond)
		go func() {
			if err := watcher.Run(ctx); err != nil && err != context.Canceled {
				logger.Error("watch folder stopped", logger.ErrorField(err))
			}
		}()
	}

	handler := NewAPIHandler(session, hub)

	srv := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      newRouter(handler, cfg),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("server starting", logger.String("addr", cfg.ListenAddr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", logger.ErrorField(err))
		}
	}()

	<-stop
	logger.Info("shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("forced shutdown", logger.ErrorField(err))
	}
	logger.Info("server stopped")
}

// newRouter wires the API routes. WriteTimeout above does not apply to the
// websocket route because the connection is hijacked at upgrade time.
func newRouter(h *APIHandler, cfg *config.Config) *mux.Router {
	router := mux.NewRouter()

	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", "*")
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
			w.Header().Set("Access-Control-Max-Age", "86400")

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusOK)
				return
			}
			next.ServeHTTP(w, r)
		})
	})

	router.HandleFunc("/api/tracks", h.UploadTrackHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks", h.GetTracksHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}", h.DeleteTrackHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/tracks/{id}/audio", h.TrackAudioHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/tracks/{id}/offset", h.SetOffsetHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{id}/gain", h.SetGainHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/tracks/{id}/mute", h.ToggleMuteHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/tracks/{id}/solo", h.ToggleSoloHandler).Methods(http.MethodPost)

	router.HandleFunc("/api/transport/play", h.PlayHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/transport/pause", h.PauseHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/transport/stop", h.StopHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/transport/seek", h.SeekHandler).Methods(http.MethodPost)

	router.HandleFunc("/api/timeline", h.GetTimelineHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/timeline", h.ClearHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/timeline/zoom", h.ZoomHandler).Methods(http.MethodPut)

	router.HandleFunc("/ws", h.WSHandler)

	// Frontend UI serving.
	uiFileServer := http.FileServer(http.Dir(cfg.WebAppDir))
	router.PathPrefix("/").Handler(uiFileServer)

	return router
}
