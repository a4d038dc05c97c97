// Package main is the entry point for the Animekun discovery backend.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/edumarques81/animekun-backend/internal/config"
	"github.com/edumarques81/animekun-backend/internal/domain/calendar"
	"github.com/edumarques81/animekun-backend/internal/domain/favorites"
	"github.com/edumarques81/animekun-backend/internal/domain/section"
	"github.com/edumarques81/animekun-backend/internal/domain/session"
	"github.com/edumarques81/animekun-backend/internal/infra/anilist"
	"github.com/edumarques81/animekun-backend/internal/infra/store"
	"github.com/edumarques81/animekun-backend/internal/transport/httpapi"
	"github.com/edumarques81/animekun-backend/internal/transport/socketio"
	"github.com/edumarques81/animekun-backend/internal/version"
)

func main() {
	// Command line flags
	configPath := flag.String("config", "", "Path to YAML config file (optional)")
	port := flag.Int("port", 0, "HTTP server port (overrides config)")
	staticDir := flag.String("static", "", "Directory to serve static files from (overrides config)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}
	if *port != 0 {
		cfg.Server.Port = *port
	}
	if *staticDir != "" {
		cfg.Server.StaticDir = *staticDir
	}

	logFile, err := setupLogging(cfg.Logging, *debug, os.Stderr)
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid logging configuration")
	}
	defer logFile.Close()

	// Print startup banner
	versionInfo := version.GetInfo()
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().Msgf("  %s", versionInfo.String())
	log.Info().Msg("  Anime Discovery Backend")
	log.Info().Msg("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
	log.Info().
		Int("port", cfg.Server.Port).
		Str("anilist", cfg.AniList.URL).
		Int("requests_per_minute", cfg.AniList.RequestsPerMinute).
		Str("favorites_db", cfg.Storage.FavoritesPath).
		Str("cache_db", cfg.Storage.CachePath).
		Msg("Configuration")

	loc, err := cfg.Location()
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid calendar timezone")
	}

	// Storage
	favKV, cacheKV, closeStores := openStores(cfg.Storage)
	defer closeStores()

	// AniList client
	client := anilist.NewClient(
		anilist.WithBaseURL(cfg.AniList.URL),
		anilist.WithHTTPClient(&http.Client{Timeout: cfg.AniList.Timeout}),
		anilist.WithCache(cacheKV),
		anilist.WithRequestsPerMinute(cfg.AniList.RequestsPerMinute),
		anilist.WithCircuitBreaker(cfg.AniList.BreakerFailures, cfg.AniList.BreakerTimeout),
	)

	// Create services
	favs := favorites.New(favKV)
	favs.Load()

	sessions := session.NewRegistry(client, favs, section.Config{
		ItemsPerPage:    cfg.Sections.ItemsPerPage,
		ItemsPerSection: cfg.Sections.ItemsPerSection,
	},
		session.WithIdleTimeout(cfg.Sections.SessionIdleTimeout),
		session.WithMaxSessions(cfg.Sections.MaxSessions),
	)
	defer sessions.Stop()
	cal := calendar.NewService(client, calendar.Config{
		Location: loc,
		PerPage:  cfg.Calendar.PerPage,
		MaxPages: cfg.Calendar.MaxPages,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	favs.Subscribe(func([]int) {
		go sessions.FavoritesChanged(ctx)
	})

	// Create Socket.io server
	socketServer, err := socketio.NewServer(sessions, favs, cal, socketio.Options{
		MaxExternalClients: cfg.Server.MaxExternalClients,
		SearchDebounce:     cfg.Sections.SearchDebounce,
		CORSOrigins:        cfg.Server.CORSOrigins,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to create Socket.io server")
	}
	defer socketServer.Close()

	cacheStats, _ := cacheKV.(store.StatsReporter)
	router := httpapi.NewRouter(httpapi.Deps{
		Sessions:       sessions,
		Favorites:      favs,
		Calendar:       cal,
		SocketIO:       socketServer,
		SocketClients:  socketServer.ClientCount,
		Cache:          cacheStats,
		StaticDir:      cfg.Server.StaticDir,
		CORSOrigins:    cfg.Server.CORSOrigins,
		RateLimitRPS:   cfg.Server.RateLimitRPS,
		RateLimitBurst: cfg.Server.RateLimitBurst,
	})
	defer router.Close()

	// Start HTTP server
	addr := ":" + strconv.Itoa(cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		log.Info().Msg("Shutting down...")
		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Server shutdown error")
		}
	}()

	log.Info().Str("addr", addr).Msg("HTTP server listening")
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		log.Fatal().Err(err).Msg("HTTP server error")
	}

	log.Info().Msg("Server stopped")
}
