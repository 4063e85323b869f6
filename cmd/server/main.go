package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Venom120/Youtube-downloader/internal/api"
	"github.com/Venom120/Youtube-downloader/internal/config"
	"github.com/Venom120/Youtube-downloader/internal/history"
	"github.com/Venom120/Youtube-downloader/internal/hub"
	"github.com/Venom120/Youtube-downloader/internal/task"
	"github.com/Venom120/Youtube-downloader/internal/ytdlp"
)

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	cfg, err := config.Load("config.yml")
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	if err := os.MkdirAll(cfg.DownloadDir, 0o755); err != nil {
		log.Fatal().Err(err).Str("dir", cfg.DownloadDir).Msg("ensure download dir")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.HistoryDB), 0o755); err != nil {
		log.Fatal().Err(err).Str("path", cfg.HistoryDB).Msg("ensure history dir")
	}

	archive, err := history.Open(cfg.HistoryDB, cfg.HistoryLimit)
	if err != nil {
		log.Fatal().Err(err).Msg("open history archive")
	}
	defer archive.Close()

	client := ytdlp.New(ytdlp.Options{
		BinPath:     cfg.YTDLPPath,
		DownloadDir: cfg.DownloadDir,
		CookiesFile: cfg.CookiesFile,
	})
	events := hub.New[task.Event]()
	manager := task.NewManager(client, events, task.Options{
		MaxConcurrent: cfg.MaxConcurrentDownloads,
		KeepFinished:  cfg.HistoryLimit,
		CancelGrace:   cfg.CancelGrace(),
		History:       archive,
	})

	baseCtx, baseCancel := context.WithCancel(context.Background())
	manager.SetBaseContext(baseCtx)

	router := setupRouter()
	api.NewAPI(manager, client, archive, events, cfg.AppID).RegisterRoutes(router)

	const (
		readHeaderTimeout = 5 * time.Second
		shutdownTimeout   = 15 * time.Second
	)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		log.Info().Int("port", cfg.Port).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdownSignal()

	gracefulShutdown(srv, baseCancel, manager, shutdownTimeout)
}

func setupRouter() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(api.ZerologLogger())
	return r
}

func waitForShutdownSignal() {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Info().Msg("shutdown signal received")
}

func gracefulShutdown(srv *http.Server, cancelBase context.CancelFunc, manager *task.Manager, timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Warn().Err(err).Msg("http server shutdown warning")
	}

	cancelBase()
	if !manager.WaitAll(ctx) {
		log.Warn().Msg("download workers did not finish before timeout")
	}
	log.Info().Msg("server exited cleanly")
}
