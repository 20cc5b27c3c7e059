package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/cristianadrielbraun/qrstudio/internal/app"
	"github.com/cristianadrielbraun/qrstudio/internal/config"
	"github.com/cristianadrielbraun/qrstudio/internal/handlers"
)

func main() {
	if err := config.LoadEnvFiles(".env.local", ".env"); err != nil {
		logrus.Fatalf("load .env: %v", err)
	}
	cfg := config.Load()
	log := app.NewLogger(cfg.LogLevel)

	svc, err := app.New(context.Background(), cfg, log)
	if err != nil {
		log.Fatalf("init: %v", err)
	}

	if cfg.LogLevel < logrus.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Logger())
	r.Use(gin.Recovery())

	h := handlers.New(svc.Orchestrator, svc.Store,
		handlers.WithDownloadName(cfg.DownloadName),
		handlers.WithMaxLogoBytes(cfg.MaxLogoBytes),
		handlers.WithLogger(log),
	)
	h.Register(r)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: r,
	}

	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		srv.Shutdown(ctx)
	}()

	log.WithFields(logrus.Fields{
		"addr":      srv.Addr,
		"optimizer": cfg.Optimizer,
		"storage":   cfg.Storage,
	}).Info("qrstudio listening")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Fatalf("server error: %v", err)
	}
}
