package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"syscall"

	"frauddetect/internal/config"
	"frauddetect/internal/dashboard"
	"frauddetect/internal/handler/middleware"
	"frauddetect/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.LoadDashboard()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := utils.MustLogger(cfg.LogLevel, cfg.LogFile)
	defer func() { _ = logger.Sync() }()

	gin.SetMode(gin.ReleaseMode)

	// Validated by config.
	apiURL, _ := url.Parse(cfg.APIURL)

	srv, err := dashboard.NewServer(&dashboard.Config{
		API: dashboard.NewClient(&dashboard.ClientConfig{
			BaseURL:  apiURL,
			APIKey:   cfg.APIKey,
			Timeout:  cfg.RequestTimeout,
			CacheTTL: cfg.CacheTTL,
		}),
		Logger: logger,
	})
	if err != nil {
		logger.Fatal("creating dashboard", zap.Error(err))
	}

	router := gin.New()
	router.Use(middleware.RequestID(), middleware.Logger(logger), gin.Recovery())
	srv.Register(router)

	httpSrv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("dashboard started", zap.String("port", cfg.Port), zap.String("api", cfg.APIURL))
		serr := httpSrv.ListenAndServe()
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			logger.Fatal("serving dashboard", zap.Error(serr))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("dashboard shutting down")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err = httpSrv.Shutdown(ctx); err != nil {
		logger.Error("dashboard forced to shutdown", zap.Error(err))
	}

	logger.Info("dashboard stopped")
}
