// Command api serves fraud predictions, dataset statistics and IP country
// lookups over HTTP.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"frauddetect/internal/config"
	"frauddetect/internal/data"
	"frauddetect/internal/geo"
	"frauddetect/internal/handler"
	"frauddetect/internal/handler/country"
	"frauddetect/internal/handler/health"
	"frauddetect/internal/handler/predict"
	"frauddetect/internal/handler/stats"
	"frauddetect/internal/metrics"
	"frauddetect/internal/training"
	"frauddetect/pkg/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.LoadAPI()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}

	logger := utils.MustLogger(cfg.LogLevel, cfg.LogFile)
	defer func() { _ = logger.Sync() }()

	if cfg.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err = run(ctx, cfg, logger); err != nil {
		logger.Error("api failed", zap.Error(err))
		_ = logger.Sync()
		os.Exit(1)
	}
}

// run serves the API until ctx is done.
func run(ctx context.Context, cfg *config.API, logger *zap.Logger) (err error) {
	artifact, err := training.LoadArtifact(cfg.ModelPath)
	if err != nil {
		return err
	}

	logger.Info(
		"model loaded",
		zap.String("path", cfg.ModelPath),
		zap.String("model", artifact.Model.Name()),
		zap.Float64("threshold", artifact.Threshold),
		zap.Time("trained_at", artifact.TrainedAt),
	)

	txs, err := data.ReadTransactionsFile(cfg.DataPath)
	if err != nil {
		return err
	}

	logger.Info("dataset loaded", zap.String("path", cfg.DataPath), zap.Int("transactions", len(txs)))

	collector := metrics.NewCollector()

	g, ctx := errgroup.WithContext(ctx)

	lookup, ready, closer, err := newLookup(ctx, g, cfg, logger, collector)
	if err != nil {
		return err
	}

	if closer != nil {
		defer func() {
			if cerr := closer.Close(); cerr != nil {
				logger.Warn("closing country lookup", zap.Error(cerr))
			}
		}()
	}

	mapper := geo.NewMapper(&geo.MapperConfig{
		Lookup:  lookup,
		Logger:  logger,
		Metrics: collector,
		Workers: cfg.GeoWorkers,
	})

	router := handler.NewRouter(&handler.RouterConfig{
		Logger:  logger,
		Metrics: collector,
		Health:  health.NewHandler(ready),
		Predict: predict.NewHandler(&predict.Config{
			Artifact: artifact,
			Lookup:   lookup,
			Logger:   logger,
			Metrics:  collector,
		}),
		Stats:   stats.NewHandler(txs),
		Country: country.NewHandler(mapper, lookup, logger),
		APIKey:  cfg.APIKey,
	})

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	g.Go(func() (serr error) {
		logger.Info("service started", zap.String("port", cfg.Port))
		serr = srv.ListenAndServe()
		if errors.Is(serr, http.ErrServerClosed) {
			return nil
		}

		return serr
	})

	g.Go(func() (serr error) {
		<-ctx.Done()
		logger.Info("service shutting down")

		sctx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		return srv.Shutdown(sctx)
	})

	err = g.Wait()
	if err != nil {
		return err
	}

	logger.Info("service stopped")

	return nil
}

// newLookup returns the country lookup configured by cfg, its readiness check
// and the closer of its resources, if any.  A range table watcher, if any,
// runs in g.
func newLookup(
	ctx context.Context,
	g *errgroup.Group,
	cfg *config.API,
	logger *zap.Logger,
	collector *metrics.Collector,
) (l geo.CountryLookup, ready func() error, closer io.Closer, err error) {
	if cfg.MMDBPath != "" {
		r, rerr := geo.NewMmdbReader(cfg.MMDBPath)
		if rerr != nil {
			return nil, nil, nil, rerr
		}

		logger.Info("mmdb loaded", zap.String("path", cfg.MMDBPath))

		if cfg.GeoCacheSize == 0 {
			return r, nil, r, nil
		}

		return geo.NewCachedLookup(r, cfg.GeoCacheSize), nil, r, nil
	}

	idx, err := geo.BuildIndexFile(cfg.RangesPath, logger)
	if err != nil {
		return nil, nil, nil, err
	}

	holder := geo.NewHolder(idx)
	collector.ObserveReload(true, idx.Len())

	logger.Info("range table loaded", zap.String("path", cfg.RangesPath), zap.Int("ranges", idx.Len()))

	if cfg.WatchRanges {
		w, werr := geo.NewWatcher(&geo.WatcherConfig{
			Holder:  holder,
			Logger:  logger,
			Metrics: collector,
			Path:    cfg.RangesPath,
		})
		if werr != nil {
			return nil, nil, nil, werr
		}

		g.Go(func() (rerr error) { return w.Run(ctx) })
	}

	ready = func() (rerr error) {
		if holder.Get() == nil {
			return errors.New("no range table loaded")
		}

		return nil
	}

	return holder, ready, nil, nil
}
