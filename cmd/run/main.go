package main

import (
	"context"
	"net/http"
	"os"

	"github.com/deadbird/kpi-crawler/cfg"
	"github.com/deadbird/kpi-crawler/internal/crawler"
	"github.com/deadbird/kpi-crawler/internal/model"
	"github.com/deadbird/kpi-crawler/pkg/db"
	"github.com/deadbird/kpi-crawler/pkg/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	ctx := context.Background()
	// loader, _ := cfg.NewMockLoader()
	loader, _ := cfg.NewViperLoader()
	logger, _ := log.NewLogrusLogger()

	config, err := loader.Load()
	if err != nil {
		logger.Error(ctx, "Failed to load config: %v", err)
		os.Exit(1)
	}

	mysql, _ := db.NewMysql(config)
	if err := mysql.Migrate(model.All()...); err != nil {
		logger.Error(ctx, "Failed to migrate database: %v", err)
		os.Exit(1)
	}

	if addr := config.Crawl.MetricsAddr; addr != "" {
		go func() {
			logger.Info(ctx, "Serving metrics on %s", addr)
			if err := http.ListenAndServe(addr, promhttp.Handler()); err != nil {
				logger.Error(ctx, "Metrics server stopped: %v", err)
			}
		}()
	}

	c, err := crawler.New(config, loader, logger, mysql)
	if err != nil {
		logger.Error(ctx, "Failed to build crawler: %v", err)
		os.Exit(1)
	}

	logger.Info(ctx, "Starting KPI activity crawler for %d repos", len(config.Repos))
	if c.Crawl() {
		logger.Info(ctx, "Successfully!")
	} else {
		logger.Error(ctx, "Failed!")
	}
}
