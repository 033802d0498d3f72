package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/haneul/dcrawl/internal/config"
	"github.com/haneul/dcrawl/internal/crawler"
	"github.com/haneul/dcrawl/internal/directory"
	"github.com/haneul/dcrawl/internal/logger"
	"github.com/haneul/dcrawl/internal/middleware"
	"github.com/haneul/dcrawl/internal/model"
	"github.com/haneul/dcrawl/internal/siteclient"
	"github.com/haneul/dcrawl/internal/store"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (optional; env vars and defaults otherwise)")
	flag.Parse()

	cfg, err := config.LoadDirectory(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	galleryKind, err := model.ParseGalleryKind(cfg.GalleryKind)
	if err != nil {
		log.Fatal("invalid gallery kind", zap.String("gallery_kind", cfg.GalleryKind), zap.Error(err))
	}

	var kv store.Store
	if cfg.StorePath == "" {
		kv = store.NewMemory()
		log.Info("using ephemeral in-memory store")
	} else {
		kv, err = store.NewBolt(cfg.StorePath)
		if err != nil {
			log.Fatal("failed to open store", zap.Error(err))
		}
		log.Info("opened bbolt store", zap.String("path", cfg.StorePath))
	}
	defer kv.Close()

	client, err := siteclient.New(siteclient.Config{Host: "https://gall.dcinside.com"})
	if err != nil {
		log.Fatal("failed to build site client", zap.Error(err))
	}
	rankCrawler := crawler.New(client, crawler.WithLogger(log))

	service := directory.New(kv, rankCrawler, directory.Params{
		GalleryKind:           galleryKind,
		DocsPerCrawl:          cfg.DocsPerCrawl,
		MinWaitSeconds:        cfg.MinWaitSeconds,
		PubDurEstimateWeight1: cfg.PubDurEstimateWeight1,
		PubDurEstimateWeight2: cfg.PubDurEstimateWeight2,
	}, log)

	if err := service.RunUpgrade(time.Now().UTC()); err != nil {
		log.Fatal("startup db upgrade failed", zap.Error(err))
	}

	registry := prometheus.NewRegistry()

	c := cron.New()
	if _, err := c.AddFunc("@every 60s", func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := service.IngestRank(ctx); err != nil {
			log.Error("rank ingestion failed", zap.Error(err))
			return
		}
		log.Info("rank ingestion complete")
	}); err != nil {
		log.Fatal("failed to schedule rank ingestion", zap.Error(err))
	}
	c.Start()
	defer c.Stop()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.GinZap(log), middleware.Recovery(log), middleware.ErrorHandler(log))
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	handler := directory.NewHandler(service, log)
	handler.Register(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		log.Info("directory listening", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}
