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
	"github.com/nats-io/nats.go"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/haneul/dcrawl/internal/config"
	"github.com/haneul/dcrawl/internal/crawler"
	"github.com/haneul/dcrawl/internal/logger"
	"github.com/haneul/dcrawl/internal/middleware"
	"github.com/haneul/dcrawl/internal/publisher"
	"github.com/haneul/dcrawl/internal/siteclient"
	"github.com/haneul/dcrawl/internal/worker"
)

func main() {
	configPath := flag.String("config", "", "path to a config file (optional; env vars and defaults otherwise)")
	flag.Parse()

	cfg, err := config.LoadWorker(*configPath)
	if err != nil {
		panic(err)
	}

	log, err := logger.New(cfg.LogLevel)
	if err != nil {
		panic(err)
	}
	defer log.Sync()

	client, err := siteclient.New(siteclient.Config{Host: "https://gall.dcinside.com"})
	if err != nil {
		log.Fatal("failed to build site client", zap.Error(err))
	}
	c := crawler.New(client,
		crawler.WithDelay(time.Duration(cfg.DelayMillis)*time.Millisecond),
		crawler.WithLogger(log),
	)

	var nc *nats.Conn
	if cfg.NATSURL != "" {
		nc, err = nats.Connect(cfg.NATSURL)
		if err != nil {
			log.Fatal("failed to connect to message bus", zap.Error(err))
		}
		defer nc.Close()
	} else {
		log.Info("no nats url configured, bus publish disabled")
	}

	pub := publisher.New(cfg.DataBrokerURL, nc, cfg.NATSSubject, log)

	registry := prometheus.NewRegistry()
	metrics := worker.NewMetrics(registry)

	w := worker.New(cfg.LiveDirectoryURL, c, pub, metrics, worker.Config{
		Part:          cfg.Part,
		Total:         cfg.Total,
		StartPage:     cfg.StartPage,
		SleepDuration: time.Duration(cfg.SleepDurationMS) * time.Millisecond,
	}, log)

	ctx, cancel := context.WithCancel(context.Background())
	go w.RunForever(ctx)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.GinZap(log), middleware.Recovery(log), middleware.ErrorHandler(log))
	worker.RegisterHealth(router)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Port),
		Handler: router,
	}

	go func() {
		log.Info("worker listening",
			zap.Int("port", cfg.Port),
			zap.Int("part", cfg.Part),
			zap.Int("total", cfg.Total),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("shutting down")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("forced shutdown", zap.Error(err))
	}
}
