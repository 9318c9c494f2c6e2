// Command cardtabled serves the shared card table: the High/Low guessing
// session and the Old Maid session, backed by Redis with optional Postgres
// archival of finished games.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/tclemens/cardtable/internal/archive"
	"github.com/tclemens/cardtable/internal/config"
	"github.com/tclemens/cardtable/internal/events"
	"github.com/tclemens/cardtable/internal/server"
	"github.com/tclemens/cardtable/internal/service"
	"github.com/tclemens/cardtable/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("load config")
	}

	log := logrus.New()
	if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		log.SetLevel(level)
	}
	if cfg.LogJSON {
		log.SetFormatter(&logrus.JSONFormatter{})
	}
	entry := logrus.NewEntry(log)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		entry.WithError(err).Fatal("parse redis url")
	}
	client := redis.NewClient(opts)
	defer client.Close()
	if err := client.Ping(ctx).Err(); err != nil {
		entry.WithError(err).Fatal("redis unreachable")
	}

	var archiver archive.Archiver = archive.NopArchiver{}
	if cfg.DatabaseURL != "" {
		pg, err := archive.NewPGArchiver(ctx, cfg.DatabaseURL, entry)
		if err != nil {
			entry.WithError(err).Fatal("connect postgres")
		}
		defer pg.Close()
		archiver = pg
	}

	st := store.NewRedisStore(client)
	sink := events.NewRedisSink(client, entry)
	feed := events.NewRedisFeed(client, entry)

	hl := service.NewHighLow(st, sink, archiver, entry)
	om := service.NewOldMaid(st, sink, archiver, entry)

	mux := server.New(hl, om, feed, entry).Routes()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	httpSrv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpSrv.Shutdown(shutdownCtx); err != nil {
			entry.WithError(err).Warn("shutdown")
		}
	}()

	entry.WithField("addr", cfg.Addr).Info("cardtabled listening")
	if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		entry.WithError(err).Fatal("serve")
	}
}
