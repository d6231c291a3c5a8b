package main

import (
	"context"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"notesync/internal/config"
	"notesync/internal/metrics"
	"notesync/internal/routers"
	"notesync/internal/store"
	"notesync/internal/utils"
)

// Seams for tests.
var (
	listenAndServe = http.ListenAndServe
	exitFunc       = func(err error) { log.Fatal(err) }
)

// openStore picks the persistence backend from configuration. An unreachable
// backend is not fatal: the room engine keeps running for live editing and
// presence, with saves and loads degraded.
func openStore(ctx context.Context, c *config.Config, logger *utils.Logger) store.Store {
	switch {
	case c.MongoURI != "":
		s, err := store.NewMongoStore(ctx, c.MongoURI, c.MongoDB)
		if err != nil {
			logger.Error("mongo unreachable, persistence disabled", "error", err.Error())
			return store.Unavailable{}
		}
		logger.Info("using mongo document store", "db", c.MongoDB)
		return s
	case c.RedisAddr != "":
		s, err := store.NewRedisStore(ctx, c.RedisAddr, c.RedisPassword, c.RedisDB)
		if err != nil {
			logger.Error("redis unreachable, persistence disabled", "error", err.Error())
			return store.Unavailable{}
		}
		logger.Info("using redis document store", "addr", c.RedisAddr)
		return s
	default:
		logger.Warn("no persistence backend configured, using in-memory store")
		return store.NewMemoryStore()
	}
}

func run(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	logger := utils.NewLogger()
	defer logger.Sync()

	st := openStore(ctx, cfg, logger)

	r := chi.NewRouter()
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	r.Use(metrics.Middleware)

	r.Mount("/", routers.New(logger, st, cfg.MaxStoreWorkers))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) { _, _ = w.Write([]byte("ok")) })
	r.Handle("/metrics", metrics.Handler())

	addr := ":" + strconv.Itoa(cfg.HTTPPort)
	logger.Info("notesync listening", "addr", addr)
	return listenAndServe(addr, r)
}

func main() {
	if err := run(context.Background()); err != nil {
		exitFunc(err)
	}
}
