package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"codecollab/internal/config"
	"codecollab/internal/relay"
	"codecollab/internal/routers"
)

func main() {
	_ = godotenv.Load()

	logger, _ := zap.NewProduction()
	defer logger.Sync()

	cfg, err := config.LoadRelay()
	if err != nil {
		log.Fatal(err)
	}

	hub := relay.NewHub()
	ws := relay.NewHandler(logger, hub, []byte(cfg.JWTSecret))

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		bridge := relay.NewBridge(logger, rdb, hub)
		go bridge.Run(context.Background())
	} else {
		logger.Info("REDIS_ADDR not set, project-event bridge disabled")
	}

	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Logger,
		middleware.Recoverer,
		middleware.Timeout(60*time.Second),
	)
	r.Mount("/", routers.New(ws, cfg.AllowedOrigins))

	addr := ":" + cfg.Port
	log.Printf("relayd listening on %s", addr)
	log.Fatal(http.ListenAndServe(addr, r))
}
