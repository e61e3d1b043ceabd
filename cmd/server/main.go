package main // Entry point package

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/bridge"
	"github.com/iliyamo/event-hub/internal/cache"
	"github.com/iliyamo/event-hub/internal/config"
	"github.com/iliyamo/event-hub/internal/database"
	"github.com/iliyamo/event-hub/internal/handler"
	"github.com/iliyamo/event-hub/internal/queue"
	"github.com/iliyamo/event-hub/internal/repository"
	"github.com/iliyamo/event-hub/internal/router"
	"github.com/iliyamo/event-hub/internal/service"
)

func main() {
	_ = godotenv.Load() // best effort; real env vars win

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	if err := database.Migrate(context.Background(), db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Redis is optional: a nil client disables the read cache and the
	// mutation dedupe window, nothing else.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; caching and dedupe disabled")
	}
	cacheCfg := config.LoadCacheConfig()
	var store *cache.Store
	if cacheCfg.Enabled {
		store = cache.New(rdb, cacheCfg.Prefix, cacheCfg.TTL)
	} else {
		store = cache.New(nil, cacheCfg.Prefix, cacheCfg.TTL)
	}

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	profiles := repository.NewProfileRepo(db)
	events := repository.NewEventRepo(db)
	rsvps := repository.NewRSVPRepo(db)
	reviews := repository.NewReviewRepo(db)

	sink := bridge.New(store, queue.NewPublisher())
	co := service.NewCoordinator(events, rsvps, reviews, profiles, sink)

	// The notification consumer runs for the life of the process and
	// survives broker outages through its own reconnect loop.
	consumer := queue.NewConsumer(users, events, rsvps, store)
	go func() {
		if err := consumer.Start(context.Background()); err != nil {
			log.Printf("notification consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	e.Validator = handler.NewValidator()

	router.RegisterRoutes(e)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterProfile(e, handler.NewProfileHandler(co), cfg.JWTSecret)
	router.RegisterEvents(e,
		handler.NewEventHandler(co, store),
		handler.NewRSVPHandler(co),
		handler.NewReviewHandler(co),
		cfg.JWTSecret)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
