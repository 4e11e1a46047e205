package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2/log"
	"github.com/sahilchouksey/student-records/api"
	"github.com/sahilchouksey/student-records/config"
	"github.com/sahilchouksey/student-records/database"
	"github.com/sahilchouksey/student-records/infra/queue"
	"github.com/sahilchouksey/student-records/router"
	"github.com/sahilchouksey/student-records/services"
	"github.com/sahilchouksey/student-records/services/cron"
	"github.com/sahilchouksey/student-records/utils/auth"
	"github.com/sahilchouksey/student-records/utils/cache"
	"github.com/sahilchouksey/student-records/utils/middleware"
)

const shutdownTimeout = 10 * time.Second

func SetupAndRunServer() error {
	// Load ENV
	if err := config.LoadENV(); err != nil {
		return err
	}

	env, err := config.Get()
	if err != nil {
		return err
	}
	if err := env.Validate(); err != nil {
		return err
	}

	store, err := database.StartGORM(env)
	if err != nil {
		return fmt.Errorf("connect database (is %s running?): %w", env.DB_DRIVER, err)
	}
	defer store.Close()

	if err := store.Init(); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	db := store.GetDB()

	// Redis backs both the read cache and the login lockouts; without it the
	// cache falls back to process memory and lockouts are disabled.
	var (
		requestCache cache.JSONCache
		redisCache   *cache.RedisCache
	)
	if env.REDIS_URL != "" {
		redisCache, err = cache.NewRedisCache(env.REDIS_URL)
		if err != nil {
			log.Warnw("redis unavailable, using in-memory cache and disabling brute force protection", "error", err)
			redisCache = nil
		} else {
			defer redisCache.Close()
			requestCache = redisCache
		}
	}
	if requestCache == nil {
		requestCache = cache.NewMemoryCache(env.CACHE_TTL)
	}

	var publisher queue.Publisher = queue.NopPublisher{}
	if env.KAFKA_BROKER != "" {
		publisher = queue.NewProducer(queue.ProducerConfig{
			Broker:   env.KAFKA_BROKER,
			Topic:    env.KAFKA_TOPIC,
			Username: env.KAFKA_USERNAME,
			Password: env.KAFKA_PASSWORD,
		})
		log.Infow("publishing institute request events", "broker", env.KAFKA_BROKER, "topic", env.KAFKA_TOPIC)
	}
	defer publisher.Close()

	instituteRequests := services.NewInstituteRequestService(db, services.InstituteRequestServiceConfig{
		Publisher: publisher,
		Cache:     requestCache,
		Timeout:   env.REQUEST_TIMEOUT,
		CacheTTL:  env.CACHE_TTL,
	})

	if env.CRON_ENABLED {
		cronManager := cron.NewCronManager(db, instituteRequests, env.STALE_REQUEST_AGE)
		if err := cronManager.Start(); err != nil {
			// scheduled maintenance is not required to serve requests
			log.Warnw("failed to start cron jobs", "error", err)
		} else {
			defer cronManager.Stop()
		}
	}

	server := api.NewAPIServer(fmt.Sprintf(":%d", env.PORT))
	app := server.GetEngine()

	middleware.SetupSecurity(app, middleware.SecurityConfig{
		AllowedOrigins:    env.ALLOWED_ORIGINS,
		RateLimitRequests: env.RATE_LIMIT_REQUESTS,
		RateLimitWindow:   time.Minute,
	})

	router.SetupRoutes(app, router.Dependencies{
		Store: store,
		Port:  env.PORT,
		JWTManager: auth.NewJWTManager(auth.JWTConfig{
			Secret: env.JWT_SECRET,
			Issuer: env.JWT_ISSUER,
		}),
		InstituteRequests:    instituteRequests,
		BruteForceProtection: middleware.NewBruteForceProtection(redisCache),
	})

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Run()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
		log.Info("shutdown signal received")
	}

	if err := server.Shutdown(shutdownTimeout); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return nil
}
