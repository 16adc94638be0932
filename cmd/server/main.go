package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"

	"socialfeed/internal/adapters/cache"
	"socialfeed/internal/adapters/credentials"
	"socialfeed/internal/adapters/memstore"
	"socialfeed/internal/adapters/notify"
	"socialfeed/internal/adapters/realtime"
	"socialfeed/internal/adapters/sqlstore"
	"socialfeed/internal/adapters/web"
	"socialfeed/internal/config"
	"socialfeed/internal/metrics"
	"socialfeed/internal/usecases"
	"socialfeed/pkg/log"
	"socialfeed/pkg/log/transporters"
)

type store interface {
	usecases.TweetRepository
	usecases.UserRepository
}

func main() {
	configPath := flag.String("config", os.Getenv("CONFIG_FILE"), "path to a YAML config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		fmt.Fprintf(os.Stderr, "socialfeed: %v\n", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	if err := config.LoadDotEnv(".env"); err != nil {
		return err
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}

	logger := newLogger(cfg.Log)
	log.SetDefault(logger)
	defer logger.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	st, closeStore, err := openStore(ctx, cfg.Store)
	if err != nil {
		return err
	}
	defer closeStore()

	var tweetRepo usecases.TweetRepository = st
	if ttl := cfg.CacheTTL(); ttl > 0 {
		tweetCache := cache.NewMemoryCache(ttl)
		defer tweetCache.Close()
		tweetRepo = cache.NewTweetRepository(st, tweetCache)
	}

	// Events
	hub := realtime.NewHub(cfg.Realtime.SendBuffer)
	sinks := []notify.Sink{notify.LogSink{}, hub}

	if cfg.Kafka.Brokers != "" {
		sinks = append(sinks, notify.NewKafkaSink(notify.NewKafkaWriter(cfg.Kafka.Brokers, cfg.Kafka.Topic)))
		log.Info("kafka sink enabled", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	if cfg.Redis.Addr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr})
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn("redis not reachable", "addr", cfg.Redis.Addr, "error", err)
		}
		sinks = append(sinks, notify.NewRedisSink(rdb, cfg.Redis.Channel))
		log.Info("redis sink enabled", "addr", cfg.Redis.Addr, "channel", cfg.Redis.Channel)
	}

	dispatcher := notify.NewDispatcher(cfg.Events.QueueSize, sinks, notify.WithDeliverTimeout(cfg.Events.DeliverTimeout))
	defer dispatcher.Close()

	// Use cases
	userSvc := usecases.NewUserService(st, credentials.NewHasher(cfg.Security.BcryptCost))
	tweetSvc := usecases.NewTweetService(tweetRepo, userSvc, dispatcher)

	// HTTP
	var limiter *web.RateLimiter
	if cfg.Server.RateLimitRPS > 0 {
		limiter = web.NewRateLimiter(cfg.Server.RateLimitRPS, cfg.Server.RateLimitBurst, 10*time.Minute)
		defer limiter.Close()
	}

	timeout := cfg.Server.HandlerTimeout
	app := web.NewApp(web.AppConfig{CORSOrigins: cfg.Server.CORSOrigins, RateLimiter: limiter}, web.Handlers{
		Tweets: web.NewTweetHandlers(tweetSvc, timeout),
		Users:  web.NewUserHandlers(userSvc, timeout),
		Pages:  web.NewPageHandlers(tweetSvc, timeout),
	})

	errCh := make(chan error, 2)

	var rtServer *http.Server
	if cfg.Realtime.Addr != "" {
		rtServer = newRealtimeServer(cfg.Realtime.Addr, hub)
		go func() {
			log.Info("realtime listener started", "addr", cfg.Realtime.Addr)
			if err := rtServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errCh <- fmt.Errorf("realtime listener: %w", err)
			}
		}()
	}

	go func() {
		log.Info("starting socialfeed", "port", cfg.Server.Port, "store", cfg.Store.Driver)
		if err := app.Listen(":" + cfg.Server.Port); err != nil {
			errCh <- fmt.Errorf("http listener: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		log.Info("shutting down")
	case err = <-errCh:
		log.Error("listener failed", "error", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if shutErr := app.ShutdownWithContext(shutdownCtx); shutErr != nil {
		log.Error("http shutdown", "error", shutErr)
	}
	if rtServer != nil {
		if shutErr := rtServer.Shutdown(shutdownCtx); shutErr != nil {
			log.Error("realtime shutdown", "error", shutErr)
		}
	}
	hub.Close()

	return err
}

func newLogger(cfg config.LogConfig) *log.Logger {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid LOG_LEVEL %q, using %s\n", cfg.Level, level)
	}

	if strings.EqualFold(cfg.Format, "console") {
		return log.New(level, transporters.NewConsole())
	}
	return log.New(level, transporters.NewStdout())
}

func openStore(ctx context.Context, cfg config.StoreConfig) (store, func(), error) {
	switch cfg.Driver {
	case config.DriverMemory:
		return memstore.New(), func() {}, nil
	case config.DriverSQLite, config.DriverMySQL:
		s, err := sqlstore.Open(ctx, cfg.Driver, cfg.DSN)
		if err != nil {
			return nil, nil, err
		}
		return s, func() {
			if err := s.Close(); err != nil {
				log.Error("closing store", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

// newRealtimeServer serves the websocket hub next to the operational
// endpoints on a plain net/http listener.
func newRealtimeServer(addr string, hub *realtime.Hub) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/hub", hub)
	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"status":"ok","subscribers":%d}`, hub.Count())
	})

	return &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}
}
