package main

import (
	"context"
	"errors"
	"net"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/example/cinema-platform/internal/platform/auth"
	"github.com/example/cinema-platform/internal/platform/config"
	"github.com/example/cinema-platform/internal/platform/db"
	"github.com/example/cinema-platform/internal/platform/events"
	"github.com/example/cinema-platform/internal/platform/httpserver"
	"github.com/example/cinema-platform/internal/platform/logging"
	"github.com/example/cinema-platform/internal/platform/natsconn"
	"github.com/example/cinema-platform/internal/platform/run"
	"github.com/example/cinema-platform/services/catalog/internal/aggregate"
	"github.com/example/cinema-platform/services/catalog/internal/cache"
	catalogconfig "github.com/example/cinema-platform/services/catalog/internal/config"
	"github.com/example/cinema-platform/services/catalog/internal/handlers"
	"github.com/example/cinema-platform/services/catalog/internal/media"
	"github.com/example/cinema-platform/services/catalog/internal/outbox"
	"github.com/example/cinema-platform/services/catalog/internal/relay"
	"github.com/example/cinema-platform/services/catalog/internal/service"
	"github.com/example/cinema-platform/services/catalog/internal/store"
)

func main() {
	appCfg, err := config.Load()
	if err != nil {
		panic(err)
	}
	log, err := logging.New(appCfg.LogLevel, appCfg.ServiceName)
	if err != nil {
		panic(err)
	}
	defer func() { _ = log.Sync() }()

	cfg, err := catalogconfig.Load()
	if err != nil {
		log.Error("catalog config", zap.Error(err))
		run.Exit(1)
	}

	startCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	// db
	pool, err := db.Open(startCtx, cfg.DB.URL, db.PoolOptions{MaxConns: cfg.DB.MaxConns})
	if err != nil {
		log.Error("db open", zap.Error(err))
		run.Exit(1)
	}
	if !appCfg.IsProd() {
		if _, err := pool.Exec(startCtx, store.Schema); err != nil {
			log.Error("apply schema", zap.Error(err))
			run.Exit(1)
		}
	}

	// object storage
	objects, err := media.NewS3ObjectStore(startCtx, media.S3Config{
		Region:             cfg.S3.Region,
		Bucket:             cfg.S3.Bucket,
		AccessKeyID:        cfg.S3.AccessKeyID,
		SecretAccessKey:    cfg.S3.SecretAccessKey,
		Endpoint:           cfg.S3.Endpoint,
		UsePathStyle:       cfg.S3.UsePathStyle,
		PresignTTL:         cfg.S3.PresignTTL,
		CallTimeout:        cfg.S3.CallTimeout,
		BreakerMaxRequests: cfg.S3.CBMaxRequests,
		BreakerInterval:    cfg.S3.CBInterval,
		BreakerTimeout:     cfg.S3.CBTimeout,
		BreakerFailures:    cfg.S3.CBFailureThreshold,
	}, log)
	if err != nil {
		log.Error("s3 init", zap.Error(err))
		run.Exit(1)
	}
	resolver := media.NewResolver(objects, log)

	// filter cache (optional)
	var filterCache cache.Cache = cache.Noop{}
	var redisCache *cache.RedisCache
	if cfg.Redis.URL != "" {
		redisCache, err = cache.NewRedisCache(cfg.Redis.URL, cfg.Redis.FiltersTTL)
		if err != nil {
			log.Error("redis url", zap.Error(err))
			run.Exit(1)
		}
		if err := redisCache.Ping(startCtx); err != nil {
			log.Warn("redis unavailable, filter lists served uncached until it recovers", zap.Error(err))
		}
		filterCache = redisCache
	}

	// bus
	nc, err := natsconn.Connect(natsconn.Options{
		URL:           cfg.NATS.URL,
		Name:          appCfg.ServiceName,
		MaxReconnects: cfg.NATS.MaxReconnects,
		ReconnectWait: cfg.NATS.ReconnectWait,
		Logger:        log,
	})
	if err != nil {
		log.Error("nats connect", zap.Error(err))
		run.Exit(1)
	}
	js, err := nc.JetStream()
	if err != nil {
		log.Error("jetstream", zap.Error(err))
		run.Exit(1)
	}
	authors, err := relay.New(js, relay.Config{
		Stream:  cfg.NATS.FactsStream,
		Subject: cfg.NATS.CommentTopic,
		Durable: cfg.NATS.Durable,
		Wait:    cfg.NATS.FactWait,
	}, log)
	if err != nil {
		log.Error("fact relay", zap.Error(err))
		run.Exit(1)
	}
	if err := outbox.EnsureStream(js); err != nil {
		log.Error("outbox stream", zap.Error(err))
		run.Exit(1)
	}
	publisher := outbox.NewPublisher(log, pool, events.New(js, log), cfg.Outbox.BatchSize, cfg.Outbox.PollInterval)

	svc := service.New(
		store.NewPostgresCatalogStore(pool),
		aggregate.New(resolver, aggregate.Options{
			Concurrency:   cfg.Aggregate.Concurrency,
			LookupTimeout: cfg.Aggregate.LookupTimeout,
		}, log),
		authors,
		filterCache,
		service.Options{PageSize: cfg.Aggregate.PageSize, MaxPageSize: cfg.Aggregate.MaxPageSize},
		log,
	)

	// http
	r := chi.NewRouter()
	httpserver.SetupRouter(r, httpserver.RouterConfig{
		AllowedOrigins: cfg.HTTP.CORSOrigins,
		Logger:         log,
		ReadyFunc: func() error {
			c, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := pool.Ping(c); err != nil {
				return err
			}
			if !nc.IsConnected() {
				return errors.New("nats disconnected")
			}
			return nil
		},
	})
	handlers.Mount(r, svc, auth.JWTVerifier{Secret: []byte(cfg.Auth.JWTSecret), Issuer: cfg.Auth.JWTIssuer}, log)
	srv := httpserver.New(httpserver.Options{Addr: appCfg.HTTP.Addr, Router: r})

	// grpc health
	lis, err := net.Listen("tcp", appCfg.GRPC.Addr)
	if err != nil {
		log.Error("grpc listen", zap.Error(err))
		run.Exit(1)
	}
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)
	reflection.Register(grpcSrv)
	go func() {
		log.Info("grpc server starting", zap.String("addr", appCfg.GRPC.Addr))
		if err := grpcSrv.Serve(lis); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			log.Error("grpc serve", zap.Error(err))
		}
	}()

	runner := run.New(log)
	// Hooks run in reverse order: HTTP first, then gRPC, bus, cache, db.
	runner.OnShutdown("postgres", func(context.Context) error {
		pool.Close()
		return nil
	})
	if redisCache != nil {
		runner.OnShutdown("redis", func(context.Context) error { return redisCache.Close() })
	}
	runner.OnShutdown("nats", func(context.Context) error { return nc.Drain() })
	runner.OnShutdown("grpc", func(ctx context.Context) error {
		healthSrv.Shutdown()
		stopped := make(chan struct{})
		go func() {
			grpcSrv.GracefulStop()
			close(stopped)
		}()
		select {
		case <-stopped:
		case <-ctx.Done():
			grpcSrv.Stop()
		}
		return nil
	})
	runner.OnShutdown("http", srv.Shutdown)

	code := runner.WithSignals(func(ctx context.Context) error {
		go func() {
			if err := publisher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("outbox publisher stopped", zap.Error(err))
			}
		}()
		healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
		return srv.Start(log)
	})

	log.Info("exit", zap.Int("code", code))
	run.Exit(code)
}
