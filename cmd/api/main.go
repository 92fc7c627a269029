package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	_ "github.com/apines/go-travelcover/docs" // swagger registration
	"github.com/apines/go-travelcover/internal/cache"
	"github.com/apines/go-travelcover/internal/core"
	transporthttp "github.com/apines/go-travelcover/internal/http"
	"github.com/apines/go-travelcover/internal/http/handlers"
	"github.com/apines/go-travelcover/internal/http/health"
	"github.com/apines/go-travelcover/internal/jobs"
	"github.com/apines/go-travelcover/internal/middleware"
	"github.com/apines/go-travelcover/internal/platform/config"
	"github.com/apines/go-travelcover/internal/platform/logging"
	"github.com/apines/go-travelcover/internal/store/dynamo"
	"github.com/apines/go-travelcover/internal/store/mongo"
)

// stores groups the persistence dependencies the rest of main wires up,
// regardless of which backend produced them.
type stores struct {
	ref    core.ReferenceDataPort
	quotes core.QuoteRepo
	promos core.PromoRepo
	pinger health.Pinger
	close  func(context.Context)
}

func main() {
	cfg := config.MustLoad()
	logger := logging.New(cfg.Env)
	logger.Info("starting travelcover API", "env", cfg.Env, "db", cfg.DBType)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := openStores(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.close(context.Background())

	// Reference data is read-mostly; cache lookups for a short TTL.
	ref := cache.New(st.ref, time.Duration(cfg.RefCacheTTLSec)*time.Second)
	defer ref.Stop()

	// Engines and services
	ruleEngine := core.NewRuleEngine(ref, logger)
	premiumEngine := core.NewPremiumEngine(ref, logger)
	discounts := core.NewDiscountService(st.promos, logger)
	quoteSvc := core.NewQuoteService(ruleEngine, premiumEngine, discounts, st.quotes, logger)

	// Background jobs
	expiry := jobs.NewExpiryWorker(st.quotes, time.Duration(cfg.WorkerIntervalSec)*time.Second, logger)
	go expiry.Start(ctx)

	// HTTP surface
	api := transporthttp.NewRouter(transporthttp.Deps{
		Mounts: []handlers.Mountable{
			handlers.NewQuoteHandler(quoteSvc, logger),
			handlers.NewUWHandler(ruleEngine, logger),
			handlers.NewReferenceHandler(ref, logger),
		},
	})

	rl := middleware.NewRateLimiter(cfg.RateLimitRPM, time.Minute)
	rl.StartWithContext(ctx)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(chimw.Timeout(time.Duration(cfg.HTTPRequestTimeoutSec) * time.Second))
	r.Use(middleware.SecurityHeaders)
	r.Use(middleware.CORS(cfg.AllowedOrigins))
	r.Use(middleware.LimitRequestBody(middleware.MaxBodySize))
	r.Use(rl.Middleware)
	r.Use(middleware.SimpleAPIKey(cfg.APIKey))

	r.Mount("/", health.New(logger, st.pinger, 2*time.Second))
	r.Mount("/api/v1", api)

	addr := fmt.Sprintf(":%s", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTPReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTPWriteTimeoutSec) * time.Second,
		IdleTimeout:  time.Duration(cfg.HTTPIdleTimeoutSec) * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server failed", "err", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "err", err)
		os.Exit(1)
	}
	logger.Info("stopped")
}

func openStores(ctx context.Context, cfg *config.Config, logger *slog.Logger) (stores, error) {
	switch cfg.DBType {
	case "dynamodb":
		logger.Info("connecting to DynamoDB", "region", cfg.AWSRegion, "endpoint", cfg.DynamoDBEndpoint)
		client, err := dynamo.NewClient(ctx, dynamo.Config{
			Region:          cfg.AWSRegion,
			Endpoint:        cfg.DynamoDBEndpoint,
			AccessKeyID:     cfg.AWSAccessKeyID,
			SecretAccessKey: cfg.AWSSecretAccessKey,
		})
		if err != nil {
			return stores{}, err
		}
		return stores{
			ref:    dynamo.NewRefRepo(client),
			quotes: dynamo.NewQuoteRepo(client),
			promos: dynamo.NewPromoRepo(client),
			pinger: client,
			close:  func(context.Context) {},
		}, nil

	case "mongo":
		logger.Info("connecting to MongoDB", "db", cfg.MongoDB)
		client, err := mongo.NewClient(cfg)
		if err != nil {
			return stores{}, err
		}
		opTimeout := time.Duration(cfg.MongoOpTimeoutMs) * time.Millisecond
		return stores{
			ref:    mongo.NewRefRepo(client.DB, opTimeout),
			quotes: mongo.NewQuoteRepo(client.DB, opTimeout),
			promos: mongo.NewPromoRepo(client.DB, opTimeout),
			pinger: client,
			close:  func(ctx context.Context) { client.Close(ctx) },
		}, nil

	default:
		return stores{}, fmt.Errorf("unknown DB_TYPE %q", cfg.DBType)
	}
}
