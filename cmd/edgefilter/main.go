// Command edgefilter runs the edge authentication and rate-limiting
// filter as a standalone HTTP service: it accepts a CDN viewer-request
// style envelope, applies token verification, scope-to-path
// authorization, and rate limiting, and returns the (possibly
// short-circuited) envelope.
package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/edgegate/internal/healthcheck"
	"github.com/dmitrymomot/edgegate/internal/reqctx"
	"github.com/dmitrymomot/edgegate/internal/retry"
	"github.com/dmitrymomot/edgegate/pkg/authz"
	"github.com/dmitrymomot/edgegate/pkg/clock"
	"github.com/dmitrymomot/edgegate/pkg/config"
	"github.com/dmitrymomot/edgegate/pkg/environment"
	"github.com/dmitrymomot/edgegate/pkg/httpserver"
	"github.com/dmitrymomot/edgegate/pkg/logger"
	mongodb "github.com/dmitrymomot/edgegate/pkg/mongo"
	"github.com/dmitrymomot/edgegate/pkg/orchestrator"
	"github.com/dmitrymomot/edgegate/pkg/ratelimiter"
	"github.com/dmitrymomot/edgegate/pkg/redis"
	"github.com/dmitrymomot/edgegate/pkg/store"
	"github.com/dmitrymomot/edgegate/pkg/store/mongostore"
	"github.com/dmitrymomot/edgegate/pkg/store/redisstore"
	"github.com/dmitrymomot/edgegate/pkg/verifier"
)

func main() {
	var cfg appConfig
	config.MustLoad(&cfg)
	if err := cfg.validate(); err != nil {
		panic(err)
	}

	log := logger.New(
		logger.WithEnvironment(cfg.Environment, cfg.ServiceName),
		logger.WithContextExtractors(environment.LoggerExtractor()),
	)
	logger.SetAsDefault(log)

	ctx := context.Background()

	counterStore, storeHealth, closeStore := mustBuildStore(ctx, cfg)
	defer closeStore()
	readiness := healthcheck.All(storeHealth)

	authorizer := mustBuildAuthorizer(cfg)
	tokenVerifier := mustBuildVerifier(cfg)
	selector := buildSelector(cfg, counterStore, log)

	o := orchestrator.New(selector, tokenVerifier, authorizer, log)

	r := chi.NewRouter()
	r.Use(environment.Middleware(cfg.Environment))
	r.Get("/healthz", httpserver.HealthCheckHandler(ctx, log, readiness))
	r.Post("/v1/filter", filterHandler(o, log))

	srv := httpserver.New(
		httpserver.WithAddr(cfg.HTTPAddr),
		httpserver.WithLogger(log),
		httpserver.WithShutdownTimeout(10*time.Second),
		httpserver.WithStartHook(func(l *slog.Logger) {
			l.Info("edgefilter listening", "addr", cfg.HTTPAddr)
		}),
	)

	if err := srv.Run(ctx, r); err != nil {
		log.Error("edgefilter stopped", logger.Error(err))
		os.Exit(1)
	}
}

// filterHandler decodes a single viewer-request envelope, runs it through
// the orchestrator, and writes back the resulting envelope.
func filterHandler(o *orchestrator.Orchestrator, log *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-Id")
		if requestID == "" {
			requestID = reqctx.NewRequestID()
		}
		ctx := reqctx.WithRequestID(r.Context(), requestID)

		var in orchestrator.Envelope
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			log.WarnContext(ctx, "edgefilter: malformed envelope", logger.Error(err), logger.RequestID(requestID))
			w.WriteHeader(http.StatusBadRequest)
			return
		}

		out := o.Handle(ctx, in)

		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("X-Request-Id", requestID)
		if err := json.NewEncoder(w).Encode(out); err != nil {
			log.ErrorContext(ctx, "edgefilter: failed to encode response envelope", logger.Error(err), logger.RequestID(requestID))
		}
	}
}

func mustBuildStore(ctx context.Context, cfg appConfig) (store.Store, func(context.Context) error, func()) {
	switch cfg.StoreBackend {
	case "mongo":
		var mcfg mongodb.Config
		config.MustLoad(&mcfg)
		client, err := mongodb.New(ctx, mcfg)
		if err != nil {
			panic(err)
		}
		coll := client.Database(cfg.MongoDatabase).Collection(cfg.MongoCollection)
		return mongostore.New(coll), mongodb.Healthcheck(client), func() { _ = client.Disconnect(context.Background()) }
	default:
		var rcfg redis.Config
		config.MustLoad(&rcfg)
		client, err := redis.Connect(ctx, rcfg)
		if err != nil {
			panic(err)
		}
		return redisstore.New(client), redis.Healthcheck(client), func() { _ = client.Close() }
	}
}

func mustBuildAuthorizer(cfg appConfig) *authz.Authorizer {
	if cfg.ScopesFile == "" {
		return authz.New(nil)
	}
	rules, err := authz.LoadRulesFromYAML(cfg.ScopesFile)
	if err != nil {
		panic(err)
	}
	return authz.New(rules)
}

func mustBuildVerifier(cfg appConfig) verifier.Verifier {
	v, err := verifier.NewHMAC([]byte(cfg.JWTSigningKey))
	if err != nil {
		panic(err)
	}
	return v
}

func buildSelector(cfg appConfig, s store.Store, log *slog.Logger) *ratelimiter.Selector {
	sel := ratelimiter.NewSelector(ratelimiter.Key(cfg.RateLimiterDefault), cfg.RateLimiterConfigurableViaHeader)

	sel.Register(ratelimiter.KeyOptimisticV1, ratelimiter.NewOptimisticV1(s, clock.System{}, log))
	sel.Register(ratelimiter.KeyHybridV2, ratelimiter.NewHybridV2(
		s, clock.System{}, log,
		ratelimiter.WithStaleness(cfg.HybridStaleness.Milliseconds()),
		ratelimiter.WithBackgroundRetries(cfg.HybridBackgroundRetries),
	))

	retryCfg := retry.Config{
		MaxAttempts: cfg.FullyAtomicRetryAttempts,
		BaseDelay:   cfg.FullyAtomicRetryBaseDelay,
		MaxDelay:    cfg.FullyAtomicRetryMaxDelay,
	}
	sel.Register(ratelimiter.KeyFullyAtomic, ratelimiter.NewRetrying(
		ratelimiter.NewFullyAtomic(s, clock.System{}),
		retryCfg,
	))

	return sel
}
