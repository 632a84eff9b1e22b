package main

import (
	"fmt"
	"time"
)

// appConfig holds the edgefilter-specific settings; connection details for
// whichever store backend is selected are loaded separately via
// pkg/mongo.Config or pkg/redis.Config so unused backends don't impose
// their own required env vars.
type appConfig struct {
	ServiceName string `env:"SERVICE_NAME" envDefault:"edgefilter"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	// StoreBackend selects the counter store: "redis" or "mongo".
	StoreBackend    string `env:"STORE_BACKEND" envDefault:"redis"`
	MongoDatabase   string `env:"MONGODB_DATABASE" envDefault:"edgefilter"`
	MongoCollection string `env:"MONGODB_COLLECTION" envDefault:"rate_limits"`

	JWTSigningKey string `env:"JWT_SIGNING_KEY,required"`
	ScopesFile    string `env:"SCOPES_FILE"`

	// DynamoDBTable and UserPoolID are carried for parity with the
	// upstream configuration keys of the same name; this deployment's
	// counter store and token verifier don't consult them (the store
	// backend comes from StoreBackend, and the signing key comes from
	// JWTSigningKey), but they round-trip through env loading so a
	// config dump from either deployment looks the same shape.
	DynamoDBTable string `env:"DYNAMODB_TABLE"`
	UserPoolID    string `env:"USER_POOL_ID"`

	RateLimiterDefault               string        `env:"RATE_LIMITER_DEFAULT" envDefault:"reduced-atomicity-hybrid-v2"`
	RateLimiterConfigurableViaHeader bool          `env:"RATE_LIMITER_CONFIGURABLE_VIA_HEADER" envDefault:"false"`
	HybridStaleness                  time.Duration `env:"HYBRID_STALENESS" envDefault:"1s"`
	HybridBackgroundRetries          int           `env:"HYBRID_BACKGROUND_RETRIES" envDefault:"1"`

	FullyAtomicRetryAttempts  int           `env:"FULLY_ATOMIC_RETRY_ATTEMPTS" envDefault:"3"`
	FullyAtomicRetryBaseDelay time.Duration `env:"FULLY_ATOMIC_RETRY_BASE_DELAY" envDefault:"20ms"`
	FullyAtomicRetryMaxDelay  time.Duration `env:"FULLY_ATOMIC_RETRY_MAX_DELAY" envDefault:"200ms"`
}

func (c appConfig) validate() error {
	switch c.StoreBackend {
	case "redis", "mongo":
	default:
		return fmt.Errorf("STORE_BACKEND must be \"redis\" or \"mongo\", got %q", c.StoreBackend)
	}
	return nil
}
