// Package redisstore implements pkg/store.Store against Redis, using
// WATCH/MULTI/EXEC to emulate the same conditional-write semantics
// mongostore gets from a single filtered, upserting UpdateOne: the write
// commits only if the watched key's lastRefill still matches what the
// caller last read (or the key is still absent). Connection setup is
// adapted from pkg/redis.
package redisstore

import (
	"context"
	"errors"
	"strconv"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/edgegate/pkg/store"
)

// errConditionFailed is returned from inside the WATCH transaction body
// to short-circuit it without treating the mismatch as a transport error.
var errConditionFailed = errors.New("redisstore: condition failed")

// ErrHealthcheckFailed is returned by Healthcheck when the client cannot
// be pinged.
var ErrHealthcheckFailed = errors.New("redisstore healthcheck failed")

const (
	fieldTokens         = "tokens"
	fieldLastRefill     = "lastRefill"
	fieldRefillRate     = "refillRate"
	fieldRefillInterval = "refillInterval"
	fieldMaxTokens      = "maxTokens"
)

// Store is a store.Store backed by a Redis hash per client id.
type Store struct {
	client redis.UniversalClient
}

// New wraps an existing client. Connection lifecycle (retry, pooling) is
// the caller's responsibility via pkg/redis.
func New(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

func (s *Store) Get(ctx context.Context, key string) (store.Item, bool, error) {
	vals, err := s.client.HGetAll(ctx, key).Result()
	if err != nil {
		return store.Item{}, false, errors.Join(store.ErrUnavailable, err)
	}
	if len(vals) == 0 {
		return store.Item{}, false, nil
	}

	item, err := decode(vals)
	if err != nil {
		return store.Item{}, false, errors.Join(store.ErrUnavailable, err)
	}
	return item, true, nil
}

func (s *Store) Update(ctx context.Context, key string, fields store.Fields, cond store.Condition) (bool, error) {
	if cond.Unconditional {
		_, err := s.client.HSet(ctx, key, hashArgs(fields)).Result()
		if err != nil {
			return false, errors.Join(store.ErrUnavailable, err)
		}
		return true, nil
	}

	txFn := func(tx *redis.Tx) error {
		current, err := tx.HGetAll(ctx, key).Result()
		if err != nil {
			return err
		}

		lastRefill, exists := current[fieldLastRefill]
		conditionHolds := !exists || lastRefill == strconv.FormatInt(cond.ExpectedLastRefill, 10)
		if !conditionHolds {
			return errConditionFailed
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, hashArgs(fields))
			return nil
		})
		return err
	}

	err := s.client.Watch(ctx, txFn, key)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, errConditionFailed):
		return false, nil
	case errors.Is(err, redis.TxFailedErr):
		// Key changed between WATCH and EXEC: same business outcome as a
		// condition mismatch, not a transport failure.
		return false, nil
	default:
		return false, errors.Join(store.ErrUnavailable, err)
	}
}

// Healthcheck pings the underlying client.
func (s *Store) Healthcheck(ctx context.Context) error {
	if _, err := s.client.Ping(ctx).Result(); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}

func hashArgs(fields store.Fields) map[string]any {
	return map[string]any{
		fieldTokens:         fields.Tokens,
		fieldLastRefill:     fields.LastRefill,
		fieldRefillRate:     fields.RefillRate,
		fieldRefillInterval: fields.RefillInterval,
		fieldMaxTokens:      fields.MaxTokens,
	}
}

func decode(vals map[string]string) (store.Item, error) {
	tokens, err := strconv.ParseFloat(vals[fieldTokens], 64)
	if err != nil {
		return store.Item{}, err
	}
	lastRefill, err := strconv.ParseInt(vals[fieldLastRefill], 10, 64)
	if err != nil {
		return store.Item{}, err
	}
	refillRate, err := strconv.Atoi(vals[fieldRefillRate])
	if err != nil {
		return store.Item{}, err
	}
	refillInterval, err := strconv.Atoi(vals[fieldRefillInterval])
	if err != nil {
		return store.Item{}, err
	}
	maxTokens, err := strconv.Atoi(vals[fieldMaxTokens])
	if err != nil {
		return store.Item{}, err
	}

	return store.Item{
		Tokens:         tokens,
		LastRefill:     lastRefill,
		RefillRate:     refillRate,
		RefillInterval: refillInterval,
		MaxTokens:      maxTokens,
	}, nil
}
