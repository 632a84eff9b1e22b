// Package mongostore implements pkg/store.Store against a MongoDB
// collection, using an upserting UpdateOne whose filter clause is the
// conditional write primitive: a document matches only when its
// lastRefill is absent (brand-new client) or equal to the caller's
// expected value, mirroring a DynamoDB-style "attribute_not_exists
// (lastRefill) OR lastRefill = :expected" condition expression. A
// condition mismatch surfaces as a duplicate-key error from the upsert
// racing the existing _id, which Update treats as ok=false rather than
// an error. Connection setup is adapted from pkg/mongo.
package mongostore

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/dmitrymomot/edgegate/pkg/store"
)

// ErrHealthcheckFailed is returned by Healthcheck when the underlying
// client cannot be pinged.
var ErrHealthcheckFailed = errors.New("mongostore healthcheck failed")

type document struct {
	ID             string  `bson:"_id"`
	Tokens         float64 `bson:"tokens"`
	LastRefill     int64   `bson:"lastRefill"`
	RefillRate     int     `bson:"refillRate"`
	RefillInterval int     `bson:"refillInterval"`
	MaxTokens      int     `bson:"maxTokens"`
}

// Store is a store.Store backed by a single MongoDB collection, one
// document per client id.
type Store struct {
	coll *mongo.Collection
}

// New wraps an existing collection. Callers are expected to have created
// it (and any indexes) via pkg/mongo's connection helpers beforehand; this
// package owns only the read/write pattern, not connection lifecycle.
func New(coll *mongo.Collection) *Store {
	return &Store{coll: coll}
}

func (s *Store) Get(ctx context.Context, key string) (store.Item, bool, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return store.Item{}, false, nil
	}
	if err != nil {
		return store.Item{}, false, errors.Join(store.ErrUnavailable, err)
	}

	return store.Item{
		Tokens:         doc.Tokens,
		LastRefill:     doc.LastRefill,
		RefillRate:     doc.RefillRate,
		RefillInterval: doc.RefillInterval,
		MaxTokens:      doc.MaxTokens,
	}, true, nil
}

func (s *Store) Update(ctx context.Context, key string, fields store.Fields, cond store.Condition) (bool, error) {
	set := bson.M{
		"tokens":         fields.Tokens,
		"lastRefill":     fields.LastRefill,
		"refillRate":     fields.RefillRate,
		"refillInterval": fields.RefillInterval,
		"maxTokens":      fields.MaxTokens,
	}

	filter := bson.M{"_id": key}
	if !cond.Unconditional {
		filter["$or"] = bson.A{
			bson.M{"lastRefill": bson.M{"$exists": false}},
			bson.M{"lastRefill": cond.ExpectedLastRefill},
		}
	}

	res, err := s.coll.UpdateOne(ctx, filter, bson.M{"$set": set}, options.UpdateOne().SetUpsert(true))
	if err != nil {
		// A duplicate-key error here means the filter's $or clause did not
		// match an existing document (lastRefill mismatched) so the driver
		// attempted to insert a sibling with the same _id, i.e. the
		// condition failed, not a transport error.
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, errors.Join(store.ErrUnavailable, err)
	}

	if res.MatchedCount == 0 && res.UpsertedCount == 0 {
		return false, nil
	}
	return true, nil
}

// Healthcheck pings the collection's underlying client.
func (s *Store) Healthcheck(ctx context.Context) error {
	if err := s.coll.Database().Client().Ping(ctx, nil); err != nil {
		return errors.Join(ErrHealthcheckFailed, err)
	}
	return nil
}
