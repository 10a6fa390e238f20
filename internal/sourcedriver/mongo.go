/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package sourcedriver

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/nethesis/store-verify/internal/document"
	"github.com/nethesis/store-verify/internal/retryutil"
)

// MongoDriver is the MongoDB implementation of Driver. It retries its
// own transient errors (rate limit / throttling responses) internally
// before surfacing a failure to the caller.
type MongoDriver struct {
	client   *mongo.Client
	database *mongo.Database
	retry    retryutil.Policy
}

// NewMongoDriver wraps an already-connected client. Client construction
// (URI parsing, TLS, connection pooling) is a transport-layer concern
// handled before the driver is built.
func NewMongoDriver(client *mongo.Client, database string, retry retryutil.Policy) *MongoDriver {
	return &MongoDriver{client: client, database: client.Database(database), retry: retry}
}

func (m *MongoDriver) ListCollections(ctx context.Context) ([]string, error) {
	return retryutil.Do(ctx, m.retry, func(ctx context.Context) ([]string, error) {
		names, err := m.database.ListCollectionNames(ctx, bson.M{})
		if err != nil {
			return nil, classify(err)
		}
		sort.Strings(names)
		return names, nil
	})
}

func (m *MongoDriver) CountDocuments(ctx context.Context, collection string) (int64, error) {
	return retryutil.Do(ctx, m.retry, func(ctx context.Context) (int64, error) {
		n, err := m.database.Collection(collection).CountDocuments(ctx, bson.M{})
		if err != nil {
			return 0, classify(err)
		}
		return n, nil
	})
}

func (m *MongoDriver) SampleDocuments(ctx context.Context, collection string, n int64) ([]document.Document, error) {
	return retryutil.Do(ctx, m.retry, func(ctx context.Context) ([]document.Document, error) {
		pipeline := mongo.Pipeline{bson.D{{Key: "$sample", Value: bson.D{{Key: "size", Value: n}}}}}
		cur, err := m.database.Collection(collection).Aggregate(ctx, pipeline)
		if err != nil {
			return nil, classify(err)
		}
		defer cur.Close(ctx)
		return decodeAll(ctx, cur)
	})
}

func (m *MongoDriver) SampleDocumentsByBuckets(ctx context.Context, collection, bucketField string, buckets []int, n int64) ([]document.Document, error) {
	return retryutil.Do(ctx, m.retry, func(ctx context.Context) ([]document.Document, error) {
		ids := make(bson.A, len(buckets))
		for i, b := range buckets {
			ids[i] = b
		}
		filter := bson.D{{Key: bucketField, Value: bson.D{{Key: "$in", Value: ids}}}}
		opts := options.Find().SetLimit(n)
		cur, err := m.database.Collection(collection).Find(ctx, filter, opts)
		if err != nil {
			return nil, classify(err)
		}
		defer cur.Close(ctx)
		return decodeAll(ctx, cur)
	})
}

func (m *MongoDriver) IterBusinessKeys(ctx context.Context, collection, keyPath string) (KeyIterator, error) {
	filter := bson.D{{Key: keyPath, Value: bson.D{{Key: "$exists", Value: true}}}}
	projection := bson.D{{Key: keyPath, Value: 1}}
	cur, err := m.database.Collection(collection).Find(ctx, filter, options.Find().SetProjection(projection))
	if err != nil {
		return nil, classify(err)
	}
	return &mongoKeyIterator{cur: cur, keyPath: keyPath}, nil
}

func (m *MongoDriver) FindByBusinessKey(ctx context.Context, collection, keyPath string, value document.Value) (document.Document, error) {
	return retryutil.Do(ctx, m.retry, func(ctx context.Context) (document.Document, error) {
		filter := bson.D{{Key: keyPath, Value: document.ToBSON(value)}}
		var raw bson.M
		err := m.database.Collection(collection).FindOne(ctx, filter).Decode(&raw)
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		if err != nil {
			return nil, classify(err)
		}
		return document.FromBSON(raw), nil
	})
}

func (m *MongoDriver) Close(ctx context.Context) error {
	if m.client == nil {
		return nil
	}
	return m.client.Disconnect(ctx)
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]document.Document, error) {
	var out []document.Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, classify(err)
		}
		out = append(out, document.FromBSON(raw))
	}
	if err := cur.Err(); err != nil {
		return nil, classify(err)
	}
	return out, nil
}

type mongoKeyIterator struct {
	cur     *mongo.Cursor
	keyPath string
	err     error
}

func (it *mongoKeyIterator) Next(ctx context.Context) (document.Value, bool) {
	if !it.cur.Next(ctx) {
		it.err = it.cur.Err()
		return document.Null(), false
	}
	var raw bson.M
	if err := it.cur.Decode(&raw); err != nil {
		it.err = err
		return document.Null(), false
	}
	v, ok := lookupDotted(raw, it.keyPath)
	if !ok {
		return document.Null(), true
	}
	return document.FromAny(v), true
}

// lookupDotted resolves a dotted field path against a decoded bson.M,
// descending through nested documents one segment at a time.
func lookupDotted(m bson.M, path string) (interface{}, bool) {
	cur := interface{}(m)
	for _, seg := range strings.Split(path, ".") {
		doc, ok := cur.(bson.M)
		if !ok {
			return nil, false
		}
		v, ok := doc[seg]
		if !ok {
			return nil, false
		}
		cur = v
	}
	return cur, true
}

func (it *mongoKeyIterator) Err() error   { return it.err }
func (it *mongoKeyIterator) Close() error { return it.cur.Close(context.Background()) }

// classify wraps a MongoDB driver error as a retryutil.TransientError
// when it represents a throttling / rate-limit response, so the
// surrounding retryutil.Do call can distinguish it from a fatal one.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var ce mongo.CommandError
	if isCommandError(err, &ce) {
		if ce.Code == 16500 || ce.HasErrorLabel("SystemOverloadedError") {
			return &retryutil.TransientError{Err: err}
		}
	}
	return fmt.Errorf("sourcedriver: mongo: %w", err)
}

func isCommandError(err error, ce *mongo.CommandError) bool {
	if e, ok := err.(mongo.CommandError); ok {
		*ce = e
		return true
	}
	return false
}
