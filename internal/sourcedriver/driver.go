/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

// Package sourcedriver defines the read-only capability set the
// sampling and compare engines drive against a source document store,
// and provides concrete implementations (MongoDB, Cosmos DB SQL API).
package sourcedriver

import (
	"context"
	"errors"

	"github.com/nethesis/store-verify/internal/document"
)

// ErrUnsupported is returned by Driver.SampleDocuments and
// Driver.SampleDocumentsByBuckets when the backend offers no native
// operator for the requested operation. Callers demote to the
// deterministic sampling strategy on this error rather than failing
// the run.
var ErrUnsupported = errors.New("sourcedriver: operation not supported by this backend")

// KeyIterator yields business-key values lazily. Values are returned in
// no particular order; Next returns false once the stream is exhausted
// or an error occurred (retrievable via Err).
type KeyIterator interface {
	Next(ctx context.Context) (document.Value, bool)
	Err() error
	Close() error
}

// Driver is the read-only capability set over one source collection.
// Implementations MUST retry their own transient rate-limit errors
// internally (see internal/retryutil) before surfacing a failure.
type Driver interface {
	// ListCollections returns every collection name, sorted ascending.
	ListCollections(ctx context.Context) ([]string, error)

	// CountDocuments returns the total document count for collection.
	CountDocuments(ctx context.Context, collection string) (int64, error)

	// SampleDocuments returns up to n documents in unspecified order.
	// Returns ErrUnsupported if the backend has no native sampler.
	SampleDocuments(ctx context.Context, collection string, n int64) ([]document.Document, error)

	// SampleDocumentsByBuckets returns up to n documents whose value at
	// bucketField is one of buckets. Returns ErrUnsupported if the
	// backend has no bucket-filtered sampler.
	SampleDocumentsByBuckets(ctx context.Context, collection, bucketField string, buckets []int, n int64) ([]document.Document, error)

	// IterBusinessKeys streams the values at keyPath for every document
	// in collection, skipping documents where the field is undefined.
	IterBusinessKeys(ctx context.Context, collection, keyPath string) (KeyIterator, error)

	// FindByBusinessKey returns the document whose keyPath field equals
	// value, or (nil, nil) if none exists.
	FindByBusinessKey(ctx context.Context, collection, keyPath string, value document.Value) (document.Document, error)

	// Close releases any held resources. MUST be safe to call after a
	// partially-failed Connect and safe to call more than once.
	Close(ctx context.Context) error
}
