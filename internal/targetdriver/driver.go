/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

// Package targetdriver defines the narrower read-only capability set
// the compare orchestrator drives against a target document store.
package targetdriver

import (
	"context"

	"github.com/nethesis/store-verify/internal/document"
)

// Driver is the read-only capability set over one target collection.
type Driver interface {
	// CountDocuments returns the total document count for collection.
	CountDocuments(ctx context.Context, collection string) (int64, error)

	// FindByBusinessKey returns the document whose keyPath field equals
	// value, or (nil, nil) if none exists.
	FindByBusinessKey(ctx context.Context, collection, keyPath string, value document.Value) (document.Document, error)

	// Close releases any held resources. Safe to call more than once.
	Close(ctx context.Context) error
}
