/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package sourcedriver

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/nethesis/store-verify/internal/document"
	"github.com/nethesis/store-verify/internal/retryutil"
)

// CosmosSQLDriver is the Cosmos DB SQL (Core) API implementation of
// Driver. It uses no Azure Cosmos SDK for Go and instead speaks the
// Cosmos REST resource-token protocol directly: every
// request is signed with an HMAC-SHA256 master-key token, matching the
// query shapes the system's original implementation issued through the
// Python azure-cosmos SDK (SELECT VALUE COUNT(1), SELECT VALUE c.<key>
// WHERE IS_DEFINED(...), SELECT TOP 1 * WHERE c.<key> = @v).
type CosmosSQLDriver struct {
	endpoint   string // e.g. https://account.documents.azure.com:443/
	key        []byte // base64-decoded master key
	database   string
	httpClient *http.Client
	retry      retryutil.Policy
}

// NewCosmosSQLDriver builds a driver against an already-validated
// endpoint and master key. TLS/connection-pool setup on httpClient is a
// transport-layer concern handled before the driver is built.
func NewCosmosSQLDriver(endpoint, masterKey, database string, httpClient *http.Client, retry retryutil.Policy) (*CosmosSQLDriver, error) {
	key, err := base64.StdEncoding.DecodeString(masterKey)
	if err != nil {
		return nil, fmt.Errorf("sourcedriver: cosmos sql: invalid master key encoding: %w", err)
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &CosmosSQLDriver{
		endpoint:   strings.TrimRight(endpoint, "/"),
		key:        key,
		database:   database,
		httpClient: httpClient,
		retry:      retry,
	}, nil
}

type cosmosQueryParam struct {
	Name  string      `json:"name"`
	Value interface{} `json:"value"`
}

type cosmosQueryBody struct {
	Query      string             `json:"query"`
	Parameters []cosmosQueryParam `json:"parameters,omitempty"`
}

type cosmosQueryResponse struct {
	Documents []json.RawMessage `json:"Documents"`
}

func (c *CosmosSQLDriver) ListCollections(ctx context.Context) ([]string, error) {
	return retryutil.Do(ctx, c.retry, func(ctx context.Context) ([]string, error) {
		resLink := fmt.Sprintf("dbs/%s", c.database)
		var body struct {
			DocumentCollections []struct {
				ID string `json:"id"`
			} `json:"DocumentCollections"`
		}
		if err := c.request(ctx, http.MethodGet, "colls", resLink, nil, &body); err != nil {
			return nil, err
		}
		names := make([]string, len(body.DocumentCollections))
		for i, col := range body.DocumentCollections {
			names[i] = col.ID
		}
		sort.Strings(names)
		return names, nil
	})
}

func (c *CosmosSQLDriver) CountDocuments(ctx context.Context, collection string) (int64, error) {
	return retryutil.Do(ctx, c.retry, func(ctx context.Context) (int64, error) {
		docs, err := c.query(ctx, collection, cosmosQueryBody{Query: "SELECT VALUE COUNT(1) FROM c"})
		if err != nil {
			return 0, err
		}
		if len(docs) == 0 {
			return 0, nil
		}
		var n int64
		if err := json.Unmarshal(docs[0], &n); err != nil {
			return 0, fmt.Errorf("sourcedriver: cosmos sql: decoding count: %w", err)
		}
		return n, nil
	})
}

// SampleDocuments always returns ErrUnsupported: Cosmos SQL offers no
// native random-sample operator, forcing the sampling engine onto its
// deterministic key-selection path.
func (c *CosmosSQLDriver) SampleDocuments(ctx context.Context, collection string, n int64) ([]document.Document, error) {
	return nil, ErrUnsupported
}

// SampleDocumentsByBuckets always returns ErrUnsupported: this
// implementation exposes no bucket-filtered query path.
func (c *CosmosSQLDriver) SampleDocumentsByBuckets(ctx context.Context, collection, bucketField string, buckets []int, n int64) ([]document.Document, error) {
	return nil, ErrUnsupported
}

func (c *CosmosSQLDriver) IterBusinessKeys(ctx context.Context, collection, keyPath string) (KeyIterator, error) {
	query := fmt.Sprintf("SELECT VALUE c.%s FROM c WHERE IS_DEFINED(c.%s)", keyPath, keyPath)
	docs, err := retryutil.Do(ctx, c.retry, func(ctx context.Context) ([]json.RawMessage, error) {
		return c.query(ctx, collection, cosmosQueryBody{Query: query})
	})
	if err != nil {
		return nil, err
	}
	return &cosmosKeyIterator{raw: docs}, nil
}

func (c *CosmosSQLDriver) FindByBusinessKey(ctx context.Context, collection, keyPath string, value document.Value) (document.Document, error) {
	return retryutil.Do(ctx, c.retry, func(ctx context.Context) (document.Document, error) {
		query := fmt.Sprintf("SELECT TOP 1 * FROM c WHERE c.%s = @v", keyPath)
		params := []cosmosQueryParam{{Name: "@v", Value: cosmosScalar(value)}}
		docs, err := c.query(ctx, collection, cosmosQueryBody{Query: query, Parameters: params})
		if err != nil {
			return nil, err
		}
		if len(docs) == 0 {
			return nil, nil
		}
		var m bson.M
		if err := json.Unmarshal(docs[0], &m); err != nil {
			return nil, fmt.Errorf("sourcedriver: cosmos sql: decoding document: %w", err)
		}
		return document.FromBSON(m), nil
	})
}

func (c *CosmosSQLDriver) Close(ctx context.Context) error { return nil }

// query executes a cross-partition SQL query against collection and
// returns the raw JSON documents of the result set.
func (c *CosmosSQLDriver) query(ctx context.Context, collection string, body cosmosQueryBody) ([]json.RawMessage, error) {
	resLink := fmt.Sprintf("dbs/%s/colls/%s", c.database, collection)
	var resp cosmosQueryResponse
	if err := c.requestQuery(ctx, resLink, body, &resp); err != nil {
		return nil, err
	}
	return resp.Documents, nil
}

func (c *CosmosSQLDriver) requestQuery(ctx context.Context, resourceLink string, body cosmosQueryBody, out interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("sourcedriver: cosmos sql: encoding query: %w", err)
	}

	url := fmt.Sprintf("%s/%s", c.endpoint, resourceLinkForDocs(resourceLink))
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.sign(req, http.MethodPost, "docs", resourceLink)
	req.Header.Set("Content-Type", "application/query+json")
	req.Header.Set("x-ms-documentdb-isquery", "True")
	req.Header.Set("x-ms-documentdb-query-enablecrosspartition", "True")

	return c.do(req, out)
}

func resourceLinkForDocs(collResourceLink string) string {
	return collResourceLink + "/docs"
}

func (c *CosmosSQLDriver) request(ctx context.Context, method, resourceType, resourceLink string, body interface{}, out interface{}) error {
	var payload []byte
	var err error
	if body != nil {
		payload, err = json.Marshal(body)
		if err != nil {
			return err
		}
	}

	url := fmt.Sprintf("%s/%s", c.endpoint, resourceLink+"/"+resourceType)
	req, err := http.NewRequestWithContext(ctx, method, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	c.sign(req, method, resourceType, resourceLink)
	return c.do(req, out)
}

func (c *CosmosSQLDriver) do(req *http.Request, out interface{}) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sourcedriver: cosmos sql: request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		retryAfter := parseRetryAfter(resp.Header.Get("x-ms-retry-after-ms"))
		return &retryutil.TransientError{Err: fmt.Errorf("cosmos sql: rate limited (429)"), RetryAfter: retryAfter}
	}
	if resp.StatusCode >= 300 {
		return fmt.Errorf("sourcedriver: cosmos sql: unexpected status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func parseRetryAfter(ms string) time.Duration {
	if ms == "" {
		return 0
	}
	var n int64
	if _, err := fmt.Sscanf(ms, "%d", &n); err != nil {
		return 0
	}
	return time.Duration(n) * time.Millisecond
}

// sign computes the Cosmos master-key authorization header, per the
// resource-token protocol: HMAC-SHA256 over
// "{verb}\n{resourceType}\n{resourceLink}\n{date}\n\n" (verb and
// resourceType lowercased, date lowercased), base64-encoded.
func (c *CosmosSQLDriver) sign(req *http.Request, verb, resourceType, resourceLink string) {
	date := time.Now().UTC().Format(http.TimeFormat)
	req.Header.Set("x-ms-date", date)
	req.Header.Set("x-ms-version", "2018-12-31")

	payload := strings.ToLower(verb) + "\n" +
		strings.ToLower(resourceType) + "\n" +
		resourceLink + "\n" +
		strings.ToLower(date) + "\n" +
		"\n"

	mac := hmac.New(sha256.New, c.key)
	mac.Write([]byte(payload))
	signature := base64.StdEncoding.EncodeToString(mac.Sum(nil))

	token := fmt.Sprintf("type=master&ver=1.0&sig=%s", signature)
	req.Header.Set("Authorization", url.QueryEscape(token))
}

// cosmosScalar converts a business-key Value into the JSON scalar a
// Cosmos SQL query parameter expects.
func cosmosScalar(v document.Value) interface{} {
	switch v.Kind {
	case document.KindInt:
		return v.Int
	case document.KindFloat:
		return v.Float
	case document.KindString:
		return v.Str
	case document.KindBool:
		return v.Bool
	default:
		return document.Canonical(v)
	}
}

type cosmosKeyIterator struct {
	raw []json.RawMessage
	pos int
	err error
}

func (it *cosmosKeyIterator) Next(ctx context.Context) (document.Value, bool) {
	if it.pos >= len(it.raw) {
		return document.Null(), false
	}
	var v interface{}
	if err := json.Unmarshal(it.raw[it.pos], &v); err != nil {
		it.err = err
		return document.Null(), false
	}
	it.pos++
	return document.FromAny(v), true
}

func (it *cosmosKeyIterator) Err() error   { return it.err }
func (it *cosmosKeyIterator) Close() error { return nil }
