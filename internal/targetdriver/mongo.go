/*
 * Copyright (C) 2025 Nethesis S.r.l.
 * http://www.nethesis.it - info@nethesis.it
 *
 * SPDX-License-Identifier: AGPL-3.0-or-later
 */

package targetdriver

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"

	"github.com/nethesis/store-verify/internal/document"
	"github.com/nethesis/store-verify/internal/logger"
	"github.com/nethesis/store-verify/internal/retryutil"
)

// MongoDriver is the MongoDB implementation of targetdriver.Driver.
type MongoDriver struct {
	client   *mongo.Client
	database *mongo.Database
	retry    retryutil.Policy
}

// Preflight resolves and TCP-dials the hosts embedded in uri before a
// client is ever constructed, logging each step. It never fails the
// caller — preflight is diagnostic only, surfaced ahead of a later
// connection failure to narrow down DNS/firewall/VPN problems quickly.
func Preflight(ctx context.Context, uri string, connectTimeout time.Duration, log zerolog.Logger) {
	log = logger.Component(log, "targetdriver")

	if connectTimeout <= 0 {
		connectTimeout = 5 * time.Second
	}

	hosts := parseHosts(uri)
	if len(hosts) == 0 {
		log.Warn().Msg("target mongodb preflight found no host:port nodes in URI")
		return
	}

	log.Info().Strs("nodes", hosts).Dur("timeout", connectTimeout).Msg("target mongodb preflight starting")
	for _, hostport := range hosts {
		host, port, err := net.SplitHostPort(hostport)
		if err != nil {
			host, port = hostport, "27017"
		}

		addrs, err := net.DefaultResolver.LookupHost(ctx, host)
		if err != nil {
			log.Warn().Err(err).Str("node", hostport).Msg("preflight DNS lookup failed")
			continue
		}
		log.Info().Str("node", hostport).Strs("addresses", addrs).Msg("preflight DNS resolved")

		started := time.Now()
		conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, port), connectTimeout)
		elapsed := time.Since(started)
		if err != nil {
			log.Warn().Err(err).Str("node", hostport).Dur("elapsed", elapsed).Msg("preflight TCP connect failed")
			continue
		}
		conn.Close()
		log.Info().Str("node", hostport).Dur("elapsed", elapsed).Msg("preflight TCP connect succeeded")
	}
}

// parseHosts extracts the host:port pairs from a mongodb:// or
// mongodb+srv:// connection string's authority component.
func parseHosts(uri string) []string {
	u, err := url.Parse(uri)
	if err != nil || u.Host == "" {
		return nil
	}
	return strings.Split(u.Host, ",")
}

// NewMongoDriver wraps an already-connected client and verifies it with
// a ping, translating common failure classes into actionable guidance
// before returning. Client construction (URI parsing, TLS, connection
// pooling) is a transport-layer concern handled before the driver is
// built.
func NewMongoDriver(ctx context.Context, client *mongo.Client, database string, retry retryutil.Policy, log zerolog.Logger) (*MongoDriver, error) {
	log = logger.Component(log, "targetdriver")
	log.Info().Str("database", database).Msg("running target mongodb ping")
	if err := client.Ping(ctx, nil); err != nil {
		return nil, explainPingFailure(err)
	}
	log.Info().Str("database", database).Msg("target mongodb ping succeeded")

	return &MongoDriver{client: client, database: client.Database(database), retry: retry}, nil
}

func explainPingFailure(err error) error {
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) {
		return fmt.Errorf(
			"unable to connect to target mongodb (timed out or unreachable): check MONGODB_URI and "+
				"network access (VPN/firewall/IP allowlist): %w", err)
	}
	var cmdErr mongo.CommandError
	if asCommandError(err, &cmdErr) {
		return fmt.Errorf(
			"connected to target mongodb, but authentication/authorization failed: check username/password, "+
				"authSource, and user permissions in MONGODB_URI: %w", err)
	}
	return fmt.Errorf("target mongodb ping failed: %w", err)
}

func asCommandError(err error, ce *mongo.CommandError) bool {
	if e, ok := err.(mongo.CommandError); ok {
		*ce = e
		return true
	}
	return false
}

func (m *MongoDriver) CountDocuments(ctx context.Context, collection string) (int64, error) {
	return retryutil.Do(ctx, m.retry, func(ctx context.Context) (int64, error) {
		n, err := m.database.Collection(collection).CountDocuments(ctx, bson.M{})
		if err != nil {
			return 0, fmt.Errorf("targetdriver: mongo: %w", err)
		}
		return n, nil
	})
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
			return nil, fmt.Errorf("targetdriver: mongo: %w", err)
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
