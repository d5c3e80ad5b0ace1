package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"textdocs/internal/config"
)

// NewMongo connects to MongoDB and returns the configured document collection.
// The caller owns the returned client and must Disconnect it on shutdown.
func NewMongo(ctx context.Context, c config.MongoConfig) (*mongo.Client, *mongo.Collection, error) {
	if c.URI == "" {
		return nil, nil, fmt.Errorf("invalid mongo config: uri is required")
	}
	if c.Database == "" || c.Collection == "" {
		return nil, nil, fmt.Errorf("invalid mongo config: database and collection are required")
	}

	timeout := time.Duration(c.ConnectTimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	opts := options.Client().
		ApplyURI(c.URI).
		SetServerSelectionTimeout(timeout).
		SetConnectTimeout(timeout).
		SetReadPreference(readpref.Primary())
	if c.MaxPoolSize > 0 {
		opts.SetMaxPoolSize(c.MaxPoolSize)
	}

	connectCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(connectCtx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("mongo ping: %w", err)
	}

	return client, client.Database(c.Database).Collection(c.Collection), nil
}
