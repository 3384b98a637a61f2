// Package mongodb implements the repository interfaces on MongoDB.
//
// The database connection is established once at process start (connection
// bootstrap): connect, ping, and ensure the unique indexes that back the
// email/phone invariants. After that the *DB value is just a handle the
// repositories query through; uniqueness and durability are delegated to the
// server's own concurrency control.
package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const usersCollection = "users"

// DB wraps the mongo client and database handle and provides the repository
// methods.
type DB struct {
	client *mongo.Client
	users  *mongo.Collection
}

// New connects to MongoDB, verifies the connection, and ensures indexes.
//
// uri is the full connection string; dbName selects the database. The
// initial connect and ping are bounded by a 10 second timeout so a bad URI
// fails at startup instead of on the first request.
func New(ctx context.Context, uri, dbName string) (*DB, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb: connecting: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: pinging: %w", err)
	}

	db := &DB{
		client: client,
		users:  client.Database(dbName).Collection(usersCollection),
	}

	if err := db.ensureIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb: ensuring indexes: %w", err)
	}

	return db, nil
}

// Close disconnects the client, flushing any buffered writes.
func (db *DB) Close(ctx context.Context) error {
	return db.client.Disconnect(ctx)
}

// ensureIndexes creates the unique indexes on email and phone. CreateMany is
// idempotent — existing identical indexes are left alone — so this is safe
// to run on every startup.
func (db *DB) ensureIndexes(ctx context.Context) error {
	_, err := db.users.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "phone", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	})
	if err != nil {
		return fmt.Errorf("creating user indexes: %w", err)
	}
	return nil
}
