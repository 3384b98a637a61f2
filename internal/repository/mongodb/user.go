package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/malshee/user-registration/internal/apperror"
	"github.com/malshee/user-registration/internal/model"
	"github.com/malshee/user-registration/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

// Create inserts a new user document. The caller passes the password already
// hashed — this layer never sees plaintext. ID and CreatedAt are assigned
// here and reflected back into the caller's struct.
//
// A unique-index violation on email or phone comes back from the server as a
// duplicate-key write error, which we translate to apperror.ErrDuplicate with
// a generic message that does not confirm which field collided.
func (db *DB) Create(ctx context.Context, user *model.User) error {
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now().UTC()

	_, err := db.users.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return apperror.Duplicate("Email or phone already registered!")
		}
		return fmt.Errorf("mongodb: inserting user: %w", err)
	}

	return nil
}

// FindByEmail retrieves a user by email with the password digest omitted
// from the projection. Returns apperror.ErrNotFound if no document matches.
func (db *DB) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return db.findByEmail(ctx, email, false)
}

// FindByEmailWithPassword retrieves a user by email including the password
// digest. Only the login path calls this.
func (db *DB) FindByEmailWithPassword(ctx context.Context, email string) (*model.User, error) {
	return db.findByEmail(ctx, email, true)
}

func (db *DB) findByEmail(ctx context.Context, email string, withPassword bool) (*model.User, error) {
	opts := options.FindOne()
	if !withPassword {
		opts.SetProjection(bson.D{{Key: "password", Value: 0}})
	}

	var u model.User
	err := db.users.FindOne(ctx, bson.D{{Key: "email", Value: email}}, opts).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("mongodb: finding user by email: %w", err)
	}

	return &u, nil
}

// FindByID retrieves a user by their document ID, password omitted.
func (db *DB) FindByID(ctx context.Context, id string) (*model.User, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, apperror.NotFound("user", id)
	}

	opts := options.FindOne().SetProjection(bson.D{{Key: "password", Value: 0}})

	var u model.User
	err = db.users.FindOne(ctx, bson.D{{Key: "_id", Value: oid}}, opts).Decode(&u)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("mongodb: finding user by id: %w", err)
	}

	return &u, nil
}
