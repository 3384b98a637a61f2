// Package repository declares the storage interfaces the service layer
// depends on. Concrete implementations live in subpackages.
package repository

import (
	"context"

	"github.com/malshee/user-registration/internal/model"
)

// UserRepository is the persistence contract for user documents.
//
// FindByEmail and FindByID omit the password digest; login uses
// FindByEmailWithPassword to read it explicitly. All lookups return
// apperror.ErrNotFound when no document matches.
type UserRepository interface {
	// Create persists a new user. Email and phone collisions surface as
	// apperror.ErrDuplicate; the store's unique indexes are the source of
	// truth for uniqueness. The document's ID and CreatedAt are populated
	// on return.
	Create(ctx context.Context, user *model.User) error
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	FindByEmailWithPassword(ctx context.Context, email string) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
}
