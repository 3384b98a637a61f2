// Package model defines the data structures used throughout the application.
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Picture references an image stored on the external media host. Only the
// host's public identifier and delivery URL are kept — no local copy of the
// binary is retained.
type Picture struct {
	PublicID string `bson:"public_id" json:"public_id"`
	URL      string `bson:"url"       json:"url"`
}

// User represents a registered account.
//
// Documents live in the "users" collection with unique indexes on email and
// phone. Password holds the bcrypt digest, never the plaintext; it is
// excluded from JSON output and omitted from repository reads unless the
// caller asks for it explicitly (login needs it for comparison).
//
// Phone is numeric: the registration form accepts digits only, matching the
// shape of the documents the collection was originally populated with.
type User struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"      json:"id"`
	FirstName string             `bson:"firstname"          json:"firstname"`
	LastName  string             `bson:"lastname"           json:"lastname"`
	Email     string             `bson:"email"              json:"email"`
	Phone     int64              `bson:"phone"              json:"phone"`
	Password  string             `bson:"password,omitempty" json:"-"`
	Picture   Picture            `bson:"picture"            json:"picture"`
	CreatedAt time.Time          `bson:"created_at"         json:"created_at"`
}
