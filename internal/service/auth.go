// Package service holds the business logic between the HTTP handlers and
// the repository, media, and auth packages.
package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime/multipart"
	"net/mail"
	"strconv"
	"strings"

	"github.com/malshee/user-registration/internal/apperror"
	"github.com/malshee/user-registration/internal/auth"
	"github.com/malshee/user-registration/internal/media"
	"github.com/malshee/user-registration/internal/model"
	"github.com/malshee/user-registration/internal/repository"
)

// AuthService implements registration, login, and current-user lookup.
//
// Dependencies are injected at construction; the service knows nothing about
// HTTP. Handlers translate requests into the input structs below and map
// returned errors to status codes.
type AuthService struct {
	users     repository.UserRepository
	uploader  media.Uploader
	tokens    *auth.TokenService
	passwords *auth.PasswordService
	logger    *slog.Logger
}

// NewAuthService creates an AuthService with all required dependencies.
func NewAuthService(
	users repository.UserRepository,
	uploader media.Uploader,
	tokens *auth.TokenService,
	passwords *auth.PasswordService,
	logger *slog.Logger,
) *AuthService {
	return &AuthService{
		users:     users,
		uploader:  uploader,
		tokens:    tokens,
		passwords: passwords,
		logger:    logger,
	}
}

// AuthResult bundles the user record and the issued session token so the
// handler can set the cookie and write the body in one step.
type AuthResult struct {
	User  *model.User
	Token string
}

// RegisterInput carries the parsed multipart registration form. Phone
// arrives as the raw form value and is validated here.
type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
	Picture   *multipart.FileHeader
}

// Register creates a new account.
//
// The flow is strictly sequential and fail-fast: validate the text fields,
// upload the picture (the adapter rejects disallowed MIME types before
// calling out), check email uniqueness, hash the password, insert the
// document, issue the session token. A failure at any step aborts the rest.
// An already-uploaded picture is not deleted when a later step fails — the
// asset may be orphaned on the media host.
//
// Password hashing happens exactly once, here on the create path. There is
// no update operation in this surface, so a stored digest is never rehashed.
func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	phone, err := validateRegisterInput(in)
	if err != nil {
		return nil, err
	}

	file, err := in.Picture.Open()
	if err != nil {
		return nil, fmt.Errorf("service/auth: opening uploaded picture: %w", err)
	}
	defer file.Close()

	asset, err := s.uploader.Upload(ctx, file)
	if err != nil {
		return nil, fmt.Errorf("service/auth: uploading picture: %w", err)
	}

	// Pre-check email uniqueness for a cleaner message; the unique indexes
	// remain authoritative and still catch races and phone collisions at
	// insert time.
	_, err = s.users.FindByEmail(ctx, in.Email)
	if err == nil {
		return nil, apperror.Duplicate("Email already registered!")
	}
	if !errors.Is(err, apperror.ErrNotFound) {
		return nil, fmt.Errorf("service/auth: checking email uniqueness: %w", err)
	}

	digest, err := s.passwords.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}

	user := &model.User{
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     phone,
		Password:  digest,
		Picture: model.Picture{
			PublicID: asset.PublicID,
			URL:      asset.URL,
		},
	}

	if err := s.users.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("service/auth: creating user: %w", err)
	}

	s.logger.Info("user registered",
		slog.String("userID", user.ID.Hex()),
		slog.String("email", user.Email),
	)

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID.Hex(), err)
	}

	user.Password = ""
	return &AuthResult{User: user, Token: token}, nil
}

// LoginInput carries the JSON login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login verifies credentials and issues a session token.
//
// An unknown email and a wrong password both return the same
// apperror.InvalidCredentials value, so the two cases are indistinguishable
// in the response.
func (s *AuthService) Login(ctx context.Context, in LoginInput) (*AuthResult, error) {
	if in.Email == "" || in.Password == "" {
		return nil, apperror.ValidationFailed("form", "Please provide email and password!")
	}

	user, err := s.users.FindByEmailWithPassword(ctx, in.Email)
	if err != nil {
		if errors.Is(err, apperror.ErrNotFound) {
			return nil, apperror.InvalidCredentials()
		}
		return nil, fmt.Errorf("service/auth: looking up user: %w", err)
	}

	match, err := s.passwords.Compare(in.Password, user.Password)
	if err != nil {
		return nil, fmt.Errorf("service/auth: %w", err)
	}
	if !match {
		return nil, apperror.InvalidCredentials()
	}

	token, err := s.tokens.Issue(user.ID.Hex())
	if err != nil {
		return nil, fmt.Errorf("service/auth: issuing token for user %s: %w", user.ID.Hex(), err)
	}

	s.logger.Info("user logged in", slog.String("userID", user.ID.Hex()))

	user.Password = ""
	return &AuthResult{User: user, Token: token}, nil
}

// CurrentUser returns the stored record for an already-authenticated
// identity. The ID is an explicit parameter — resolving it from the session
// cookie is the middleware's job, not this layer's.
func (s *AuthService) CurrentUser(ctx context.Context, id string) (*model.User, error) {
	if id == "" {
		return nil, fmt.Errorf("service/auth: user ID must not be empty")
	}

	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("service/auth: fetching user %s: %w", id, err)
	}

	return user, nil
}

// validateRegisterInput checks presence and shape of the registration form
// fields and returns the parsed phone number.
func validateRegisterInput(in RegisterInput) (int64, error) {
	if in.FirstName == "" || in.LastName == "" || in.Email == "" || in.Phone == "" || in.Password == "" {
		return 0, apperror.ValidationFailed("form", "Please fill full form!")
	}
	if in.Picture == nil {
		return 0, apperror.ValidationFailed("picture", "Please upload a profile picture!")
	}

	for _, name := range []struct{ field, value string }{
		{"firstname", in.FirstName},
		{"lastname", in.LastName},
	} {
		if n := len([]rune(name.value)); n < 3 {
			return 0, apperror.ValidationFailed(name.field, "Name must contain at least 3 Characters!")
		} else if n > 30 {
			return 0, apperror.ValidationFailed(name.field, "Name cannot exceed 30 Characters!")
		}
	}

	if addr, err := mail.ParseAddress(in.Email); err != nil || addr.Address != in.Email {
		return 0, apperror.ValidationFailed("email", "Please provide a valid Email!")
	}

	phone, err := strconv.ParseInt(strings.TrimSpace(in.Phone), 10, 64)
	if err != nil || phone <= 0 {
		return 0, apperror.ValidationFailed("phone", "Please enter a valid Phone Number!")
	}

	if n := len(in.Password); n < 8 {
		return 0, apperror.ValidationFailed("password", "Password must contain at least 8 characters!")
	} else if n > 32 {
		return 0, apperror.ValidationFailed("password", "Password cannot exceed 32 characters!")
	}

	return phone, nil
}
