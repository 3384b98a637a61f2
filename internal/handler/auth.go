// Package handler contains the HTTP handlers for the four endpoints:
// register, login, logout, and fetch-current-user.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/malshee/user-registration/internal/apperror"
	"github.com/malshee/user-registration/internal/auth"
	"github.com/malshee/user-registration/internal/service"
)

// maxUploadBytes caps the in-memory portion of a multipart registration
// form; larger pictures spill to temporary files which are cleaned up when
// the handler returns.
const maxUploadBytes = 10 << 20 // 10 MiB

// AuthHandler serves the registration and authentication endpoints. All
// orchestration lives in the service; the handler parses requests, sets the
// session cookie, and writes responses.
type AuthHandler struct {
	svc    *service.AuthService
	tokens *auth.TokenService
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler with its dependencies injected.
func NewAuthHandler(svc *service.AuthService, tokens *auth.TokenService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		svc:    svc,
		tokens: tokens,
		logger: logger,
	}
}

// HandleRegister creates a new account from a multipart form.
//
// HTTP: POST /register
// Form fields: firstname, lastname, email, phone, password, and one file
// field named "picture".
//
// On success: 201 with the session cookie set and the new user in the body.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		writeError(w, apperror.ValidationFailed("form", "Please submit the form as multipart/form-data."))
		return
	}
	// Remove any temp files the multipart parser spilled to disk, whatever
	// the outcome of the request.
	defer r.MultipartForm.RemoveAll()

	in := service.RegisterInput{
		FirstName: r.FormValue("firstname"),
		LastName:  r.FormValue("lastname"),
		Email:     r.FormValue("email"),
		Phone:     r.FormValue("phone"),
		Password:  r.FormValue("password"),
	}
	if files := r.MultipartForm.File["picture"]; len(files) > 0 {
		in.Picture = files[0]
	}

	res, err := h.svc.Register(r.Context(), in)
	if err != nil {
		h.logger.Warn("registration failed", slog.String("error", err.Error()))
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, res.Token)
	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "User Registered!",
		User:    res.User,
		Token:   res.Token,
	})
}

// HandleLogin verifies credentials and issues a session token.
//
// HTTP: POST /login
// Body: {"email": ..., "password": ...}
//
// Responds 200 on success. (The service this replaces answered 201 here;
// that was an inconsistency nothing depended on, so login uses 200 while
// keeping the exact body shape.)
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var in service.LoginInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeError(w, apperror.ValidationFailed("body", "Please provide email and password!"))
		return
	}

	res, err := h.svc.Login(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}

	h.setSessionCookie(w, res.Token)
	writeJSON(w, http.StatusOK, Response{
		Success: true,
		Message: "User Logged In!",
		User:    res.User,
		Token:   res.Token,
	})
}

// HandleLogout overwrites the session cookie with one that expires
// immediately. There is no server-side revocation list — this is purely a
// client-cookie instruction, and it succeeds regardless of whether the
// caller was authenticated.
//
// HTTP: GET /logout
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now(),
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	writeJSON(w, http.StatusCreated, Response{
		Success: true,
		Message: "Logged Out Successfully.",
	})
}

// HandleMe echoes the authenticated caller's stored record.
//
// HTTP: GET /me
// Auth: required — RequireAuth has already resolved the identity onto the
// request context; this handler performs no verification of its own.
func (h *AuthHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		// Unreachable behind RequireAuth, but don't rely on route wiring.
		http.Error(w, `{"success":false,"message":"User Not Authorized"}`, http.StatusUnauthorized)
		return
	}

	user, err := h.svc.CurrentUser(r.Context(), userID)
	if err != nil {
		h.logger.Error("fetching current user failed",
			slog.String("userID", userID),
			slog.String("error", err.Error()),
		)
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, Response{
		Success: true,
		User:    user,
	})
}

// setSessionCookie stores the signed token in the HttpOnly "token" cookie.
// The cookie lifetime matches the token's expiry.
func (h *AuthHandler) setSessionCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(h.tokens.TTL().Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
