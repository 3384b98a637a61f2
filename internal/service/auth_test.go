package service

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime/multipart"
	"strings"
	"testing"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"github.com/malshee/user-registration/internal/apperror"
	"github.com/malshee/user-registration/internal/auth"
	"github.com/malshee/user-registration/internal/media"
	"github.com/malshee/user-registration/internal/model"
)

// fakeUserRepo is an in-memory implementation of repository.UserRepository.
// A fake (not a mock framework) keeps the tests dependency-free and easy to
// read. It enforces the same uniqueness rules the mongo indexes do.
type fakeUserRepo struct {
	byID    map[string]*model.User
	byEmail map[string]*model.User
	byPhone map[int64]*model.User
	// set to a non-nil error to simulate a store failure
	createErr error
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{
		byID:    make(map[string]*model.User),
		byEmail: make(map[string]*model.User),
		byPhone: make(map[int64]*model.User),
	}
}

func (f *fakeUserRepo) Create(ctx context.Context, user *model.User) error {
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.byEmail[user.Email]; ok {
		return apperror.Duplicate("Email or phone already registered!")
	}
	if _, ok := f.byPhone[user.Phone]; ok {
		return apperror.Duplicate("Email or phone already registered!")
	}
	user.ID = primitive.NewObjectID()
	user.CreatedAt = time.Now().UTC()

	copied := *user
	f.byID[copied.ID.Hex()] = &copied
	f.byEmail[copied.Email] = &copied
	f.byPhone[copied.Phone] = &copied
	return nil
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	copied := *u
	copied.Password = ""
	return &copied, nil
}

func (f *fakeUserRepo) FindByEmailWithPassword(ctx context.Context, email string) (*model.User, error) {
	u, ok := f.byEmail[email]
	if !ok {
		return nil, apperror.NotFound("user", email)
	}
	copied := *u
	return &copied, nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id string) (*model.User, error) {
	u, ok := f.byID[id]
	if !ok {
		return nil, apperror.NotFound("user", id)
	}
	copied := *u
	copied.Password = ""
	return &copied, nil
}

func (f *fakeUserRepo) count() int {
	return len(f.byID)
}

// fakeUploader records calls and returns a fixed asset or error.
type fakeUploader struct {
	asset *media.Asset
	err   error
	calls int
}

func (f *fakeUploader) Upload(ctx context.Context, file io.ReadSeeker) (*media.Asset, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.asset, nil
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{
		asset: &media.Asset{
			PublicID: "uploads/test123",
			URL:      "https://res.example.com/uploads/test123.png",
		},
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuthService(t *testing.T, repo *fakeUserRepo, up *fakeUploader) *AuthService {
	t.Helper()
	tokens, err := auth.NewTokenService("test-secret-at-least-16-chars!!", 0)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	passwords := auth.NewPasswordServiceWithCost(bcrypt.MinCost)
	return NewAuthService(repo, up, tokens, passwords, testLogger())
}

// pictureFileHeader builds a *multipart.FileHeader the way the HTTP layer
// would, by writing and re-parsing a multipart form.
func pictureFileHeader(t *testing.T, content []byte) *multipart.FileHeader {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("picture", "avatar.png")
	if err != nil {
		t.Fatalf("CreateFormFile: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		t.Fatalf("writing picture content: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing multipart writer: %v", err)
	}

	form, err := multipart.NewReader(&buf, mw.Boundary()).ReadForm(1 << 20)
	if err != nil {
		t.Fatalf("ReadForm: %v", err)
	}
	t.Cleanup(func() { form.RemoveAll() })

	return form.File["picture"][0]
}

var pngBytes = []byte{0x89, 'P', 'N', 'G', 0x0D, 0x0A, 0x1A, 0x0A, 0, 0, 0, 0}

func validInput(t *testing.T) RegisterInput {
	return RegisterInput{
		FirstName: "Jane",
		LastName:  "Doe",
		Email:     "jane@x.com",
		Phone:     "1234567890",
		Password:  "secret12",
		Picture:   pictureFileHeader(t, pngBytes),
	}
}

func TestRegister_Success(t *testing.T) {
	repo := newFakeUserRepo()
	up := newFakeUploader()
	svc := newTestAuthService(t, repo, up)

	res, err := svc.Register(context.Background(), validInput(t))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	if res.Token == "" {
		t.Error("Register() returned empty token")
	}
	if res.User.ID.IsZero() {
		t.Error("Register() user has no ID")
	}
	if res.User.Password != "" {
		t.Error("Register() result must not carry the password digest")
	}
	if res.User.Picture.PublicID != "uploads/test123" {
		t.Errorf("Picture.PublicID = %q, want %q", res.User.Picture.PublicID, "uploads/test123")
	}
	if up.calls != 1 {
		t.Errorf("uploader called %d times, want 1", up.calls)
	}

	// The stored digest must never equal the submitted plaintext, and must
	// verify against it.
	stored := repo.byEmail["jane@x.com"]
	if stored.Password == "secret12" {
		t.Error("stored password equals the plaintext")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(stored.Password), []byte("secret12")); err != nil {
		t.Errorf("stored digest does not verify against the plaintext: %v", err)
	}
}

func TestRegister_MissingFields(t *testing.T) {
	repo := newFakeUserRepo()
	up := newFakeUploader()
	svc := newTestAuthService(t, repo, up)

	in := validInput(t)
	in.Email = ""

	_, err := svc.Register(context.Background(), in)
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Register() error = %v, want ErrValidation", err)
	}
	if got := err.Error(); got != "Please fill full form!" {
		t.Errorf("message = %q, want %q", got, "Please fill full form!")
	}
	if up.calls != 0 {
		t.Error("uploader must not be called when validation fails")
	}
}

func TestRegister_FieldValidation(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*RegisterInput)
	}{
		{"firstname too short", func(in *RegisterInput) { in.FirstName = "Jo" }},
		{"lastname too long", func(in *RegisterInput) { in.LastName = strings.Repeat("a", 31) }},
		{"malformed email", func(in *RegisterInput) { in.Email = "not-an-email" }},
		{"non-numeric phone", func(in *RegisterInput) { in.Phone = "07x1234567" }},
		{"password too short", func(in *RegisterInput) { in.Password = "short" }},
		{"password too long", func(in *RegisterInput) { in.Password = strings.Repeat("p", 33) }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo := newFakeUserRepo()
			up := newFakeUploader()
			svc := newTestAuthService(t, repo, up)

			in := validInput(t)
			tc.mutate(&in)

			_, err := svc.Register(context.Background(), in)
			if !errors.Is(err, apperror.ErrValidation) {
				t.Fatalf("Register() error = %v, want ErrValidation", err)
			}
			if repo.count() != 0 {
				t.Error("no document may be persisted on validation failure")
			}
			if up.calls != 0 {
				t.Error("uploader must not be called on validation failure")
			}
		})
	}
}

func TestRegister_DuplicateEmail(t *testing.T) {
	repo := newFakeUserRepo()
	up := newFakeUploader()
	svc := newTestAuthService(t, repo, up)

	if _, err := svc.Register(context.Background(), validInput(t)); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	// Identical registration immediately after: rejected, no new document.
	_, err := svc.Register(context.Background(), validInput(t))
	if !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("second Register() error = %v, want ErrDuplicate", err)
	}
	if repo.count() != 1 {
		t.Errorf("store holds %d documents after duplicate attempt, want 1", repo.count())
	}
}

func TestRegister_DuplicatePhone(t *testing.T) {
	repo := newFakeUserRepo()
	up := newFakeUploader()
	svc := newTestAuthService(t, repo, up)

	if _, err := svc.Register(context.Background(), validInput(t)); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}

	// Different email, same phone: the store's phone index rejects it.
	in := validInput(t)
	in.Email = "jane2@x.com"

	_, err := svc.Register(context.Background(), in)
	if !errors.Is(err, apperror.ErrDuplicate) {
		t.Fatalf("Register() error = %v, want ErrDuplicate", err)
	}
	if repo.count() != 1 {
		t.Errorf("store holds %d documents after duplicate attempt, want 1", repo.count())
	}
}

func TestRegister_UnsupportedPicture(t *testing.T) {
	repo := newFakeUserRepo()
	up := &fakeUploader{err: apperror.UnsupportedMedia("image/gif")}
	svc := newTestAuthService(t, repo, up)

	_, err := svc.Register(context.Background(), validInput(t))
	if !errors.Is(err, apperror.ErrUnsupportedMedia) {
		t.Fatalf("Register() error = %v, want ErrUnsupportedMedia", err)
	}

	// A rejected file type must never reach the store-creation step.
	if repo.count() != 0 {
		t.Error("no document may be persisted when the picture type is rejected")
	}
}

func TestRegister_UploadFailure(t *testing.T) {
	repo := newFakeUserRepo()
	up := &fakeUploader{err: apperror.UploadFailed()}
	svc := newTestAuthService(t, repo, up)

	_, err := svc.Register(context.Background(), validInput(t))
	if !errors.Is(err, apperror.ErrUpload) {
		t.Fatalf("Register() error = %v, want ErrUpload", err)
	}
	if repo.count() != 0 {
		t.Error("no document may be persisted when the upload fails")
	}
}

func TestRegister_StoreFailure(t *testing.T) {
	repo := newFakeUserRepo()
	repo.createErr = errors.New("connection reset")
	svc := newTestAuthService(t, repo, newFakeUploader())

	_, err := svc.Register(context.Background(), validInput(t))
	if err == nil {
		t.Fatal("Register() should surface a store failure")
	}
	// Store failures are not user errors and must not map to the 400-class
	// sentinels.
	if errors.Is(err, apperror.ErrValidation) || errors.Is(err, apperror.ErrDuplicate) {
		t.Errorf("store failure mapped to a user-facing sentinel: %v", err)
	}
}

func TestLogin_Success(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, newFakeUploader())

	if _, err := svc.Register(context.Background(), validInput(t)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	res, err := svc.Login(context.Background(), LoginInput{
		Email:    "jane@x.com",
		Password: "secret12",
	})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if res.Token == "" {
		t.Error("Login() returned empty token")
	}
	if res.User.Email != "jane@x.com" {
		t.Errorf("user email = %q, want %q", res.User.Email, "jane@x.com")
	}
	if res.User.Password != "" {
		t.Error("Login() result must not carry the password digest")
	}
}

func TestLogin_UniformFailureMessage(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, newFakeUploader())

	if _, err := svc.Register(context.Background(), validInput(t)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	_, unknownErr := svc.Login(context.Background(), LoginInput{
		Email:    "nobody@x.com",
		Password: "secret12",
	})
	_, wrongErr := svc.Login(context.Background(), LoginInput{
		Email:    "jane@x.com",
		Password: "wrongpass",
	})

	if !errors.Is(unknownErr, apperror.ErrAuth) {
		t.Fatalf("unknown email error = %v, want ErrAuth", unknownErr)
	}
	if !errors.Is(wrongErr, apperror.ErrAuth) {
		t.Fatalf("wrong password error = %v, want ErrAuth", wrongErr)
	}

	// The two failures must be indistinguishable to the caller.
	if unknownErr.Error() != wrongErr.Error() {
		t.Errorf("failure messages differ: %q vs %q", unknownErr.Error(), wrongErr.Error())
	}
	if unknownErr.Error() != "Invalid Email Or Password." {
		t.Errorf("message = %q, want %q", unknownErr.Error(), "Invalid Email Or Password.")
	}
}

func TestLogin_MissingFields(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), newFakeUploader())

	_, err := svc.Login(context.Background(), LoginInput{Email: "jane@x.com"})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Fatalf("Login() error = %v, want ErrValidation", err)
	}
}

func TestCurrentUser(t *testing.T) {
	repo := newFakeUserRepo()
	svc := newTestAuthService(t, repo, newFakeUploader())

	res, err := svc.Register(context.Background(), validInput(t))
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	user, err := svc.CurrentUser(context.Background(), res.User.ID.Hex())
	if err != nil {
		t.Fatalf("CurrentUser() error = %v", err)
	}
	if user.Email != "jane@x.com" {
		t.Errorf("user email = %q, want %q", user.Email, "jane@x.com")
	}
	if user.Password != "" {
		t.Error("CurrentUser() must not include the password digest")
	}
}

func TestCurrentUser_NotFound(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), newFakeUploader())

	_, err := svc.CurrentUser(context.Background(), primitive.NewObjectID().Hex())
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Fatalf("CurrentUser() error = %v, want ErrNotFound", err)
	}
}

func TestCurrentUser_EmptyID(t *testing.T) {
	svc := newTestAuthService(t, newFakeUserRepo(), newFakeUploader())

	if _, err := svc.CurrentUser(context.Background(), ""); err == nil {
		t.Fatal("CurrentUser() should reject an empty ID")
	}
}
