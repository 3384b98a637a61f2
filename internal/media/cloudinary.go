// Package media uploads profile pictures to the external image host and
// returns the durable reference (public ID + delivery URL) stored on the
// user document.
package media

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/rs/xid"

	"github.com/malshee/user-registration/internal/apperror"
)

// allowedTypes is the MIME allow-list for profile pictures. Detection is
// done by sniffing the file content, not by trusting the client-sent header.
var allowedTypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

// Asset is the media host's reference to an uploaded image.
type Asset struct {
	PublicID string `json:"public_id"`
	URL      string `json:"secure_url"`
}

// Uploader sends an image to the external media host.
type Uploader interface {
	Upload(ctx context.Context, file io.ReadSeeker) (*Asset, error)
}

// Config holds the media host credentials, loaded once at startup and passed
// in explicitly — never read from package-level state.
type Config struct {
	CloudName string
	APIKey    string
	APISecret string
	// BaseURL overrides the API endpoint. Empty means the public Cloudinary
	// API; tests point it at an httptest server.
	BaseURL string
}

// CloudinaryClient implements Uploader against the Cloudinary upload API.
//
// One attempt per upload, fail-fast: a transient host failure surfaces as
// ErrUpload and the registration aborts. Nothing is retried.
type CloudinaryClient struct {
	cfg    Config
	client *http.Client
	now    func() time.Time
}

var _ Uploader = (*CloudinaryClient)(nil)

// NewCloudinaryClient creates a client for the configured Cloudinary account.
func NewCloudinaryClient(cfg Config) *CloudinaryClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.cloudinary.com"
	}
	return &CloudinaryClient{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
		now:    time.Now,
	}
}

// Upload validates the file's MIME type against the allow-list and forwards
// it to the host. The file is sniffed from its leading bytes and rewound
// before the request body is built.
//
// Failure modes:
//   - apperror.ErrUnsupportedMedia when the detected type is not allowed
//   - apperror.ErrUpload when the host reports an error or the response has
//     no usable public ID
func (c *CloudinaryClient) Upload(ctx context.Context, file io.ReadSeeker) (*Asset, error) {
	detected, err := mimetype.DetectReader(file)
	if err != nil {
		return nil, fmt.Errorf("media: detecting file type: %w", err)
	}
	if !allowedTypes[detected.String()] {
		return nil, apperror.UnsupportedMedia(detected.String())
	}
	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("media: rewinding file: %w", err)
	}

	body, contentType, err := c.buildRequestBody(file)
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/v1_1/%s/image/upload", c.cfg.BaseURL, c.cfg.CloudName)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, body)
	if err != nil {
		return nil, fmt.Errorf("media: building upload request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("media: calling upload API (%v): %w", err, apperror.UploadFailed())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("media: upload API returned status %d: %w", resp.StatusCode, apperror.UploadFailed())
	}

	var asset Asset
	if err := json.NewDecoder(resp.Body).Decode(&asset); err != nil {
		return nil, fmt.Errorf("media: decoding upload response (%v): %w", err, apperror.UploadFailed())
	}
	if asset.PublicID == "" || asset.URL == "" {
		return nil, fmt.Errorf("media: upload response missing asset reference: %w", apperror.UploadFailed())
	}

	return &asset, nil
}

// buildRequestBody assembles the signed multipart payload the upload API
// expects: the file plus public_id, timestamp, api_key and signature fields.
func (c *CloudinaryClient) buildRequestBody(file io.Reader) (*bytes.Buffer, string, error) {
	publicID := xid.New().String()
	timestamp := strconv.FormatInt(c.now().Unix(), 10)

	buf := &bytes.Buffer{}
	mw := multipart.NewWriter(buf)

	fields := map[string]string{
		"public_id": publicID,
		"timestamp": timestamp,
		"api_key":   c.cfg.APIKey,
		"signature": c.sign(publicID, timestamp),
	}
	for name, value := range fields {
		if err := mw.WriteField(name, value); err != nil {
			return nil, "", fmt.Errorf("media: writing form field %s: %w", name, err)
		}
	}

	part, err := mw.CreateFormFile("file", publicID)
	if err != nil {
		return nil, "", fmt.Errorf("media: creating form file: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, "", fmt.Errorf("media: copying file into request: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, "", fmt.Errorf("media: finalizing request body: %w", err)
	}

	return buf, mw.FormDataContentType(), nil
}

// sign produces the API signature: SHA-1 over the sorted parameter string
// concatenated with the API secret, hex encoded.
func (c *CloudinaryClient) sign(publicID, timestamp string) string {
	payload := fmt.Sprintf("public_id=%s&timestamp=%s%s", publicID, timestamp, c.cfg.APISecret)
	sum := sha1.Sum([]byte(payload))
	return hex.EncodeToString(sum[:])
}
