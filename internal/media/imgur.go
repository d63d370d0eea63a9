package media

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"example.com/engagefeed/internal/logger"
)

var logg = logger.New()

const imgurUploadURL = "https://api.imgur.com/3/upload"

// Uploader accepts an image byte stream and returns a public URL.
type Uploader interface {
	Upload(r io.Reader, contentType string) (string, error)
}

// ImgurUploader ships images to the Imgur API.
type ImgurUploader struct {
	client   *http.Client
	clientID string
}

func NewImgurUploader(clientID string) *ImgurUploader {
	return &ImgurUploader{
		client:   &http.Client{Timeout: 30 * time.Second},
		clientID: clientID,
	}
}

// Upload posts the image as base64 multipart form data and returns the link
// Imgur assigns.
func (u *ImgurUploader) Upload(r io.Reader, contentType string) (string, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	if err := form.WriteField("image", base64.StdEncoding.EncodeToString(raw)); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}
	if err := form.Close(); err != nil {
		return "", fmt.Errorf("build upload form: %w", err)
	}

	req, err := http.NewRequest(http.MethodPost, imgurUploadURL, &body)
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Authorization", "Client-ID "+u.clientID)
	req.Header.Set("Content-Type", form.FormDataContentType())

	resp, err := u.client.Do(req)
	if err != nil {
		logg.Error("media", "Imgur upload request failed", err)
		return "", fmt.Errorf("upload image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("upload image: imgur returned %s", resp.Status)
	}

	var parsed struct {
		Data struct {
			Link string `json:"link"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("parse imgur response: %w", err)
	}

	logg.Info("media", "Image uploaded to Imgur")
	return parsed.Data.Link, nil
}

// MockUploader returns a canned URL for tests.
type MockUploader struct {
	URL        string
	ShouldFail bool
	Uploads    int
}

func (m *MockUploader) Upload(r io.Reader, contentType string) (string, error) {
	if m.ShouldFail {
		return "", fmt.Errorf("mock uploader failed")
	}
	if _, err := io.Copy(io.Discard, r); err != nil {
		return "", err
	}
	m.Uploads++
	if m.URL == "" {
		return "https://example.com/image.jpg", nil
	}
	return m.URL, nil
}
