package upload

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const absTokenEnv = "ABS_TOKEN"

// Audiobookshelf uploads audio files into an Audiobookshelf library
// folder via its upload API.
type Audiobookshelf struct {
	baseURL    string
	libraryID  string
	folderID   string
	token      string
	httpClient *http.Client
}

// NewAudiobookshelf builds the uploader. All three of server URL,
// library ID and folder ID are required; the API token comes from
// ABS_TOKEN.
func NewAudiobookshelf(baseURL, libraryID, folderID string) (*Audiobookshelf, error) {
	if baseURL == "" || libraryID == "" || folderID == "" {
		return nil, fmt.Errorf("audiobookshelf upload requires --abs-url, --abs-library-id and --abs-folder-id together")
	}
	token := os.Getenv(absTokenEnv)
	if token == "" {
		return nil, fmt.Errorf("%s not set", absTokenEnv)
	}
	return &Audiobookshelf{
		baseURL:    strings.TrimRight(baseURL, "/"),
		libraryID:  libraryID,
		folderID:   folderID,
		token:      token,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (u *Audiobookshelf) Name() string { return "audiobookshelf" }

func (u *Audiobookshelf) Upload(ctx context.Context, filePath string, meta Meta) (string, error) {
	err := retry(ctx, func() error {
		return u.post(ctx, filePath, meta)
	})
	if err != nil {
		return "", &UploadError{Target: u.Name(), Err: err}
	}
	return fmt.Sprintf("%s/library/%s", u.baseURL, u.libraryID), nil
}

func (u *Audiobookshelf) post(ctx context.Context, filePath string, meta Meta) error {
	f, err := os.Open(filePath)
	if err != nil {
		return fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("title", meta.Title); err != nil {
		return fmt.Errorf("write title field: %w", err)
	}
	if meta.Author != "" {
		if err := w.WriteField("author", meta.Author); err != nil {
			return fmt.Errorf("write author field: %w", err)
		}
	}
	if err := w.WriteField("library", u.libraryID); err != nil {
		return fmt.Errorf("write library field: %w", err)
	}
	if err := w.WriteField("folder", u.folderID); err != nil {
		return fmt.Errorf("write folder field: %w", err)
	}

	// Audiobookshelf expects file parts keyed by index.
	part, err := w.CreateFormFile("0", filepath.Base(filePath))
	if err != nil {
		return fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return fmt.Errorf("copy audio file: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/api/upload", &buf)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+u.token)

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return &statusError{Code: resp.StatusCode, Body: string(body)}
	}
	return nil
}
