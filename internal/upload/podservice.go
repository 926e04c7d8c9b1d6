package upload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const podServiceTokenEnv = "PODSERVICE_TOKEN"

// PodService uploads episodes to a self-hosted podcast feed service.
// The source URL doubles as the episode GUID, so re-uploading the same
// article is rejected by the host as a duplicate.
type PodService struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func NewPodService(baseURL string) (*PodService, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("podservice upload requires --podservice-url")
	}
	return &PodService{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      os.Getenv(podServiceTokenEnv),
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

func (u *PodService) Name() string { return "podservice" }

func (u *PodService) Upload(ctx context.Context, filePath string, meta Meta) (string, error) {
	var episodeURL string
	err := retry(ctx, func() error {
		url, err := u.post(ctx, filePath, meta)
		episodeURL = url
		return err
	})
	if err != nil {
		return "", &UploadError{Target: u.Name(), Err: err}
	}
	return episodeURL, nil
}

func (u *PodService) post(ctx context.Context, filePath string, meta Meta) (string, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	if err := w.WriteField("title", meta.Title); err != nil {
		return "", fmt.Errorf("write title field: %w", err)
	}
	if meta.SourceURL != "" {
		if err := w.WriteField("source_url", meta.SourceURL); err != nil {
			return "", fmt.Errorf("write source_url field: %w", err)
		}
	}
	if meta.Description != "" {
		if err := w.WriteField("description", meta.Description); err != nil {
			return "", fmt.Errorf("write description field: %w", err)
		}
	}
	part, err := w.CreateFormFile("audio", filepath.Base(filePath))
	if err != nil {
		return "", fmt.Errorf("create file part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("copy audio file: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("finalize multipart body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.baseURL+"/api/episodes", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	if u.token != "" {
		req.Header.Set("Authorization", "Bearer "+u.token)
	}

	resp, err := u.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	switch {
	case resp.StatusCode == http.StatusCreated:
		var created struct {
			ID  string `json:"id"`
			URL string `json:"url"`
		}
		if json.Unmarshal(body, &created) == nil && created.URL != "" {
			return created.URL, nil
		}
		return created.ID, nil
	case resp.StatusCode == http.StatusConflict:
		// The host already has this GUID. Not a failure.
		return "", nil
	default:
		return "", &statusError{Code: resp.StatusCode, Body: string(body)}
	}
}
