package upload

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Meta carries the episode metadata sent alongside the audio file.
type Meta struct {
	Title       string
	SourceURL   string
	Author      string
	Description string
}

// Uploader pushes an assembled audio file to a remote host. Upload
// returns a host-side reference (URL or ID) when the host provides one.
type Uploader interface {
	Name() string
	Upload(ctx context.Context, filePath string, meta Meta) (string, error)
}

// UploadError reports a failed upload. Uploads are best-effort: the
// pipeline logs this error and keeps the item succeeded.
type UploadError struct {
	Target string
	Err    error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("upload to %s: %v", e.Target, e.Err)
}

func (e *UploadError) Unwrap() error {
	return e.Err
}

// statusError is a non-2xx response from the host.
type statusError struct {
	Code int
	Body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("host returned %d: %s", e.Code, e.Body)
}

func (e *statusError) transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// retry runs fn up to three times with fixed backoff. Client errors
// (4xx other than 429) fail fast.
func retry(ctx context.Context, fn func() error) error {
	backoffs := []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		var se *statusError
		if errors.As(err, &se) && !se.transient() {
			return err
		}
		lastErr = err

		if attempt < 2 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoffs[attempt]):
			}
		}
	}
	return lastErr
}
