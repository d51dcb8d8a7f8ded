package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"math"
	"math/rand"
	"net/http"
	"strings"
	"time"
)

const (
	// Upload timeout per attempt — generous for full-length videos
	uploadTimeout = 180 * time.Second

	// Download timeout
	downloadTimeout = 120 * time.Second

	// Retry configuration
	maxRetries     = 4
	baseRetryDelay = 1 * time.Second
	maxRetryDelay  = 30 * time.Second
)

// Storage is a Supabase Storage client scoped to one bucket. Assets follow a
// fixed per-project layout: scene_<n>.jpg, scene_<n>.mp3,
// scene_<n>_narration.txt, music.mp3, and the rendered outputs at the root.
type Storage struct {
	url        string
	serviceKey string
	Bucket     string
	client     *http.Client
}

func New(url, serviceKey, bucket string) *Storage {
	return &Storage{
		url:        url,
		serviceKey: serviceKey,
		Bucket:     bucket,
		client: &http.Client{
			Timeout: uploadTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Asset path layout

func (s *Storage) SceneImagePath(project string, scene int) string {
	return fmt.Sprintf("%s/scene_%d.jpg", project, scene)
}

func (s *Storage) SceneAudioPath(project string, scene int) string {
	return fmt.Sprintf("%s/scene_%d.mp3", project, scene)
}

func (s *Storage) NarrationPath(project string, scene int) string {
	return fmt.Sprintf("%s/scene_%d_narration.txt", project, scene)
}

func (s *Storage) MusicPath(project string) string {
	return fmt.Sprintf("%s/music.mp3", project)
}

func (s *Storage) VideoPath(project, title string) string {
	return fmt.Sprintf("%s/%s.mp4", project, sanitizeFilename(title))
}

func (s *Storage) SubtitlesPath(project, title string) string {
	return fmt.Sprintf("%s/%s.srt", project, sanitizeFilename(title))
}

// NarrationText fetches a scene's narration text. Satisfies the subtitle
// synchronizer's TextFetcher interface.
func (s *Storage) NarrationText(ctx context.Context, project string, scene int) (string, error) {
	data, err := s.Download(ctx, s.NarrationPath(project, scene))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// Upload writes an object with retries and exponential backoff. Uses PUT
// with x-upsert so re-runs of a render overwrite cleanly.
func (s *Storage) Upload(ctx context.Context, path string, data []byte, contentType string) error {
	url := s.objectURL(path)

	_, err := s.withRetries(ctx, "Upload", path, uploadTimeout, func(attemptCtx context.Context) ([]byte, int, error) {
		req, err := http.NewRequestWithContext(attemptCtx, "PUT", url, bytes.NewReader(data))
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.serviceKey)
		req.Header.Set("Content-Type", contentType)
		req.Header.Set("Content-Length", fmt.Sprintf("%d", len(data)))
		req.Header.Set("x-upsert", "true")

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, 0, err
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return body, resp.StatusCode, nil
	})
	return err
}

// Download fetches an object with retries.
func (s *Storage) Download(ctx context.Context, path string) ([]byte, error) {
	url := s.objectURL(path)

	return s.withRetries(ctx, "Download", path, downloadTimeout, func(attemptCtx context.Context) ([]byte, int, error) {
		req, err := http.NewRequestWithContext(attemptCtx, "GET", url, nil)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+s.serviceKey)

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, 0, err
		}
		body, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return nil, 0, readErr
		}
		return body, resp.StatusCode, nil
	})
}

// withRetries runs one storage operation with exponential backoff. attempt
// returns (body, status, err); network errors and retryable statuses are
// retried, anything else surfaces immediately.
func (s *Storage) withRetries(ctx context.Context, op, path string, timeout time.Duration, attempt func(context.Context) ([]byte, int, error)) ([]byte, error) {
	var lastErr error

	for i := 0; i <= maxRetries; i++ {
		if i > 0 {
			delay := retryDelay(i)
			log.Printf("[Storage] %s retry %d/%d for %s (waiting %v)...", op, i, maxRetries, path, delay)

			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("%s cancelled: %w", strings.ToLower(op), ctx.Err())
			case <-time.After(delay):
			}
		}

		attemptCtx, cancel := context.WithTimeout(ctx, timeout)
		body, status, err := attempt(attemptCtx)
		cancel()

		if err != nil {
			lastErr = fmt.Errorf("%s failed: %w", strings.ToLower(op), err)
			if isRetryableError(err) {
				log.Printf("[Storage] %s attempt %d failed (retryable): %v", op, i+1, err)
				continue
			}
			return nil, lastErr
		}

		if status == http.StatusOK || status == http.StatusCreated {
			if i > 0 {
				log.Printf("[Storage] %s succeeded on attempt %d for %s", op, i+1, path)
			}
			return body, nil
		}

		lastErr = fmt.Errorf("%s failed with status %d: %s", strings.ToLower(op), status, truncate(string(body), 200))

		if isRetryableStatus(status) {
			log.Printf("[Storage] %s attempt %d returned status %d (retryable)", op, i+1, status)
			continue
		}

		// Non-retryable status (400, 401, 403, 404, 413, etc.)
		return nil, lastErr
	}

	return nil, fmt.Errorf("%s failed after %d attempts: %w", strings.ToLower(op), maxRetries+1, lastErr)
}

// GetPublicURL returns the public URL for a file
func (s *Storage) GetPublicURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/public/%s/%s", s.url, s.Bucket, path)
}

// GetSignedURL creates a signed URL for temporary access
func (s *Storage) GetSignedURL(ctx context.Context, path string, expiresIn int) (string, error) {
	url := fmt.Sprintf("%s/storage/v1/object/sign/%s/%s", s.url, s.Bucket, path)

	body := fmt.Sprintf(`{"expiresIn": %d}`, expiresIn)
	req, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewBufferString(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+s.serviceKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to get signed URL: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("failed with status %d: %s", resp.StatusCode, string(body))
	}

	var result struct {
		SignedURL string `json:"signedURL"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("failed to parse signed URL response: %w", err)
	}

	return s.url + result.SignedURL, nil
}

func (s *Storage) objectURL(path string) string {
	return fmt.Sprintf("%s/storage/v1/object/%s/%s", s.url, s.Bucket, path)
}

// sanitizeFilename keeps titles safe as object names.
func sanitizeFilename(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '-' || r == '_' || r == '.':
			b.WriteRune(r)
		case r == ' ':
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "video"
	}
	return b.String()
}

// retryDelay calculates exponential backoff with jitter: base * 2^attempt + random jitter
func retryDelay(attempt int) time.Duration {
	delay := float64(baseRetryDelay) * math.Pow(2, float64(attempt-1))
	if delay > float64(maxRetryDelay) {
		delay = float64(maxRetryDelay)
	}
	// Add 0–25% jitter to avoid thundering herd
	jitter := delay * 0.25 * rand.Float64()
	return time.Duration(delay + jitter)
}

// isRetryableError checks if a network-level error is worth retrying
func isRetryableError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "timeout") ||
		strings.Contains(errStr, "deadline exceeded") ||
		strings.Contains(errStr, "connection reset") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "EOF") ||
		strings.Contains(errStr, "broken pipe")
}

// isRetryableStatus checks if an HTTP status code is worth retrying
func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || // 429
		status == http.StatusRequestTimeout || // 408
		status == http.StatusBadGateway || // 502
		status == http.StatusServiceUnavailable || // 503
		status == http.StatusGatewayTimeout // 504
}

// truncate limits a string to maxLen characters for log output
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
