package ranges

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
)

// maxSourceSize limits how much of a remote range document is read.
const maxSourceSize = 64 << 20

// Load returns the contents of a range document from a local path or an http(s) URL.
func Load(ctx context.Context, client *http.Client, pathOrURL string) (string, error) {
	if u, err := url.Parse(pathOrURL); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		return fetch(ctx, client, u.String(), maxSourceSize)
	}
	if _, err := os.Stat(pathOrURL); err != nil {
		return "", fmt.Errorf("ranges source is not a valid URL or local path: %q: %w", pathOrURL, err)
	}
	data, err := os.ReadFile(pathOrURL)
	if err != nil {
		return "", fmt.Errorf("failed to read ranges file: %w", err)
	}
	return string(data), nil
}

func fetch(ctx context.Context, client *http.Client, u string, limit int64) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return "", fmt.Errorf("failed to create ranges request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch ranges: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("failed to fetch ranges: unexpected status %s", resp.Status)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return "", fmt.Errorf("failed to read ranges response: %w", err)
	}
	if int64(len(data)) > limit {
		return "", fmt.Errorf("ranges response exceeds %d bytes", limit)
	}
	return string(data), nil
}
