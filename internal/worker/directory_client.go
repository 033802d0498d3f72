package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/haneul/dcrawl/internal/model"
)

// maxShardListBytes bounds how much memory a single shard listing
// response can occupy, regardless of what the directory claims.
const maxShardListBytes = 8 * 1024 * 1024

// directoryClient is the worker's view of the Live Directory HTTP
// surface: fetch a shard, and report success or classified error.
type directoryClient struct {
	baseURL string
	http    *http.Client
}

func newDirectoryClient(baseURL string) *directoryClient {
	return &directoryClient{baseURL: baseURL, http: &http.Client{Timeout: 10 * time.Second}}
}

func (d *directoryClient) fetchShard(ctx context.Context, part, total int) ([]model.GalleryState, error) {
	url := fmt.Sprintf("%s/list?part=%d&total=%d", d.baseURL, part, total)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := d.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("worker: fetch shard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("worker: directory responded %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxShardListBytes+1))
	if err != nil {
		return nil, fmt.Errorf("worker: read shard list: %w", err)
	}
	if len(body) > maxShardListBytes {
		return nil, fmt.Errorf("worker: shard list exceeds %d bytes", maxShardListBytes)
	}

	var galleries []model.GalleryState
	if err := json.Unmarshal(body, &galleries); err != nil {
		return nil, fmt.Errorf("worker: decode shard list: %w", err)
	}
	return galleries, nil
}

func (d *directoryClient) reportSuccess(ctx context.Context, form model.GalleryCrawlReportForm) error {
	return d.post(ctx, "/report", form)
}

func (d *directoryClient) reportError(ctx context.Context, form model.GalleryCrawlErrorReportForm) error {
	return d.post(ctx, "/error-report", form)
}

func (d *directoryClient) post(ctx context.Context, path string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("worker: encode %s body: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.http.Do(req)
	if err != nil {
		return fmt.Errorf("worker: post %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("worker: directory %s responded %d", path, resp.StatusCode)
	}
	return nil
}
