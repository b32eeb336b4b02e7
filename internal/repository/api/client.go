// internal/repository/api/client.go
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/mixnote/mixnote/internal/model"
)

// Client handles communication with the mixnote web backend. All calls are
// plain request/response; the server assigns ids and is the source of truth
// for confirmed state.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a new API client.
func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Init is a no-op; the client holds no local resources.
func (c *Client) Init() error {
	return nil
}

// Close is a no-op.
func (c *Client) Close() error {
	return nil
}

// Healthcheck checks if the mixnote web backend is reachable.
func (c *Client) Healthcheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthcheck", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("healthcheck request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("healthcheck returned status %d", resp.StatusCode)
	}
	return nil
}

// do performs a JSON request and decodes the response into out when out is
// non-nil and the server returned a body.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s failed: %w", method, path, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%s %s returned status 404", method, path)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%s %s returned status %d", method, path, resp.StatusCode)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

// GetRecording fetches a recording by id.
func (c *Client) GetRecording(ctx context.Context, id uint) (model.Recording, error) {
	var rec model.Recording
	err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/v1/recordings/%d", id), nil, &rec)
	return rec, err
}

// ListRecordings fetches all recordings visible to the API key.
func (c *Client) ListRecordings(ctx context.Context) ([]model.Recording, error) {
	var recs []model.Recording
	err := c.do(ctx, http.MethodGet, "/api/v1/recordings", nil, &recs)
	return recs, err
}

// ListMarkers fetches a recording's markers, ascending by timestamp.
// The server already sorts, but ordering is part of this client's contract
// so it is not trusted blindly.
func (c *Client) ListMarkers(ctx context.Context, recordingID uint) ([]model.Marker, error) {
	var markers []model.Marker
	path := fmt.Sprintf("/api/v1/recordings/%d/markers", recordingID)
	if err := c.do(ctx, http.MethodGet, path, nil, &markers); err != nil {
		return nil, err
	}
	sortMarkers(markers)
	return markers, nil
}

// CreateMarker persists a new marker; the server-assigned fields are copied
// back onto m.
func (c *Client) CreateMarker(ctx context.Context, m *model.Marker) error {
	path := fmt.Sprintf("/api/v1/recordings/%d/markers", m.RecordingID)
	var created model.Marker
	if err := c.do(ctx, http.MethodPost, path, m, &created); err != nil {
		return err
	}
	*m = created
	return nil
}

// UpdateMarker applies a partial update and returns the confirmed marker.
func (c *Client) UpdateMarker(ctx context.Context, id uint, patch model.MarkerPatch) (model.Marker, error) {
	var updated model.Marker
	path := fmt.Sprintf("/api/v1/markers/%d", id)
	err := c.do(ctx, http.MethodPatch, path, patch, &updated)
	return updated, err
}

// DeleteMarker removes a marker server-side.
func (c *Client) DeleteMarker(ctx context.Context, id uint) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/v1/markers/%d", id), nil, nil)
}

// CreateTask persists a task derived from a marker.
func (c *Client) CreateTask(ctx context.Context, t *model.Task) error {
	var created model.Task
	if err := c.do(ctx, http.MethodPost, "/api/v1/tasks", t, &created); err != nil {
		return err
	}
	*t = created
	return nil
}

func sortMarkers(markers []model.Marker) {
	sort.SliceStable(markers, func(i, j int) bool {
		return markers[i].TimestampSeconds < markers[j].TimestampSeconds
	})
}
