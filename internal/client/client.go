// Package client is the typed HTTP client of the studio API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"studio/internal/domain"
	"studio/internal/gallery"
)

// Client calls the studio API on behalf of one user.
type Client struct {
	BaseURL    string
	Token      string
	HTTPClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Token:      token,
		HTTPClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// APIError is a non-2xx response. It unwraps to the matching domain error so
// callers can classify it with errors.Is.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	switch {
	case e.StatusCode == http.StatusBadRequest:
		return domain.ErrValidation
	case e.StatusCode == http.StatusUnauthorized:
		return domain.ErrAuth
	case e.StatusCode == http.StatusNotFound:
		return domain.ErrNotFound
	case e.Code == "persistence_error":
		return domain.ErrPersistence
	case e.Code == "upstream_error":
		return domain.ErrUpstream
	}
	return nil
}

// ImageRequest is the body of the generate and edit endpoints.
type ImageRequest struct {
	Prompt      string   `json:"prompt"`
	ModelTier   string   `json:"model_tier,omitempty"`
	Resolution  string   `json:"resolution,omitempty"`
	AspectRatio string   `json:"aspect_ratio,omitempty"`
	Variations  int      `json:"variations,omitempty"`
	ResourceIDs []string `json:"resource_ids,omitempty"`
}

type VideoRequest struct {
	Prompt      string `json:"prompt"`
	Resolution  string `json:"resolution,omitempty"`
	AspectRatio string `json:"aspect_ratio,omitempty"`
	ResourceID  string `json:"resource_id,omitempty"`
}

type submitResponse struct {
	GenerationID string `json:"generation_id"`
}

// GenerateImages sends POST /v1/images/generate and returns the generation id.
func (c *Client) GenerateImages(ctx context.Context, req ImageRequest) (string, error) {
	return c.submit(ctx, "/v1/images/generate", req)
}

// EditImages sends POST /v1/images/edit.
func (c *Client) EditImages(ctx context.Context, req ImageRequest) (string, error) {
	return c.submit(ctx, "/v1/images/edit", req)
}

// GenerateVideo sends POST /v1/videos/generate.
func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (string, error) {
	return c.submit(ctx, "/v1/videos/generate", req)
}

func (c *Client) submit(ctx context.Context, path string, body any) (string, error) {
	var resp submitResponse
	if err := c.do(ctx, http.MethodPost, path, body, &resp); err != nil {
		return "", err
	}
	return resp.GenerationID, nil
}

// Generation reads one generation. It satisfies poller.Fetcher.
func (c *Client) Generation(ctx context.Context, id string) (*domain.Generation, error) {
	var g domain.Generation
	if err := c.do(ctx, http.MethodGet, "/v1/generations/"+url.PathEscape(id), nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// Gallery reads one gallery page. An empty cursor starts from the newest
// item; pass the previous page's NextCursor to continue.
func (c *Client) Gallery(ctx context.Context, limit int, cursor string) (*gallery.Page, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if cursor != "" {
		q.Set("cursor", cursor)
	}
	path := "/v1/gallery"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var page gallery.Page
	if err := c.do(ctx, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Archive downloads the zip of a successful generation into w.
func (c *Client) Archive(ctx context.Context, id string, w io.Writer) error {
	resp, err := c.send(ctx, http.MethodGet, "/v1/generations/"+url.PathEscape(id)+"/archive", nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return domain.Transport("download archive", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.send(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.Transport("failed to parse response", err)
	}
	return nil
}

func (c *Client) send(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, domain.Transport("request failed", err)
	}
	return resp, nil
}

func apiError(resp *http.Response) error {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body struct {
		Error string `json:"error"`
		Code  string `json:"code"`
	}
	e := &APIError{StatusCode: resp.StatusCode}
	if json.Unmarshal(raw, &body) == nil && body.Error != "" {
		e.Message, e.Code = body.Error, body.Code
	} else {
		e.Message = strings.TrimSpace(string(raw))
	}
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return e
}
