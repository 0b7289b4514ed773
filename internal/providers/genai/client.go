// Package genai is a thin REST client for the Gemini image and Veo video APIs.
// Without an API key it renders deterministic synthetic assets so the worker
// pipeline can run end to end in development and CI.
package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"studio/internal/infra"
)

const defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"

// ErrNoImage is returned when a response carries no inline image part.
var ErrNoImage = errors.New("genai: response contained no image")

// Options controls how the client is configured.
type Options struct {
	APIKey     string
	BaseURL    string
	HTTPClient *http.Client
	Logger     *infra.Logger
}

// Client calls the Gemini REST API.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	logger     zerolog.Logger
}

// InlineImage is an image sent to or received from the model.
type InlineImage struct {
	MIMEType string
	Data     []byte
}

// ImageRequest describes a single image generation call.
type ImageRequest struct {
	Model        string
	Prompt       string
	AspectRatio  string
	ImageSize    string
	Sources      []InlineImage
	GoogleSearch bool
}

// ImageAsset is a generated image.
type ImageAsset struct {
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

// VideoRequest describes a video generation operation.
type VideoRequest struct {
	Model       string
	Prompt      string
	AspectRatio string
	Resolution  string
	StartFrame  *InlineImage
}

// Operation is the state of a long-running video generation.
type Operation struct {
	Name     string
	Done     bool
	VideoURI string
	Error    string
}

// NewClient constructs a client. A nil HTTP client gets a default with a
// generous timeout for image responses.
func NewClient(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 2 * time.Minute}
	}
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	logger := zerolog.Nop()
	if opts.Logger != nil {
		logger = infra.Component(*opts.Logger, "genai")
	}
	return &Client{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Synthetic reports whether the client renders placeholders instead of
// calling the API.
func (c *Client) Synthetic() bool {
	return c.apiKey == ""
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inlineData,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mimeType,omitempty"`
	Data     string `json:"data,omitempty"`
}

type geminiTool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type geminiImageConfig struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	ImageSize   string `json:"imageSize,omitempty"`
}

type geminiGenerationConfig struct {
	ResponseModalities []string           `json:"responseModalities,omitempty"`
	ImageConfig        *geminiImageConfig `json:"imageConfig,omitempty"`
}

type geminiGenerateContentRequest struct {
	Contents         []geminiContent         `json:"contents"`
	Tools            []geminiTool            `json:"tools,omitempty"`
	GenerationConfig *geminiGenerationConfig `json:"generationConfig,omitempty"`
}

type geminiCandidate struct {
	Content      geminiContent `json:"content"`
	FinishReason string        `json:"finishReason,omitempty"`
}

type geminiGenerateContentResponse struct {
	Candidates     []geminiCandidate `json:"candidates"`
	PromptFeedback *struct {
		BlockReason string `json:"blockReason,omitempty"`
	} `json:"promptFeedback,omitempty"`
}

type geminiErrorResponse struct {
	Error struct {
		Code    int    `json:"code,omitempty"`
		Message string `json:"message,omitempty"`
	} `json:"error"`
}

// GenerateImage performs one generateContent call and returns the first image
// part of the first candidate.
func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (*ImageAsset, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Synthetic() {
		return c.syntheticImage(req), nil
	}

	parts := make([]geminiPart, 0, len(req.Sources)+1)
	for _, src := range req.Sources {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{
			MimeType: src.MIMEType,
			Data:     base64.StdEncoding.EncodeToString(src.Data),
		}})
	}
	parts = append(parts, geminiPart{Text: req.Prompt})

	payload := geminiGenerateContentRequest{
		Contents: []geminiContent{{Role: "user", Parts: parts}},
		GenerationConfig: &geminiGenerationConfig{
			ResponseModalities: []string{"TEXT", "IMAGE"},
			ImageConfig:        &geminiImageConfig{AspectRatio: req.AspectRatio, ImageSize: req.ImageSize},
		},
	}
	if req.GoogleSearch {
		payload.Tools = []geminiTool{{GoogleSearch: &struct{}{}}}
	}

	var response geminiGenerateContentResponse
	path := fmt.Sprintf("/models/%s:generateContent", url.PathEscape(req.Model))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &response); err != nil {
		return nil, err
	}
	if response.PromptFeedback != nil && response.PromptFeedback.BlockReason != "" {
		return nil, fmt.Errorf("genai: prompt blocked: %s", response.PromptFeedback.BlockReason)
	}
	if len(response.Candidates) == 0 {
		return nil, ErrNoImage
	}
	for _, part := range response.Candidates[0].Content.Parts {
		if part.InlineData == nil || part.InlineData.Data == "" {
			continue
		}
		data, err := base64.StdEncoding.DecodeString(part.InlineData.Data)
		if err != nil {
			return nil, fmt.Errorf("genai: decode inline data: %w", err)
		}
		w, h := decodeImageDimensions(data)
		c.logger.Debug().Str("model", req.Model).Int("bytes", len(data)).Msg("genai: image generated")
		return &ImageAsset{MIMEType: firstNonEmpty(part.InlineData.MimeType, "image/png"), Data: data, Width: w, Height: h}, nil
	}
	return nil, ErrNoImage
}

type veoImage struct {
	BytesBase64Encoded string `json:"bytesBase64Encoded"`
	MimeType           string `json:"mimeType"`
}

type veoInstance struct {
	Prompt string    `json:"prompt"`
	Image  *veoImage `json:"image,omitempty"`
}

type veoParameters struct {
	AspectRatio string `json:"aspectRatio,omitempty"`
	Resolution  string `json:"resolution,omitempty"`
	SampleCount int    `json:"sampleCount,omitempty"`
}

type veoRequest struct {
	Instances  []veoInstance `json:"instances"`
	Parameters veoParameters `json:"parameters"`
}

type veoOperation struct {
	Name  string `json:"name"`
	Done  bool   `json:"done"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
	} `json:"error,omitempty"`
	Response *struct {
		GenerateVideoResponse struct {
			GeneratedSamples []struct {
				Video struct {
					URI string `json:"uri"`
				} `json:"video"`
			} `json:"generatedSamples"`
		} `json:"generateVideoResponse"`
	} `json:"response,omitempty"`
}

func (o veoOperation) toOperation() *Operation {
	op := &Operation{Name: o.Name, Done: o.Done}
	if o.Error != nil {
		op.Error = firstNonEmpty(o.Error.Message, fmt.Sprintf("operation failed with code %d", o.Error.Code))
	}
	if o.Response != nil {
		if samples := o.Response.GenerateVideoResponse.GeneratedSamples; len(samples) > 0 {
			op.VideoURI = samples[0].Video.URI
		}
	}
	return op
}

// StartVideo starts a long-running video generation.
func (c *Client) StartVideo(ctx context.Context, req VideoRequest) (*Operation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if c.Synthetic() {
		seed := deterministicSeed(req.Model, req.Prompt, req.AspectRatio, req.Resolution)
		return &Operation{Name: syntheticOperationPrefix + seed}, nil
	}

	instance := veoInstance{Prompt: req.Prompt}
	if req.StartFrame != nil {
		instance.Image = &veoImage{
			BytesBase64Encoded: base64.StdEncoding.EncodeToString(req.StartFrame.Data),
			MimeType:           req.StartFrame.MIMEType,
		}
	}
	payload := veoRequest{
		Instances:  []veoInstance{instance},
		Parameters: veoParameters{AspectRatio: req.AspectRatio, Resolution: req.Resolution, SampleCount: 1},
	}
	var op veoOperation
	path := fmt.Sprintf("/models/%s:predictLongRunning", url.PathEscape(req.Model))
	if err := c.invoke(ctx, http.MethodPost, path, payload, &op); err != nil {
		return nil, err
	}
	if op.Name == "" {
		return nil, errors.New("genai: video operation has no name")
	}
	c.logger.Debug().Str("model", req.Model).Str("operation", op.Name).Msg("genai: video operation started")
	return op.toOperation(), nil
}

// GetOperation refreshes a video operation by name.
func (c *Client) GetOperation(ctx context.Context, name string) (*Operation, error) {
	if strings.HasPrefix(name, syntheticOperationPrefix) {
		return &Operation{
			Name:     name,
			Done:     true,
			VideoURI: syntheticVideoScheme + strings.TrimPrefix(name, syntheticOperationPrefix),
		}, nil
	}
	var op veoOperation
	if err := c.invoke(ctx, http.MethodGet, "/"+strings.TrimLeft(name, "/"), nil, &op); err != nil {
		return nil, err
	}
	return op.toOperation(), nil
}

// Download fetches a generated file. Relative URIs resolve against the API
// base URL. The API key travels in a header so it never appears in URLs
// carried by transport errors.
func (c *Client) Download(ctx context.Context, uri string) ([]byte, string, error) {
	if strings.HasPrefix(uri, syntheticVideoScheme) {
		return renderSyntheticVideo(strings.TrimPrefix(uri, syntheticVideoScheme)), "video/mp4", nil
	}
	target := uri
	if !strings.HasPrefix(uri, "http://") && !strings.HasPrefix(uri, "https://") {
		target = c.baseURL + "/" + strings.TrimLeft(uri, "/")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, "", fmt.Errorf("genai: create download request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("x-goog-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("genai: download file: %w", stripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("genai: download status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
	}
	blob, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("genai: read file: %w", err)
	}
	return blob, resp.Header.Get("Content-Type"), nil
}

func (c *Client) invoke(ctx context.Context, method, path string, payload any, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("genai: marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("genai: create request: %w", err)
	}
	req.Header.Set("x-goog-api-key", c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("genai: invoke %s: %w", path, stripURL(err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var apiErr geminiErrorResponse
		if err := json.Unmarshal(data, &apiErr); err == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("genai: status %d: %s", resp.StatusCode, apiErr.Error.Message)
		}
		if len(data) > 0 {
			return fmt.Errorf("genai: status %d: %s", resp.StatusCode, strings.TrimSpace(string(data)))
		}
		return fmt.Errorf("genai: status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("genai: decode response: %w", err)
	}
	return nil
}

func decodeImageDimensions(data []byte) (int, int) {
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0
	}
	return cfg.Width, cfg.Height
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

// stripURL drops the request URL from transport errors; callers surface these
// messages to users.
func stripURL(err error) error {
	var ue *url.Error
	if errors.As(err, &ue) {
		return fmt.Errorf("%s: %w", strings.ToLower(ue.Op), ue.Err)
	}
	return err
}
