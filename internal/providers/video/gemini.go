// Package video defines the long-running video provider contract.
package video

import (
	"context"

	"studio/internal/providers/genai"
)

const DefaultModel = "veo-3.1-fast-generate-preview"

// Frame is an optional starting image for the video.
type Frame struct {
	MIMEType string
	Data     []byte
}

type GenerateRequest struct {
	Prompt      string
	AspectRatio string
	Resolution  string
	StartFrame  *Frame
}

// Operation is a snapshot of a provider-side video job.
type Operation struct {
	Name     string
	Done     bool
	VideoURI string
	Error    string
}

// Generator starts a video operation, reports on it, and fetches the result.
type Generator interface {
	Start(ctx context.Context, req GenerateRequest) (Operation, error)
	Status(ctx context.Context, name string) (Operation, error)
	Download(ctx context.Context, uri string) ([]byte, string, error)
}

type GeminiGenerator struct {
	client *genai.Client
	model  string
}

func NewGeminiGenerator(client *genai.Client, model string) *GeminiGenerator {
	if model == "" {
		model = DefaultModel
	}
	return &GeminiGenerator{client: client, model: model}
}

func (g *GeminiGenerator) Start(ctx context.Context, req GenerateRequest) (Operation, error) {
	call := genai.VideoRequest{
		Model:       g.model,
		Prompt:      req.Prompt,
		AspectRatio: req.AspectRatio,
		Resolution:  req.Resolution,
	}
	if req.StartFrame != nil {
		call.StartFrame = &genai.InlineImage{MIMEType: req.StartFrame.MIMEType, Data: req.StartFrame.Data}
	}
	op, err := g.client.StartVideo(ctx, call)
	if err != nil {
		return Operation{}, err
	}
	return fromGenai(op), nil
}

func (g *GeminiGenerator) Status(ctx context.Context, name string) (Operation, error) {
	op, err := g.client.GetOperation(ctx, name)
	if err != nil {
		return Operation{}, err
	}
	return fromGenai(op), nil
}

func (g *GeminiGenerator) Download(ctx context.Context, uri string) ([]byte, string, error) {
	data, mime, err := g.client.Download(ctx, uri)
	if err != nil {
		return nil, "", err
	}
	if mime == "" || mime == "application/octet-stream" {
		mime = "video/mp4"
	}
	return data, mime, nil
}

func fromGenai(op *genai.Operation) Operation {
	return Operation{Name: op.Name, Done: op.Done, VideoURI: op.VideoURI, Error: op.Error}
}

var _ Generator = (*GeminiGenerator)(nil)
