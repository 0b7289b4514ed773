package image

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"studio/internal/domain"
	"studio/internal/providers/genai"
)

func TestModelsForTier(t *testing.T) {
	var zero Models
	if got := zero.ForTier(domain.TierBasic); got != DefaultBasicModel {
		t.Fatalf("basic = %q", got)
	}
	if got := zero.ForTier(domain.TierPro); got != DefaultProModel {
		t.Fatalf("pro = %q", got)
	}
	custom := Models{Basic: "b", Pro: "p"}
	if custom.ForTier(domain.TierBasic) != "b" || custom.ForTier(domain.TierPro) != "p" {
		t.Fatalf("custom models ignored")
	}
}

func TestGeminiGeneratorTierConfig(t *testing.T) {
	tests := []struct {
		name       string
		tier       domain.ModelTier
		wantModel  string
		wantSize   string
		wantSearch bool
	}{
		{name: "basic", tier: domain.TierBasic, wantModel: DefaultBasicModel},
		{name: "pro", tier: domain.TierPro, wantModel: DefaultProModel, wantSize: "2K", wantSearch: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var body struct {
				Tools            []map[string]any `json:"tools"`
				GenerationConfig struct {
					ImageConfig map[string]string `json:"imageConfig"`
				} `json:"generationConfig"`
			}
			var path string
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				path = r.URL.Path
				_ = json.NewDecoder(r.Body).Decode(&body)
				// 1x1 transparent png
				_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"inlineData":{"mimeType":"image/png","data":"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII="}}]}}]}`))
			}))
			defer srv.Close()

			gen := NewGeminiGenerator(genai.NewClient(genai.Options{APIKey: "k", BaseURL: srv.URL}), Models{})
			asset, err := gen.Generate(context.Background(), GenerateRequest{
				Prompt:      "p",
				Tier:        tc.tier,
				Resolution:  "2K",
				AspectRatio: "3:4",
			})
			if err != nil {
				t.Fatalf("Generate error: %v", err)
			}
			if asset.MIMEType != "image/png" || asset.Width != 1 {
				t.Fatalf("unexpected asset %+v", asset)
			}
			if !strings.Contains(path, tc.wantModel) {
				t.Fatalf("path %q does not use model %q", path, tc.wantModel)
			}
			if body.GenerationConfig.ImageConfig["imageSize"] != tc.wantSize {
				t.Fatalf("imageSize = %q, want %q", body.GenerationConfig.ImageConfig["imageSize"], tc.wantSize)
			}
			if body.GenerationConfig.ImageConfig["aspectRatio"] != "3:4" {
				t.Fatalf("aspectRatio = %q", body.GenerationConfig.ImageConfig["aspectRatio"])
			}
			if (len(body.Tools) > 0) != tc.wantSearch {
				t.Fatalf("tools = %v, want search %v", body.Tools, tc.wantSearch)
			}
		})
	}
}
