package engine

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/genai"

	"github.com/yangwenmai/latentvault/internal/model"
)

// GeminiGenerator implements Generator using the Google GenAI SDK.
type GeminiGenerator struct {
	client *genai.Client
	model  string
	now    func() time.Time
}

// GeminiOption configures the Gemini generator.
type GeminiOption func(*geminiConfig)

type geminiConfig struct {
	model   string
	timeout time.Duration
	baseURL string
}

// WithGeminiModel sets the model name.
func WithGeminiModel(model string) GeminiOption {
	return func(c *geminiConfig) {
		if model != "" {
			c.model = model
		}
	}
}

// WithGeminiTimeout sets the HTTP timeout of each request.
func WithGeminiTimeout(d time.Duration) GeminiOption {
	return func(c *geminiConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithGeminiBaseURL points the client at another endpoint, e.g. a proxy.
func WithGeminiBaseURL(u string) GeminiOption {
	return func(c *geminiConfig) {
		c.baseURL = u
	}
}

// NewGeminiGenerator creates a new Gemini image generator.
func NewGeminiGenerator(ctx context.Context, apiKey string, opts ...GeminiOption) (*GeminiGenerator, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini API key is required")
	}
	cfg := geminiConfig{model: "gemini-2.5-flash-image", timeout: 60 * time.Second}
	for _, opt := range opts {
		opt(&cfg)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:      apiKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  &http.Client{Timeout: cfg.timeout},
		HTTPOptions: genai.HTTPOptions{BaseURL: cfg.baseURL},
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	return &GeminiGenerator{client: client, model: cfg.model, now: time.Now}, nil
}

// Generate sends the directive, plus the source image when present, and
// returns the first inline image of the response as a data URL.
func (g *GeminiGenerator) Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error) {
	parts := []*genai.Part{genai.NewPartFromText(buildDirective(req))}
	if req.SourceImage != "" {
		mimeType, data, err := decodeDataURL(req.SourceImage)
		if err != nil {
			return nil, fmt.Errorf("source image: %w", err)
		}
		parts = append(parts, genai.NewPartFromBytes(data, mimeType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, nil)
	if err != nil {
		return nil, fmt.Errorf("gemini: %w", err)
	}

	result := &GenerationResult{Params: req.Params}
	for _, cand := range resp.Candidates {
		if cand.Content != nil {
			for _, part := range cand.Content.Parts {
				if part.InlineData != nil && result.ImageURL == "" {
					result.ImageURL = encodeDataURL(part.InlineData.MIMEType, part.InlineData.Data)
				}
			}
		}
		if cand.GroundingMetadata != nil {
			for _, chunk := range cand.GroundingMetadata.GroundingChunks {
				if chunk.Web != nil {
					result.GroundingLinks = append(result.GroundingLinks, GroundingLink{Title: chunk.Web.Title, URI: chunk.Web.URI})
				}
			}
		}
	}
	if result.ImageURL == "" {
		return nil, fmt.Errorf("gemini: no image in response")
	}

	result.Logs = []model.AgentStatus{{
		Type:       "Visual Archivist",
		Status:     model.AgentCompleted,
		Message:    "Image synthesized by " + g.model + ".",
		Timestamp:  g.now().UnixMilli(),
		Department: "Direction",
	}}
	return result, nil
}
