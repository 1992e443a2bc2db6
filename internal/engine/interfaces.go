package engine

import (
	"context"
	"encoding/json"

	"github.com/yangwenmai/latentvault/internal/model"
)

// Generator abstracts the image-generation provider. Implementations can wrap
// Gemini, a local model, or a stub.
type Generator interface {
	Generate(ctx context.Context, req GenerationRequest) (*GenerationResult, error)
}

// SlotRef is a resolved slot: the vault record that feeds one domain of the
// next request.
type SlotRef struct {
	Domain  model.Domain    `json:"domain"`
	ShortID string          `json:"id"`
	Name    string          `json:"name"`
	Prompt  string          `json:"prompt"`
	DNA     json.RawMessage `json:"dna,omitempty"`
	Weight  int             `json:"weight"`
}

// GenerationRequest is everything the provider receives for one run.
type GenerationRequest struct {
	Prompt      string          `json:"prompt"`
	SourceImage string          `json:"sourceImage,omitempty"`
	Params      json.RawMessage `json:"params,omitempty"`
	Slots       []SlotRef       `json:"slots"`
	Vault       []model.Summary `json:"vault"`
}

// GroundingLink is a web source the provider cited.
type GroundingLink struct {
	Title string `json:"title"`
	URI   string `json:"uri"`
}

// GenerationResult is what the provider returns. The vault stores it as-is
// when the user commits it.
type GenerationResult struct {
	ImageURL       string              `json:"imageUrl"`
	Logs           []model.AgentStatus `json:"logs"`
	Params         json.RawMessage     `json:"params,omitempty"`
	Grading        *model.Grading      `json:"grading,omitempty"`
	GroundingLinks []GroundingLink     `json:"groundingLinks,omitempty"`
}

// VaultAccess is the slice of the vault a generation session needs.
type VaultAccess interface {
	ResolveSlots(ctx context.Context) (map[model.Domain]*model.Record, error)
	Summaries(ctx context.Context) ([]model.Summary, error)
	IncrementUsage(ctx context.Context, shortID string) (*model.Record, error)
	FindByShortID(ctx context.Context, shortID string) (*model.Record, error)
	Save(ctx context.Context, rec model.Record) error
}
