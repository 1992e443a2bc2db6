package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/yangwenmai/latentvault/internal/model"
)

const (
	// DefaultSlotWeight is used for a filled slot with no explicit weight.
	DefaultSlotWeight = 50

	defaultRating   = 5
	shortIDPrefix   = "LCP-"
	shortIDAttempts = 8
)

// RunInput is one generation request from the workspace.
type RunInput struct {
	Prompt      string               `json:"prompt" validate:"required"`
	SourceImage string               `json:"sourceImage,omitempty"`
	Params      json.RawMessage      `json:"params,omitempty"`
	Weights     map[model.Domain]int `json:"weights,omitempty"`
}

// CommitInput is a generation result the user chose to keep.
type CommitInput struct {
	Prompt           string              `json:"prompt"`
	ImageURL         string              `json:"imageUrl" validate:"required"`
	OriginalImageURL string              `json:"originalImageUrl,omitempty"`
	Logs             []model.AgentStatus `json:"logs"`
	Params           json.RawMessage     `json:"params,omitempty"`
	DNA              json.RawMessage     `json:"dna,omitempty"`
	Grading          *model.Grading      `json:"grading,omitempty"`
	Domain           model.Domain        `json:"vaultDomain"`
	Rating           int                 `json:"rating" validate:"gte=0"`
}

var validate = validator.New()

// Session runs generation requests against the vault's slots and commits
// results back into the vault.
type Session struct {
	vault     VaultAccess
	generator Generator
	now       func() time.Time
}

// NewSession creates a session with the given dependencies.
func NewSession(v VaultAccess, g Generator) *Session {
	return &Session{vault: v, generator: g, now: time.Now}
}

// Run executes one generation:
//  1. resolve the four slots against the vault,
//  2. build the request with the vault summaries,
//  3. call the generator,
//  4. count one use for every record that fed the request.
//
// On failure it returns a *StepError indicating which step failed.
func (s *Session) Run(ctx context.Context, in RunInput) (*GenerationResult, error) {
	if err := validate.Struct(in); err != nil {
		return nil, &StepError{Step: "validate", Err: err}
	}

	slots, err := s.runResolve(ctx, in.Weights)
	if err != nil {
		return nil, &StepError{Step: "resolve_slots", Err: err}
	}

	summaries, err := s.vault.Summaries(ctx)
	if err != nil {
		return nil, &StepError{Step: "summaries", Err: err}
	}

	req := GenerationRequest{
		Prompt:      in.Prompt,
		SourceImage: in.SourceImage,
		Params:      in.Params,
		Slots:       slots,
		Vault:       summaries,
	}
	result, err := s.generator.Generate(ctx, req)
	if err != nil {
		return nil, &StepError{Step: "generate", Err: err}
	}

	if err := s.runRecordUsage(ctx, slots); err != nil {
		return nil, &StepError{Step: "record_usage", Err: err}
	}

	result.Logs = append(result.Logs, s.status("Vault Prioritizer",
		fmt.Sprintf("%d vault slot(s) consumed.", len(slots))))
	if result.Params == nil {
		result.Params = in.Params
	}
	return result, nil
}

// Commit stores a generation result as a new vault record in its initial
// state and returns it.
func (s *Session) Commit(ctx context.Context, in CommitInput) (*model.Record, error) {
	if err := validate.Struct(in); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidRecord, err)
	}

	shortID, err := s.newShortID(ctx)
	if err != nil {
		return nil, &StepError{Step: "short_id", Err: err}
	}

	rec := model.NewRecord(uuid.New().String(), shortID, in.Prompt, in.Domain)
	rec.Timestamp = s.now().UnixMilli()
	rec.ImageURL = in.ImageURL
	rec.OriginalImageURL = in.OriginalImageURL
	if rec.OriginalImageURL == "" {
		rec.OriginalImageURL = in.ImageURL
	}
	rec.AgentHistory = in.Logs
	rec.Params = in.Params
	rec.DNA = in.DNA
	rec.Grading = in.Grading
	if in.Rating > 0 {
		rec.Rating = in.Rating
	} else {
		rec.Rating = defaultRating
	}

	if err := s.vault.Save(ctx, rec); err != nil {
		return nil, &StepError{Step: "save", Err: err}
	}
	return &rec, nil
}

// newShortID picks a display id that no stored record uses yet, so usage
// lookups by short id stay unambiguous for committed records.
func (s *Session) newShortID(ctx context.Context) (string, error) {
	for i := 0; i < shortIDAttempts; i++ {
		id := fmt.Sprintf("%s%05d", shortIDPrefix, 10000+rand.IntN(90000))
		_, err := s.vault.FindByShortID(ctx, id)
		if errors.Is(err, model.ErrNotFound) {
			return id, nil
		}
		if err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("no free short id after %d attempts", shortIDAttempts)
}

func (s *Session) status(agent, msg string) model.AgentStatus {
	return model.AgentStatus{
		Type:       agent,
		Status:     model.AgentCompleted,
		Message:    msg,
		Timestamp:  s.now().UnixMilli(),
		Department: "Direction",
	}
}

// StepError wraps an error with the step name that failed.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return e.Step + ": " + e.Err.Error()
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// StepName returns the failed step.
func (e *StepError) StepName() string {
	return e.Step
}
