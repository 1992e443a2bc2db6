package model

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/yangwenmai/latentvault/internal/scoring"
)

// Agent status values.
const (
	AgentIdle       = "idle"
	AgentProcessing = "processing"
	AgentCompleted  = "completed"
	AgentError      = "error"
)

// AgentStatus is one entry of the status log produced while generating an artifact.
type AgentStatus struct {
	Type       string `json:"type"`
	Status     string `json:"status"`
	Message    string `json:"message"`
	Timestamp  int64  `json:"timestamp"`
	Department string `json:"department,omitempty"`
}

// Grading is the colour/post-processing snapshot attached to a record.
// The vault stores it without interpreting it.
type Grading struct {
	Brightness float64 `json:"brightness"`
	Contrast   float64 `json:"contrast"`
	Saturation float64 `json:"saturation"`
	Sharpness  float64 `json:"sharpness"`
	Blur       float64 `json:"blur"`
	HueRotate  float64 `json:"hueRotate"`
	Sepia      float64 `json:"sepia"`
	PresetName string  `json:"preset_name"`
	CSSFilter  string  `json:"css_filter_string"`
}

// Record is a persisted vault entry: one generated artifact and its metadata.
//
// Only IsFavorite, UsageCount, PreferenceScore and Grading change after
// creation.
type Record struct {
	ID               string          `json:"id" validate:"required"`
	ShortID          string          `json:"shortId"`
	Name             string          `json:"name"`
	ImageURL         string          `json:"imageUrl"`
	OriginalImageURL string          `json:"originalImageUrl"`
	Prompt           string          `json:"prompt"`
	AgentHistory     []AgentStatus   `json:"agentHistory"`
	Params           json.RawMessage `json:"params,omitempty"`
	DNA              json.RawMessage `json:"dna,omitempty"`
	Grading          *Grading        `json:"grading,omitempty"`
	Domain           Domain          `json:"vaultDomain" validate:"required"`
	Rating           int             `json:"rating" validate:"gte=0"`
	Timestamp        int64           `json:"timestamp"`
	UsageCount       int             `json:"usageCount" validate:"gte=0"`
	IsFavorite       bool            `json:"isFavorite"`
	PreferenceScore  int             `json:"neuralPreferenceScore" validate:"gte=0,lte=100"`
}

// NewRecord returns a record in its initial state: unused, not a favourite,
// neutral score.
func NewRecord(id, shortID, prompt string, domain Domain) Record {
	if !domain.Valid() {
		domain = DefaultDomain
	}
	return Record{
		ID:              id,
		ShortID:         shortID,
		Name:            NameFromPrompt(prompt),
		Prompt:          prompt,
		Domain:          domain,
		Rating:          5,
		Timestamp:       time.Now().UnixMilli(),
		PreferenceScore: scoring.NeutralScore,
	}
}

// NameFromPrompt joins the first three words of prompt with underscores.
func NameFromPrompt(prompt string) string {
	words := strings.Fields(prompt)
	if len(words) > 3 {
		words = words[:3]
	}
	return strings.Join(words, "_")
}

// Normalize applies defaults and clamps so a partially specified record
// cannot corrupt scoring or filtering.
func (r *Record) Normalize() {
	if !r.Domain.Valid() {
		r.Domain = DefaultDomain
	}
	if r.UsageCount < 0 {
		r.UsageCount = 0
	}
	r.PreferenceScore = scoring.Clamp(r.PreferenceScore)
}

var validate = validator.New()

// Validate checks the record's required fields.
func (r *Record) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}
	return nil
}

// Summary is the compact view of a record handed to the generation collaborator.
type Summary struct {
	ShortID  string `json:"id"`
	Domain   Domain `json:"domain"`
	Favorite bool   `json:"fav"`
	Score    int    `json:"score"`
}

// Summary returns the collaborator view of r.
func (r *Record) Summary() Summary {
	return Summary{ShortID: r.ShortID, Domain: r.Domain, Favorite: r.IsFavorite, Score: r.PreferenceScore}
}

// UnmarshalJSON decodes a record, applying the neutral score when the
// document omits it.
func (r *Record) UnmarshalJSON(b []byte) error {
	type plain Record
	aux := struct {
		*plain
		PreferenceScore *int `json:"neuralPreferenceScore"`
	}{plain: (*plain)(r)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.PreferenceScore != nil {
		r.PreferenceScore = *aux.PreferenceScore
	} else {
		r.PreferenceScore = scoring.NeutralScore
	}
	return nil
}

// Clone returns a copy of r that shares no mutable memory with it.
func (r Record) Clone() Record {
	c := r
	if r.AgentHistory != nil {
		c.AgentHistory = append([]AgentStatus(nil), r.AgentHistory...)
	}
	if r.Params != nil {
		c.Params = append(json.RawMessage(nil), r.Params...)
	}
	if r.DNA != nil {
		c.DNA = append(json.RawMessage(nil), r.DNA...)
	}
	if r.Grading != nil {
		g := *r.Grading
		c.Grading = &g
	}
	return c
}
