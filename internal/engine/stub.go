package engine

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"github.com/yangwenmai/latentvault/internal/model"
)

// stubPNG is a 1x1 transparent PNG.
var stubPNG, _ = base64.StdEncoding.DecodeString(
	"iVBORw0KGgoAAAANSUhEUgAAAAEAAAABCAQAAAC1HAwCAAAAC0lEQVR42mNkYAAAAAYAAjCB0C8AAAAASUVORK5CYII=")

// StubGenerator returns a fixed placeholder image (for development/testing).
// With a source image it echoes the source back.
type StubGenerator struct {
	mu sync.Mutex

	// Err, when set, is returned by every call.
	Err error

	// Requests records every request received.
	Requests []GenerationRequest
}

// Calls returns a copy of the requests received so far.
func (g *StubGenerator) Calls() []GenerationRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]GenerationRequest(nil), g.Requests...)
}

func (g *StubGenerator) Generate(_ context.Context, req GenerationRequest) (*GenerationResult, error) {
	g.mu.Lock()
	g.Requests = append(g.Requests, req)
	g.mu.Unlock()
	if g.Err != nil {
		return nil, g.Err
	}

	imageURL := req.SourceImage
	if imageURL == "" {
		imageURL = encodeDataURL("image/png", stubPNG)
	}
	return &GenerationResult{
		ImageURL: imageURL,
		Params:   req.Params,
		Logs: []model.AgentStatus{{
			Type:       "Visual Archivist",
			Status:     model.AgentCompleted,
			Message:    fmt.Sprintf("[Stub] %d slot(s), %d vault node(s) considered.", len(req.Slots), len(req.Vault)),
			Department: "Direction",
		}},
	}, nil
}
