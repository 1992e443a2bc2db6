package engine

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yangwenmai/latentvault/internal/model"
)

func TestBuildDirective(t *testing.T) {
	req := GenerationRequest{
		Prompt: "a red door",
		Slots: []SlotRef{
			{Domain: model.DomainX, ShortID: "LCP-10001", Name: "hero", Weight: 50},
			{Domain: model.DomainL, ShortID: "LCP-10002", DNA: json.RawMessage(`{"key":"rim"}`), Weight: 20},
		},
		Vault: []model.Summary{{ShortID: "LCP-10001", Domain: model.DomainX, Score: 55}},
	}

	got := buildDirective(req)
	lines := strings.Split(strings.TrimSpace(got), "\n")
	want := []string{
		"[LGN] a red door",
		"[VAULT_X] (IDENTITY, weight 50) LCP-10001: hero",
		`[VAULT_L] (LIGHT, weight 20) LCP-10002: {"key":"rim"}`,
		`Vault: [{"id":"LCP-10001","domain":"X","fav":false,"score":55}]`,
	}
	assert.Equal(t, want, lines)
}

func TestBuildDirective_NoSlots(t *testing.T) {
	assert.Equal(t, "[LGN] hello\n", buildDirective(GenerationRequest{Prompt: "hello"}))
}

func TestTruncateRunes(t *testing.T) {
	assert.Equal(t, "héll", truncateRunes("héllo", 4))
	assert.Equal(t, "hi", truncateRunes("hi", 4))
}
