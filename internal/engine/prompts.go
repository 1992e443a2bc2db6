package engine

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

const maxPromptRunes = 4000

// buildDirective renders the text part of a generation request: the user
// prompt followed by one line per consumed slot and the vault overview.
func buildDirective(req GenerationRequest) string {
	var sb strings.Builder
	sb.WriteString("[LGN] ")
	sb.WriteString(truncateRunes(req.Prompt, maxPromptRunes))
	sb.WriteString("\n")

	for _, ref := range req.Slots {
		desc := ref.Name
		if len(ref.DNA) > 0 {
			desc = string(ref.DNA)
		} else if ref.Prompt != "" {
			desc = truncateRunes(ref.Prompt, 280)
		}
		fmt.Fprintf(&sb, "[VAULT_%s] (%s, weight %d) %s: %s\n",
			ref.Domain, strings.ToUpper(ref.Domain.Label()), ref.Weight, ref.ShortID, desc)
	}

	if len(req.Vault) > 0 {
		fmt.Fprintf(&sb, "Vault: %s\n", mustJSON(req.Vault))
	}
	return sb.String()
}

func mustJSON(v interface{}) string {
	b, _ := json.Marshal(v)
	return string(b)
}

func truncateRunes(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
