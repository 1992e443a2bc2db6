package engine

import (
	"context"
	"errors"

	"github.com/yangwenmai/latentvault/internal/model"
)

// ---------------------------------------------------------------------------
// Step 1: Resolve slots
// ---------------------------------------------------------------------------

// runResolve turns the filled slots into SlotRefs in domain order. Slots
// whose reference no longer matches a record are skipped.
func (s *Session) runResolve(ctx context.Context, weights map[model.Domain]int) ([]SlotRef, error) {
	resolved, err := s.vault.ResolveSlots(ctx)
	if err != nil {
		return nil, err
	}

	var refs []SlotRef
	for _, d := range model.Domains {
		rec := resolved[d]
		if rec == nil {
			continue
		}
		weight, ok := weights[d]
		if !ok {
			weight = DefaultSlotWeight
		}
		refs = append(refs, SlotRef{
			Domain:  d,
			ShortID: rec.ShortID,
			Name:    rec.Name,
			Prompt:  rec.Prompt,
			DNA:     rec.DNA,
			Weight:  weight,
		})
	}
	return refs, nil
}

// ---------------------------------------------------------------------------
// Step 4: Record usage
// ---------------------------------------------------------------------------

// runRecordUsage counts one use per consumed slot. A record deleted while the
// generation ran is skipped.
func (s *Session) runRecordUsage(ctx context.Context, refs []SlotRef) error {
	for _, ref := range refs {
		if _, err := s.vault.IncrementUsage(ctx, ref.ShortID); err != nil {
			if errors.Is(err, model.ErrNotFound) {
				continue
			}
			return err
		}
	}
	return nil
}
