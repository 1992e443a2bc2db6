package vault

import (
	"slices"

	"github.com/yangwenmai/latentvault/internal/model"
)

// List filters records by domain and orders them for display: favourites
// first, then by preference score descending. Records that compare equal keep
// their input order. The input slice is not modified.
func List(records []model.Record, filter model.DomainFilter) []model.Record {
	out := make([]model.Record, 0, len(records))
	for _, r := range records {
		if filter.Matches(r.Domain) {
			out = append(out, r)
		}
	}
	slices.SortStableFunc(out, compareForDisplay)
	return out
}

func compareForDisplay(a, b model.Record) int {
	if a.IsFavorite != b.IsFavorite {
		if a.IsFavorite {
			return -1
		}
		return 1
	}
	return b.PreferenceScore - a.PreferenceScore
}
