package vault

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangwenmai/latentvault/internal/model"
	"github.com/yangwenmai/latentvault/internal/scoring"
	"github.com/yangwenmai/latentvault/internal/store"
)

func TestService_UsageIncrementExample(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory(), nil)
	r := model.NewRecord("id-1", "LCP-1", "x", model.DomainX)
	r.Rating = 5
	r.IsFavorite = true
	require.NoError(t, svc.Save(ctx, r))

	got, err := svc.IncrementUsage(ctx, "LCP-1")
	require.NoError(t, err)
	assert.Equal(t, 1, got.UsageCount)
	assert.Equal(t, 75, got.PreferenceScore)
}

func TestService_ScoreStaysClampedAndUnfavoriteNeverLowers(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory(), nil)
	r := model.NewRecord("id-1", "LCP-1", "x", model.DomainX)
	r.Rating = 9
	require.NoError(t, svc.Save(ctx, r))

	for i := 0; i < 40; i++ {
		var (
			got *model.Record
			err error
		)
		if i%4 == 0 {
			before, gErr := svc.Get(ctx, "id-1")
			require.NoError(t, gErr)
			got, err = svc.ToggleFavorite(ctx, "id-1")
			require.NoError(t, err)
			if !got.IsFavorite {
				assert.Equal(t, before.PreferenceScore, got.PreferenceScore, "step %d: un-favourite changed score", i)
			}
		} else {
			got, err = svc.IncrementUsage(ctx, "LCP-1")
			require.NoError(t, err)
		}
		assert.GreaterOrEqual(t, got.PreferenceScore, scoring.MinScore, "step %d", i)
		assert.LessOrEqual(t, got.PreferenceScore, scoring.MaxScore, "step %d", i)
	}
}

func TestService_ListAndSummaries(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory(), nil)
	require.NoError(t, svc.Save(ctx, rec("A", false, 80, model.DomainX)))
	require.NoError(t, svc.Save(ctx, rec("B", true, 10, model.DomainY)))
	require.NoError(t, svc.Save(ctx, rec("C", false, 80, model.DomainY)))

	all, err := svc.List(ctx, model.FilterAll)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "A", "C"}, ids(all))

	ys, err := svc.List(ctx, model.FilterFor(model.DomainY))
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, ids(ys))

	sums, err := svc.Summaries(ctx)
	require.NoError(t, err)
	require.Len(t, sums, 3)
	assert.Equal(t, model.Summary{ShortID: "LCP-B", Domain: model.DomainY, Favorite: true, Score: 10}, sums[0])
}

func TestService_ToggleFavoriteMissing(t *testing.T) {
	svc := NewService(store.NewMemory(), nil)
	_, err := svc.ToggleFavorite(context.Background(), "ghost")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestService_CommitGrading(t *testing.T) {
	ctx := context.Background()
	svc := NewService(store.NewMemory(), nil)
	require.NoError(t, svc.Save(ctx, rec("A", false, 60, model.DomainZ)))

	g := &model.Grading{Sepia: 0.4, PresetName: "VINTAGE", CSSFilter: "sepia(0.4)"}
	got, err := svc.CommitGrading(ctx, "A", g)
	require.NoError(t, err)
	assert.Equal(t, g, got.Grading)
	assert.Equal(t, 60, got.PreferenceScore)
}
