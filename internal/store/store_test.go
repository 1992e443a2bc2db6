package store

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yangwenmai/latentvault/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	s, err := New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

// eachRepository runs fn against the SQLite store and the in-memory store.
func eachRepository(t *testing.T, fn func(t *testing.T, r Repository)) {
	t.Run("sqlite", func(t *testing.T) { fn(t, newTestStore(t)) })
	t.Run("memory", func(t *testing.T) { fn(t, NewMemory()) })
}

func makeRecord(id, shortID string, domain model.Domain) model.Record {
	rec := model.NewRecord(id, shortID, "a portrait in soft light "+id, domain)
	rec.ImageURL = "data:image/png;base64,AAAA"
	rec.OriginalImageURL = rec.ImageURL
	rec.AgentHistory = []model.AgentStatus{
		{Type: "Director", Status: model.AgentCompleted, Message: "done", Timestamp: 1700000000000},
	}
	rec.Params = json.RawMessage(`{"z_anatomy":0.8,"hz_range":"4-8"}`)
	return rec
}

func TestPutAndGet(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		rec := makeRecord("rec-1", "LCP-10001", model.DomainY)
		rec.Grading = &model.Grading{Brightness: 1.1, PresetName: "NOIR", CSSFilter: "contrast(1.2)"}

		require.NoError(t, r.Put(ctx, rec))

		got, err := r.Get(ctx, "rec-1")
		require.NoError(t, err)
		assert.Equal(t, rec, *got)
	})
}

func TestGet_NotFound(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		_, err := r.Get(context.Background(), "nonexistent")
		if !errors.Is(err, model.ErrNotFound) {
			t.Fatalf("err = %v, want ErrNotFound", err)
		}
	})
}

func TestPut_Idempotent(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		rec := makeRecord("rec-1", "LCP-10001", model.DomainX)

		require.NoError(t, r.Put(ctx, rec))
		require.NoError(t, r.Put(ctx, rec))

		all, err := r.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 1)
		assert.Equal(t, rec, all[0])
	})
}

func TestPut_ReplacesWholeRecordInPlace(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Put(ctx, makeRecord("a", "LCP-1", model.DomainX)))
		require.NoError(t, r.Put(ctx, makeRecord("b", "LCP-2", model.DomainX)))

		replacement := makeRecord("a", "LCP-9", model.DomainZ)
		replacement.Grading = nil
		replacement.UsageCount = 4
		require.NoError(t, r.Put(ctx, replacement))

		all, err := r.GetAll(ctx)
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "a", all[0].ID, "replaced record keeps its storage position")
		assert.Equal(t, "LCP-9", all[0].ShortID)
		assert.Equal(t, model.DomainZ, all[0].Domain)
		assert.Equal(t, 4, all[0].UsageCount)
	})
}

func TestPut_NormalizesDefaults(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		var rec model.Record
		require.NoError(t, json.Unmarshal([]byte(`{"id":"partial","shortId":"LCP-7","rating":3}`), &rec))

		require.NoError(t, r.Put(ctx, rec))

		got, err := r.Get(ctx, "partial")
		require.NoError(t, err)
		assert.Equal(t, model.DefaultDomain, got.Domain)
		assert.Equal(t, 50, got.PreferenceScore)
		assert.Equal(t, 0, got.UsageCount)
		assert.False(t, got.IsFavorite)
	})
}

func TestPut_ClampsScore(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		rec := makeRecord("rec-1", "LCP-1", model.DomainX)
		rec.PreferenceScore = 250
		require.NoError(t, r.Put(ctx, rec))

		got, err := r.Get(ctx, "rec-1")
		require.NoError(t, err)
		assert.Equal(t, 100, got.PreferenceScore)
	})
}

func TestPut_MissingID(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		err := r.Put(context.Background(), makeRecord("", "LCP-1", model.DomainX))
		if !errors.Is(err, model.ErrInvalidRecord) {
			t.Fatalf("err = %v, want ErrInvalidRecord", err)
		}
	})
}

func TestDelete_Idempotent(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Put(ctx, makeRecord("rec-1", "LCP-1", model.DomainX)))

		require.NoError(t, r.Delete(ctx, "rec-1"))
		require.NoError(t, r.Delete(ctx, "rec-1"))
		require.NoError(t, r.Delete(ctx, "never-existed"))

		_, err := r.Get(ctx, "rec-1")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestDeleteManyAndClear(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		for _, id := range []string{"a", "b", "c", "d"} {
			require.NoError(t, r.Put(ctx, makeRecord(id, "LCP-"+id, model.DomainX)))
		}

		n, err := r.DeleteMany(ctx, []string{"a", "c", "missing"})
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		n, err = r.DeleteMany(ctx, nil)
		require.NoError(t, err)
		assert.Zero(t, n)

		n, err = r.Clear(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), n)

		all, err := r.GetAll(ctx)
		require.NoError(t, err)
		assert.Empty(t, all)
	})
}

func TestBulkPut_BestEffort(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		recs := []model.Record{
			makeRecord("a", "LCP-1", model.DomainX),
			makeRecord("", "LCP-2", model.DomainY),
			makeRecord("c", "LCP-3", model.DomainZ),
		}

		res := r.BulkPut(ctx, recs)
		assert.Equal(t, 2, res.Written)
		require.Len(t, res.Failed, 1)
		assert.Equal(t, 1, res.Failed[0].Index)
		assert.ErrorIs(t, res.Failed[0], model.ErrInvalidRecord)

		all, err := r.GetAll(ctx)
		require.NoError(t, err)
		assert.Len(t, all, 2)
	})
}

func TestFindByShortID_FirstInStorageOrder(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Put(ctx, makeRecord("first", "LCP-DUP", model.DomainX)))
		require.NoError(t, r.Put(ctx, makeRecord("second", "LCP-DUP", model.DomainX)))

		got, err := r.FindByShortID(ctx, "LCP-DUP")
		require.NoError(t, err)
		assert.Equal(t, "first", got.ID)

		_, err = r.FindByShortID(ctx, "LCP-NONE")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestToggleFavorite(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Put(ctx, makeRecord("rec-1", "LCP-1", model.DomainX)))

		on, err := r.ToggleFavorite(ctx, "rec-1")
		require.NoError(t, err)
		assert.True(t, on.IsFavorite)
		assert.Equal(t, 70, on.PreferenceScore)

		off, err := r.ToggleFavorite(ctx, "rec-1")
		require.NoError(t, err)
		assert.False(t, off.IsFavorite)
		assert.Equal(t, 70, off.PreferenceScore, "un-favouriting never lowers the score")

		stored, err := r.Get(ctx, "rec-1")
		require.NoError(t, err)
		assert.Equal(t, *off, *stored)
	})
}

func TestToggleFavorite_NotFound(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		_, err := r.ToggleFavorite(context.Background(), "missing")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestIncrementUsage(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		rec := makeRecord("rec-1", "LCP-1", model.DomainX)
		rec.Rating = 5
		rec.IsFavorite = true
		require.NoError(t, r.Put(ctx, rec))

		got, err := r.IncrementUsage(ctx, "LCP-1")
		require.NoError(t, err)
		assert.Equal(t, 1, got.UsageCount)
		assert.Equal(t, 75, got.PreferenceScore)
	})
}

func TestIncrementUsage_BackToBack(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Put(ctx, makeRecord("rec-1", "LCP-1", model.DomainX)))

		_, err := r.IncrementUsage(ctx, "LCP-1")
		require.NoError(t, err)
		_, err = r.IncrementUsage(ctx, "LCP-1")
		require.NoError(t, err)

		got, err := r.Get(ctx, "rec-1")
		require.NoError(t, err)
		assert.Equal(t, 2, got.UsageCount)
		assert.Equal(t, 2*5+5*10, got.PreferenceScore)
	})
}

func TestIncrementUsage_ConcurrentCallersDoNotLoseUpdates(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Put(ctx, makeRecord("rec-1", "LCP-1", model.DomainX)))

		const n = 16
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				if _, err := r.IncrementUsage(ctx, "LCP-1"); err != nil {
					errs <- err
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Errorf("IncrementUsage: %v", err)
		}

		got, err := r.Get(ctx, "rec-1")
		require.NoError(t, err)
		assert.Equal(t, n, got.UsageCount)
	})
}

func TestIncrementUsage_UnknownShortID(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		_, err := r.IncrementUsage(context.Background(), "LCP-404")
		assert.ErrorIs(t, err, model.ErrNotFound)
	})
}

func TestUpdateGrading(t *testing.T) {
	eachRepository(t, func(t *testing.T, r Repository) {
		ctx := context.Background()
		require.NoError(t, r.Put(ctx, makeRecord("rec-1", "LCP-1", model.DomainL)))

		g := &model.Grading{Brightness: 1.2, Contrast: 0.9, Saturation: 1, PresetName: "WARM", CSSFilter: "sepia(0.3)"}
		got, err := r.UpdateGrading(ctx, "rec-1", g)
		require.NoError(t, err)
		assert.Equal(t, g, got.Grading)

		stored, err := r.Get(ctx, "rec-1")
		require.NoError(t, err)
		assert.Equal(t, g, stored.Grading)
		assert.Equal(t, 50, stored.PreferenceScore, "grading does not touch the score")

		cleared, err := r.UpdateGrading(ctx, "rec-1", nil)
		require.NoError(t, err)
		assert.Nil(t, cleared.Grading)
	})
}

func TestNew_ReopenIsIdempotent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "reopen.db")
	ctx := context.Background()

	db, err := OpenSQLite(dbPath)
	require.NoError(t, err)
	s, err := New(db)
	require.NoError(t, err)
	require.NoError(t, s.Put(ctx, makeRecord("rec-1", "LCP-1", model.DomainX)))
	require.NoError(t, db.Close())

	db, err = OpenSQLite(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	s, err = New(db)
	require.NoError(t, err)

	var version int
	require.NoError(t, db.QueryRow(`SELECT version FROM schema_version`).Scan(&version))
	assert.Equal(t, currentSchemaVersion, version)

	got, err := s.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "LCP-1", got.ShortID)
}

func TestStore_ClosedDatabaseIsUnavailable(t *testing.T) {
	s := newTestStore(t)
	s.db.Close()

	_, err := s.GetAll(context.Background())
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)

	err = s.Put(context.Background(), makeRecord("rec-1", "LCP-1", model.DomainX))
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
}

func TestMemory_ReturnsCopies(t *testing.T) {
	m := NewMemory()
	ctx := context.Background()
	require.NoError(t, m.Put(ctx, makeRecord("rec-1", "LCP-1", model.DomainX)))

	got, err := m.Get(ctx, "rec-1")
	require.NoError(t, err)
	got.AgentHistory[0].Message = "mutated"
	got.PreferenceScore = 1

	again, err := m.Get(ctx, "rec-1")
	require.NoError(t, err)
	assert.Equal(t, "done", again.AgentHistory[0].Message)
	assert.Equal(t, 50, again.PreferenceScore)
}
