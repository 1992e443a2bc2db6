package store

import (
	"context"
	"fmt"

	"github.com/yangwenmai/latentvault/internal/model"
)

// RecordError reports a single record that failed during a bulk write.
type RecordError struct {
	Index int    `json:"index"`
	ID    string `json:"id"`
	Err   error  `json:"-"`
}

func (e RecordError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("record #%d: %v", e.Index, e.Err)
	}
	return fmt.Sprintf("record %s: %v", e.ID, e.Err)
}

func (e RecordError) Unwrap() error { return e.Err }

// BulkResult is the outcome of BulkPut. Writes are best-effort: records that
// failed are listed in Failed and earlier writes are not rolled back.
type BulkResult struct {
	Written int           `json:"written"`
	Failed  []RecordError `json:"failed,omitempty"`
}

// RecordReader provides read access to vault records.
type RecordReader interface {
	Get(ctx context.Context, id string) (*model.Record, error)
	GetAll(ctx context.Context) ([]model.Record, error)
	FindByShortID(ctx context.Context, shortID string) (*model.Record, error)
}

// RecordWriter provides whole-record writes and deletes.
type RecordWriter interface {
	Put(ctx context.Context, rec model.Record) error
	BulkPut(ctx context.Context, recs []model.Record) BulkResult
	Delete(ctx context.Context, id string) error
	DeleteMany(ctx context.Context, ids []string) (int64, error)
	Clear(ctx context.Context) (int64, error)
}

// RecordMutator provides the read-modify-write operations. Each one reads and
// writes inside a single transaction.
type RecordMutator interface {
	ToggleFavorite(ctx context.Context, id string) (*model.Record, error)
	IncrementUsage(ctx context.Context, shortID string) (*model.Record, error)
	UpdateGrading(ctx context.Context, id string, g *model.Grading) (*model.Record, error)
}

// Repository combines all vault record operations.
type Repository interface {
	RecordReader
	RecordWriter
	RecordMutator
}
