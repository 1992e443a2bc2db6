package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/yangwenmai/latentvault/internal/model"
	"github.com/yangwenmai/latentvault/internal/scoring"
)

// Verify at compile time that Store implements all interfaces.
var (
	_ RecordReader  = (*Store)(nil)
	_ RecordWriter  = (*Store)(nil)
	_ RecordMutator = (*Store)(nil)
	_ Repository    = (*Store)(nil)
)

// Store persists vault records in the vault_nodes table of a SQLite database.
type Store struct {
	db *sql.DB
}

// New creates a new Store and initialises the schema. Opening an already
// initialised database is a no-op.
func New(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w: %w", model.ErrStorageUnavailable, err)
	}
	return s, nil
}

// currentSchemaVersion is bumped whenever the schema changes.
// Add a new migration function in the migrations slice below.
const currentSchemaVersion = 2

func (s *Store) migrate() error {
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	var version int
	err := s.db.QueryRow(`SELECT version FROM schema_version LIMIT 1`).Scan(&version)
	if errors.Is(err, sql.ErrNoRows) {
		if _, err := s.db.Exec(`INSERT INTO schema_version (version) VALUES (0)`); err != nil {
			return fmt.Errorf("init schema version: %w", err)
		}
		version = 0
	} else if err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}

	// Index 0 = migration from v0 to v1, etc.
	migrations := []func() error{
		s.migrateV1, // v0 → v1: vault_nodes
		s.migrateV2, // v1 → v2: short_id and domain lookups
	}

	for i := version; i < len(migrations); i++ {
		if err := migrations[i](); err != nil {
			return fmt.Errorf("migration v%d→v%d: %w", i, i+1, err)
		}
		if _, err := s.db.Exec(`UPDATE schema_version SET version = ?`, i+1); err != nil {
			return fmt.Errorf("update schema version to %d: %w", i+1, err)
		}
	}
	return nil
}

// migrateV1 creates the vault_nodes table (v0 → v1). Mutable fields get their
// own columns; the immutable payload is kept as a JSON body.
func (s *Store) migrateV1() error {
	_, err := s.db.Exec(`
	CREATE TABLE IF NOT EXISTS vault_nodes (
		id               TEXT PRIMARY KEY,
		short_id         TEXT NOT NULL,
		domain           TEXT NOT NULL,
		rating           INTEGER NOT NULL DEFAULT 0,
		created_at       INTEGER NOT NULL,
		usage_count      INTEGER NOT NULL DEFAULT 0,
		is_favorite      INTEGER NOT NULL DEFAULT 0,
		preference_score INTEGER NOT NULL DEFAULT 50,
		grading          TEXT,
		body             TEXT NOT NULL
	)`)
	return err
}

// migrateV2 adds indexes for usage lookups and domain listing (v1 → v2).
func (s *Store) migrateV2() error {
	_, err := s.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_vault_nodes_short_id ON vault_nodes(short_id);
		CREATE INDEX IF NOT EXISTS idx_vault_nodes_domain ON vault_nodes(domain);
	`)
	return err
}

// nodeBody is the immutable part of a record, stored as JSON.
type nodeBody struct {
	Name             string              `json:"name"`
	ImageURL         string              `json:"imageUrl"`
	OriginalImageURL string              `json:"originalImageUrl"`
	Prompt           string              `json:"prompt"`
	AgentHistory     []model.AgentStatus `json:"agentHistory"`
	Params           json.RawMessage     `json:"params,omitempty"`
	DNA              json.RawMessage     `json:"dna,omitempty"`
}

const nodeColumns = `id, short_id, domain, rating, created_at, usage_count, is_favorite, preference_score, grading, body`

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// Get returns the record with the given id, or model.ErrNotFound.
func (s *Store) Get(ctx context.Context, id string) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+nodeColumns+` FROM vault_nodes WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get %s: %w", id, model.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("get "+id, err)
	}
	return rec, nil
}

// GetAll returns every record in storage order. Callers that display records
// must sort them.
func (s *Store) GetAll(ctx context.Context) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+nodeColumns+` FROM vault_nodes ORDER BY rowid`)
	if err != nil {
		return nil, unavailable("get all", err)
	}
	defer rows.Close()

	var recs []model.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, unavailable("scan", err)
		}
		recs = append(recs, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, unavailable("get all", err)
	}
	return recs, nil
}

// FindByShortID returns the first record in storage order whose short id
// matches, or model.ErrNotFound.
func (s *Store) FindByShortID(ctx context.Context, shortID string) (*model.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM vault_nodes WHERE short_id = ? ORDER BY rowid LIMIT 1`, shortID)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("short id %s: %w", shortID, model.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("find "+shortID, err)
	}
	return rec, nil
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Put inserts rec or fully replaces the record with the same id. The record
// keeps its original storage position when replaced.
func (s *Store) Put(ctx context.Context, rec model.Record) error {
	rec.Normalize()
	if err := rec.Validate(); err != nil {
		return err
	}
	args, err := recordArgs(rec)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrInvalidRecord, err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO vault_nodes (`+nodeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			short_id = excluded.short_id,
			domain = excluded.domain,
			rating = excluded.rating,
			created_at = excluded.created_at,
			usage_count = excluded.usage_count,
			is_favorite = excluded.is_favorite,
			preference_score = excluded.preference_score,
			grading = excluded.grading,
			body = excluded.body`,
		args...,
	)
	if err != nil {
		return unavailable("put "+rec.ID, err)
	}
	return nil
}

// BulkPut applies Put to each record. A failing record does not stop the
// batch and earlier writes are kept.
func (s *Store) BulkPut(ctx context.Context, recs []model.Record) BulkResult {
	return bulkPut(ctx, s, recs)
}

// Delete removes the record with the given id. Deleting a missing id is not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vault_nodes WHERE id = ?`, id); err != nil {
		return unavailable("delete "+id, err)
	}
	return nil
}

// DeleteMany removes multiple records at once and reports how many existed.
func (s *Store) DeleteMany(ctx context.Context, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`DELETE FROM vault_nodes WHERE id IN (%s)`, strings.Join(placeholders, ","))
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, unavailable("delete many", err)
	}
	return res.RowsAffected()
}

// Clear removes every record.
func (s *Store) Clear(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM vault_nodes`)
	if err != nil {
		return 0, unavailable("clear", err)
	}
	return res.RowsAffected()
}

// ---------------------------------------------------------------------------
// Read-modify-write
// ---------------------------------------------------------------------------

// ToggleFavorite flips the favourite flag of a record. Turning it on adds the
// favourite bonus to the score; turning it off leaves the score alone.
func (s *Store) ToggleFavorite(ctx context.Context, id string) (*model.Record, error) {
	return s.modify(ctx, "id", id, toggleFavorite)
}

// IncrementUsage records one use of the record with the given short id as a
// generation input and recomputes its score.
func (s *Store) IncrementUsage(ctx context.Context, shortID string) (*model.Record, error) {
	return s.modify(ctx, "short_id", shortID, incrementUsage)
}

// UpdateGrading replaces the grading snapshot of a record. A nil grading
// removes it.
func (s *Store) UpdateGrading(ctx context.Context, id string, g *model.Grading) (*model.Record, error) {
	return s.modify(ctx, "id", id, func(rec *model.Record) {
		rec.Grading = g
	})
}

// modify loads the first record matching column = key, applies fn and writes
// the mutable columns back, all in one transaction.
func (s *Store) modify(ctx context.Context, column, key string, fn func(*model.Record)) (*model.Record, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, unavailable("begin tx", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+nodeColumns+` FROM vault_nodes WHERE `+column+` = ? ORDER BY rowid LIMIT 1`, key)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s %s: %w", column, key, model.ErrNotFound)
	}
	if err != nil {
		return nil, unavailable("load "+key, err)
	}

	fn(rec)

	grading, err := marshalGrading(rec.Grading)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidRecord, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE vault_nodes SET usage_count = ?, is_favorite = ?, preference_score = ?, grading = ? WHERE id = ?`,
		rec.UsageCount, rec.IsFavorite, rec.PreferenceScore, grading, rec.ID,
	); err != nil {
		return nil, unavailable("update "+rec.ID, err)
	}
	if err := tx.Commit(); err != nil {
		return nil, unavailable("commit", err)
	}
	return rec, nil
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

func toggleFavorite(rec *model.Record) {
	rec.IsFavorite = !rec.IsFavorite
	rec.PreferenceScore = scoring.FavoriteScore(rec.PreferenceScore, rec.IsFavorite)
}

func incrementUsage(rec *model.Record) {
	rec.UsageCount++
	rec.PreferenceScore = scoring.UsageScore(rec.UsageCount, rec.Rating, rec.IsFavorite)
}

func bulkPut(ctx context.Context, w RecordWriter, recs []model.Record) BulkResult {
	var res BulkResult
	for i, rec := range recs {
		if err := w.Put(ctx, rec); err != nil {
			res.Failed = append(res.Failed, RecordError{Index: i, ID: rec.ID, Err: err})
			continue
		}
		res.Written++
	}
	return res
}

func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorageUnavailable, err)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanRecord(row scanner) (*model.Record, error) {
	var (
		rec     model.Record
		domain  string
		grading sql.NullString
		body    string
	)
	err := row.Scan(&rec.ID, &rec.ShortID, &domain, &rec.Rating, &rec.Timestamp,
		&rec.UsageCount, &rec.IsFavorite, &rec.PreferenceScore, &grading, &body)
	if err != nil {
		return nil, err
	}

	if rec.Domain, err = model.ParseDomain(domain); err != nil {
		return nil, err
	}
	if grading.Valid {
		var g model.Grading
		if err := json.Unmarshal([]byte(grading.String), &g); err != nil {
			return nil, fmt.Errorf("decode grading: %w", err)
		}
		rec.Grading = &g
	}
	var b nodeBody
	if err := json.Unmarshal([]byte(body), &b); err != nil {
		return nil, fmt.Errorf("decode body: %w", err)
	}
	rec.Name = b.Name
	rec.ImageURL = b.ImageURL
	rec.OriginalImageURL = b.OriginalImageURL
	rec.Prompt = b.Prompt
	rec.AgentHistory = b.AgentHistory
	rec.Params = b.Params
	rec.DNA = b.DNA
	return &rec, nil
}

func recordArgs(rec model.Record) ([]interface{}, error) {
	body, err := marshalBody(nodeBody{
		Name:             rec.Name,
		ImageURL:         rec.ImageURL,
		OriginalImageURL: rec.OriginalImageURL,
		Prompt:           rec.Prompt,
		AgentHistory:     rec.AgentHistory,
		Params:           rec.Params,
		DNA:              rec.DNA,
	})
	if err != nil {
		return nil, fmt.Errorf("encode body: %w", err)
	}
	grading, err := marshalGrading(rec.Grading)
	if err != nil {
		return nil, err
	}
	return []interface{}{
		rec.ID, rec.ShortID, rec.Domain.String(), rec.Rating, rec.Timestamp,
		rec.UsageCount, rec.IsFavorite, rec.PreferenceScore, grading, string(body),
	}, nil
}

// marshalBody encodes without HTML escaping so that params and dna keep
// characters such as '<' and '&' as written.
func marshalBody(b nodeBody) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(b); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

func marshalGrading(g *model.Grading) (sql.NullString, error) {
	if g == nil {
		return sql.NullString{}, nil
	}
	b, err := json.Marshal(g)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("encode grading: %w", err)
	}
	return sql.NullString{String: string(b), Valid: true}, nil
}
