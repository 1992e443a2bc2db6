package vault

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/xeipuuv/gojsonschema"

	"github.com/yangwenmai/latentvault/internal/model"
	"github.com/yangwenmai/latentvault/internal/store"
)

//go:embed import_schema.json
var importSchema string

var importSchemaLoader = gojsonschema.NewStringLoader(importSchema)

// ImportResult reports how an import went.
type ImportResult struct {
	Merged int                 `json:"merged"`
	Failed []store.RecordError `json:"-"`
}

// Message is the user-facing summary of the import.
func (r ImportResult) Message() string {
	msg := fmt.Sprintf("%d records merged.", r.Merged)
	if len(r.Failed) > 0 {
		msg += fmt.Sprintf(" %d failed.", len(r.Failed))
	}
	return msg
}

// ExportFilename is the download name for an export taken at t.
func ExportFilename(t time.Time) string {
	return "latent-vault-export-" + t.UTC().Format(time.DateOnly) + ".json"
}

// EncodeRecords writes records as a single JSON array.
func EncodeRecords(w io.Writer, records []model.Record) error {
	if records == nil {
		records = []model.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(records)
}

// DecodeRecords parses an import document. It fails with
// model.ErrMalformedImport unless the document is a JSON array of objects
// whose fields have the record types.
func DecodeRecords(r io.Reader) ([]model.Record, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: read: %w", model.ErrMalformedImport, err)
	}

	result, err := gojsonschema.Validate(importSchemaLoader, gojsonschema.NewBytesLoader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedImport, err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("%w: %s", model.ErrMalformedImport, describeErrors(result.Errors()))
	}

	var records []model.Record
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrMalformedImport, err)
	}
	return records, nil
}

func describeErrors(errs []gojsonschema.ResultError) string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		field := e.Field()
		if field == "" {
			field = "(root)"
		}
		parts = append(parts, field+": "+e.Description())
	}
	return strings.Join(parts, "; ")
}
