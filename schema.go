package codexrun

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

const (
	schemaDirPrefix = "codex-output-schema-"
	schemaFileName  = "schema.json"
)

// OutputSchemaFile is a temporary file holding a turn's output schema. It
// exists until Release is called.
type OutputSchemaFile struct {
	dir  string
	path string
	once sync.Once
	err  error
}

// NewOutputSchemaFile writes schema to a fresh temporary directory. A nil
// schema yields a file with an empty Path and no filesystem side effects.
// Anything that does not marshal to a JSON object fails with
// ErrInvalidOutputSchema.
func NewOutputSchemaFile(schema any) (*OutputSchemaFile, error) {
	if schema == nil {
		return &OutputSchemaFile{}, nil
	}
	data, err := json.Marshal(schema)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidOutputSchema, err)
	}
	if !bytes.HasPrefix(data, []byte("{")) {
		return nil, ErrInvalidOutputSchema
	}

	dir, err := os.MkdirTemp("", schemaDirPrefix)
	if err != nil {
		return nil, fmt.Errorf("codexrun: create output schema dir: %w", err)
	}
	path := filepath.Join(dir, schemaFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		_ = os.RemoveAll(dir)
		return nil, fmt.Errorf("codexrun: write output schema: %w", err)
	}
	return &OutputSchemaFile{dir: dir, path: path}, nil
}

// Path returns the schema file path, or "" when no schema was supplied.
func (f *OutputSchemaFile) Path() string {
	return f.path
}

// Release removes the temporary directory. Only the first call has an
// effect; later calls return the first result.
func (f *OutputSchemaFile) Release() error {
	f.once.Do(func() {
		if f.dir == "" {
			return
		}
		if err := os.RemoveAll(f.dir); err != nil {
			f.err = fmt.Errorf("codexrun: remove output schema: %w", err)
		}
	})
	return f.err
}
