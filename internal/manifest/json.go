package manifest

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"driftlab/internal/domain"
)

//go:embed manifest.schema.json
var manifestSchemaJSON string

var (
	schemaOnce sync.Once
	docSchema  *jsonschema.Schema
	schemaErr  error
)

func documentSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("manifest.schema.json", strings.NewReader(manifestSchemaJSON)); err != nil {
			schemaErr = err
			return
		}
		docSchema, schemaErr = compiler.Compile("manifest.schema.json")
	})
	return docSchema, schemaErr
}

// ValidateDocument checks raw manifest JSON against the manifest document
// schema. Documents read from disk go through this before they are trusted.
func ValidateDocument(data []byte) error {
	s, err := documentSchema()
	if err != nil {
		return fmt.Errorf("compile manifest schema: %w", err)
	}

	var instance any
	if err := json.Unmarshal(data, &instance); err != nil {
		return fmt.Errorf("unmarshal manifest: %w", err)
	}

	if err := s.Validate(instance); err != nil {
		return fmt.Errorf("manifest document invalid: %w", err)
	}
	return nil
}

// Load reads a manifest file, validates the document shape and decodes it.
func Load(path string) (domain.Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Manifest{}, fmt.Errorf("read manifest %s: %w", path, err)
	}

	if err := ValidateDocument(data); err != nil {
		return domain.Manifest{}, err
	}

	var m domain.Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return domain.Manifest{}, fmt.Errorf("decode manifest %s: %w", path, err)
	}
	return m, nil
}

// Save writes a manifest as indented JSON with a trailing newline.
func Save(path string, m domain.Manifest) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}
	data = append(data, '\n')

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}
	return nil
}
