package seeder

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/heartmarshall/sketch2code/internal/domain"
)

// Fixture describes a workspace catalog and, optionally, the extension
// settings of one installation.
type Fixture struct {
	Tables   []TableFixture `yaml:"tables"`
	Settings map[string]any `yaml:"settings"`
}

// TableFixture is one table with its fields, views and empty records.
type TableFixture struct {
	ID      string         `yaml:"id"`
	Name    string         `yaml:"name"`
	Fields  []FieldFixture `yaml:"fields"`
	Views   []ViewFixture  `yaml:"views"`
	Records []string       `yaml:"records"`
}

// FieldFixture is one field of a table.
type FieldFixture struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// ViewFixture is one view of a table.
type ViewFixture struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

// LoadFixture reads and validates a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("seeder fixture: open %s: %w", path, err)
	}
	defer f.Close()

	return ParseFixture(f)
}

// ParseFixture decodes a YAML fixture. Unknown keys are rejected.
func ParseFixture(r io.Reader) (*Fixture, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("seeder fixture: read: %w", err)
	}

	var fx Fixture
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&fx); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("seeder fixture: decode: %w", err)
	}

	if err := fx.Validate(); err != nil {
		return nil, err
	}
	return &fx, nil
}

// Validate checks ids, names and types before anything is written.
func (fx *Fixture) Validate() error {
	seen := make(map[string]string)
	claim := func(kind, id string) error {
		if id == "" {
			return domain.NewValidationError(kind, "id is required")
		}
		if prev, ok := seen[id]; ok {
			return domain.NewValidationError(kind, fmt.Sprintf("id %q already used by a %s", id, prev))
		}
		seen[id] = kind
		return nil
	}

	for _, t := range fx.Tables {
		if err := claim("table", t.ID); err != nil {
			return err
		}
		if t.Name == "" {
			return domain.NewValidationError("table", fmt.Sprintf("table %q has no name", t.ID))
		}
		for _, f := range t.Fields {
			if err := claim("field", f.ID); err != nil {
				return err
			}
			if !domain.FieldType(f.Type).IsValid() {
				return domain.NewValidationError("field", fmt.Sprintf("field %q has unknown type %q", f.ID, f.Type))
			}
		}
		for _, v := range t.Views {
			if err := claim("view", v.ID); err != nil {
				return err
			}
			if !domain.ViewType(v.Type).IsValid() {
				return domain.NewValidationError("view", fmt.Sprintf("view %q has unknown type %q", v.ID, v.Type))
			}
		}
		for _, id := range t.Records {
			if err := claim("record", id); err != nil {
				return err
			}
		}
	}

	for key := range fx.Settings {
		if !domain.ConfigKey(key).IsValid() {
			return domain.NewValidationError("settings", fmt.Sprintf("unknown key %q", key))
		}
	}
	return nil
}

// ConfigValues returns the settings keyed by config key.
func (fx *Fixture) ConfigValues() map[domain.ConfigKey]any {
	if len(fx.Settings) == 0 {
		return nil
	}
	out := make(map[domain.ConfigKey]any, len(fx.Settings))
	for k, v := range fx.Settings {
		out[domain.ConfigKey(k)] = v
	}
	return out
}
