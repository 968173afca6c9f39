package infer

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"
)

// Overrides forces a property type for specific column names,
// regardless of sampled content. Lookup is exact-match.
type Overrides struct {
	Mappings map[string]PropertyType `yaml:"mappings"`
}

// DefaultOverrides returns the built-in override table for the exam
// feed's well-known columns.
func DefaultOverrides() *Overrides {
	return &Overrides{Mappings: map[string]PropertyType{
		"dataStr":     TypeDate,
		"aperturaStr": TypeDate,
		"chiusuraStr": TypeDate,
		"ora":         TypeRichText,
		"idAppello":   TypeRichText,
		"cdl":         TypeSelect,
		"descrIns":    TypeSelect,
		"codIns":      TypeSelect,
	}}
}

// Lookup returns the forced type for a column, if any.
func (o *Overrides) Lookup(column string) (PropertyType, bool) {
	if o == nil || o.Mappings == nil {
		return "", false
	}
	t, ok := o.Mappings[column]
	return t, ok
}

// Set forces a type for a column.
func (o *Overrides) Set(column string, t PropertyType) {
	if o.Mappings == nil {
		o.Mappings = make(map[string]PropertyType)
	}
	o.Mappings[column] = t
}

// Merge applies other's entries over o's. The operator file wins.
func (o *Overrides) Merge(other *Overrides) {
	if other == nil {
		return
	}
	for col, t := range other.Mappings {
		o.Set(col, t)
	}
}

// SortedColumns returns the overridden column names sorted alphabetically.
func (o *Overrides) SortedColumns() []string {
	cols := make([]string, 0, len(o.Mappings))
	for c := range o.Mappings {
		cols = append(cols, c)
	}
	sort.Strings(cols)
	return cols
}

// WriteYAML writes the override table to a YAML file.
func (o *Overrides) WriteYAML(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating output directory: %w", err)
	}

	data, err := yaml.Marshal(o)
	if err != nil {
		return fmt.Errorf("marshaling overrides: %w", err)
	}

	return os.WriteFile(path, data, 0o644)
}

// LoadYAML reads an override table from a YAML file and validates the
// type names.
func LoadYAML(path string) (*Overrides, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading overrides file: %w", err)
	}
	o := &Overrides{}
	if err := yaml.Unmarshal(data, o); err != nil {
		return nil, fmt.Errorf("parsing overrides: %w", err)
	}
	for col, t := range o.Mappings {
		if !t.Valid() {
			return nil, fmt.Errorf("override for %q: unknown property type %q", col, t)
		}
	}
	if o.Mappings == nil {
		o.Mappings = make(map[string]PropertyType)
	}
	return o, nil
}
