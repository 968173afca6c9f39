// Package feed reads the university exam feed and normalizes its nested
// JSON into a flat row/column table, one row per exam session.
package feed

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
)

// metaFields are shared course-level fields replicated onto every row.
var metaFields = []string{"codIns", "codW4", "descrIns", "descrInsEng"}

// recordsKey holds the per-session record list in the feed document.
const recordsKey = "appelli"

// CourseColumn is the partition column added to every normalized row.
const CourseColumn = "cdl"

// Document is one decoded feed response: the session record list plus
// the course-level fields to replicate.
type Document struct {
	Meta    map[string]Value
	Records []map[string]Value
}

// ParseDocument decodes a raw feed body.
func ParseDocument(data []byte) (*Document, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decoding feed document: %w", err)
	}

	doc := &Document{Meta: make(map[string]Value)}
	for _, name := range metaFields {
		if v, ok := raw[name]; ok {
			doc.Meta[name] = FromAny(v)
		}
	}

	list, ok := raw[recordsKey].([]any)
	if !ok {
		// missing or non-list record key yields an empty document
		return doc, nil
	}
	for _, elem := range list {
		obj, ok := elem.(map[string]any)
		if !ok {
			continue
		}
		doc.Records = append(doc.Records, flatten("", obj))
	}
	return doc, nil
}

// flatten converts a record object into column cells, joining nested
// object keys with underscores.
func flatten(prefix string, obj map[string]any) map[string]Value {
	out := make(map[string]Value, len(obj))
	for key, raw := range obj {
		name := key
		if prefix != "" {
			name = prefix + "_" + key
		}
		if nested, ok := raw.(map[string]any); ok {
			for k, v := range flatten(name, nested) {
				out[k] = v
			}
			continue
		}
		out[name] = FromAny(raw)
	}
	return out
}

// Row is one normalized exam session.
type Row map[string]Value

// Get returns the cell for a column, Null when absent.
func (r Row) Get(name string) Value {
	if v, ok := r[name]; ok {
		return v
	}
	return Null()
}

// Table is the normalized row/column form of one course's feed document.
type Table struct {
	columns []string
	Rows    []Row
}

// Columns returns the column names in table order.
func (t *Table) Columns() []string { return t.columns }

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool { return len(t.Rows) == 0 }

// Column returns all cells of one column, in row order.
func (t *Table) Column(name string) []Value {
	vals := make([]Value, 0, len(t.Rows))
	for _, row := range t.Rows {
		vals = append(vals, row.Get(name))
	}
	return vals
}

// Normalize builds the table for a course: one row per record, course
// meta fields replicated onto each, and the course code as the cdl cell.
// Record columns come first (sorted, for a stable order), then meta
// fields, then cdl.
func Normalize(doc *Document, courseCode string) *Table {
	code := strings.ToUpper(strings.TrimSpace(courseCode))
	t := &Table{}
	seen := make(map[string]bool)

	for _, rec := range doc.Records {
		row := make(Row, len(rec)+len(doc.Meta)+1)
		for name, v := range rec {
			row[name] = v
			seen[name] = true
		}
		// record-level fields win over course-level ones on collision
		for name, v := range doc.Meta {
			if _, ok := row[name]; !ok {
				row[name] = v
			}
		}
		row[CourseColumn] = String(code)
		t.Rows = append(t.Rows, row)
	}
	if len(doc.Records) == 0 {
		return t
	}

	for name := range seen {
		t.columns = append(t.columns, name)
	}
	sort.Strings(t.columns)
	for _, name := range metaFields {
		if _, ok := doc.Meta[name]; ok && !seen[name] {
			seen[name] = true
			t.columns = append(t.columns, name)
		}
	}
	if !seen[CourseColumn] {
		t.columns = append(t.columns, CourseColumn)
	}
	return t
}
