// Package report aggregates per-course sync results.
package report

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// CourseResult holds the outcome for one course partition.
type CourseResult struct {
	Code    string `json:"code"`
	Rows    int    `json:"rows"`
	Created int    `json:"created"`
	Updated int    `json:"updated"`
	Failed  int    `json:"failed,omitempty"`
}

// Report is the final sync report.
type Report struct {
	GeneratedAt time.Time      `json:"generated_at"`
	DryRun      bool           `json:"dry_run,omitempty"`
	Courses     []CourseResult `json:"courses"`
}

// New starts an empty report.
func New(dryRun bool) *Report {
	return &Report{GeneratedAt: time.Now(), DryRun: dryRun}
}

// Add appends one course's result.
func (r *Report) Add(cr CourseResult) {
	r.Courses = append(r.Courses, cr)
}

// TotalCreated sums created pages across courses.
func (r *Report) TotalCreated() int {
	n := 0
	for _, c := range r.Courses {
		n += c.Created
	}
	return n
}

// TotalUpdated sums updated pages across courses.
func (r *Report) TotalUpdated() int {
	n := 0
	for _, c := range r.Courses {
		n += c.Updated
	}
	return n
}

// TotalFailed sums failed rows across courses.
func (r *Report) TotalFailed() int {
	n := 0
	for _, c := range r.Courses {
		n += c.Failed
	}
	return n
}

// WriteJSON writes the report as indented JSON.
func (r *Report) WriteJSON(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating report directory: %w", err)
	}
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// Render formats the report for the terminal.
func (r *Report) Render() string {
	var b strings.Builder
	if r.DryRun {
		b.WriteString("Sync results (dry run):\n")
	} else {
		b.WriteString("Sync results:\n")
	}
	for _, c := range r.Courses {
		fmt.Fprintf(&b, "  %-4s rows: %-4d created: %-4d updated: %-4d", c.Code, c.Rows, c.Created, c.Updated)
		if c.Failed > 0 {
			fmt.Fprintf(&b, " failed: %d", c.Failed)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Total created: %d | updated: %d", r.TotalCreated(), r.TotalUpdated())
	if f := r.TotalFailed(); f > 0 {
		fmt.Fprintf(&b, " | failed: %d", f)
	}
	b.WriteString("\n")
	return b.String()
}
