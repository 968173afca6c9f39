// Package sync orchestrates one batch run: for each course, fetch and
// normalize the feed, reconcile the remote schema, and upsert every row
// keyed by its external id.
package sync

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/appellisync/appellisync/internal/config"
	"github.com/appellisync/appellisync/internal/feed"
	"github.com/appellisync/appellisync/internal/infer"
	"github.com/appellisync/appellisync/internal/notion"
	"github.com/appellisync/appellisync/internal/report"
)

// Options tune one pipeline run.
type Options struct {
	// DryRun computes the schema diff and per-row outcome without
	// writing anything remotely.
	DryRun bool
	// Courses overrides the configured course list when non-empty.
	Courses []string
}

// Pipeline runs the sync, one course at a time, strictly sequentially.
// The date-format table is shared across courses for the whole run:
// the first course to infer a column's layout fixes it for the rest.
type Pipeline struct {
	cfg       *config.Config
	api       notion.API
	fetcher   feed.Fetcher
	logger    *slog.Logger
	overrides *infer.Overrides
	formats   infer.DateFormats
	courses   []string
	pace      time.Duration
	dryRun    bool

	sleep func(time.Duration) // injectable for tests
}

// New builds a pipeline from config and collaborators, loading the
// operator override file when one is configured.
func New(cfg *config.Config, api notion.API, fetcher feed.Fetcher, logger *slog.Logger, opts Options) (*Pipeline, error) {
	ov := infer.DefaultOverrides()
	if cfg.Sync.OverridesFile != "" {
		loaded, err := infer.LoadYAML(config.ExpandHome(cfg.Sync.OverridesFile))
		if err != nil {
			return nil, fmt.Errorf("loading override file: %w", err)
		}
		ov.Merge(loaded)
	}

	courses := opts.Courses
	if len(courses) == 0 {
		courses = cfg.CourseCodes()
	}

	return &Pipeline{
		cfg:       cfg,
		api:       api,
		fetcher:   fetcher,
		logger:    logger,
		overrides: ov,
		formats:   infer.DefaultDateFormats(),
		courses:   courses,
		pace:      time.Duration(cfg.Sync.PaceMilliseconds) * time.Millisecond,
		dryRun:    opts.DryRun,
		sleep:     time.Sleep,
	}, nil
}

// Run processes every course in order and returns the aggregate report.
// A write failure aborts the run unless continue_on_row_error is set,
// in which case failed rows are counted and reported at the end.
func (p *Pipeline) Run(ctx context.Context) (*report.Report, error) {
	rep := report.New(p.dryRun)
	for _, code := range p.courses {
		res, err := p.RunCourse(ctx, code)
		rep.Add(res)
		if err != nil {
			return rep, err
		}
	}
	if failed := rep.TotalFailed(); failed > 0 {
		return rep, fmt.Errorf("%d row(s) failed to sync", failed)
	}
	return rep, nil
}

// RunCourse syncs one course partition end to end.
func (p *Pipeline) RunCourse(ctx context.Context, code string) (report.CourseResult, error) {
	res := report.CourseResult{Code: code}

	doc, err := p.fetcher.Fetch(ctx, code)
	if err != nil {
		return res, fmt.Errorf("course %s: %w", code, err)
	}
	tbl := feed.Normalize(doc, code)
	if tbl.Empty() {
		p.logger.Info("no exam sessions found", "course", code)
		return res, nil
	}
	res.Rows = len(tbl.Rows)

	desired := p.desiredTypes(tbl)
	types, err := p.resolveTypes(ctx, desired)
	if err != nil {
		return res, fmt.Errorf("course %s: %w", code, err)
	}

	course := tbl.Rows[0].Get(feed.CourseColumn).String()
	for i, row := range tbl.Rows {
		created, err := p.upsertRow(ctx, row, types, course)
		switch {
		case err != nil && p.cfg.Sync.ContinueOnRowError:
			res.Failed++
			p.logger.Error("row sync failed", "course", code, "row", i, "error", err)
		case err != nil:
			return res, fmt.Errorf("course %s row %d: %w", code, i, err)
		case created:
			res.Created++
		default:
			res.Updated++
		}
		p.sleep(p.pace)
	}

	p.logger.Info("course synced", "course", code,
		"rows", res.Rows, "created", res.Created, "updated", res.Updated, "failed", res.Failed)
	return res, nil
}

// desiredTypes infers a property type for every table column except the
// title, recording date layouts as a side effect.
func (p *Pipeline) desiredTypes(tbl *feed.Table) map[string]infer.PropertyType {
	desired := make(map[string]infer.PropertyType, len(tbl.Columns()))
	for _, col := range tbl.Columns() {
		if col == notion.TitleProperty {
			continue
		}
		desired[col] = infer.Infer(col, tbl.Column(col), p.overrides, p.formats)
	}
	return desired
}

// resolveTypes reconciles the remote schema, or in dry-run mode just
// logs the diff and composes the types the engine would coerce with.
func (p *Pipeline) resolveTypes(ctx context.Context, desired map[string]infer.PropertyType) (map[string]infer.PropertyType, error) {
	dsID := p.cfg.Notion.DataSourceID
	if !p.dryRun {
		return notion.ReconcileSchema(ctx, p.api, dsID, desired)
	}

	ds, err := p.api.RetrieveDataSource(ctx, dsID)
	if err != nil {
		return nil, err
	}
	toAdd, toAlter := notion.SchemaDiff(ds.Properties, desired)
	for col, t := range toAdd {
		p.logger.Info("would add column", "column", col, "type", t)
	}
	for col, t := range toAlter {
		p.logger.Info("would alter column", "column", col, "type", t,
			"current", ds.Properties[col].Type)
	}

	types := make(map[string]infer.PropertyType, len(desired)+len(toAdd))
	for col, t := range desired {
		types[col] = t
	}
	for col, t := range toAdd {
		types[col] = t
	}
	for col := range types {
		if !toAlter[col].Valid() {
			if prop, ok := ds.Properties[col]; ok {
				types[col] = infer.PropertyType(prop.Type)
			}
		}
	}
	return types, nil
}

// upsertRow writes one row: lookup by external id when the row has one,
// then a partial update of the match or a create. Rows without an id
// always create; they cannot be deduplicated across runs.
func (p *Pipeline) upsertRow(ctx context.Context, row feed.Row, types map[string]infer.PropertyType, course string) (created bool, err error) {
	props := BuildProperties(row, types, course, p.formats)

	pageID := ""
	if ext := row.Get(externalIDSourceColumn); !ext.IsMissing() {
		pageID, err = p.api.QueryByExternalID(ctx, p.cfg.Notion.DataSourceID, notion.ExternalIDProperty, ext.String())
		if err != nil {
			return false, err
		}
	}

	if p.dryRun {
		return pageID == "", nil
	}
	if pageID != "" {
		return false, p.api.UpdatePage(ctx, pageID, props)
	}
	return true, p.api.CreatePage(ctx, p.cfg.Notion.DataSourceID, props)
}
