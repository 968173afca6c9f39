package sync

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/appellisync/appellisync/internal/config"
	"github.com/appellisync/appellisync/internal/feed"
	"github.com/appellisync/appellisync/internal/notion"
)

// fakeFetcher serves canned documents per course code.
type fakeFetcher struct {
	docs map[string]string
	err  error
}

func (f *fakeFetcher) Fetch(_ context.Context, code string) (*feed.Document, error) {
	if f.err != nil {
		return nil, f.err
	}
	body, ok := f.docs[code]
	if !ok {
		body = `{}`
	}
	return feed.ParseDocument([]byte(body))
}

const f94Doc = `{
	"codIns": "B02",
	"codW4": "999",
	"descrIns": "Prova, scritta!",
	"descrInsEng": "Written exam",
	"appelli": [
		{"idAppello": "123", "dataStr": "12/06/2025", "ora": "09:30"}
	]
}`

func testPipeline(t *testing.T, api notion.API, fetcher feed.Fetcher, opts Options, mutate func(*config.Config)) *Pipeline {
	t.Helper()
	cfg := &config.Config{
		Version: config.CurrentVersion,
		Notion:  config.NotionConfig{Token: "tok", DataSourceID: "ds-1"},
	}
	if mutate != nil {
		mutate(cfg)
	}
	p, err := New(cfg, api, fetcher, slog.New(slog.NewTextHandler(io.Discard, nil)), opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	p.sleep = func(time.Duration) {} // no pacing in tests
	return p
}

func propContent(t *testing.T, pv notion.PropertyValue) map[string]any {
	t.Helper()
	data, err := json.Marshal(pv)
	if err != nil {
		t.Fatalf("marshal property: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal property: %v", err)
	}
	return out
}

func TestRunCourseEndToEnd(t *testing.T) {
	api := notion.NewMockAPI()
	fetcher := &fakeFetcher{docs: map[string]string{"F94": f94Doc}}
	p := testPipeline(t, api, fetcher, Options{}, nil)

	res, err := p.RunCourse(context.Background(), "F94")
	if err != nil {
		t.Fatalf("RunCourse: %v", err)
	}
	if res.Created != 1 || res.Updated != 0 {
		t.Fatalf("created/updated = %d/%d, want 1/0", res.Created, res.Updated)
	}

	// schema gained a date column for dataStr with the dd/mm/yyyy layout
	if got := api.Schema["dataStr"].Type; got != "date" {
		t.Errorf("dataStr remote type = %q, want date", got)
	}
	if layout, _ := p.formats.Layout("dataStr"); layout != "02/01/2006" {
		t.Errorf("dataStr layout = %q, want 02/01/2006", layout)
	}
	if got := api.Schema[notion.ExternalIDProperty].Type; got != "rich_text" {
		t.Errorf("External ID type = %q", got)
	}

	if len(api.Created) != 1 {
		t.Fatalf("created pages = %d, want 1", len(api.Created))
	}
	props := api.Created[0]

	title := propContent(t, props[notion.TitleProperty])
	content := title["title"].([]any)[0].(map[string]any)["text"].(map[string]any)["content"].(string)
	if content != "Prova, scritta!" {
		t.Errorf("title = %q, want the original unsanitized text", content)
	}

	sel := propContent(t, props["descrIns"])
	if got := sel["select"].(map[string]any)["name"].(string); got != "Prova scritta" {
		t.Errorf("descrIns label = %q, want sanitized", got)
	}

	ext := propContent(t, props[notion.ExternalIDProperty])
	got := ext["rich_text"].([]any)[0].(map[string]any)["text"].(map[string]any)["content"].(string)
	if got != "123" {
		t.Errorf("external id = %q, want 123", got)
	}

	cdl := propContent(t, props[feed.CourseColumn])
	if got := cdl["select"].(map[string]any)["name"].(string); got != "F94" {
		t.Errorf("cdl = %q, want F94", got)
	}

	date := propContent(t, props["dataStr"])
	if got := date["date"].(map[string]any)["start"].(string); got != "2025-06-12" {
		t.Errorf("dataStr = %q, want 2025-06-12", got)
	}

	// lookup happened, found nothing, so a create was issued
	if len(api.Queries) != 1 || api.Queries[0] != "123" {
		t.Errorf("queries = %v, want one lookup for id 123", api.Queries)
	}
}

func TestUpsertIdempotent(t *testing.T) {
	api := notion.NewMockAPI()
	fetcher := &fakeFetcher{docs: map[string]string{"F94": f94Doc}}
	p := testPipeline(t, api, fetcher, Options{}, nil)

	ctx := context.Background()
	if _, err := p.RunCourse(ctx, "F94"); err != nil {
		t.Fatalf("first run: %v", err)
	}
	if _, err := p.RunCourse(ctx, "F94"); err != nil {
		t.Fatalf("second run: %v", err)
	}

	if len(api.Created) != 1 {
		t.Errorf("creates = %d, want exactly 1 across both runs", len(api.Created))
	}
	if len(api.Updated) != 1 {
		t.Errorf("updates = %d, want 1 (second run updates the match)", len(api.Updated))
	}
}

func TestRowWithoutIDAlwaysCreates(t *testing.T) {
	doc := `{"descrIns": "Orale", "appelli": [{"dataStr": "12/06/2025"}]}`
	api := notion.NewMockAPI()
	fetcher := &fakeFetcher{docs: map[string]string{"F94": doc}}
	p := testPipeline(t, api, fetcher, Options{}, nil)

	ctx := context.Background()
	for i := 0; i < 2; i++ {
		if _, err := p.RunCourse(ctx, "F94"); err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
	}

	if len(api.Queries) != 0 {
		t.Errorf("queries = %d, want no lookup for id-less rows", len(api.Queries))
	}
	if len(api.Created) != 2 {
		t.Errorf("creates = %d, id-less rows cannot deduplicate", len(api.Created))
	}
	// the external id property is omitted entirely
	if _, ok := api.Created[0][notion.ExternalIDProperty]; ok {
		t.Error("external id property should be omitted for id-less rows")
	}
}

func TestMissingTitleFallsBack(t *testing.T) {
	doc := `{"appelli": [{"idAppello": "9"}]}`
	api := notion.NewMockAPI()
	fetcher := &fakeFetcher{docs: map[string]string{"F94": doc}}
	p := testPipeline(t, api, fetcher, Options{}, nil)

	if _, err := p.RunCourse(context.Background(), "F94"); err != nil {
		t.Fatalf("RunCourse: %v", err)
	}
	title := propContent(t, api.Created[0][notion.TitleProperty])
	content := title["title"].([]any)[0].(map[string]any)["text"].(map[string]any)["content"].(string)
	if content != "Senza nome" {
		t.Errorf("title = %q, want placeholder", content)
	}
}

func TestEmptyCourseSkipped(t *testing.T) {
	api := notion.NewMockAPI()
	fetcher := &fakeFetcher{docs: map[string]string{"F94": `{"codIns": "B02"}`}}
	p := testPipeline(t, api, fetcher, Options{}, nil)

	res, err := p.RunCourse(context.Background(), "F94")
	if err != nil {
		t.Fatalf("RunCourse: %v", err)
	}
	if res.Rows != 0 || res.Created != 0 {
		t.Errorf("result = %+v, want all zero", res)
	}
	if len(api.SchemaUpdates) != 0 {
		t.Error("empty course must not touch the schema")
	}
}

func TestWriteFailureAbortsRun(t *testing.T) {
	api := notion.NewMockAPI()
	api.CreateErr = &notion.APIError{Status: 400, Body: "bad property"}
	fetcher := &fakeFetcher{docs: map[string]string{"F94": f94Doc, "FBA": f94Doc}}
	p := testPipeline(t, api, fetcher, Options{Courses: []string{"F94", "FBA"}}, nil)

	_, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("expected run to abort")
	}
	var apiErr *notion.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %T, want wrapped *APIError", err)
	}
	if apiErr.Body != "bad property" {
		t.Errorf("error body = %q, want the raw response body", apiErr.Body)
	}
}

func TestContinueOnRowError(t *testing.T) {
	api := notion.NewMockAPI()
	api.CreateErr = &notion.APIError{Status: 400, Body: "bad property"}
	fetcher := &fakeFetcher{docs: map[string]string{"F94": f94Doc}}
	p := testPipeline(t, api, fetcher, Options{}, func(cfg *config.Config) {
		cfg.Sync.ContinueOnRowError = true
	})

	rep, err := p.Run(context.Background())
	if err == nil {
		t.Fatal("run with failed rows must still exit non-zero")
	}
	if rep.TotalFailed() != 1 {
		t.Errorf("failed = %d, want 1", rep.TotalFailed())
	}
}

func TestDryRunWritesNothing(t *testing.T) {
	api := notion.NewMockAPI()
	fetcher := &fakeFetcher{docs: map[string]string{"F94": f94Doc}}
	p := testPipeline(t, api, fetcher, Options{DryRun: true, Courses: []string{"F94"}}, nil)

	rep, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(api.SchemaUpdates) != 0 || len(api.Created) != 0 || len(api.Updated) != 0 {
		t.Error("dry run must not write")
	}
	if rep.Courses[0].Created != 1 {
		t.Errorf("dry run should report the row as a would-create, got %+v", rep.Courses[0])
	}
}

func TestDateFormatSharedAcrossCourses(t *testing.T) {
	// first course teaches an ISO layout for a column the override
	// table does not cover; the second course's dd/mm values then fail
	// to parse with the stored layout and drop the field.
	first := `{"appelli": [{"idAppello": "1", "scadenza": "2025-06-12"}]}`
	second := `{"appelli": [{"idAppello": "2", "scadenza": "12/06/2025"}]}`

	api := notion.NewMockAPI()
	fetcher := &fakeFetcher{docs: map[string]string{"F94": first, "FBA": second}}
	p := testPipeline(t, api, fetcher, Options{Courses: []string{"F94", "FBA"}}, nil)

	if _, err := p.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}

	layout, _ := p.formats.Layout("scadenza")
	if layout != "2006-01-02" {
		t.Fatalf("layout = %q, first course must win", layout)
	}
	if len(api.Created) != 2 {
		t.Fatalf("creates = %d", len(api.Created))
	}
	if _, ok := api.Created[1]["scadenza"]; ok {
		t.Error("second course's mismatched date should be dropped, not reparsed")
	}
}

func TestInferredTypesRespectOverrides(t *testing.T) {
	// idAppello is numeric in the feed but overridden to rich_text
	doc := `{"appelli": [{"idAppello": 123, "dataStr": "12/06/2025"}]}`
	api := notion.NewMockAPI()
	fetcher := &fakeFetcher{docs: map[string]string{"F94": doc}}
	p := testPipeline(t, api, fetcher, Options{}, nil)

	if _, err := p.RunCourse(context.Background(), "F94"); err != nil {
		t.Fatalf("RunCourse: %v", err)
	}
	if got := api.Schema["idAppello"].Type; got != "rich_text" {
		t.Errorf("idAppello type = %q, want rich_text via override", got)
	}
	// numeric id still stringifies for the lookup
	if api.Queries[0] != "123" {
		t.Errorf("lookup id = %q, want 123", api.Queries[0])
	}
}
