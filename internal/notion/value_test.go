package notion

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/appellisync/appellisync/internal/feed"
	"github.com/appellisync/appellisync/internal/infer"
)

func marshal(t *testing.T, v PropertyValue) map[string]any {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestNumberEnvelopeRoundTrip(t *testing.T) {
	pv, ok := Coerce(feed.Number(3), infer.TypeNumber, "posti", infer.DateFormats{})
	if !ok {
		t.Fatal("expected a value")
	}
	out := marshal(t, pv)
	if got := out["number"].(float64); got != 3 {
		t.Errorf("number = %v, want 3", got)
	}
}

func TestCheckboxEnvelopeRoundTrip(t *testing.T) {
	pv, ok := Coerce(feed.Boolean(true), infer.TypeCheckbox, "attivo", infer.DateFormats{})
	if !ok {
		t.Fatal("expected a value")
	}
	out := marshal(t, pv)
	if got := out["checkbox"].(bool); got != true {
		t.Errorf("checkbox = %v, want true", got)
	}
}

func TestCoerceMissingValue(t *testing.T) {
	for _, typ := range infer.AllTypes {
		if _, ok := Coerce(feed.Null(), typ, "col", infer.DateFormats{}); ok {
			t.Errorf("%s: null must coerce to no value", typ)
		}
	}
}

func TestCoerceNumberParseFailure(t *testing.T) {
	pv, ok := Coerce(feed.String("boh"), infer.TypeNumber, "posti", infer.DateFormats{})
	if !ok {
		t.Fatal("unparseable number still emits an explicit null-number envelope")
	}
	out := marshal(t, pv)
	if got, present := out["number"]; !present || got != nil {
		t.Errorf("number = %v, want explicit null", got)
	}
}

func TestCoerceNumberFromString(t *testing.T) {
	pv, _ := Coerce(feed.String(" 42.5 "), infer.TypeNumber, "posti", infer.DateFormats{})
	out := marshal(t, pv)
	if got := out["number"].(float64); got != 42.5 {
		t.Errorf("number = %v, want 42.5", got)
	}
}

func TestCoerceDateWithStoredLayout(t *testing.T) {
	formats := infer.DateFormats{"dataStr": "02/01/2006"}
	pv, ok := Coerce(feed.String("12/06/2025"), infer.TypeDate, "dataStr", formats)
	if !ok {
		t.Fatal("expected a value")
	}
	out := marshal(t, pv)
	date := out["date"].(map[string]any)
	if got := date["start"].(string); got != "2025-06-12" {
		t.Errorf("start = %q, want 2025-06-12 (date only, layout has no time)", got)
	}
}

func TestCoerceDateWithTimeLayout(t *testing.T) {
	formats := infer.DateFormats{"apertura": "02/01/2006 15:04"}
	pv, ok := Coerce(feed.String("12/06/2025 09:30"), infer.TypeDate, "apertura", formats)
	if !ok {
		t.Fatal("expected a value")
	}
	out := marshal(t, pv)
	date := out["date"].(map[string]any)
	if got := date["start"].(string); got != "2025-06-12T09:30:00" {
		t.Errorf("start = %q, want time-of-day kept", got)
	}
}

func TestCoerceDateParseFailureDropsField(t *testing.T) {
	formats := infer.DateFormats{"dataStr": "02/01/2006"}
	if _, ok := Coerce(feed.String("2025-06-12"), infer.TypeDate, "dataStr", formats); ok {
		t.Error("stored layout parses strictly; mismatch must drop the field")
	}
}

func TestCoerceDateGenericFallback(t *testing.T) {
	pv, ok := Coerce(feed.String("2025-06-12"), infer.TypeDate, "senzaFormato", infer.DateFormats{})
	if !ok {
		t.Fatal("generic parse should handle ISO dates")
	}
	out := marshal(t, pv)
	date := out["date"].(map[string]any)
	if got := date["start"].(string); got != "2025-06-12" {
		t.Errorf("start = %q", got)
	}

	if _, ok := Coerce(feed.String("gibberish"), infer.TypeDate, "senzaFormato", infer.DateFormats{}); ok {
		t.Error("generic parse failure must drop the field")
	}
}

func TestCoerceSelectSanitizesNoisyColumn(t *testing.T) {
	pv, ok := Coerce(feed.String("Prova, scritta!"), infer.TypeSelect, "descrIns", infer.DateFormats{})
	if !ok {
		t.Fatal("expected a value")
	}
	out := marshal(t, pv)
	sel := out["select"].(map[string]any)
	if got := sel["name"].(string); got != "Prova scritta" {
		t.Errorf("name = %q, want sanitized label", got)
	}

	// other select columns pass through untouched
	pv, _ = Coerce(feed.String("F94!"), infer.TypeSelect, "cdl", infer.DateFormats{})
	out = marshal(t, pv)
	if got := out["select"].(map[string]any)["name"].(string); got != "F94!" {
		t.Errorf("cdl name = %q, want unsanitized", got)
	}
}

func TestCoerceSelectEmptyAfterSanitize(t *testing.T) {
	if _, ok := Coerce(feed.String("!!!"), infer.TypeSelect, "descrIns", infer.DateFormats{}); ok {
		t.Error("label sanitizing to nothing must yield no value")
	}
}

func TestCoerceMultiSelect(t *testing.T) {
	seq := feed.Sequence(feed.String("a"), feed.Null(), feed.String("b"))
	pv, ok := Coerce(seq, infer.TypeMultiSelect, "tags", infer.DateFormats{})
	if !ok {
		t.Fatal("expected a value")
	}
	out := marshal(t, pv)
	opts := out["multi_select"].([]any)
	if len(opts) != 2 {
		t.Fatalf("options = %d, want 2 (nulls skipped)", len(opts))
	}
	if got := opts[0].(map[string]any)["name"].(string); got != "a" {
		t.Errorf("first option = %q", got)
	}

	// scalar input becomes a single-element list
	pv, _ = Coerce(feed.String("solo"), infer.TypeMultiSelect, "tags", infer.DateFormats{})
	out = marshal(t, pv)
	if got := len(out["multi_select"].([]any)); got != 1 {
		t.Errorf("scalar multi_select options = %d, want 1", got)
	}
}

func TestCoerceRichTextTruncates(t *testing.T) {
	long := strings.Repeat("x", 3000)
	pv, ok := Coerce(feed.String(long), infer.TypeRichText, "note", infer.DateFormats{})
	if !ok {
		t.Fatal("expected a value")
	}
	out := marshal(t, pv)
	content := out["rich_text"].([]any)[0].(map[string]any)["text"].(map[string]any)["content"].(string)
	if len(content) != 2000 {
		t.Errorf("content length = %d, want 2000", len(content))
	}
}

func TestTitleEnvelope(t *testing.T) {
	out := marshal(t, TitleValue("Prova, scritta!"))
	content := out["title"].([]any)[0].(map[string]any)["text"].(map[string]any)["content"].(string)
	if content != "Prova, scritta!" {
		t.Errorf("title content = %q, title keeps the original unsanitized text", content)
	}
}
