package llm

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestExtractWholeTextRoundTrip(t *testing.T) {
	in := map[string]any{
		"plan_id": "p1",
		"steps":   []any{map[string]any{"step_id": "1"}},
		"n":       float64(3),
		"ok":      true,
		"none":    nil,
	}
	raw, err := json.Marshal(in)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if got := Extract(string(raw)); !reflect.DeepEqual(got, in) {
		t.Fatalf("round trip mismatch: %#v", got)
	}
}

func TestExtractFencedBlock(t *testing.T) {
	got := Extract("Sure! ```json\n{\"a\":1}\n``` Hope that helps")
	if !reflect.DeepEqual(got, map[string]any{"a": float64(1)}) {
		t.Fatalf("unexpected: %#v", got)
	}
}

func TestExtractFallsThroughBrokenFence(t *testing.T) {
	got := Extract("```json\n{not json}\n``` but here: {\"b\": 2}")
	if !reflect.DeepEqual(got, map[string]any{"b": float64(2)}) {
		t.Fatalf("unexpected: %#v", got)
	}
}

func TestExtractBacktickSpans(t *testing.T) {
	got := Extract("use `nope` or `{\"c\": \"yes\"}` please")
	if !reflect.DeepEqual(got, map[string]any{"c": "yes"}) {
		t.Fatalf("unexpected: %#v", got)
	}
}

func TestExtractBalancedBraces(t *testing.T) {
	text := `Here is the plan {"outer": {"inner": "}"}, "list": [1]} and more {"second": true}`
	got := Extract(text)
	want := map[string]any{"outer": map[string]any{"inner": "}"}, "list": []any{float64(1)}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected: %#v", got)
	}
}

func TestExtractSkipsInvalidCandidates(t *testing.T) {
	got := Extract(`{broken: ,} then {"fine": 1}`)
	if !reflect.DeepEqual(got, map[string]any{"fine": float64(1)}) {
		t.Fatalf("unexpected: %#v", got)
	}
}

func TestExtractRejectsNonObjects(t *testing.T) {
	for _, text := range []string{"[1,2,3]", "null", "42", `"str"`} {
		got := Extract(text)
		if !IsExtractionFailure(got) {
			t.Fatalf("%q: expected failure sentinel, got %#v", text, got)
		}
	}
}

func TestExtractTotalFailureKeepsRawText(t *testing.T) {
	text := "I could not think of anything { really } sorry"
	got := Extract(text)
	want := map[string]any{"error": "Could not parse JSON", "raw_response": text}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected: %#v", got)
	}
	if !IsExtractionFailure(got) {
		t.Fatalf("expected sentinel to be recognised")
	}
}

func TestIsExtractionFailureIgnoresPlainErrorField(t *testing.T) {
	if IsExtractionFailure(map[string]any{"status": "failed", "error": "disk full"}) {
		t.Fatalf("model-reported error must not look like a parse failure")
	}
}

func TestExtractKeepsLargeIntegersExact(t *testing.T) {
	text := `{"n":12345678901234567890,"id":9007199254740993,"small":42,"ratio":0.5,"nested":[{"big":-9007199254740995}]}`
	got := Extract(text)
	if got["n"] != json.Number("12345678901234567890") || got["id"] != json.Number("9007199254740993") {
		t.Fatalf("large integers lost precision: %#v", got)
	}
	if got["small"] != float64(42) || got["ratio"] != 0.5 {
		t.Fatalf("ordinary numbers should stay float64: %#v", got)
	}
	nested := got["nested"].([]any)[0].(map[string]any)
	if nested["big"] != json.Number("-9007199254740995") {
		t.Fatalf("nested integer lost precision: %#v", nested)
	}
	raw, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !reflect.DeepEqual(Extract(string(raw)), got) {
		t.Fatalf("round trip mismatch: %s", raw)
	}
}

func TestExtractRejectsTrailingData(t *testing.T) {
	got := Extract(`{"a":1} {"b":2}`)
	if !reflect.DeepEqual(got, map[string]any{"a": float64(1)}) {
		t.Fatalf("expected first balanced object, got %#v", got)
	}
}
