package agent

import (
	"encoding/json"
	"testing"
)

func TestParamsAccessorsOnDecodedJSON(t *testing.T) {
	var p Params
	raw := `{"name":"x","n":[1,2.5],"bad":[1,"two"],"tags":["a",3,"b"],"nested":{"k":"v"},"null":null}`
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if p.String("name") != "x" || p.String("n") != "" {
		t.Fatalf("String accessor wrong")
	}
	if nums, ok := p.Numbers("n"); !ok || len(nums) != 2 || nums[1] != 2.5 {
		t.Fatalf("Numbers(n) = %v, %v", nums, ok)
	}
	if _, ok := p.Numbers("bad"); ok {
		t.Fatalf("expected mixed array to be rejected")
	}
	if _, ok := p.Numbers("missing"); ok {
		t.Fatalf("expected missing key to be rejected")
	}
	if tags := p.Strings("tags"); len(tags) != 2 || tags[1] != "b" {
		t.Fatalf("Strings(tags) = %v", tags)
	}
	if p.Map("nested").String("k") != "v" {
		t.Fatalf("Map accessor wrong")
	}
	if !p.Has("null") || p.Has("absent") {
		t.Fatalf("Has accessor wrong")
	}
}

func TestNumberRejectsBool(t *testing.T) {
	if _, ok := Number(true); ok {
		t.Fatalf("bool must not count as a number")
	}
	if n, ok := Number(json.Number("4")); !ok || n != 4 {
		t.Fatalf("json.Number not converted")
	}
}
