package llm

import (
	"encoding/json"
	"io"
	"strings"
)

// Keys of the map returned when no JSON object could be recovered.
const (
	FailureKey     = "error"
	RawResponseKey = "raw_response"

	// ParseFailureMessage is the FailureKey value of an extraction failure.
	ParseFailureMessage = "Could not parse JSON"
)

// Extract recovers the first JSON object from model output. It tries, in order:
// the whole text, a ```json fenced block, single-backtick spans, and balanced
// brace candidates. If all fail it returns {error, raw_response} with the text
// untouched. Only syntactically valid objects are accepted.
func Extract(text string) map[string]any {
	if m, ok := decodeObject(text); ok {
		return m
	}
	if m, ok := fromFence(text); ok {
		return m
	}
	if m, ok := fromBackticks(text); ok {
		return m
	}
	for _, candidate := range braceCandidates(text) {
		if m, ok := decodeObject(candidate); ok {
			return m
		}
	}
	return map[string]any{FailureKey: ParseFailureMessage, RawResponseKey: text}
}

// IsExtractionFailure reports whether m is the sentinel produced by Extract.
func IsExtractionFailure(m map[string]any) bool {
	if m == nil {
		return false
	}
	_, hasErr := m[FailureKey]
	_, hasRaw := m[RawResponseKey]
	return hasErr && hasRaw
}

func decodeObject(s string) (map[string]any, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, false
	}
	dec := json.NewDecoder(strings.NewReader(s))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil || m == nil {
		return nil, false
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, false
	}
	return normalize(m).(map[string]any), true
}

// maxExactInt bounds the integers a float64 holds without rounding.
const maxExactInt = 1 << 53

// normalize turns decoded numbers into float64 unless that would lose
// precision, in which case the literal is kept as a json.Number.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, item := range t {
			t[k] = normalize(item)
		}
	case []any:
		for i, item := range t {
			t[i] = normalize(item)
		}
	case json.Number:
		return number(t)
	}
	return v
}

func number(n json.Number) any {
	f, err := n.Float64()
	if err != nil {
		return n
	}
	if i, err := n.Int64(); err == nil {
		if i < -maxExactInt || i > maxExactInt {
			return n
		}
		return f
	}
	if strings.ContainsAny(string(n), ".eE") {
		return f
	}
	// integer literal beyond int64
	return n
}

func fromFence(text string) (map[string]any, bool) {
	const open = "```json"
	i := strings.Index(text, open)
	if i < 0 {
		return nil, false
	}
	body := text[i+len(open):]
	if j := strings.Index(body, "```"); j >= 0 {
		body = body[:j]
	}
	return decodeObject(body)
}

func fromBackticks(text string) (map[string]any, bool) {
	parts := strings.Split(text, "`")
	for i := 1; i < len(parts); i += 2 {
		if m, ok := decodeObject(parts[i]); ok {
			return m, true
		}
	}
	return nil, false
}

// braceCandidates returns every balanced {...} substring in order of its
// opening brace, including nested ones. Braces inside JSON strings are ignored.
func braceCandidates(text string) []string {
	var out []string
	for start := 0; start < len(text); start++ {
		if text[start] != '{' {
			continue
		}
		if end := matchBrace(text, start); end > 0 {
			out = append(out, text[start:end+1])
		}
	}
	return out
}

func matchBrace(text string, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
