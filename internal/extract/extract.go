// Package extract detects a structured completion payload inside the text a
// model produced. It is a pure function over the accumulated buffer: no I/O,
// no state.
package extract

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"studio/internal/directive"
)

// Payload runs the two extraction passes over a finished stream buffer:
//
//  1. parse the whole trimmed buffer as a single JSON object;
//  2. failing that, locate the first balanced {...} span by depth-counted
//     bracket matching and parse that span, repairing the span first when it
//     fails with a syntax error (models occasionally emit trailing commas or
//     unquoted keys).
//
// A miss is not an error; it is the ordinary plain-text outcome.
func Payload(buffer string) (map[string]any, bool) {
	trimmed := strings.TrimSpace(buffer)
	if trimmed == "" {
		return nil, false
	}

	if obj, ok := parseObject(trimmed); ok {
		return obj, true
	}

	start, end, ok := directive.ObjectSpan(trimmed, 0)
	if !ok {
		return nil, false
	}
	span := trimmed[start:end]
	if obj, ok := parseObject(span); ok {
		return obj, true
	}
	if fixed, err := jsonrepair.JSONRepair(span); err == nil {
		if obj, ok := parseObject(fixed); ok {
			return obj, true
		}
	}
	return nil, false
}

// parseObject accepts only JSON objects; bare arrays, strings and numbers in
// prose must not be mistaken for a completion payload.
func parseObject(s string) (map[string]any, bool) {
	if !strings.HasPrefix(s, "{") {
		return nil, false
	}
	var obj map[string]any
	if err := json.Unmarshal([]byte(s), &obj); err != nil {
		return nil, false
	}
	return obj, true
}
