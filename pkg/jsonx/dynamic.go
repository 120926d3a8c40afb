// Package jsonx contains JSON plumbing that does not belong to any one
// domain package.
package jsonx

import json "github.com/goccy/go-json"

// ToDynamicJSON round-trips any Go value through JSON into a
// map[string]any. The OpenAI client wants tool parameter schemas in this
// dynamic form rather than as typed jsonschema values.
func ToDynamicJSON(val any) (map[string]any, error) {
	b, err := json.Marshal(val)
	if err != nil {
		return nil, err
	}
	result := make(map[string]any)
	if err := json.Unmarshal(b, &result); err != nil {
		return nil, err
	}
	return result, nil
}
