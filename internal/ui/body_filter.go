package ui

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/jmespath/go-jmespath"
)

// applyBodyFilter runs a JMESPath expression over a JSON body and returns
// the indented result.
func applyBodyFilter(body, expr string) (string, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return body, nil
	}
	var data interface{}
	if err := json.Unmarshal([]byte(body), &data); err != nil {
		return "", fmt.Errorf("filter needs a JSON body: %w", err)
	}
	jp, err := jmespath.Compile(expr)
	if err != nil {
		return "", fmt.Errorf("invalid JMESPath expression %q: %w", expr, err)
	}
	result, err := jp.Search(data)
	if err != nil {
		return "", fmt.Errorf("JMESPath search failed: %w", err)
	}
	if result == nil {
		return "null", nil
	}
	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal filter result: %w", err)
	}
	return string(out), nil
}
