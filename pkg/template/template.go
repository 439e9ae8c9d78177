// Package template resolves step configuration values against the state of a
// running execution.
package template

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"text/template"
	"time"

	"github.com/wardenhq/warden/pkg/models"
)

// fieldExpr matches a template that is a single bare field chain, e.g.
// "{{ .trigger.steam_id }}". Those resolve to the underlying value directly
// so types survive the round trip.
var fieldExpr = regexp.MustCompile(`^\{\{\s*((?:\.[A-Za-z_][A-Za-z0-9_]*)+)\s*\}\}$`)

// RenderWithContext renders a template string against the execution state.
// Templates can reference .trigger (event payload), .vars, .steps (prior
// action outputs) and .execution metadata.
func RenderWithContext(input string, executionCtx *models.ExecutionContext) (any, error) {
	data := map[string]any{
		"trigger": executionCtx.TriggerData,
		"vars":    executionCtx.Variables,
		"steps":   executionCtx.StepResults,
		"execution": map[string]any{
			"id":          executionCtx.ExecutionID,
			"workflow_id": executionCtx.WorkflowID,
			"server_id":   executionCtx.ServerID,
		},
	}

	return Render(input, data)
}

// Render resolves a template string. A single bare field reference returns
// the referenced value with its type intact. Anything else executes as a
// text/template and the textual result is re-typed: JSON-looking output is
// decoded, then numbers and booleans are attempted, strings pass through.
// Numbers only convert when float64 represents them exactly, so long digit
// strings such as steam IDs stay strings.
func Render(templateStr string, data any) (any, error) {
	if !strings.Contains(templateStr, "{{") {
		return templateStr, nil
	}

	if m := fieldExpr.FindStringSubmatch(strings.TrimSpace(templateStr)); m != nil {
		if value, ok := lookupField(data, m[1]); ok {
			return value, nil
		}
	}

	tmpl, err := template.
		New("config").
		Funcs(template.FuncMap{
			"now": func() string {
				return time.Now().UTC().Format(time.RFC3339)
			},
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
		}).Parse(templateStr)
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %q: %w", templateStr, err)
	}

	var buf strings.Builder

	err = tmpl.Execute(&buf, data)
	if err != nil {
		return nil, fmt.Errorf("failed to execute template %q: %w", templateStr, err)
	}

	result := strings.TrimSpace(buf.String())

	if (strings.HasPrefix(result, "{") && strings.HasSuffix(result, "}")) ||
		(strings.HasPrefix(result, "[") && strings.HasSuffix(result, "]")) {
		var jsonResult any

		if err := json.Unmarshal([]byte(result), &jsonResult); err == nil {
			return jsonResult, nil
		}
	}

	if num, err := strconv.ParseFloat(result, 64); err == nil &&
		strconv.FormatFloat(num, 'f', -1, 64) == result {
		return num, nil
	}

	if b, err := strconv.ParseBool(result); err == nil {
		return b, nil
	}

	return result, nil
}

// lookupField walks a dotted field chain through nested maps.
func lookupField(data any, path string) (any, bool) {
	current := data

	for _, segment := range strings.Split(strings.TrimPrefix(path, "."), ".") {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}

		current, ok = m[segment]
		if !ok {
			return nil, false
		}
	}

	return current, true
}

// RenderValue deep-renders a config value: strings go through Render, maps and
// slices are walked, everything else passes through untouched.
func RenderValue(value any, executionCtx *models.ExecutionContext) (any, error) {
	switch v := value.(type) {
	case string:
		return RenderWithContext(v, executionCtx)
	case map[string]any:
		out := make(map[string]any, len(v))

		for key, item := range v {
			rendered, err := RenderValue(item, executionCtx)
			if err != nil {
				return nil, err
			}

			out[key] = rendered
		}

		return out, nil
	case []any:
		out := make([]any, len(v))

		for i, item := range v {
			rendered, err := RenderValue(item, executionCtx)
			if err != nil {
				return nil, err
			}

			out[i] = rendered
		}

		return out, nil
	default:
		return value, nil
	}
}

// RenderConfig resolves every templated value in an action step's params.
func RenderConfig(config map[string]any, executionCtx *models.ExecutionContext) (map[string]any, error) {
	rendered, err := RenderValue(config, executionCtx)
	if err != nil {
		return nil, err
	}

	out, ok := rendered.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("rendered config is %T, expected object", rendered)
	}

	return out, nil
}

// RenderString renders a template and forces the result back to a string.
func RenderString(input string, executionCtx *models.ExecutionContext) (string, error) {
	rendered, err := RenderWithContext(input, executionCtx)
	if err != nil {
		return "", err
	}

	if s, ok := rendered.(string); ok {
		return s, nil
	}

	return fmt.Sprintf("%v", rendered), nil
}
