// Package transform renders step input/output templates against the seed
// content and prior step outputs. It lives in internal to avoid committing
// to public API stability prematurely.
package transform

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"
)

// Context is the data visible to a transform template.
//
// Templates reference it as {{.Seed}}, {{.Steps.step_id}} or
// {{index .Steps "step-id"}} for IDs that are not valid Go identifiers,
// and {{.Content}} for the step's default input.
type Context struct {
	// Seed is the chain's seed content.
	Seed string
	// Content is the default input the step would receive without a transform.
	Content string
	// Steps maps step IDs to the outputs of all steps completed so far.
	// Skipped steps contribute no entry.
	Steps map[string]string
}

// Render executes text against ctx. Missing step references are errors, not
// empty strings, so a transform depending on a skipped or absent step fails
// loudly instead of silently producing malformed input.
func Render(text string, ctx Context) (string, error) {
	if !strings.Contains(text, "{{") { // fast path: no template markers
		return text, nil
	}

	tmpl, err := template.New("transform").
		Option("missingkey=error").
		Funcs(template.FuncMap{
			"upper": strings.ToUpper,
			"lower": strings.ToLower,
			"trim":  strings.TrimSpace,
			"join":  strings.Join,
			"default": func(defaultVal, val string) string {
				if val == "" {
					return defaultVal
				}
				return val
			},
		}).
		Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template: %w", err)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, ctx); err != nil {
		return "", fmt.Errorf("execute template: %w", err)
	}

	return buf.String(), nil
}
