// Package render turns configuration templates into device-native text.
//
// Templates use text/template syntax. Variables come from a job's
// VariableSet; a template rendered without variables is executed with no
// data bound, so literal-only templates render as-is. A reference to an
// undefined variable fails the render instead of emitting "<no value>".
//
// Optional variables are looked up with index, which yields nil for a
// missing key, and given a fallback with default:
//
//	set system domain-name {{ default "lab.local" (index . "domain") }}
package render

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/newtron-network/confpush/pkg/job"
)

// templateFuncs provides helper functions for configuration templates.
var templateFuncs = template.FuncMap{
	"upper":  strings.ToUpper,
	"lower":  strings.ToLower,
	"join":   join,
	"quote":  func(v any) string { return fmt.Sprintf("%q", fmt.Sprint(v)) },
	"indent": indent,
	"default": func(def, v any) any {
		if isEmpty(v) {
			return def
		}
		return v
	},
	"add": func(a, b int) int { return a + b },
}

// ErrNoVariables is wrapped into execution errors of templates that
// reference data while rendered with an empty variable set.
var ErrNoVariables = errors.New("template references variables but none were supplied")

// Renderer renders template files. The zero value is ready to use.
type Renderer struct{}

// Render reads the template at path and executes it. When vars is empty the
// template is executed with no data.
func (r *Renderer) Render(path string, vars job.VariableSet) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read template %s: %w", path, err)
	}
	return renderString(filepath.Base(path), string(data), vars)
}

func renderString(name, text string, vars job.VariableSet) (string, error) {
	tmpl, err := template.New(name).
		Funcs(templateFuncs).
		Option("missingkey=error").
		Parse(text)
	if err != nil {
		return "", fmt.Errorf("parse template %s: %w", name, err)
	}

	var data any
	if !vars.Empty() {
		data = map[string]any(vars)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		if data == nil {
			return "", fmt.Errorf("execute template %s: %w: %w", name, ErrNoVariables, err)
		}
		return "", fmt.Errorf("execute template %s: %w", name, err)
	}
	return buf.String(), nil
}

func join(sep string, items any) string {
	switch v := items.(type) {
	case []string:
		return strings.Join(v, sep)
	case []any:
		parts := make([]string, len(v))
		for i, item := range v {
			parts[i] = fmt.Sprint(item)
		}
		return strings.Join(parts, sep)
	case nil:
		return ""
	}
	return fmt.Sprint(items)
}

// indent prefixes every non-empty line of s with n spaces.
func indent(n int, s string) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = pad + line
		}
	}
	return strings.Join(lines, "\n")
}

func isEmpty(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return t == ""
	case []any:
		return len(t) == 0
	case map[string]any:
		return len(t) == 0
	}
	return false
}
