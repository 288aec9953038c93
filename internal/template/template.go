// Package template renders Go templates found in the string fields of
// Kubernetes objects.
package template

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	tmpl "text/template"
)

// Render returns a copy of obj with every string field executed as a
// template against values. Fields without actions are copied unchanged.
// Referencing a key missing from values is an error.
func Render[T any](obj *T, values map[string]any) (*T, error) {
	b, err := json.Marshal(obj)
	if err != nil {
		return nil, err
	}
	var unstructured any
	if err := json.Unmarshal(b, &unstructured); err != nil {
		return nil, err
	}
	unstructured, err = mapAtStrings(unstructured, func(in string) (string, error) {
		return execute(in, values)
	})
	if err != nil {
		return nil, err
	}
	b, err = json.Marshal(unstructured)
	if err != nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func mapAtStrings(v any, f func(string) (string, error)) (any, error) {
	var err error
	switch x := v.(type) {
	case map[string]any:
		for k, val := range x {
			if x[k], err = mapAtStrings(val, f); err != nil {
				return nil, err
			}
		}
		return x, nil
	case []any:
		for i, val := range x {
			if x[i], err = mapAtStrings(val, f); err != nil {
				return nil, err
			}
		}
		return x, nil
	case string:
		return f(x)
	default:
		return v, nil
	}
}

func execute(in string, values map[string]any) (string, error) {
	if !strings.Contains(in, "{{") {
		return in, nil
	}
	tpl, err := tmpl.New("field").Option("missingkey=error").Parse(in)
	if err != nil {
		return "", fmt.Errorf("failed to parse %q: %w", in, err)
	}
	var buf bytes.Buffer
	if err := tpl.Execute(&buf, values); err != nil {
		return "", fmt.Errorf("failed to render %q: %w", in, err)
	}
	return buf.String(), nil
}
