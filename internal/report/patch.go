package report

import (
	"encoding/json"
	"fmt"

	jsonpatch "github.com/evanphx/json-patch"
	"gopkg.in/yaml.v3"
)

// MergePatch returns the RFC 7386 merge patch turning the JSON document
// before into after.
func MergePatch(before, after []byte) ([]byte, error) {
	p, err := jsonpatch.CreateMergePatch(before, after)
	if err != nil {
		return nil, fmt.Errorf("create merge patch: %w", err)
	}
	return p, nil
}

// ApplyMergePatch applies an RFC 7386 merge patch to a JSON document.
func ApplyMergePatch(doc, patch []byte) ([]byte, error) {
	out, err := jsonpatch.MergePatch(doc, patch)
	if err != nil {
		return nil, fmt.Errorf("apply merge patch: %w", err)
	}
	return out, nil
}

// YAMLMergePatch converts two single-document YAML texts to JSON and
// returns the merge patch between them.
func YAMLMergePatch(before, after string) ([]byte, error) {
	a, err := yamlToJSON(before)
	if err != nil {
		return nil, fmt.Errorf("before: %w", err)
	}
	b, err := yamlToJSON(after)
	if err != nil {
		return nil, fmt.Errorf("after: %w", err)
	}
	return MergePatch(a, b)
}

func yamlToJSON(src string) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal([]byte(src), &v); err != nil {
		return nil, err
	}
	if v == nil {
		v = map[string]any{}
	}
	return json.Marshal(v)
}
