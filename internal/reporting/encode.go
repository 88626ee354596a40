package reporting

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// RenderYAML renders the report as the primary YAML document.
func RenderYAML(r *Report) (string, error) {
	data, err := yaml.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal report yaml: %w", err)
	}
	return string(data), nil
}

// RenderJSON renders the report as indented JSON.
func RenderJSON(r *Report) (string, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report json: %w", err)
	}
	return string(data) + "\n", nil
}
