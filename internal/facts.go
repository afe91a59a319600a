package internal

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/sensiblebit/acmefacts/internal/certstore"
)

// FormatFacts renders rs as an external fact document: a single top-level
// key named factName holding the identifier-to-record map. Supported
// formats are "json" (indented) and "yaml". Keys are sorted in both.
func FormatFacts(rs certstore.ResultSet, factName, format string) ([]byte, error) {
	if rs == nil {
		rs = certstore.ResultSet{}
	}
	doc := map[string]certstore.ResultSet{factName: rs}

	switch format {
	case "json":
		data, err := json.MarshalIndent(doc, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshaling JSON: %w", err)
		}
		return append(data, '\n'), nil
	case "yaml":
		data, err := yaml.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("marshaling YAML: %w", err)
		}
		return data, nil
	default:
		return nil, fmt.Errorf("unsupported output format %q (use json or yaml)", format)
	}
}
