package output

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"github.com/brightenyim/latstat/internal/engine"
)

// JSON renders a snapshot as indented JSON.
func JSON(snap engine.Snapshot) (string, error) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return "", fmt.Errorf("error encoding snapshot: %w", err)
	}
	return string(data), nil
}

// Query extracts a single value from the snapshot by gjson path, e.g.
// "host_stats.example\\.com.request_intercept.average_overhead".
func Query(snap engine.Snapshot, path string) (string, error) {
	doc, err := JSON(snap)
	if err != nil {
		return "", err
	}

	result := gjson.Get(doc, path)
	if !result.Exists() {
		return "", fmt.Errorf("no value at path %q", path)
	}
	return result.String(), nil
}
