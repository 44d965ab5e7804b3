package codetools

import "encoding/json"

// parseArgs decodes a tool call's JSON arguments into a flat string
// map — every argument these three tools take is a single string
// field, so richer typing isn't needed.
func parseArgs(raw string) (map[string]string, error) {
	if raw == "" {
		return map[string]string{}, nil
	}
	var out map[string]string
	if err := json.Unmarshal([]byte(raw), &out); err != nil {
		return nil, err
	}
	return out, nil
}
