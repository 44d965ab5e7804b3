package facts

import "encoding/json"

// DecodeFacts converts the opaque JSON the external parser stored on
// ParsedFile.facts into typed CodeFact values. The parser's per-record
// shape already matches CodeFact's json tags, so decoding is a plain
// marshal/unmarshal round trip rather than a bespoke mapper.
func DecodeFacts(raw []map[string]interface{}) ([]CodeFact, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	blob, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var out []CodeFact
	if err := json.Unmarshal(blob, &out); err != nil {
		return nil, err
	}
	return out, nil
}
