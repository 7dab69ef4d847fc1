package dataintegrity

import "encoding/json"

// parseLenientJSON decodes one JSON-LD script body, returning nil on
// parse failure rather than erroring the whole comparison. A malformed
// block is not fatal: it compares as absent, so it yields a missing_*
// entry when the block at the same index on the other side parses, and
// nothing when both are malformed.
func parseLenientJSON(raw string) interface{} {
	var v interface{}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return nil
	}
	return v
}
