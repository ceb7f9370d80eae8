package sqlite

import (
	"bytes"
	"encoding/json"
	"strings"
)

// encodeJSON marshals v for a JSON column without HTML escaping, so stored
// text matches the canonical log bytes on multibyte and angle-bracket
// content. Tag filters depend on this: they match tags_json with a LIKE
// pattern built from the raw tag string.
func encodeJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// decodeJSON unmarshals a JSON column with UseNumber so numeric payload
// values keep their source form when events are re-serialized or rehashed.
func decodeJSON(data string, v any) error {
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}
