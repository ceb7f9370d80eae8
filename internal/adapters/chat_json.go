// Package adapters parses external source files into the raw records the
// ingest pipeline builds drafts from.
package adapters

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"

	"github.com/ternarybob/opsbrain/internal/common"
)

// LoadChatJSON parses an exported chat transcript into its records in file
// order. Two encodings are accepted: a JSON array of objects, or
// newline-delimited JSON objects. Record numbers decode as json.Number so
// payload values round-trip byte-identically through hashing and replay.
func LoadChatJSON(path string) ([]map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.AdapterError(err, "failed to read input")
	}

	stripped := strings.TrimLeftFunc(string(data), isJSONSpace)
	if stripped == "" {
		return []map[string]any{}, nil
	}

	if strings.HasPrefix(stripped, "[") {
		return decodeChatArray(data)
	}
	return decodeChatLines(data)
}

func isJSONSpace(r rune) bool {
	return r == ' ' || r == '\t' || r == '\n' || r == '\r'
}

func decodeChatArray(data []byte) ([]map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var items []any
	if err := dec.Decode(&items); err != nil {
		return nil, common.AdapterError(err, "invalid JSON input")
	}
	if dec.More() {
		return nil, common.AdapterError(nil, "invalid JSON input: trailing data after array")
	}

	records := make([]map[string]any, 0, len(items))
	for _, item := range items {
		record, ok := item.(map[string]any)
		if !ok {
			return nil, common.AdapterError(nil, "chat entries must be objects")
		}
		records = append(records, record)
	}
	return records, nil
}

func decodeChatLines(data []byte) ([]map[string]any, error) {
	records := make([]map[string]any, 0)
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		dec := json.NewDecoder(strings.NewReader(line))
		dec.UseNumber()

		var item any
		if err := dec.Decode(&item); err != nil {
			return nil, common.AdapterError(err, "invalid JSON input")
		}
		record, ok := item.(map[string]any)
		if !ok {
			return nil, common.AdapterError(nil, "chat entries must be objects")
		}
		records = append(records, record)
	}
	return records, nil
}
