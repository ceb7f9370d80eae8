package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/ternarybob/opsbrain/internal/common"
)

// RequireMethod validates that the HTTP request uses the specified method.
// Returns true if the method matches, false otherwise (and writes error response).
func RequireMethod(w http.ResponseWriter, r *http.Request, method string) bool {
	if r.Method != method {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return false
	}
	return true
}

// WriteJSON writes a JSON response with the specified status code and data.
func WriteJSON(w http.ResponseWriter, statusCode int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(data)
}

// WriteError writes the error body shape every non-200 response uses.
func WriteError(w http.ResponseWriter, statusCode int, message string) error {
	return WriteJSON(w, statusCode, map[string]string{"error": message})
}

// WriteServiceError maps a service error onto the response. notFoundMsg
// replaces the internal message on 404s so the wire surface stays stable
// regardless of storage wording.
func WriteServiceError(w http.ResponseWriter, err error, notFoundMsg string) {
	status := common.HTTPStatus(err)
	msg := err.Error()
	if status == http.StatusNotFound && notFoundMsg != "" {
		msg = notFoundMsg
	}
	WriteError(w, status, msg)
}

// DecodeJSON reads the request body as a JSON object. An empty body counts
// as an empty object; a malformed one gets a 400 and ok=false, so callers
// return immediately.
func DecodeJSON(w http.ResponseWriter, r *http.Request) (map[string]any, bool) {
	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		if errors.Is(err, io.EOF) {
			return map[string]any{}, true
		}
		WriteError(w, http.StatusBadRequest, "Invalid JSON")
		return nil, false
	}
	if payload == nil {
		payload = map[string]any{}
	}
	return payload, true
}

// PathName extracts the resource name after prefix, stripping the optional
// action suffix (":test", ":run", ":query") and percent-decoding the rest.
func PathName(path, prefix, suffix string) string {
	name := strings.TrimPrefix(path, prefix)
	if suffix != "" {
		name = strings.TrimSuffix(name, suffix)
	}
	if decoded, err := url.PathUnescape(name); err == nil {
		return decoded
	}
	return name
}

// CSVParam splits repeated and comma-separated occurrences of a query
// parameter into one list, dropping blanks.
func CSVParam(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	var items []string
	for _, part := range strings.Split(strings.Join(values, ","), ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}

// IntParam parses an integer query parameter, falling back to def when the
// parameter is absent or blank. ok is false on a malformed value.
func IntParam(values url.Values, key string, def int) (int, bool) {
	raw := values.Get(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, false
	}
	return n, true
}

// stringsField reads an optional list-of-strings field from a decoded JSON
// object. ok is false when the field is present but not a list of strings.
func stringsField(payload map[string]any, key string) ([]string, bool) {
	raw, present := payload[key]
	if !present || raw == nil {
		return nil, true
	}
	items, ok := raw.([]any)
	if !ok {
		return nil, false
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		s, ok := item.(string)
		if !ok {
			return nil, false
		}
		out = append(out, s)
	}
	return out, true
}

// boolField reads an optional bool field, returning def when absent or not a
// bool.
func boolField(payload map[string]any, key string, def bool) bool {
	if v, ok := payload[key].(bool); ok {
		return v
	}
	return def
}

// stringField reads an optional string field; absent or non-string yields "".
func stringField(payload map[string]any, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

// objectField reads an optional object field. ok is false when the field is
// present but not an object.
func objectField(payload map[string]any, key string) (map[string]any, bool) {
	raw, present := payload[key]
	if !present || raw == nil {
		return nil, true
	}
	obj, ok := raw.(map[string]any)
	return obj, ok
}
