package cache

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ValidatePayload accepts generator output that is a JSON object, array or string and
// returns the compacted document. A JSON string whose content is itself such a document
// is unwrapped once. Markdown code fences around the document are ignored.
func ValidatePayload(raw string) (json.RawMessage, error) {
	s := stripFences(raw)
	if s == "" {
		return nil, fmt.Errorf("%w: empty output", ErrInvalidPayload)
	}
	if !json.Valid([]byte(s)) {
		return nil, fmt.Errorf("%w: output is not valid JSON", ErrInvalidPayload)
	}
	if !acceptedDocument(s) {
		return nil, fmt.Errorf("%w: output is not a JSON object, array or string", ErrInvalidPayload)
	}
	if strings.HasPrefix(s, `"`) {
		var inner string
		if err := json.Unmarshal([]byte(s), &inner); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
		}
		inner = stripFences(inner)
		if inner != "" && json.Valid([]byte(inner)) && acceptedDocument(inner) {
			return compact(inner)
		}
	}
	return compact(s)
}

// acceptedDocument reports whether the valid JSON document s is an object, array or string.
func acceptedDocument(s string) bool {
	switch s[0] {
	case '{', '[', '"':
		return true
	default:
		return false
	}
}

func compact(s string) (json.RawMessage, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, []byte(s)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	return json.RawMessage(buf.Bytes()), nil
}

func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	} else {
		s = ""
	}
	s = strings.TrimSpace(s)
	return strings.TrimSpace(strings.TrimSuffix(s, "```"))
}
