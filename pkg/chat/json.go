package chat

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON is returned when a model reply contains no JSON value.
var ErrNoJSON = errors.New("no JSON value found in response")

// ExtractJSON pulls the first JSON object or array out of a model reply.
// Models often wrap their answer in markdown fences or add a sentence of
// preamble; both are stripped.
func ExtractJSON(reply string) (json.RawMessage, error) {
	s := strings.TrimSpace(reply)
	s = stripFence(s)

	if json.Valid([]byte(s)) && (strings.HasPrefix(s, "{") || strings.HasPrefix(s, "[")) {
		return json.RawMessage(s), nil
	}

	start := strings.IndexAny(s, "{[")
	if start < 0 {
		return nil, ErrNoJSON
	}
	closer := byte('}')
	if s[start] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end <= start {
		return nil, ErrNoJSON
	}

	candidate := s[start : end+1]
	if !json.Valid([]byte(candidate)) {
		return nil, ErrNoJSON
	}
	return json.RawMessage(candidate), nil
}

func stripFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}
