package gateway

import (
	"encoding/json"
	"errors"
	"strings"
)

// ExtractJSON returns the first JSON object or array embedded in text,
// tolerating surrounding prose. Objects are preferred over arrays.
func ExtractJSON(text string) (string, bool) {
	if raw, ok := span(text, '{', '}'); ok {
		return raw, true
	}
	return span(text, '[', ']')
}

func span(text string, open, close byte) (string, bool) {
	start := strings.IndexByte(text, open)
	end := strings.LastIndexByte(text, close)
	if start < 0 || end <= start {
		return "", false
	}
	return text[start : end+1], true
}

// Decode extracts the embedded JSON payload from a raw model response and
// unmarshals it into v. Any shape mismatch is surfaced as MalformedResponse.
func Decode(text string, v any) error {
	raw, ok := ExtractJSON(text)
	if !ok {
		return &ProviderError{Kind: KindMalformed, Err: errors.New("no JSON payload in response")}
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return &ProviderError{Kind: KindMalformed, Err: err}
	}
	return nil
}
