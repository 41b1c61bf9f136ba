package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractJSONFromProse(t *testing.T) {
	text := "Sure, here is the result:\n```json\n{\"subject\": \"hi\"}\n```\nLet me know!"
	raw, ok := ExtractJSON(text)
	require.True(t, ok)
	assert.Equal(t, `{"subject": "hi"}`, raw)
}

func TestExtractJSONArrayFallback(t *testing.T) {
	raw, ok := ExtractJSON(`the list: [1, 2, 3] done`)
	require.True(t, ok)
	assert.Equal(t, `[1, 2, 3]`, raw)
}

func TestExtractJSONNone(t *testing.T) {
	_, ok := ExtractJSON("no payload here at all")
	assert.False(t, ok)
}

func TestDecode(t *testing.T) {
	var out struct {
		Subject string `json:"subject"`
	}
	err := Decode("prefix {\"subject\": \"hello\"} suffix", &out)
	require.NoError(t, err)
	assert.Equal(t, "hello", out.Subject)
}

func TestDecodeNoJSON(t *testing.T) {
	var out map[string]any
	err := Decode("I refuse to answer.", &out)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformed))
}

func TestDecodeBadShape(t *testing.T) {
	var out struct {
		Confidence float64 `json:"confidence"`
	}
	err := Decode(`{"confidence": "very high"}`, &out)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindMalformed))
}
