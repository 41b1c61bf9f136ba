package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
)

func TestPlainTextToHTML(t *testing.T) {
	got := PlainTextToHTML("Hi <there>,\nsecond & line")
	assert.Equal(t, "<div>Hi &lt;there&gt;,<br>\nsecond &amp; line</div>", got)
}

func TestIsRateLimited(t *testing.T) {
	assert.True(t, IsRateLimited(&RateLimitError{Err: errors.New("quota")}))
	assert.True(t, IsRateLimited(fmt.Errorf("send: %w", &RateLimitError{Err: errors.New("quota")})))
	assert.False(t, IsRateLimited(errors.New("quota")))
	assert.False(t, IsRateLimited(nil))
}

func TestIsRateLimitResponse(t *testing.T) {
	assert.True(t, isRateLimitResponse(&googleapi.Error{Code: 429, Message: "Too many requests"}))
	assert.True(t, isRateLimitResponse(&googleapi.Error{Code: 403, Message: "User rate limit exceeded"}))
	assert.False(t, isRateLimitResponse(&googleapi.Error{Code: 403, Message: "Insufficient permissions"}))
	assert.True(t, isRateLimitResponse(errors.New("quota exceeded")))
	assert.False(t, isRateLimitResponse(errors.New("invalid recipient")))
}

func TestDisconnectedTransport(t *testing.T) {
	var transport Transport = Disconnected{}

	assert.False(t, transport.IsConnected())

	_, err := transport.Send(context.Background(), "a@example.com", "s", "b")
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = transport.FetchNewMessages(context.Background(), time.Now(), 10)
	assert.ErrorIs(t, err, ErrNotConnected)
}

func encodePart(s string) string {
	return base64.URLEncoding.WithPadding(base64.NoPadding).EncodeToString([]byte(s))
}

func TestParseGmailMessagePrefersPlainText(t *testing.T) {
	msg := &gmail.Message{
		Id:           "m1",
		ThreadId:     "t1",
		Snippet:      "snippet",
		InternalDate: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC).UnixMilli(),
		Payload: &gmail.MessagePart{
			MimeType: "multipart/alternative",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "Jane <jane@example.com>"},
				{Name: "Subject", Value: "Re: hello"},
			},
			Parts: []*gmail.MessagePart{
				{
					MimeType: "text/html",
					Body:     &gmail.MessagePartBody{Data: encodePart("<p>html body</p>")},
				},
				{
					MimeType: "text/plain",
					Body:     &gmail.MessagePartBody{Data: encodePart("plain body")},
				},
			},
		},
	}

	out := parseGmailMessage(msg)
	assert.Equal(t, "m1", out.ID)
	assert.Equal(t, "t1", out.ThreadID)
	assert.Equal(t, "Jane <jane@example.com>", out.From)
	assert.Equal(t, "Re: hello", out.Subject)
	assert.Equal(t, "plain body", out.Body)
	assert.Equal(t, "snippet", out.Snippet)
	assert.Equal(t, time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC).UnixMilli(), out.ReceivedAt.UnixMilli())
}

func TestParseGmailMessageFallsBackToHTML(t *testing.T) {
	msg := &gmail.Message{
		Id: "m2",
		Payload: &gmail.MessagePart{
			MimeType: "text/html",
			Body:     &gmail.MessagePartBody{Data: encodePart("<p>only html</p>")},
		},
	}

	out := parseGmailMessage(msg)
	assert.Equal(t, "<p>only html</p>", out.Body)
}

func TestCreateRawMessage(t *testing.T) {
	transport := &GmailTransport{userEmail: "me@example.com"}
	raw := transport.createRawMessage("you@example.com", "Hello", "<div>body</div>")

	decoded, err := base64.URLEncoding.DecodeString(raw)
	require.NoError(t, err)
	text := string(decoded)

	assert.Contains(t, text, "From: me@example.com\r\n")
	assert.Contains(t, text, "To: you@example.com\r\n")
	assert.Contains(t, text, "Subject: Hello\r\n")
	assert.Contains(t, text, "Content-Type: text/html; charset=utf-8")
	assert.Contains(t, text, "\r\n\r\n<div>body</div>")
}

func TestTruncateSnippet(t *testing.T) {
	assert.Equal(t, "short", truncateSnippet("short", 120))

	long := strings.Repeat("a", 200)
	assert.Equal(t, long[:120], truncateSnippet(long, 120))

	// A multi-byte rune straddling the cut is dropped whole.
	multi := strings.Repeat("a", 119) + "日本語"
	got := truncateSnippet(multi, 120)
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", 119), got)
	assert.LessOrEqual(t, len(got), 120)
}
