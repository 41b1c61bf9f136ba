package mailer

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"
)

// ErrNotConnected is returned when no mail account is configured.
var ErrNotConnected = errors.New("mail transport not connected")

// SendResult carries the provider identifiers of a sent message.
type SendResult struct {
	MessageID string
	ThreadID  string
}

// Message is one inbound message as returned by the provider.
type Message struct {
	ID         string
	ThreadID   string
	From       string
	Subject    string
	Body       string
	Snippet    string
	ReceivedAt time.Time
}

// InboundFetcher fetches new inbox messages since a checkpoint.
type InboundFetcher interface {
	FetchNewMessages(ctx context.Context, since time.Time, max int64) ([]Message, error)
}

// Transport is the outbound/inbound mail provider.
type Transport interface {
	IsConnected() bool
	Send(ctx context.Context, to, subject, htmlBody string) (*SendResult, error)
	InboundFetcher
}

// RateLimitError marks a send rejected by provider rate limiting, which the
// send scheduler handles with a cooldown instead of marking the mail failed.
type RateLimitError struct {
	Err error
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by mail provider: %v", e.Err)
}

func (e *RateLimitError) Unwrap() error {
	return e.Err
}

// IsRateLimited reports whether err is a provider rate-limit rejection.
func IsRateLimited(err error) bool {
	var rl *RateLimitError
	return errors.As(err, &rl)
}

// Disconnected is the Transport used when no mail credentials are present.
type Disconnected struct{}

func (Disconnected) IsConnected() bool { return false }

func (Disconnected) Send(ctx context.Context, to, subject, htmlBody string) (*SendResult, error) {
	return nil, ErrNotConnected
}

func (Disconnected) FetchNewMessages(ctx context.Context, since time.Time, max int64) ([]Message, error) {
	return nil, ErrNotConnected
}

// PlainTextToHTML renders a plain-text email body as the HTML the transport
// expects, escaping markup and preserving line breaks.
func PlainTextToHTML(text string) string {
	escaped := html.EscapeString(text)
	return "<div>" + strings.ReplaceAll(escaped, "\n", "<br>\n") + "</div>"
}
