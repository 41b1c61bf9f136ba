package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"cold-outreach-go/internal/config"
)

// GmailTransport implements Transport on the Gmail API.
type GmailTransport struct {
	service   *gmail.Service
	userEmail string
}

// NewGmailTransport creates a Gmail transport from OAuth2 refresh-token
// credentials.
func NewGmailTransport(cfg *config.GmailConfig) (*GmailTransport, error) {
	ctx := context.Background()

	oauth2Config := &oauth2.Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		Scopes:       []string{gmail.GmailSendScope, gmail.GmailReadonlyScope},
		Endpoint:     google.Endpoint,
	}

	token := &oauth2.Token{
		RefreshToken: cfg.RefreshToken,
	}
	tokenSource := oauth2Config.TokenSource(ctx, token)

	service, err := gmail.NewService(ctx, option.WithTokenSource(tokenSource))
	if err != nil {
		return nil, fmt.Errorf("failed to create Gmail service: %w", err)
	}

	return &GmailTransport{
		service:   service,
		userEmail: cfg.UserEmail,
	}, nil
}

// IsConnected reports whether the transport can reach Gmail.
func (t *GmailTransport) IsConnected() bool {
	return t != nil && t.service != nil
}

// Send delivers one message and returns the provider message and thread ids.
// Rate-limit rejections are surfaced as RateLimitError.
func (t *GmailTransport) Send(ctx context.Context, to, subject, htmlBody string) (*SendResult, error) {
	if !t.IsConnected() {
		return nil, ErrNotConnected
	}

	raw := t.createRawMessage(to, subject, htmlBody)
	message := &gmail.Message{Raw: raw}

	resp, err := t.service.Users.Messages.Send("me", message).Context(ctx).Do()
	if err != nil {
		if isRateLimitResponse(err) {
			return nil, &RateLimitError{Err: err}
		}
		return nil, fmt.Errorf("failed to send message: %w", err)
	}

	return &SendResult{
		MessageID: resp.Id,
		ThreadID:  resp.ThreadId,
	}, nil
}

// createRawMessage builds the base64url-encoded RFC 2822 message Gmail
// expects.
func (t *GmailTransport) createRawMessage(to, subject, htmlBody string) string {
	parts := []string{
		fmt.Sprintf("From: %s", t.userEmail),
		fmt.Sprintf("To: %s", to),
		fmt.Sprintf("Subject: %s", subject),
		"MIME-Version: 1.0",
		"Content-Type: text/html; charset=utf-8",
		"",
		htmlBody,
	}
	return base64.URLEncoding.EncodeToString([]byte(strings.Join(parts, "\r\n")))
}

// FetchNewMessages lists inbox messages received after since, capped at max.
func (t *GmailTransport) FetchNewMessages(ctx context.Context, since time.Time, max int64) ([]Message, error) {
	if !t.IsConnected() {
		return nil, ErrNotConnected
	}

	query := "in:inbox"
	if !since.IsZero() {
		query = fmt.Sprintf("in:inbox after:%d", since.Unix())
	}

	resp, err := t.service.Users.Messages.List("me").Q(query).MaxResults(max).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}

	var messages []Message
	for _, ref := range resp.Messages {
		full, err := t.service.Users.Messages.Get("me", ref.Id).Format("full").Context(ctx).Do()
		if err != nil {
			logrus.Warnf("Failed to get message %s: %v", ref.Id, err)
			continue
		}
		messages = append(messages, parseGmailMessage(full))
	}

	return messages, nil
}

func parseGmailMessage(msg *gmail.Message) Message {
	out := Message{
		ID:       msg.Id,
		ThreadID: msg.ThreadId,
		Snippet:  msg.Snippet,
	}
	if msg.InternalDate > 0 {
		out.ReceivedAt = time.UnixMilli(msg.InternalDate)
	}
	if msg.Payload == nil {
		return out
	}

	for _, header := range msg.Payload.Headers {
		switch strings.ToLower(header.Name) {
		case "from":
			out.From = header.Value
		case "subject":
			out.Subject = header.Value
		}
	}

	out.Body = extractBody(msg.Payload)
	return out
}

// extractBody walks the MIME tree preferring a text/plain part; an HTML part
// is only used when no plain part exists anywhere.
func extractBody(part *gmail.MessagePart) string {
	if plain := findPart(part, "text/plain"); plain != "" {
		return plain
	}
	return findPart(part, "text/html")
}

func findPart(part *gmail.MessagePart, mimeType string) string {
	if part == nil {
		return ""
	}
	if part.MimeType == mimeType && part.Body != nil && part.Body.Data != "" {
		data, err := base64.URLEncoding.WithPadding(base64.NoPadding).DecodeString(part.Body.Data)
		if err != nil {
			logrus.Warnf("Failed to decode %s body part: %v", mimeType, err)
			return ""
		}
		return string(data)
	}
	for _, sub := range part.Parts {
		if body := findPart(sub, mimeType); body != "" {
			return body
		}
	}
	return ""
}

func isRateLimitResponse(err error) bool {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && (apiErr.Code == 429 || apiErr.Code == 403) {
		msg := strings.ToLower(apiErr.Message)
		if apiErr.Code == 429 || strings.Contains(msg, "quota") || strings.Contains(msg, "rate") {
			return true
		}
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "quota") || strings.Contains(msg, "rate limit")
}
