package mailer

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/emersion/go-imap"
	"github.com/emersion/go-imap/client"
	"github.com/emersion/go-message"
	"github.com/sirupsen/logrus"

	"cold-outreach-go/internal/config"
)

// IMAPFetcher implements InboundFetcher over IMAP for accounts without Gmail
// API access. Thread correlation relies on the In-Reply-To header of
// inbound mail referencing the sent message.
type IMAPFetcher struct {
	client *client.Client
}

// NewIMAPFetcher connects and logs in to the IMAP server.
func NewIMAPFetcher(cfg *config.GmailConfig) (*IMAPFetcher, error) {
	c, err := client.DialTLS(fmt.Sprintf("%s:%d", cfg.IMAPHost, cfg.IMAPPort), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to IMAP server: %w", err)
	}

	if err := c.Login(cfg.IMAPUser, cfg.IMAPPassword); err != nil {
		c.Logout()
		return nil, fmt.Errorf("failed to login to IMAP server: %w", err)
	}

	return &IMAPFetcher{client: c}, nil
}

// FetchNewMessages fetches inbox messages received since the checkpoint.
func (f *IMAPFetcher) FetchNewMessages(ctx context.Context, since time.Time, max int64) ([]Message, error) {
	if _, err := f.client.Select("INBOX", false); err != nil {
		return nil, fmt.Errorf("failed to select INBOX: %w", err)
	}

	criteria := imap.NewSearchCriteria()
	if !since.IsZero() {
		criteria.Since = since
	}

	uids, err := f.client.Search(criteria)
	if err != nil {
		return nil, fmt.Errorf("failed to search messages: %w", err)
	}
	if len(uids) == 0 {
		return nil, nil
	}
	if int64(len(uids)) > max {
		uids = uids[:max]
	}

	seqset := new(imap.SeqSet)
	seqset.AddNum(uids...)

	section := &imap.BodySectionName{}
	items := []imap.FetchItem{imap.FetchEnvelope, section.FetchItem()}

	ch := make(chan *imap.Message, len(uids))
	done := make(chan error, 1)
	go func() {
		done <- f.client.Fetch(seqset, items, ch)
	}()

	var messages []Message
	for msg := range ch {
		parsed, err := parseIMAPMessage(msg, section)
		if err != nil {
			logrus.Warnf("Failed to parse IMAP message: %v", err)
			continue
		}
		messages = append(messages, parsed)
	}

	if err := <-done; err != nil {
		return nil, fmt.Errorf("failed to fetch messages: %w", err)
	}
	return messages, nil
}

func parseIMAPMessage(msg *imap.Message, section *imap.BodySectionName) (Message, error) {
	out := Message{}

	if msg.Envelope != nil {
		out.ID = msg.Envelope.MessageId
		out.ThreadID = msg.Envelope.InReplyTo
		out.Subject = msg.Envelope.Subject
		out.ReceivedAt = msg.Envelope.Date
		if len(msg.Envelope.From) > 0 {
			out.From = msg.Envelope.From[0].Address()
		}
	}

	body, err := readIMAPBody(msg, section)
	if err != nil {
		return out, err
	}
	out.Body = body
	out.Snippet = truncateSnippet(body, 120)
	return out, nil
}

// truncateSnippet cuts s to at most max bytes without splitting a rune.
func truncateSnippet(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// readIMAPBody prefers a text/plain part over any other part.
func readIMAPBody(msg *imap.Message, section *imap.BodySectionName) (string, error) {
	r := msg.GetBody(section)
	if r == nil {
		return "", fmt.Errorf("message has no body section")
	}

	entity, err := message.Read(r)
	if err != nil {
		return "", fmt.Errorf("failed to read message: %w", err)
	}

	mr := entity.MultipartReader()
	if mr == nil {
		content, err := io.ReadAll(entity.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read message body: %w", err)
		}
		return string(content), nil
	}

	var htmlBody string
	for {
		p, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("failed to read part: %w", err)
		}

		content, err := io.ReadAll(p.Body)
		if err != nil {
			return "", fmt.Errorf("failed to read part body: %w", err)
		}

		contentType := p.Header.Get("Content-Type")
		if strings.Contains(contentType, "text/plain") {
			return string(content), nil
		}
		if strings.Contains(contentType, "text/html") && htmlBody == "" {
			htmlBody = string(content)
		}
	}
	return htmlBody, nil
}

// Close logs out of the IMAP session.
func (f *IMAPFetcher) Close() error {
	return f.client.Logout()
}
