package poller

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"cold-outreach-go/internal/events"
	"cold-outreach-go/internal/gateway"
	"cold-outreach-go/internal/mailer"
	"cold-outreach-go/internal/metrics"
	"cold-outreach-go/internal/model"
)

// EmailMatcher matches inbound mail back to sent emails.
type EmailMatcher interface {
	BySentThreadID(threadID string) (*model.Email, error)
}

// ReplyStore persists ingested replies.
type ReplyStore interface {
	ExistsByProviderMessageID(providerMessageID string) (bool, error)
	Create(reply *model.Reply) error
	UnreadCount() (int64, error)
}

// LeadStore mutates lead status on classified replies.
type LeadStore interface {
	UpdateStatus(id, status string) error
}

// CampaignCounters bumps campaign reply aggregates.
type CampaignCounters interface {
	IncrementReplied(campaignID string, interested bool) error
}

// Config holds poller tuning.
type Config struct {
	Interval time.Duration
	// Lookback bounds the first poll when no checkpoint exists yet.
	Lookback time.Duration
	PageSize int64
}

// Status is a snapshot for observers.
type Status struct {
	Scheduled bool      `json:"scheduled"`
	Polling   bool      `json:"polling"`
	LastPoll  time.Time `json:"last_poll"`
	Interval  string    `json:"interval"`
}

// NewRepliesPayload is emitted on inbox:new-replies after a cycle that
// ingested at least one reply.
type NewRepliesPayload struct {
	Count       int   `json:"count"`
	UnreadCount int64 `json:"unread_count"`
}

// classification is the JSON shape the model must return for a reply.
type classification struct {
	Classification string  `json:"classification"`
	Confidence     float64 `json:"confidence"`
	Reasoning      string  `json:"reasoning"`
}

var knownClassifications = map[string]bool{
	model.ClassInterested:    true,
	model.ClassNotInterested: true,
	model.ClassFollowUp:      true,
	model.ClassOutOfOffice:   true,
	model.ClassBounce:        true,
	model.ClassUnsubscribe:   true,
}

// Poller periodically fetches new inbox messages, matches them to sent
// emails, classifies them and records them as replies. Cycles never overlap:
// a cycle that starts while another runs is skipped, and the checkpoint only
// advances after a fully successful fetch.
type Poller struct {
	fetcher   mailer.InboundFetcher
	connected func() bool
	gw        *gateway.Gateway
	emails    EmailMatcher
	replies   ReplyStore
	leads     LeadStore
	campaigns CampaignCounters
	emitter   *events.Emitter
	metrics   *metrics.Metrics
	cfg       Config
	selfEmail string

	cron    *cron.Cron
	polling atomic.Bool

	mu         sync.Mutex
	checkpoint time.Time
	lastPoll   time.Time
}

func New(fetcher mailer.InboundFetcher, connected func() bool, gw *gateway.Gateway, emails EmailMatcher, replies ReplyStore, leads LeadStore, campaigns CampaignCounters, emitter *events.Emitter, m *metrics.Metrics, cfg Config, selfEmail string) *Poller {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Minute
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = 24 * time.Hour
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 50
	}
	return &Poller{
		fetcher:   fetcher,
		connected: connected,
		gw:        gw,
		emails:    emails,
		replies:   replies,
		leads:     leads,
		campaigns: campaigns,
		emitter:   emitter,
		metrics:   m,
		cfg:       cfg,
		selfEmail: strings.ToLower(selfEmail),
	}
}

// Start runs one immediate poll and schedules recurring polls.
func (p *Poller) Start(ctx context.Context) error {
	c := cron.New()
	_, err := c.AddFunc(fmt.Sprintf("@every %s", p.cfg.Interval), func() {
		p.Poll(ctx)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule poller: %w", err)
	}

	p.mu.Lock()
	if p.cron != nil {
		p.mu.Unlock()
		return fmt.Errorf("poller already started")
	}
	p.cron = c
	p.mu.Unlock()

	go p.Poll(ctx)
	c.Start()
	logrus.Infof("Inbox poller started, polling every %s", p.cfg.Interval)
	return nil
}

// Stop halts the recurring schedule. An in-flight cycle finishes.
func (p *Poller) Stop() {
	p.mu.Lock()
	c := p.cron
	p.cron = nil
	p.mu.Unlock()

	if c == nil {
		return
	}
	c.Stop()
	logrus.Info("Inbox poller stopped")
}

// Status returns a snapshot for observers.
func (p *Poller) Status() Status {
	p.mu.Lock()
	last := p.lastPoll
	scheduled := p.cron != nil
	p.mu.Unlock()
	return Status{
		Scheduled: scheduled,
		Polling:   p.polling.Load(),
		LastPoll:  last,
		Interval:  p.cfg.Interval.String(),
	}
}

// Poll runs one cycle. Overlapping calls are skipped.
func (p *Poller) Poll(ctx context.Context) {
	if !p.polling.CompareAndSwap(false, true) {
		logrus.Debug("Poll cycle already running, skipping")
		return
	}
	defer p.polling.Store(false)

	if p.connected != nil && !p.connected() {
		logrus.Debug("Mail transport not connected, skipping poll")
		return
	}

	since := p.since()
	cycleStart := time.Now()

	messages, err := p.fetcher.FetchNewMessages(ctx, since, p.cfg.PageSize)
	if err != nil {
		// Checkpoint stays put so the next cycle retries this window.
		logrus.Errorf("Failed to fetch inbox messages: %v", err)
		if p.metrics != nil {
			p.metrics.PollFailures.Inc()
		}
		return
	}

	ingested := 0
	for _, msg := range messages {
		ok, err := p.processMessage(ctx, msg)
		if err != nil {
			logrus.Errorf("Failed to process message %s: %v", msg.ID, err)
			continue
		}
		if ok {
			ingested++
		}
	}

	p.mu.Lock()
	p.checkpoint = cycleStart
	p.lastPoll = cycleStart
	p.mu.Unlock()

	if p.metrics != nil {
		p.metrics.PollCycles.Inc()
	}

	if ingested > 0 {
		unread, err := p.replies.UnreadCount()
		if err != nil {
			logrus.Warnf("Failed to count unread replies: %v", err)
		}
		logrus.Infof("Ingested %d new replies", ingested)
		p.emitter.Emit(events.InboxNewReplies, NewRepliesPayload{Count: ingested, UnreadCount: unread})
	}
}

// since returns the checkpoint, bounded by the lookback on the first cycle.
func (p *Poller) since() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.checkpoint.IsZero() {
		return time.Now().Add(-p.cfg.Lookback)
	}
	return p.checkpoint
}

// processMessage ingests one inbound message. It returns true when a reply
// row was created, false when the message was skipped.
func (p *Poller) processMessage(ctx context.Context, msg mailer.Message) (bool, error) {
	if msg.ID == "" {
		return false, nil
	}
	if p.isSelf(msg.From) {
		return false, nil
	}

	exists, err := p.replies.ExistsByProviderMessageID(msg.ID)
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	email, err := p.emails.BySentThreadID(msg.ThreadID)
	if err != nil {
		return false, err
	}
	if email == nil {
		// Not a reply to anything we sent.
		return false, nil
	}
	if msg.ID == email.ProviderMessageID {
		// The fetch surfaced our own sent message.
		return false, nil
	}

	cls := p.classify(ctx, msg)

	reply := &model.Reply{
		ID:                       uuid.NewString(),
		EmailID:                  email.ID,
		LeadID:                   email.LeadID,
		ProviderMessageID:        msg.ID,
		ProviderThreadID:         msg.ThreadID,
		FromEmail:                msg.From,
		Subject:                  msg.Subject,
		Body:                     msg.Body,
		Snippet:                  msg.Snippet,
		Classification:           cls.Classification,
		ClassificationConfidence: cls.Confidence,
		ClassificationReasoning:  cls.Reasoning,
		ReceivedAt:               msg.ReceivedAt,
	}
	if err := p.replies.Create(reply); err != nil {
		return false, err
	}

	if p.metrics != nil {
		p.metrics.RepliesIngested.Inc()
		p.metrics.Classifications.WithLabelValues(cls.Classification).Inc()
	}

	p.applySideEffects(email, cls.Classification)
	return true, nil
}

// classify asks the model to label the reply. Any failure, including an
// unconfigured gateway, degrades to follow_up at 0.5 confidence so a human
// triages it.
func (p *Poller) classify(ctx context.Context, msg mailer.Message) classification {
	fallback := classification{
		Classification: model.ClassFollowUp,
		Confidence:     0.5,
		Reasoning:      "automatic classification unavailable",
	}

	if !p.gw.Configured() {
		return fallback
	}

	text, _, err := p.gw.Generate(ctx, "classify_reply", buildClassifyPrompt(msg.Subject, msg.Body))
	if err != nil {
		logrus.Warnf("Reply classification failed: %v", err)
		return fallback
	}

	var cls classification
	if err := gateway.Decode(text, &cls); err != nil {
		logrus.Warnf("Reply classification response malformed: %v", err)
		return fallback
	}
	if !knownClassifications[cls.Classification] {
		logrus.Warnf("Unknown classification %q, treating as follow_up", cls.Classification)
		return fallback
	}
	return cls
}

// applySideEffects updates the lead and campaign for a classified reply.
// Failures are logged; the reply row is already durable.
func (p *Poller) applySideEffects(email *model.Email, class string) {
	var leadStatus string
	switch class {
	case model.ClassInterested:
		leadStatus = model.LeadInterested
	case model.ClassNotInterested:
		leadStatus = model.LeadNotInterested
	case model.ClassUnsubscribe:
		leadStatus = model.LeadUnsubscribed
	}
	if leadStatus != "" {
		if err := p.leads.UpdateStatus(email.LeadID, leadStatus); err != nil {
			logrus.Errorf("Failed to update lead %s status: %v", email.LeadID, err)
		}
	}

	if err := p.campaigns.IncrementReplied(email.CampaignID, class == model.ClassInterested); err != nil {
		logrus.Errorf("Failed to update campaign %s reply counters: %v", email.CampaignID, err)
	}
}

// isSelf reports whether the message came from the configured account, which
// happens when the account replies from another client.
func (p *Poller) isSelf(from string) bool {
	if p.selfEmail == "" || from == "" {
		return false
	}
	addr := from
	if parsed, err := mail.ParseAddress(from); err == nil {
		addr = parsed.Address
	}
	return strings.EqualFold(addr, p.selfEmail) || strings.Contains(strings.ToLower(from), p.selfEmail)
}

func buildClassifyPrompt(subject, body string) string {
	var sb strings.Builder
	sb.WriteString("Classify this reply to a cold outreach email.\n\n")
	fmt.Fprintf(&sb, "Subject: %s\n\n%s\n\n", subject, body)
	sb.WriteString("Categories: interested, not_interested, follow_up, out_of_office, bounce, unsubscribe.\n")
	sb.WriteString("Respond with JSON only:\n")
	sb.WriteString(`{"classification": "...", "confidence": 0.0, "reasoning": "..."}`)
	return sb.String()
}
