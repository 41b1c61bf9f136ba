package scheduler

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"cold-outreach-go/internal/events"
	"cold-outreach-go/internal/mailer"
	"cold-outreach-go/internal/metrics"
	"cold-outreach-go/internal/model"
)

// State is the scheduler run state. It lives for the process only; every
// launch starts at StateIdle.
type State string

const (
	StateIdle    State = "idle"
	StateRunning State = "running"
	StatePaused  State = "paused"
)

// QueuedEmail is the next email to send joined with its recipient address.
type QueuedEmail struct {
	Email     model.Email
	LeadEmail string
}

// EmailStore is the persistence surface the scheduler needs.
type EmailStore interface {
	// NextQueued returns the oldest queued email, or nil when none remain.
	NextQueued() (*QueuedEmail, error)
	QueuedCount() (int64, error)
	MarkSending(id string) error
	MarkSent(id, messageID, threadID string, at time.Time) error
	MarkFailed(id, errMsg string) error
	// Requeue reverts a sending email to queued after a throttled send.
	Requeue(id string) error
}

// SendLog tracks the rolling daily send counter.
type SendLog interface {
	TodayCount() (int, error)
	IncrementToday() error
}

// CampaignCounters increments campaign aggregates.
type CampaignCounters interface {
	IncrementSent(campaignID string) error
}

// Config holds pacing parameters. Production values are 10-30s jitter, 60s
// cooldown, 1s countdown ticks; tests shrink them.
type Config struct {
	DailyLimit    int
	MinDelay      time.Duration
	MaxDelay      time.Duration
	Cooldown      time.Duration
	CountdownTick time.Duration
}

// Status is a snapshot for observers.
type Status struct {
	State       State `json:"state"`
	QueuedCount int64 `json:"queued_count"`
	TodaySent   int   `json:"today_sent"`
	DailyLimit  int   `json:"daily_limit"`
	CurrentDelay int  `json:"current_delay"`
}

// Event payloads.
type SendingPayload struct {
	EmailID string `json:"email_id"`
	To      string `json:"to"`
}

type SentPayload struct {
	EmailID string `json:"email_id"`
	To      string `json:"to"`
}

type SendFailedPayload struct {
	EmailID string `json:"email_id"`
	Error   string `json:"error"`
}

type WaitingPayload struct {
	DelaySeconds int `json:"delay_seconds"`
}

type CountdownPayload struct {
	Seconds int `json:"seconds"`
}

type RateLimitedPayload struct {
	RetryInSeconds int `json:"retry_in_seconds"`
}

type DailyLimitPayload struct {
	TodaySent  int `json:"today_sent"`
	DailyLimit int `json:"daily_limit"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// Scheduler paces outbound sends: one email at a time in creation order,
// jittered delays between sends, a fixed cooldown on provider throttling,
// and a hard daily cap. All state transitions are serialized behind one
// mutex, and every scheduled timer carries a generation token so a timer
// that fires after pause/stop is a no-op.
type Scheduler struct {
	mu        sync.Mutex
	state     State
	gen       uint64
	timer     *time.Timer
	countdown int

	cfg       Config
	transport mailer.Transport
	emails    EmailStore
	sendLog   SendLog
	campaigns CampaignCounters
	emitter   *events.Emitter
	metrics   *metrics.Metrics

	ctx context.Context
}

// New creates an idle scheduler.
func New(cfg Config, transport mailer.Transport, emails EmailStore, sendLog SendLog, campaigns CampaignCounters, emitter *events.Emitter, m *metrics.Metrics) *Scheduler {
	if cfg.CountdownTick <= 0 {
		cfg.CountdownTick = time.Second
	}
	return &Scheduler{
		state:     StateIdle,
		cfg:       cfg,
		transport: transport,
		emails:    emails,
		sendLog:   sendLog,
		campaigns: campaigns,
		emitter:   emitter,
		metrics:   m,
		ctx:       context.Background(),
	}
}

// State returns the current run state.
func (s *Scheduler) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Status returns a snapshot for observers. Store errors degrade to zeroes
// rather than failing a status read.
func (s *Scheduler) Status() Status {
	s.mu.Lock()
	st := s.state
	delay := s.countdown
	s.mu.Unlock()

	queued, err := s.emails.QueuedCount()
	if err != nil {
		logrus.Warnf("Failed to count queued emails: %v", err)
	}
	today, err := s.sendLog.TodayCount()
	if err != nil {
		logrus.Warnf("Failed to read today's send count: %v", err)
	}

	return Status{
		State:        st,
		QueuedCount:  queued,
		TodaySent:    today,
		DailyLimit:   s.cfg.DailyLimit,
		CurrentDelay: delay,
	}
}

// Start moves idle -> running and kicks off the step loop. It requires mail
// transport connectivity and fails loudly into a queue:error event
// otherwise, leaving the state idle.
func (s *Scheduler) Start() error {
	s.mu.Lock()
	if s.state != StateIdle {
		state := s.state
		s.mu.Unlock()
		return fmt.Errorf("scheduler is already %s", state)
	}
	if !s.transport.IsConnected() {
		s.mu.Unlock()
		s.emitter.Emit(events.QueueError, ErrorPayload{Message: "mail transport not connected"})
		return mailer.ErrNotConnected
	}
	s.state = StateRunning
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	logrus.Info("Send scheduler started")
	s.emitStateChange()
	go s.step(gen)
	return nil
}

// Pause moves running -> paused and cancels the pending timer and countdown.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	if s.state != StateRunning {
		s.mu.Unlock()
		return
	}
	s.state = StatePaused
	s.cancelLocked()
	s.mu.Unlock()

	logrus.Info("Send scheduler paused")
	s.emitStateChange()
}

// Resume moves paused -> running and continues the step loop.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	if s.state != StatePaused {
		s.mu.Unlock()
		return
	}
	s.state = StateRunning
	s.gen++
	gen := s.gen
	s.mu.Unlock()

	logrus.Info("Send scheduler resumed")
	s.emitStateChange()
	go s.step(gen)
}

// Stop moves any state -> idle, cancelling timers. An in-flight send is not
// preempted; its completion handler sees the stale generation and stops.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.state == StateIdle {
		s.mu.Unlock()
		return
	}
	s.state = StateIdle
	s.cancelLocked()
	s.mu.Unlock()

	logrus.Info("Send scheduler stopped")
	s.emitStateChange()
}

// cancelLocked invalidates all outstanding timer tokens. Callers hold mu.
func (s *Scheduler) cancelLocked() {
	s.gen++
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	s.countdown = 0
}

// active reports whether the given generation is still the live chain.
func (s *Scheduler) active(gen uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == StateRunning && s.gen == gen
}

// step sends the single oldest queued email, then schedules the next step.
func (s *Scheduler) step(gen uint64) {
	if !s.active(gen) {
		return
	}

	todaySent, err := s.sendLog.TodayCount()
	if err != nil {
		logrus.Errorf("Failed to read daily send count: %v", err)
		s.Stop()
		s.emitter.Emit(events.QueueError, ErrorPayload{Message: err.Error()})
		return
	}
	if todaySent >= s.cfg.DailyLimit {
		logrus.Infof("Daily send limit reached (%d/%d)", todaySent, s.cfg.DailyLimit)
		s.Stop()
		s.emitter.Emit(events.QueueDailyLimitReached, DailyLimitPayload{
			TodaySent:  todaySent,
			DailyLimit: s.cfg.DailyLimit,
		})
		return
	}

	next, err := s.emails.NextQueued()
	if err != nil {
		logrus.Errorf("Failed to fetch next queued email: %v", err)
		s.Stop()
		s.emitter.Emit(events.QueueError, ErrorPayload{Message: err.Error()})
		return
	}
	if next == nil {
		logrus.Info("No more queued emails")
		s.Stop()
		s.emitter.Emit(events.QueueCompleted, s.Status())
		return
	}

	email := next.Email
	if err := s.emails.MarkSending(email.ID); err != nil {
		logrus.Errorf("Failed to mark email %s sending: %v", email.ID, err)
	}
	s.emitter.Emit(events.QueueSending, SendingPayload{EmailID: email.ID, To: next.LeadEmail})

	result, err := s.transport.Send(s.ctx, next.LeadEmail, email.Subject, mailer.PlainTextToHTML(email.Body))
	if err != nil {
		s.handleSendFailure(gen, next, err)
		return
	}

	now := time.Now()
	if err := s.emails.MarkSent(email.ID, result.MessageID, result.ThreadID, now); err != nil {
		logrus.Errorf("Failed to mark email %s sent: %v", email.ID, err)
	}
	if err := s.sendLog.IncrementToday(); err != nil {
		logrus.Errorf("Failed to increment daily send count: %v", err)
	}
	if err := s.campaigns.IncrementSent(email.CampaignID); err != nil {
		logrus.Errorf("Failed to increment campaign sent counter: %v", err)
	}
	if s.metrics != nil {
		s.metrics.SendSuccesses.Inc()
	}
	logrus.Infof("Sent email %s to %s", email.ID, next.LeadEmail)
	s.emitter.Emit(events.QueueSent, SentPayload{EmailID: email.ID, To: next.LeadEmail})

	s.scheduleNext(gen, s.jitter())
}

func (s *Scheduler) handleSendFailure(gen uint64, next *QueuedEmail, sendErr error) {
	email := next.Email

	if mailer.IsRateLimited(sendErr) {
		// The message is not lost: it goes back to queued and the whole
		// loop cools down before retrying.
		if err := s.emails.Requeue(email.ID); err != nil {
			logrus.Errorf("Failed to requeue email %s: %v", email.ID, err)
		}
		if s.metrics != nil {
			s.metrics.SendRateLimits.Inc()
		}
		logrus.Infof("Rate limited by mail provider, cooling down for %v", s.cfg.Cooldown)
		s.emitter.Emit(events.QueueRateLimited, RateLimitedPayload{
			RetryInSeconds: int(s.cfg.Cooldown / time.Second),
		})
		s.scheduleNext(gen, s.cfg.Cooldown)
		return
	}

	if err := s.emails.MarkFailed(email.ID, sendErr.Error()); err != nil {
		logrus.Errorf("Failed to mark email %s failed: %v", email.ID, err)
	}
	if s.metrics != nil {
		s.metrics.SendFailures.Inc()
	}
	logrus.Errorf("Failed to send email %s: %v", email.ID, sendErr)
	s.emitter.Emit(events.QueueSendFailed, SendFailedPayload{EmailID: email.ID, Error: sendErr.Error()})

	// The scheduler keeps moving past failed items.
	s.scheduleNext(gen, s.jitter())
}

// scheduleNext arms the pacing timer and the countdown ticker for the next
// step. The new timer gets a fresh generation; pause/stop invalidate it.
func (s *Scheduler) scheduleNext(gen uint64, delay time.Duration) {
	s.mu.Lock()
	if s.state != StateRunning || s.gen != gen {
		s.mu.Unlock()
		return
	}
	s.gen++
	next := s.gen
	secs := int(delay / time.Second)
	s.countdown = secs
	s.timer = time.AfterFunc(delay, func() {
		s.step(next)
	})
	s.mu.Unlock()

	s.emitter.Emit(events.QueueWaiting, WaitingPayload{DelaySeconds: secs})
	if secs > 0 {
		go s.runCountdown(next)
	}
}

// runCountdown emits per-second ticks while its generation stays live.
func (s *Scheduler) runCountdown(gen uint64) {
	ticker := time.NewTicker(s.cfg.CountdownTick)
	defer ticker.Stop()

	for range ticker.C {
		s.mu.Lock()
		if s.state != StateRunning || s.gen != gen || s.countdown <= 0 {
			s.mu.Unlock()
			return
		}
		s.countdown--
		secs := s.countdown
		s.mu.Unlock()

		s.emitter.Emit(events.QueueCountdown, CountdownPayload{Seconds: secs})
		if secs <= 0 {
			return
		}
	}
}

// jitter draws the pacing delay uniformly from [MinDelay, MaxDelay]. The
// randomness is an anti-spam-detection measure, not performance tuning.
func (s *Scheduler) jitter() time.Duration {
	spread := int64(s.cfg.MaxDelay - s.cfg.MinDelay)
	if spread <= 0 {
		return s.cfg.MinDelay
	}
	return s.cfg.MinDelay + time.Duration(rand.Int63n(spread+1))
}

func (s *Scheduler) emitStateChange() {
	s.emitter.Emit(events.QueueStateChange, s.Status())
}
