package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	SendSuccesses     prometheus.Counter
	SendFailures      prometheus.Counter
	SendRateLimits    prometheus.Counter
	DraftsGenerated   prometheus.Counter
	DraftFailures     prometheus.Counter
	PollCycles        prometheus.Counter
	PollFailures      prometheus.Counter
	RepliesIngested   prometheus.Counter
	Classifications   *prometheus.CounterVec
	AIRequests        *prometheus.CounterVec
	AIThrottleRetries prometheus.Counter
	LimiterWaits      prometheus.Counter
}

// NewMetrics creates Prometheus metrics on the given registerer. Tests pass
// a private registry so repeated construction does not collide.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		SendSuccesses: factory.NewCounter(prometheus.CounterOpts{
			Name: "outreach_send_successes_total",
			Help: "Total number of successfully sent outreach emails",
		}),
		SendFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "outreach_send_failures_total",
			Help: "Total number of failed send attempts",
		}),
		SendRateLimits: factory.NewCounter(prometheus.CounterOpts{
			Name: "outreach_send_rate_limits_total",
			Help: "Total number of sends deferred by provider rate limiting",
		}),
		DraftsGenerated: factory.NewCounter(prometheus.CounterOpts{
			Name: "outreach_drafts_generated_total",
			Help: "Total number of drafts produced by the worker pool",
		}),
		DraftFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "outreach_draft_failures_total",
			Help: "Total number of per-lead draft generation failures",
		}),
		PollCycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "outreach_poll_cycles_total",
			Help: "Total number of inbox poll cycles",
		}),
		PollFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "outreach_poll_failures_total",
			Help: "Total number of poll cycles that failed to fetch",
		}),
		RepliesIngested: factory.NewCounter(prometheus.CounterOpts{
			Name: "outreach_replies_ingested_total",
			Help: "Total number of inbound replies persisted",
		}),
		Classifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_reply_classifications_total",
			Help: "Reply classifications by label",
		}, []string{"label"}),
		AIRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "outreach_ai_requests_total",
			Help: "Generative AI calls by call type and model",
		}, []string{"type", "model"}),
		AIThrottleRetries: factory.NewCounter(prometheus.CounterOpts{
			Name: "outreach_ai_throttle_retries_total",
			Help: "Total number of AI attempts retried after throttling",
		}),
		LimiterWaits: factory.NewCounter(prometheus.CounterOpts{
			Name: "outreach_ai_limiter_waits_total",
			Help: "Total number of AI calls delayed by the sliding window limiter",
		}),
	}
}
