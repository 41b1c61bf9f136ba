package gateway

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"cold-outreach-go/internal/metrics"
)

// ContentGenerator is the raw provider call. The production implementation
// is GeminiClient; tests inject fakes.
type ContentGenerator interface {
	GenerateContent(ctx context.Context, model, prompt string) (*GenerationResult, error)
}

// GenerationResult is one raw model response with token accounting.
type GenerationResult struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// UsageRecorder appends to the AI usage ledger.
type UsageRecorder interface {
	Record(callType, model string, inputTokens, outputTokens int) error
}

// Options configures a Gateway.
type Options struct {
	Models     []string
	Limiter    *WindowLimiter
	Usage      UsageRecorder
	Metrics    *metrics.Metrics
	MaxRetries int
	RetryBase  time.Duration
}

// Gateway wraps a generative-AI provider with a shared sliding-window
// limiter, a candidate-model fallback list, and throttle retries. It returns
// raw response text; JSON decoding is each caller's job.
type Gateway struct {
	generator  ContentGenerator
	models     []string
	limiter    *WindowLimiter
	usage      UsageRecorder
	metrics    *metrics.Metrics
	maxRetries int
	retryBase  time.Duration
}

// New creates a Gateway. A nil generator produces an unconfigured gateway
// whose calls fail with KindUnconfigured.
func New(generator ContentGenerator, opts Options) *Gateway {
	g := &Gateway{
		generator:  generator,
		models:     opts.Models,
		limiter:    opts.Limiter,
		usage:      opts.Usage,
		metrics:    opts.Metrics,
		maxRetries: opts.MaxRetries,
		retryBase:  opts.RetryBase,
	}
	if g.limiter == nil {
		g.limiter = NewWindowLimiter(9, time.Minute)
	}
	if g.maxRetries <= 0 {
		g.maxRetries = 3
	}
	if g.retryBase <= 0 {
		g.retryBase = 10 * time.Second
	}
	if g.metrics != nil {
		g.limiter.SetWaitHook(g.metrics.LimiterWaits.Inc)
	}
	return g
}

// Configured reports whether an AI provider is available. Callers use this
// to pick their fallback path before doing any work.
func (g *Gateway) Configured() bool {
	return g != nil && g.generator != nil
}

// Generate runs prompt against the candidate models in priority order and
// returns the raw response text plus the model that produced it. Unavailable
// models advance to the next candidate; any other failure aborts.
func (g *Gateway) Generate(ctx context.Context, callType, prompt string) (string, string, error) {
	if !g.Configured() {
		return "", "", &ProviderError{Kind: KindUnconfigured, Err: errors.New("no API key configured")}
	}

	var lastErr error
	for _, model := range g.models {
		res, err := g.attempt(ctx, model, prompt)
		if err != nil {
			lastErr = err
			if IsKind(err, KindUnavailable) {
				logrus.Warnf("Model %s unavailable, trying next candidate", model)
				continue
			}
			return "", "", err
		}

		if _, ok := ExtractJSON(res.Text); !ok {
			// Plain prose with no payload is almost always a refusal.
			return "", "", &ProviderError{
				Kind:  KindRefused,
				Model: model,
				Err:   fmt.Errorf("model declined: %s", snippet(res.Text)),
			}
		}

		g.recordUsage(callType, model, res)
		return res.Text, model, nil
	}

	if lastErr == nil {
		lastErr = &ProviderError{Kind: KindUnavailable, Err: errors.New("no candidate models configured")}
	}
	return "", "", lastErr
}

// attempt calls one model with throttle retries (linear backoff).
func (g *Gateway) attempt(ctx context.Context, model, prompt string) (*GenerationResult, error) {
	var lastErr error
	for attempt := 1; attempt <= g.maxRetries; attempt++ {
		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limiter wait: %w", err)
		}

		res, err := g.generator.GenerateContent(ctx, model, prompt)
		if err == nil {
			return res, nil
		}

		kind := classify(err)
		lastErr = &ProviderError{Kind: kind, Model: model, Err: err}
		if kind != KindThrottled || attempt == g.maxRetries {
			return nil, lastErr
		}

		wait := time.Duration(attempt) * g.retryBase
		logrus.Infof("Provider throttled, waiting %v before retry %d/%d", wait, attempt, g.maxRetries-1)
		if g.metrics != nil {
			g.metrics.AIThrottleRetries.Inc()
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(wait):
		}
	}
	return nil, lastErr
}

// recordUsage appends to the usage ledger. Best-effort: failures are logged
// and never surface to the caller.
func (g *Gateway) recordUsage(callType, model string, res *GenerationResult) {
	if g.metrics != nil {
		g.metrics.AIRequests.WithLabelValues(callType, model).Inc()
	}
	if g.usage == nil {
		return
	}
	if err := g.usage.Record(callType, model, res.InputTokens, res.OutputTokens); err != nil {
		logrus.Warnf("Failed to record AI usage: %v", err)
	}
}

func snippet(text string) string {
	const max = 300
	if len(text) > max {
		text = text[:max]
	}
	return text
}
