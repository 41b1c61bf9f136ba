package gateway

import (
	"errors"
	"fmt"
	"strings"

	"google.golang.org/api/googleapi"
)

// Kind classifies a provider failure.
type Kind string

const (
	// KindUnconfigured means no API key is present. Callers treat this as
	// a signal to use their non-AI fallback path, not as a user error.
	KindUnconfigured Kind = "unconfigured"
	// KindThrottled means the provider rejected the call for exceeding its
	// request budget. Retryable.
	KindThrottled Kind = "throttled"
	// KindUnavailable means the requested model is missing or unsupported
	// on the caller's key. Triggers fallback to the next candidate model.
	KindUnavailable Kind = "unavailable"
	// KindRefused means the model answered with prose and no JSON content,
	// which usually indicates a safety refusal. Not retried.
	KindRefused Kind = "refused"
	// KindMalformed means the response contained JSON that does not decode
	// into the caller's expected shape.
	KindMalformed Kind = "malformed_response"
	// KindTransport covers network or auth failures reaching the provider.
	KindTransport Kind = "transport"
)

// ProviderError wraps a generative-AI failure with its classification.
type ProviderError struct {
	Kind  Kind
	Model string
	Err   error
}

func (e *ProviderError) Error() string {
	if e.Model != "" {
		return fmt.Sprintf("provider error (%s, model %s): %v", e.Kind, e.Model, e.Err)
	}
	return fmt.Sprintf("provider error (%s): %v", e.Kind, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsKind reports whether err is a ProviderError of the given kind.
func IsKind(err error, kind Kind) bool {
	var pe *ProviderError
	return errors.As(err, &pe) && pe.Kind == kind
}

// classify maps a raw provider error to a Kind. Status codes are preferred;
// message sniffing covers SDK errors that do not expose one.
func classify(err error) Kind {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 429:
			return KindThrottled
		case 404:
			return KindUnavailable
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "429"),
		strings.Contains(msg, "too many requests"),
		strings.Contains(msg, "resource exhausted"),
		strings.Contains(msg, "quota"):
		return KindThrottled
	case strings.Contains(msg, "404"),
		strings.Contains(msg, "not found"),
		strings.Contains(msg, "not supported"):
		return KindUnavailable
	}
	return KindTransport
}
