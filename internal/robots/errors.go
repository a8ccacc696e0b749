package robots

import (
	"fmt"

	"github.com/tomashaas/retrieve-core/internal/obslog"
	"github.com/tomashaas/retrieve-core/pkg/failure"
)

type RobotsErrorCause string

const (
	ErrCauseDisallowRoot         RobotsErrorCause = "root disallowed to be crawled"
	ErrCauseInvalidRobotsUrl     RobotsErrorCause = "invalid robots.txt URL"
	ErrCausePreFetchFailure      RobotsErrorCause = "failed before making fetch"
	ErrCauseHttpFetchFailure     RobotsErrorCause = "failed to fetch"
	ErrCauseHttpTooManyRequests  RobotsErrorCause = "too many requests"
	ErrCauseHttpTooManyRedirects RobotsErrorCause = "too many redirects"
	ErrCauseHttpServerError      RobotsErrorCause = "http server error"
	ErrCauseHttpUnexpectedStatus RobotsErrorCause = "unexpected http status"
	ErrCauseParseError           RobotsErrorCause = "failed to parse robots.txt"
)

type RobotsError struct {
	Message   string
	Retryable bool
	Cause     RobotsErrorCause
}

func (e *RobotsError) Error() string {
	return fmt.Sprintf("robots error: %s", e.Cause)
}

func (e *RobotsError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

// mapRobotsErrorToObslogCause maps robots-local error semantics to the
// canonical obslog.ErrorCause table. Observational only; must never be
// used to derive control-flow decisions.
func mapRobotsErrorToObslogCause(err *RobotsError) obslog.ErrorCause {
	switch err.Cause {
	case ErrCauseDisallowRoot:
		return obslog.CausePolicyDisallow
	case ErrCauseInvalidRobotsUrl:
		return obslog.CauseInvariantViolation
	case ErrCausePreFetchFailure:
		return obslog.CauseUnknown
	case ErrCauseHttpFetchFailure, ErrCauseHttpTooManyRequests, ErrCauseHttpTooManyRedirects,
		ErrCauseHttpServerError, ErrCauseHttpUnexpectedStatus:
		return obslog.CauseNetworkFailure
	case ErrCauseParseError:
		return obslog.CauseContentInvalid
	default:
		return obslog.CauseUnknown
	}
}
