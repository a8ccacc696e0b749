package fetcher

import (
	"fmt"

	"github.com/tomashaas/retrieve-core/internal/obslog"
	"github.com/tomashaas/retrieve-core/pkg/failure"
)

type FetchErrorCause string

const (
	ErrCauseTimeout               FetchErrorCause = "timeout"
	ErrCauseNetworkFailure        FetchErrorCause = "network issues"
	ErrCauseReadResponseBodyError FetchErrorCause = "failed to read response body"
	ErrCauseRequestTooMany        FetchErrorCause = "too many requests"
	ErrCauseRequest5xx            FetchErrorCause = "5xx"
	ErrCauseRequestForbidden      FetchErrorCause = "forbidden"
	ErrCauseWriteFailure          FetchErrorCause = "failed to write to disk"
)

type FetchError struct {
	Message   string
	Retryable bool
	Cause     FetchErrorCause
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetcher error: %s", e.Cause)
}

func (e *FetchError) Severity() failure.Severity {
	if e.Retryable {
		return failure.SeverityRecoverable
	}
	return failure.SeverityFatal
}

func (e *FetchError) IsRetryable() bool {
	return e.Retryable
}

// mapFetchErrorToObslogCause maps fetcher-local error semantics to the
// canonical obslog.ErrorCause table. Observational only.
func mapFetchErrorToObslogCause(err *FetchError) obslog.ErrorCause {
	switch err.Cause {
	case ErrCauseTimeout, ErrCauseNetworkFailure, ErrCauseRequestTooMany, ErrCauseRequest5xx:
		return obslog.CauseNetworkFailure
	case ErrCauseRequestForbidden:
		return obslog.CausePolicyDisallow
	case ErrCauseWriteFailure:
		return obslog.CauseWriteFailure
	default:
		return obslog.CauseUnknown
	}
}
