package domain

// OutcomeKind is the closed set of normalized results a diagnosis request
// can produce, independent of transport details.
type OutcomeKind int

const (
	OutcomeAnswered OutcomeKind = iota
	OutcomeServiceUnavailable
	OutcomeRateLimited
	OutcomeBadRequest
	OutcomeTimeout
	OutcomeMalformed
	OutcomeNetworkFailure
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeAnswered:
		return "answered"
	case OutcomeServiceUnavailable:
		return "service_unavailable"
	case OutcomeRateLimited:
		return "rate_limited"
	case OutcomeBadRequest:
		return "bad_request"
	case OutcomeTimeout:
		return "timeout"
	case OutcomeMalformed:
		return "malformed"
	case OutcomeNetworkFailure:
		return "network_failure"
	}
	return "unknown"
}

// Outcome is produced exactly once per request attempt. Text is set only
// for Answered outcomes; every other kind maps to a fixed display string.
type Outcome struct {
	Kind OutcomeKind
	Text string
}
