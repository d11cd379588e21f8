package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"strings"

	"github.com/set-night/dermabot/internal/domain"
)

// Disclaimer is appended to every answered outcome, exactly once.
const Disclaimer = "\n\n⚠️ **Medical Disclaimer**: DermaBot can make mistakes. Please consult with a qualified dermatologist or healthcare provider for proper diagnosis and treatment."

// FallbackAnswer is used when a successful response has no recognizable
// answer field.
const FallbackAnswer = "I was able to analyze your image, but the response format was unexpected. Please try again or consult with a healthcare professional."

// softFailureMarker flags a 2xx upstream body that actually reports an
// analysis failure.
const softFailureMarker = "LLaVA Error"

// answerFields is the priority-ordered list of body fields probed for the
// answer text.
var answerFields = []string{
	"response", "answer", "result", "text", "message", "content", "analysis", "diagnosis",
}

// Classify maps a completed or failed request attempt to exactly one
// Outcome. It consumes and closes the response body. Classification is
// deterministic: the same (status, body, transport error) input always
// yields the same Outcome.
func Classify(resp *http.Response, err error) domain.Outcome {
	if err != nil {
		if isTimeout(err) {
			return domain.Outcome{Kind: domain.OutcomeTimeout}
		}
		return domain.Outcome{Kind: domain.OutcomeNetworkFailure}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusBadRequest:
		return domain.Outcome{Kind: domain.OutcomeBadRequest}
	case resp.StatusCode == http.StatusRequestTimeout:
		return domain.Outcome{Kind: domain.OutcomeTimeout}
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.Outcome{Kind: domain.OutcomeRateLimited}
	case resp.StatusCode == http.StatusMethodNotAllowed,
		resp.StatusCode >= http.StatusInternalServerError:
		return domain.Outcome{Kind: domain.OutcomeServiceUnavailable}
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return domain.Outcome{Kind: domain.OutcomeServiceUnavailable}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return domain.Outcome{Kind: domain.OutcomeNetworkFailure}
	}

	var data any
	if err := json.Unmarshal(body, &data); err != nil {
		return domain.Outcome{Kind: domain.OutcomeMalformed}
	}

	if IsSoftFailure(data) {
		return domain.Outcome{Kind: domain.OutcomeServiceUnavailable}
	}

	text := FlattenHTML(ExtractAnswer(data))
	return domain.Outcome{Kind: domain.OutcomeAnswered, Text: WithDisclaimer(text)}
}

// ExtractAnswer probes the fixed field list for the answer text. A bare
// string is the answer itself; a sequence is resolved through its first
// element. Falls back to FallbackAnswer when nothing matches.
func ExtractAnswer(data any) string {
	switch v := data.(type) {
	case string:
		if v != "" {
			return v
		}
	case map[string]any:
		for _, field := range answerFields {
			if s, ok := v[field].(string); ok && s != "" {
				return s
			}
		}
	case []any:
		if len(v) > 0 {
			return ExtractAnswer(v[0])
		}
	}
	return FallbackAnswer
}

// WithDisclaimer appends the medical disclaimer unless the text already
// ends with it, so retries and re-renders never duplicate it.
func WithDisclaimer(text string) string {
	if strings.HasSuffix(text, Disclaimer) {
		return text
	}
	return text + Disclaimer
}

// IsSoftFailure reports whether a 2xx body carries the upstream analysis
// failure marker.
func IsSoftFailure(data any) bool {
	m, ok := data.(map[string]any)
	if !ok {
		return false
	}
	answer, ok := m["answer"].(string)
	return ok && strings.Contains(answer, softFailureMarker)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
