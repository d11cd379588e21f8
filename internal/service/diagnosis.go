package service

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/set-night/dermabot/internal/domain"
	"github.com/set-night/dermabot/internal/imagestore"
)

// Fixed display strings, one per non-answered outcome kind. The raw
// transport error never reaches the user.
var displayTexts = map[domain.OutcomeKind]string{
	domain.OutcomeTimeout:            "⏳ The request timed out. Please try again with a smaller image or check your internet connection.",
	domain.OutcomeRateLimited:        "⏳ Too many requests. Please wait a moment before trying again.",
	domain.OutcomeServiceUnavailable: "😔 The analysis service is temporarily unavailable. Please try again in a few minutes.",
	domain.OutcomeBadRequest:         "❌ The analysis service rejected the request. Try re-uploading the image in JPG or PNG format.",
	domain.OutcomeNetworkFailure:     "📡 I'm currently unable to analyze your image due to a network issue. Please check your connection and try again.",
	domain.OutcomeMalformed:          FallbackAnswer,
}

// DisplayText maps an outcome to the text shown to the user.
func DisplayText(o domain.Outcome) string {
	if o.Kind == domain.OutcomeAnswered {
		return o.Text
	}
	return displayTexts[o.Kind]
}

type diagnoseRequest struct {
	Question string `json:"question"`
	ImageB64 string `json:"image_b64"`
}

// DiagnosisClient orchestrates one conversation turn: precondition
// checks, the network call, outcome classification, and history appends.
type DiagnosisClient struct {
	endpointURL string
	httpClient  *http.Client
	timeout     time.Duration
	images      *imagestore.Store
	store       *SessionStore
}

func NewDiagnosisClient(endpointURL string, timeout time.Duration, images *imagestore.Store, store *SessionStore) *DiagnosisClient {
	return &DiagnosisClient{
		endpointURL: endpointURL,
		httpClient:  &http.Client{Timeout: timeout},
		timeout:     timeout,
		images:      images,
		store:       store,
	}
}

// Ask runs one diagnostic turn. Validation and precondition failures are
// returned synchronously before any I/O; everything after the request is
// normalized into an assistant turn, so a failed turn is still answered.
// Retries are the caller's decision via a new Ask call.
func (c *DiagnosisClient) Ask(ctx context.Context, question string, messageID int) (domain.Turn, error) {
	if strings.TrimSpace(question) == "" {
		return domain.Turn{}, domain.ErrEmptyQuestion
	}
	if !c.images.Has() {
		return domain.Turn{}, domain.ErrNoImageBound
	}

	if _, err := c.store.AppendUserTurn(ctx, question, messageID); err != nil {
		return domain.Turn{}, err
	}

	outcome := c.query(ctx, question)
	return c.store.AppendAssistantTurn(ctx, DisplayText(outcome)), nil
}

// query performs exactly one request attempt and produces exactly one
// Outcome. The bound wait resolves to a Timeout outcome instead of
// hanging.
func (c *DiagnosisClient) query(ctx context.Context, question string) domain.Outcome {
	image, _ := c.images.Read()

	payload, err := json.Marshal(diagnoseRequest{
		Question: question,
		ImageB64: image,
	})
	if err != nil {
		return domain.Outcome{Kind: domain.OutcomeBadRequest}
	}

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.endpointURL, bytes.NewReader(payload))
	if err != nil {
		return domain.Outcome{Kind: domain.OutcomeNetworkFailure}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	return Classify(resp, err)
}
