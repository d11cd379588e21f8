// Package relay implements the local /diagnose endpoint: it validates
// each turn request, short-circuits image-less questions with canned
// guidance, and forwards the rest to the upstream analysis service with a
// bounded wait, normalizing its status codes and body shapes.
package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/set-night/dermabot/internal/service"
)

// noImageSentinel is the literal a client may send instead of omitting
// the image field.
const noImageSentinel = "no-image"

const noImageResponse = `I'd be happy to help with your skin concern: %q

However, for the most accurate analysis, I recommend uploading a clear image of the area you're concerned about. This will allow me to provide more specific and helpful guidance.

**General Skin Health Tips:**
- Keep the area clean and dry
- Avoid harsh soaps or irritating products
- Protect from sun exposure with appropriate sunscreen
- Monitor any changes in size, color, or texture

**When to Seek Medical Attention:**
- Any rapidly changing or growing lesions
- Persistent itching, bleeding, or pain
- New growths or moles that appear different from others
- Any concerning changes in existing moles or spots

Please upload an image for a more detailed analysis, and remember to consult with a dermatologist for professional medical evaluation.`

const softFailureResponse = "I apologize, but the image analysis service is currently experiencing technical difficulties. Please try again in a few moments, or consult with a dermatologist for immediate medical advice."

const networkFailureResponse = "I apologize, but I'm currently unable to analyze your image due to a network issue. Please check your internet connection and try again."

type diagnoseRequest struct {
	Question string `json:"question"`
	ImageB64 string `json:"image_b64"`
}

type diagnoseResponse struct {
	Response  string `json:"response"`
	Timestamp string `json:"timestamp"`
}

type errorResponse struct {
	Error string `json:"error"`
}

type Server struct {
	upstreamURL string
	client      *http.Client
	timeout     time.Duration
}

func New(upstreamURL string, timeout time.Duration) *Server {
	return &Server{
		upstreamURL: upstreamURL,
		client:      &http.Client{Timeout: timeout},
		timeout:     timeout,
	}
}

func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/diagnose", s.handleDiagnose)
	return mux
}

func (s *Server) handleDiagnose(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	var req diagnoseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request format")
		return
	}
	if req.Question == "" {
		writeError(w, http.StatusBadRequest, "Missing required field: question")
		return
	}

	// Image-less questions get canned guidance instead of an upstream
	// call with an empty image.
	if req.ImageB64 == "" || req.ImageB64 == noImageSentinel {
		writeAnswer(w, fmt.Sprintf(noImageResponse, req.Question))
		return
	}

	resp, err := s.forward(r.Context(), req)
	if err != nil {
		if isTimeout(err) {
			writeError(w, http.StatusRequestTimeout, "Request timeout. Please try again with a smaller image.")
			return
		}
		slog.Error("upstream request failed", "error", err)
		writeAnswer(w, networkFailureResponse)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		slog.Error("upstream error", "status", resp.StatusCode, "body", string(body))

		switch {
		case resp.StatusCode == http.StatusMethodNotAllowed:
			writeError(w, http.StatusServiceUnavailable, "The analysis service endpoint is not configured correctly. Please try again later.")
		case resp.StatusCode == http.StatusBadRequest:
			writeError(w, http.StatusBadRequest, "Invalid request format or image data")
		case resp.StatusCode == http.StatusTooManyRequests:
			writeError(w, http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
		case resp.StatusCode >= http.StatusInternalServerError:
			writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable. Please try again later.")
		default:
			writeError(w, http.StatusServiceUnavailable, "Analysis service is currently unavailable")
		}
		return
	}

	var data any
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		slog.Error("decode upstream response", "error", err)
		writeAnswer(w, service.FallbackAnswer)
		return
	}

	// A 2xx body can still report an analysis failure.
	if service.IsSoftFailure(data) {
		writeAnswer(w, softFailureResponse)
		return
	}

	writeAnswer(w, service.WithDisclaimer(service.ExtractAnswer(data)))
}

// forward sends the turn to the upstream analysis service with the
// configured timeout budget.
func (s *Server) forward(ctx context.Context, req diagnoseRequest) (*http.Response, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal upstream request: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(reqCtx, http.MethodPost, s.upstreamURL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create upstream request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("User-Agent", "DermaBot/1.0")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("upstream request: %w", err)
	}
	return resp, nil
}

func writeAnswer(w http.ResponseWriter, text string) {
	writeJSON(w, http.StatusOK, diagnoseResponse{
		Response:  text,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("write response", "error", err)
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
