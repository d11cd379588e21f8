package service

import (
	"encoding/json"
	"fmt"

	"github.com/set-night/dermabot/internal/config"
	"github.com/set-night/dermabot/internal/domain"
)

// BuildSnapshot serializes turns for persistence, degrading fidelity in
// stages until the payload fits under ceiling bytes:
//
//  1. the most recent 50 turns as-is
//  2. same turns with images stripped from all but the most recent 10
//  3. the most recent 20 turns with no images at all
//
// Stage 3 is persisted even if it still exceeds the ceiling; write-time
// failures are handled by FallbackSnapshot. In-memory turns are never
// touched.
func BuildSnapshot(turns []domain.Turn, ceiling int) ([]byte, error) {
	recent := lastN(turns, config.MaxPersistedTurns)

	data, err := json.Marshal(recent)
	if err != nil {
		return nil, fmt.Errorf("marshal history: %w", err)
	}
	if len(data) <= ceiling {
		return data, nil
	}

	stripped := stripImages(recent, config.ImageRetentionTurns)
	data, err = json.Marshal(stripped)
	if err != nil {
		return nil, fmt.Errorf("marshal stripped history: %w", err)
	}
	if len(data) <= ceiling {
		return data, nil
	}

	trimmed := stripImages(lastN(turns, config.TrimmedTurns), 0)
	data, err = json.Marshal(trimmed)
	if err != nil {
		return nil, fmt.Errorf("marshal trimmed history: %w", err)
	}
	return data, nil
}

// FallbackSnapshot is the last resort before clearing persisted history:
// the most recent 10 turns, images stripped.
func FallbackSnapshot(turns []domain.Turn) ([]byte, error) {
	minimal := stripImages(lastN(turns, config.FallbackTurns), 0)
	data, err := json.Marshal(minimal)
	if err != nil {
		return nil, fmt.Errorf("marshal fallback history: %w", err)
	}
	return data, nil
}

func lastN(turns []domain.Turn, n int) []domain.Turn {
	if len(turns) <= n {
		out := make([]domain.Turn, len(turns))
		copy(out, turns)
		return out
	}
	out := make([]domain.Turn, n)
	copy(out, turns[len(turns)-n:])
	return out
}

// stripImages clears the image reference from all but the last keep turns.
func stripImages(turns []domain.Turn, keep int) []domain.Turn {
	out := make([]domain.Turn, len(turns))
	copy(out, turns)
	for i := range out {
		if i < len(out)-keep {
			out[i].Image = ""
		}
	}
	return out
}
