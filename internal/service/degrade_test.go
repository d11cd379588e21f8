package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/set-night/dermabot/internal/domain"
)

func makeTurns(n, imageBytes int) []domain.Turn {
	turns := make([]domain.Turn, n)
	for i := range turns {
		turns[i] = domain.Turn{
			ID:        fmt.Sprintf("turn-%03d", i),
			Role:      domain.RoleUser,
			Text:      fmt.Sprintf("question %d", i),
			Image:     strings.Repeat("A", imageBytes),
			CreatedAt: time.Unix(int64(i), 0).UTC(),
		}
	}
	return turns
}

func decodeSnapshot(t *testing.T, data []byte) []domain.Turn {
	t.Helper()
	var turns []domain.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	return turns
}

func TestSnapshotFullFidelityWhenSmall(t *testing.T) {
	turns := makeTurns(5, 10)
	data, err := BuildSnapshot(turns, 1<<20)
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}

	got := decodeSnapshot(t, data)
	if len(got) != 5 {
		t.Fatalf("expected all 5 turns, got %d", len(got))
	}
	for i, turn := range got {
		if turn.Image == "" {
			t.Fatalf("turn %d lost its image without pressure", i)
		}
	}
}

func TestSnapshotCapsAtFiftyTurns(t *testing.T) {
	turns := makeTurns(80, 0)
	data, err := BuildSnapshot(turns, 1<<20)
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}

	got := decodeSnapshot(t, data)
	if len(got) != 50 {
		t.Fatalf("expected 50 persisted turns, got %d", len(got))
	}
	if got[len(got)-1].ID != turns[len(turns)-1].ID {
		t.Fatalf("snapshot should keep the most recent turns")
	}
}

func TestSnapshotStripsOlderImagesUnderPressure(t *testing.T) {
	turns := makeTurns(30, 200)
	// Ceiling fits 10 images of 200 bytes but not 30.
	data, err := BuildSnapshot(turns, 6000)
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}

	got := decodeSnapshot(t, data)
	if len(got) != 30 {
		t.Fatalf("turn count should survive the first degradation stage, got %d", len(got))
	}
	for i, turn := range got {
		hasImage := turn.Image != ""
		wantImage := i >= len(got)-10
		if hasImage != wantImage {
			t.Fatalf("turn %d: image=%v, want %v", i, hasImage, wantImage)
		}
	}
}

func TestSnapshotTrimsTurnsAsLastStage(t *testing.T) {
	turns := makeTurns(40, 500)
	// Even 10 retained images blow a tiny ceiling; expect 20 image-free turns.
	data, err := BuildSnapshot(turns, 900)
	if err != nil {
		t.Fatalf("build snapshot: %v", err)
	}

	got := decodeSnapshot(t, data)
	if len(got) != 20 {
		t.Fatalf("expected 20 trimmed turns, got %d", len(got))
	}
	for i, turn := range got {
		if turn.Image != "" {
			t.Fatalf("turn %d kept an image after trimming", i)
		}
	}
	if got[len(got)-1].ID != turns[len(turns)-1].ID {
		t.Fatalf("trimming should keep the most recent turns")
	}
}

func TestSnapshotLeavesInputUntouched(t *testing.T) {
	turns := makeTurns(30, 500)
	if _, err := BuildSnapshot(turns, 900); err != nil {
		t.Fatalf("build snapshot: %v", err)
	}
	for i, turn := range turns {
		if turn.Image == "" {
			t.Fatalf("in-memory turn %d was mutated", i)
		}
	}
}

func TestFallbackSnapshot(t *testing.T) {
	turns := makeTurns(25, 100)
	data, err := FallbackSnapshot(turns)
	if err != nil {
		t.Fatalf("fallback snapshot: %v", err)
	}

	got := decodeSnapshot(t, data)
	if len(got) != 10 {
		t.Fatalf("expected 10 fallback turns, got %d", len(got))
	}
	for i, turn := range got {
		if turn.Image != "" {
			t.Fatalf("fallback turn %d kept an image", i)
		}
	}
}
