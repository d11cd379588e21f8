package handler

import (
	"strings"
	"testing"
	"time"

	"github.com/set-night/dermabot/internal/domain"
)

func TestBuildTranscript(t *testing.T) {
	now := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	turns := []domain.Turn{
		{Role: domain.RoleUser, Text: "What is **this** rash?", Image: "aW1n", CreatedAt: now},
		{Role: domain.RoleAssistant, Text: "Likely contact dermatitis.", CreatedAt: now.Add(time.Second)},
	}

	got := buildTranscript(turns, now)

	if !strings.HasPrefix(got, "DERMABOT CONVERSATION EXPORT\n") {
		t.Fatalf("missing header:\n%s", got)
	}
	if !strings.Contains(got, "Total Messages: 2") {
		t.Fatalf("missing message count:\n%s", got)
	}
	if !strings.Contains(got, "MEDICAL DISCLAIMER") {
		t.Fatalf("missing disclaimer block:\n%s", got)
	}
	if !strings.Contains(got, "[IMAGE ATTACHED: Skin concern photo]") {
		t.Fatalf("user turn with an image must be marked:\n%s", got)
	}
	if !strings.Contains(got, "USER - March 14, 2026 09:30:00") {
		t.Fatalf("missing user turn header:\n%s", got)
	}
	if !strings.Contains(got, "DERMABOT AI - March 14, 2026 09:30:01") {
		t.Fatalf("missing assistant turn header:\n%s", got)
	}
	if strings.Contains(got, "**") {
		t.Fatalf("bold markup must be stripped:\n%s", got)
	}
	if !strings.Contains(got, "What is this rash?") {
		t.Fatalf("user text should survive markup stripping:\n%s", got)
	}
}

func TestBuildTranscriptAssistantImageNotMarked(t *testing.T) {
	now := time.Now()
	turns := []domain.Turn{
		{Role: domain.RoleAssistant, Text: "answer", Image: "aW1n", CreatedAt: now},
	}
	if got := buildTranscript(turns, now); strings.Contains(got, "[IMAGE ATTACHED") {
		t.Fatalf("only user turns carry the image marker:\n%s", got)
	}
}
