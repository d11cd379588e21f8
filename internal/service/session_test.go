package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/set-night/dermabot/internal/domain"
	"github.com/set-night/dermabot/internal/imagestore"
	"github.com/set-night/dermabot/internal/repository"
)

type fakeSlots struct {
	mu      sync.Mutex
	data    map[string][]byte
	saveErr error
	deletes int
}

func newFakeSlots() *fakeSlots {
	return &fakeSlots{data: map[string][]byte{}}
}

func slotKey(chatID int64, slot string) string {
	return fmt.Sprintf("%d/%s", chatID, slot)
}

func (f *fakeSlots) Save(_ context.Context, chatID int64, slot string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	cp := make([]byte, len(data))
	copy(cp, data)
	f.data[slotKey(chatID, slot)] = cp
	return nil
}

func (f *fakeSlots) Load(_ context.Context, chatID int64, slot string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[slotKey(chatID, slot)], nil
}

func (f *fakeSlots) Delete(_ context.Context, chatID int64, slot string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deletes++
	delete(f.data, slotKey(chatID, slot))
	return nil
}

func (f *fakeSlots) history(t *testing.T, chatID int64) []domain.Turn {
	t.Helper()
	f.mu.Lock()
	raw := f.data[slotKey(chatID, repository.SlotHistory)]
	f.mu.Unlock()
	if raw == nil {
		return nil
	}
	var turns []domain.Turn
	if err := json.Unmarshal(raw, &turns); err != nil {
		t.Fatalf("decode persisted history: %v", err)
	}
	return turns
}

func newTestSession(chatID int64) (*SessionStore, *imagestore.Store, *fakeSlots) {
	slots := newFakeSlots()
	images := imagestore.New()
	store := NewSessionStore(chatID, images, slots)
	return store, images, slots
}

func TestAppendUserTurnRequiresImage(t *testing.T) {
	store, _, _ := newTestSession(1)

	_, err := store.AppendUserTurn(context.Background(), "what is this?", 1)
	if !errors.Is(err, domain.ErrNoImageBound) {
		t.Fatalf("expected ErrNoImageBound, got %v", err)
	}
	if store.Len() != 0 {
		t.Fatalf("failed append must leave history unchanged, got %d turns", store.Len())
	}
}

func TestAppendAndPersist(t *testing.T) {
	store, images, slots := newTestSession(1)
	images.Bind("aW1hZ2U=")

	user, err := store.AppendUserTurn(context.Background(), "what is this?", 10)
	if err != nil {
		t.Fatalf("append user turn: %v", err)
	}
	if user.Image != "aW1hZ2U=" {
		t.Fatalf("user turn should carry the bound image")
	}

	assistant := store.AppendAssistantTurn(context.Background(), "likely benign")
	if user.ID == assistant.ID {
		t.Fatalf("turn ids must be unique")
	}

	turns := store.Turns()
	if len(turns) != 2 || turns[0].Role != domain.RoleUser || turns[1].Role != domain.RoleAssistant {
		t.Fatalf("unexpected turn ordering: %+v", turns)
	}

	persisted := slots.history(t, 1)
	if len(persisted) != 2 {
		t.Fatalf("expected 2 persisted turns, got %d", len(persisted))
	}
}

func TestNewImageClearsConversation(t *testing.T) {
	store, images, slots := newTestSession(7)
	images.Bind("first")

	if _, err := store.AppendUserTurn(context.Background(), "q1", 1); err != nil {
		t.Fatalf("append: %v", err)
	}
	store.AppendAssistantTurn(context.Background(), "a1")

	images.Bind("second")

	if store.Len() != 0 {
		t.Fatalf("binding a new image must clear turns, got %d", store.Len())
	}
	if got := slots.history(t, 7); got != nil {
		t.Fatalf("persisted history should be cleared, got %d turns", len(got))
	}
	raw, _ := slots.Load(context.Background(), 7, repository.SlotImage)
	if string(raw) != "second" {
		t.Fatalf("image slot should mirror the new binding, got %q", raw)
	}
}

func TestEditTurnTruncates(t *testing.T) {
	store, images, _ := newTestSession(1)
	images.Bind("img")

	first, _ := store.AppendUserTurn(context.Background(), "q1", 1)
	store.AppendAssistantTurn(context.Background(), "a1")
	second, _ := store.AppendUserTurn(context.Background(), "q2", 2)
	store.AppendAssistantTurn(context.Background(), "a2")

	newText, ok := store.EditTurn(context.Background(), second.ID, "q2 edited")
	if !ok || newText != "q2 edited" {
		t.Fatalf("edit failed: ok=%v text=%q", ok, newText)
	}

	turns := store.Turns()
	if len(turns) != 2 {
		t.Fatalf("expected 2 turns after truncation, got %d", len(turns))
	}
	if turns[0].ID != first.ID {
		t.Fatalf("turns before the edited one must be untouched")
	}
}

func TestEditUnknownTurnIsNoop(t *testing.T) {
	store, images, _ := newTestSession(1)
	images.Bind("img")
	store.AppendUserTurn(context.Background(), "q1", 1)

	if _, ok := store.EditTurn(context.Background(), "missing", "x"); ok {
		t.Fatalf("unknown id should be a no-op")
	}
	if store.Len() != 1 {
		t.Fatalf("no-op edit must leave history unchanged")
	}
}

func TestClearLeavesImageBound(t *testing.T) {
	store, images, slots := newTestSession(1)
	images.Bind("img")
	store.AppendUserTurn(context.Background(), "q1", 1)

	store.Clear(context.Background())

	if store.Len() != 0 {
		t.Fatalf("clear should empty turns")
	}
	if !images.Has() {
		t.Fatalf("clear must leave the bound image untouched")
	}
	if got := slots.history(t, 1); got != nil {
		t.Fatalf("persisted history should be dropped")
	}
}

func TestPersistenceFailureIsSilent(t *testing.T) {
	store, images, slots := newTestSession(1)
	images.Bind("img")
	slots.saveErr = errors.New("quota exceeded")

	if _, err := store.AppendUserTurn(context.Background(), "q1", 1); err != nil {
		t.Fatalf("append must not surface persistence failures, got %v", err)
	}
	if store.Len() != 1 {
		t.Fatalf("in-memory state is authoritative, got %d turns", store.Len())
	}
	// Both the snapshot and its fallback failed; the slot must be dropped
	// rather than left as a corrupt partial write.
	if slots.deletes == 0 {
		t.Fatalf("expected history slot to be cleared after failed writes")
	}
}

func TestLoadRestoresSessionWithoutClearingIt(t *testing.T) {
	slots := newFakeSlots()

	first := imagestore.New()
	store := NewSessionStore(42, first, slots)
	first.Bind("persisted-image")
	store.AppendUserTurn(context.Background(), "q1", 1)
	store.AppendAssistantTurn(context.Background(), "a1")

	// A fresh process sees the same slots.
	images := imagestore.New()
	reloaded := NewSessionStore(42, images, slots)
	reloaded.Load(context.Background())

	if data, ok := images.Read(); !ok || data != "persisted-image" {
		t.Fatalf("image not restored: %q ok=%v", data, ok)
	}
	turns := reloaded.Turns()
	if len(turns) != 2 || turns[0].Text != "q1" {
		t.Fatalf("history not restored: %+v", turns)
	}
}

func TestFindByMessageID(t *testing.T) {
	store, images, _ := newTestSession(1)
	images.Bind("img")
	want, _ := store.AppendUserTurn(context.Background(), "q1", 77)
	store.AppendAssistantTurn(context.Background(), "a1")

	got, ok := store.FindByMessageID(77)
	if !ok || got.ID != want.ID {
		t.Fatalf("lookup by message id failed: ok=%v got=%+v", ok, got)
	}
	if _, ok := store.FindByMessageID(999); ok {
		t.Fatalf("unknown message id should not match")
	}
}
