package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/set-night/dermabot/internal/config"
	"github.com/set-night/dermabot/internal/domain"
	"github.com/set-night/dermabot/internal/imagestore"
	"github.com/set-night/dermabot/internal/repository"
)

// SlotStorage is the durable two-slot store a session persists into.
type SlotStorage interface {
	Save(ctx context.Context, chatID int64, slot string, data []byte) error
	Load(ctx context.Context, chatID int64, slot string) ([]byte, error)
	Delete(ctx context.Context, chatID int64, slot string) error
}

// SessionStore holds the ordered conversation history of one chat. The
// in-memory turn list is authoritative; the persisted snapshot is a
// best-effort cache written after every append and never read back except
// at startup. Replacing the bound image clears the history: a new image
// starts a new diagnostic context.
type SessionStore struct {
	chatID  int64
	images  *imagestore.Store
	storage SlotStorage

	mu    sync.Mutex
	turns []domain.Turn
}

func NewSessionStore(chatID int64, images *imagestore.Store, storage SlotStorage) *SessionStore {
	s := &SessionStore{
		chatID:  chatID,
		images:  images,
		storage: storage,
	}
	images.OnChange(s.onImageChanged)
	return s
}

// Load reconstructs the session from its persisted slots. A missing or
// unreadable slot is not an error, just an empty session. The image is
// restored without firing the change signal so the freshly loaded history
// survives.
func (s *SessionStore) Load(ctx context.Context) {
	if data, err := s.storage.Load(ctx, s.chatID, repository.SlotImage); err != nil {
		slog.Warn("load image slot", "chat_id", s.chatID, "error", err)
	} else if len(data) > 0 {
		s.images.Restore(string(data))
	}

	data, err := s.storage.Load(ctx, s.chatID, repository.SlotHistory)
	if err != nil {
		slog.Warn("load history slot", "chat_id", s.chatID, "error", err)
		return
	}
	if len(data) == 0 {
		return
	}

	var turns []domain.Turn
	if err := json.Unmarshal(data, &turns); err != nil {
		slog.Warn("decode history slot", "chat_id", s.chatID, "error", err)
		return
	}

	s.mu.Lock()
	s.turns = turns
	s.mu.Unlock()
}

// AppendUserTurn appends a user question with the current image attached.
// Fails when no image is bound; the first turn of a conversation always
// has an image behind it.
func (s *SessionStore) AppendUserTurn(ctx context.Context, text string, messageID int) (domain.Turn, error) {
	image, ok := s.images.Read()
	if !ok {
		return domain.Turn{}, domain.ErrNoImageBound
	}

	turn := domain.Turn{
		ID:        uuid.NewString(),
		Role:      domain.RoleUser,
		Text:      text,
		Image:     image,
		MessageID: messageID,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.turns = append(s.turns, turn)
	snapshot := s.cloneTurnsLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return turn, nil
}

// AppendAssistantTurn appends an assistant answer. Never fails: a failed
// diagnosis still produces a visible assistant turn.
func (s *SessionStore) AppendAssistantTurn(ctx context.Context, text string) domain.Turn {
	turn := domain.Turn{
		ID:        uuid.NewString(),
		Role:      domain.RoleAssistant,
		Text:      text,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	s.turns = append(s.turns, turn)
	snapshot := s.cloneTurnsLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return turn
}

// EditTurn models "edit and resend": it truncates history from the
// identified turn onward (inclusive) and returns the new text for the
// caller to resubmit as a fresh user turn. Unknown ids are a no-op.
func (s *SessionStore) EditTurn(ctx context.Context, id, newText string) (string, bool) {
	s.mu.Lock()
	idx := -1
	for i, t := range s.turns {
		if t.ID == id {
			idx = i
			break
		}
	}
	if idx == -1 {
		s.mu.Unlock()
		return "", false
	}
	s.turns = s.turns[:idx]
	snapshot := s.cloneTurnsLocked()
	s.mu.Unlock()

	s.persist(ctx, snapshot)
	return newText, true
}

// FindByMessageID locates a user turn by the transport message that
// carried it.
func (s *SessionStore) FindByMessageID(messageID int) (domain.Turn, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, t := range s.turns {
		if t.Role == domain.RoleUser && t.MessageID == messageID {
			return t, true
		}
	}
	return domain.Turn{}, false
}

// Clear empties the history and drops the persisted copy. The bound image
// is left untouched.
func (s *SessionStore) Clear(ctx context.Context) {
	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()

	if err := s.storage.Delete(ctx, s.chatID, repository.SlotHistory); err != nil {
		slog.Warn("clear history slot", "chat_id", s.chatID, "error", err)
	}
}

// Turns returns a copy of the conversation history in append order.
func (s *SessionStore) Turns() []domain.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cloneTurnsLocked()
}

func (s *SessionStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.turns)
}

// onImageChanged runs on every bind or clear of the image slot. The old
// conversation is invalidated, and the image slot is mirrored to storage.
func (s *SessionStore) onImageChanged() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	s.mu.Lock()
	s.turns = nil
	s.mu.Unlock()

	if err := s.storage.Delete(ctx, s.chatID, repository.SlotHistory); err != nil {
		slog.Warn("clear history slot", "chat_id", s.chatID, "error", err)
	}

	if image, ok := s.images.Read(); ok {
		if err := s.storage.Save(ctx, s.chatID, repository.SlotImage, []byte(image)); err != nil {
			slog.Warn("save image slot", "chat_id", s.chatID, "error", err)
		}
	} else {
		if err := s.storage.Delete(ctx, s.chatID, repository.SlotImage); err != nil {
			slog.Warn("clear image slot", "chat_id", s.chatID, "error", err)
		}
	}
}

// persist writes the degraded history snapshot. Durability is best-effort:
// failures are logged and swallowed, falling back to a minimal snapshot
// and finally to clearing the slot rather than leaving a partial write.
func (s *SessionStore) persist(ctx context.Context, turns []domain.Turn) {
	data, err := BuildSnapshot(turns, config.PersistCeiling)
	if err == nil {
		if err = s.storage.Save(ctx, s.chatID, repository.SlotHistory, data); err == nil {
			return
		}
	}
	slog.Warn("persist history", "chat_id", s.chatID, "error", err)

	data, err = FallbackSnapshot(turns)
	if err == nil {
		if err = s.storage.Save(ctx, s.chatID, repository.SlotHistory, data); err == nil {
			return
		}
	}
	slog.Warn("persist fallback history", "chat_id", s.chatID, "error", err)

	if err := s.storage.Delete(ctx, s.chatID, repository.SlotHistory); err != nil {
		slog.Warn("drop history slot", "chat_id", s.chatID, "error", err)
	}
}

func (s *SessionStore) cloneTurnsLocked() []domain.Turn {
	out := make([]domain.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}
