package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/set-night/dermabot/internal/config"
	"github.com/set-night/dermabot/internal/domain"
	"github.com/set-night/dermabot/internal/imagestore"
)

// ChatSession bundles the per-chat state: the single-image slot, the
// conversation history, and the diagnosis client driving turns. One
// writer context per session; the busy flag refuses overlapping asks so
// turn ordering is preserved.
type ChatSession struct {
	ChatID int64
	Images *imagestore.Store
	Store  *SessionStore
	Client *DiagnosisClient

	busy atomic.Bool
}

// Acquire marks the session as having an ask in flight. Returns
// ErrRequestInFlight when one already is.
func (c *ChatSession) Acquire() error {
	if !c.busy.CompareAndSwap(false, true) {
		return domain.ErrRequestInFlight
	}
	return nil
}

func (c *ChatSession) Release() {
	c.busy.Store(false)
}

// Registry hands out chat sessions, reconstructing them from durable
// storage on first use. Idle sessions are evicted LRU-style to bound
// memory; eviction loses nothing since the persisted slots remain.
type Registry struct {
	mu       sync.Mutex
	sessions *lru.Cache[int64, *ChatSession]
	storage  SlotStorage
	cfg      *config.Config
}

func NewRegistry(cfg *config.Config, storage SlotStorage) (*Registry, error) {
	cache, err := lru.New[int64, *ChatSession](config.MaxTrackedChats)
	if err != nil {
		return nil, fmt.Errorf("create session cache: %w", err)
	}
	return &Registry{
		sessions: cache,
		storage:  storage,
		cfg:      cfg,
	}, nil
}

// Session returns the live session for a chat, loading its persisted
// snapshot when the chat is seen for the first time (or was evicted).
func (r *Registry) Session(ctx context.Context, chatID int64) *ChatSession {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.sessions.Get(chatID); ok {
		return s
	}

	images := imagestore.New()
	store := NewSessionStore(chatID, images, r.storage)

	loadCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	store.Load(loadCtx)
	cancel()

	s := &ChatSession{
		ChatID: chatID,
		Images: images,
		Store:  store,
		Client: NewDiagnosisClient(r.cfg.DiagnosisURL, config.RequestTimeout, images, store),
	}
	r.sessions.Add(chatID, s)
	return s
}
