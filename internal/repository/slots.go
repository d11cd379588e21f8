package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Fixed slot names per chat. History holds the serialized turn sequence,
// Image the bound image's encoded data. Both are best-effort caches of
// in-memory state; a missing slot on startup just means an empty session.
const (
	SlotHistory = "history"
	SlotImage   = "image"
)

// Slots is durable storage for per-chat session snapshots, keyed by
// (chat_id, slot name).
type Slots struct {
	db *pgxpool.Pool
}

func NewSlots(db *pgxpool.Pool) *Slots {
	return &Slots{db: db}
}

func (r *Slots) Save(ctx context.Context, chatID int64, slot string, data []byte) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO session_slots (chat_id, slot, data, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (chat_id, slot)
		DO UPDATE SET data = EXCLUDED.data, updated_at = now()`,
		chatID, slot, data)
	if err != nil {
		return fmt.Errorf("save slot %s: %w", slot, err)
	}
	return nil
}

// Load returns the slot contents, or nil when the slot does not exist.
func (r *Slots) Load(ctx context.Context, chatID int64, slot string) ([]byte, error) {
	var data []byte
	err := r.db.QueryRow(ctx,
		`SELECT data FROM session_slots WHERE chat_id = $1 AND slot = $2`,
		chatID, slot).Scan(&data)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load slot %s: %w", slot, err)
	}
	return data, nil
}

func (r *Slots) Delete(ctx context.Context, chatID int64, slot string) error {
	_, err := r.db.Exec(ctx,
		`DELETE FROM session_slots WHERE chat_id = $1 AND slot = $2`,
		chatID, slot)
	if err != nil {
		return fmt.Errorf("delete slot %s: %w", slot, err)
	}
	return nil
}
