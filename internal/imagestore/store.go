// Package imagestore holds the single image a diagnostic conversation is
// about. A store owns at most one encoded image at a time; binding a new
// one replaces the old unconditionally and notifies the session layer so
// it can start a fresh diagnostic context.
package imagestore

import "sync"

// Store is a single-image slot scoped to one chat session. It is
// mutex-guarded because bot handlers run on separate goroutines.
type Store struct {
	mu       sync.Mutex
	data     string // base64-encoded image, empty means absent
	onChange func()
}

func New() *Store {
	return &Store{}
}

// OnChange registers the callback fired once per Bind or Clear call. The
// signal is identity-based: rebinding byte-identical data still fires it.
// Only one listener is supported; the session layer is the sole consumer.
func (s *Store) OnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// Bind replaces the current binding and signals the change. Format and
// size validation are the caller's job, before encoding.
func (s *Store) Bind(b64 string) {
	s.mu.Lock()
	s.data = b64
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Restore sets the binding without firing the change signal. Used only
// when reconstructing a session from its persisted snapshot at startup.
func (s *Store) Restore(b64 string) {
	s.mu.Lock()
	s.data = b64
	s.mu.Unlock()
}

// Read returns the current binding, or false when absent.
func (s *Store) Read() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data, s.data != ""
}

func (s *Store) Has() bool {
	_, ok := s.Read()
	return ok
}

// Clear sets the binding to absent and signals the change.
func (s *Store) Clear() {
	s.mu.Lock()
	s.data = ""
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}
