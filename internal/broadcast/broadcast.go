// Package broadcast owns the mass-message workflow state: which chats are
// waiting to supply content and which submissions are pending moderation.
package broadcast

import (
	"sync"

	"github.com/google/uuid"
)

// Content is an opaque reference to the message being broadcast. The workflow
// never inspects the payload type; it either copies the referenced message or,
// for the legacy one-shot form, sends Text directly.
type Content struct {
	ChatID    int64
	MessageID int
	Text      string
}

// Request is a moderator submission awaiting an admin decision. Requests live
// only in process memory and are orphaned on restart.
type Request struct {
	ID            string
	ModeratorChat int64
	Submitter     string
	Content       Content
}

// Manager tracks per-chat wait states and pending moderation requests.
// Handlers run concurrently, so both maps are mutex-guarded.
type Manager struct {
	mu      sync.RWMutex
	waiting map[int64]bool
	pending map[string]*Request
}

// NewManager creates an empty Manager
func NewManager() *Manager {
	return &Manager{
		waiting: make(map[int64]bool),
		pending: make(map[string]*Request),
	}
}

// SetWaiting marks a chat so its next message is consumed as broadcast
// content. A chat has at most one wait state; setting again overwrites.
func (m *Manager) SetWaiting(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.waiting[chatID] = true
}

// IsWaiting reports whether a chat is in the wait state
func (m *Manager) IsWaiting(chatID int64) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.waiting[chatID]
}

// ClearWaiting removes a chat's wait state, reporting whether it was set
func (m *Manager) ClearWaiting(chatID int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	was := m.waiting[chatID]
	delete(m.waiting, chatID)
	return was
}

// AddPending registers a moderator submission under a fresh unique id and
// returns the created request.
func (m *Manager) AddPending(moderatorChat int64, submitter string, content Content) *Request {
	req := &Request{
		ID:            uuid.New().String(),
		ModeratorChat: moderatorChat,
		Submitter:     submitter,
		Content:       content,
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.pending[req.ID] = req
	return req
}

// TakePending removes and returns the request with the given id. A second
// call for the same id reports false: the decision already happened.
func (m *Manager) TakePending(id string) (*Request, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	req, ok := m.pending[id]
	if ok {
		delete(m.pending, id)
	}
	return req, ok
}

// PendingCount returns the number of submissions awaiting a decision
func (m *Manager) PendingCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pending)
}
