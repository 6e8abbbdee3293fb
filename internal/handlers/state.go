package handlers

import (
	"sync"
	"time"

	"viral-strategy-ai/internal/strategy"
)

// ChatState is the configuration a user has built up in one chat.
type ChatState struct {
	Selection strategy.Selection
	UpdatedAt time.Time
}

// StateStore keeps per-user chat state and the one-analysis-per-chat guard.
type StateStore struct {
	mu   sync.Mutex
	m    map[stateKey]*ChatState
	busy map[int64]bool
}

type stateKey struct {
	ChatID int64
	UserID int64
}

func NewStateStore() *StateStore {
	return &StateStore{
		m:    make(map[stateKey]*ChatState),
		busy: make(map[int64]bool),
	}
}

func (s *StateStore) Get(chatID, userID int64) ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return *s.getOrCreateLocked(chatID, userID)
}

func (s *StateStore) Update(chatID, userID int64, fn func(*ChatState)) ChatState {
	s.mu.Lock()
	defer s.mu.Unlock()

	st := s.getOrCreateLocked(chatID, userID)
	if fn != nil {
		fn(st)
	}
	st.Selection = st.Selection.Normalized()
	st.UpdatedAt = time.Now()
	return *st
}

func (s *StateStore) Reset(chatID, userID int64) ChatState {
	return s.Update(chatID, userID, func(st *ChatState) {
		*st = defaultState()
	})
}

// TryAcquire marks the chat busy. It reports false when an analysis is already running there.
func (s *StateStore) TryAcquire(chatID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.busy[chatID] {
		return false
	}
	s.busy[chatID] = true
	return true
}

func (s *StateStore) Release(chatID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, chatID)
}

func (s *StateStore) getOrCreateLocked(chatID, userID int64) *ChatState {
	key := stateKey{ChatID: chatID, UserID: userID}
	if st, ok := s.m[key]; ok {
		return st
	}
	st := defaultState()
	s.m[key] = &st
	return s.m[key]
}

func defaultState() ChatState {
	return ChatState{
		Selection: strategy.Selection{
			Mode:     strategy.ModeGenerate,
			Platform: strategy.PlatformTikTok,
		},
		UpdatedAt: time.Now(),
	}
}
