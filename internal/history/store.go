package history

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"viral-strategy-ai/internal/storage"
	"viral-strategy-ai/internal/strategy"
)

const DefaultMaxItems = 50

// Item is one finished analysis. Data holds the serialized mode-specific result.
type Item struct {
	ID        string            `json:"id"`
	Timestamp time.Time         `json:"timestamp"`
	Mode      strategy.Mode     `json:"mode"`
	Platform  strategy.Platform `json:"platform,omitempty"`
	Data      json.RawMessage   `json:"data"`
	Summary   string            `json:"summary"`
}

func (it Item) Result() (strategy.Result, error) {
	return strategy.DecodeResult(it.Mode, it.Data)
}

type Options struct {
	Backend  storage.Backend
	MaxItems int
	Logger   *slog.Logger
}

// Store owns the persisted history and onboarding flag of every owner. Each owner's state is
// read once on first use and written back in full after every mutation.
type Store struct {
	mu         sync.Mutex
	backend    storage.Backend
	maxHistory int
	logger     *slog.Logger
	owners     map[string]*ownerState
}

type ownerState struct {
	items          []Item
	onboardingSeen bool
}

func NewStore(opts Options) *Store {
	maxHistory := opts.MaxItems
	if maxHistory <= 0 {
		maxHistory = DefaultMaxItems
	}

	backend := opts.Backend
	if backend == nil {
		backend = storage.NewMemory()
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Store{
		backend:    backend,
		maxHistory: maxHistory,
		logger:     logger,
		owners:     make(map[string]*ownerState),
	}
}

// Add records a successful analysis as the newest entry, evicting the oldest beyond the cap.
func (s *Store) Add(ctx context.Context, owner string, platform strategy.Platform, result strategy.Result) (Item, error) {
	data, err := json.Marshal(result)
	if err != nil {
		return Item{}, fmt.Errorf("encode result: %w", err)
	}

	item := Item{
		ID:        uuid.NewString(),
		Timestamp: time.Now().UTC(),
		Mode:      result.Mode(),
		Platform:  platform,
		Data:      data,
		Summary:   result.Summary(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.getOrLoadLocked(ctx, owner)
	if err != nil {
		return Item{}, err
	}

	items := make([]Item, 0, len(st.items)+1)
	items = append(items, item)
	items = append(items, st.items...)
	if len(items) > s.maxHistory {
		items = items[:s.maxHistory]
	}

	if err := s.saveItemsLocked(ctx, owner, items); err != nil {
		return Item{}, err
	}
	st.items = items
	return item, nil
}

// List returns the owner's history, newest first.
func (s *Store) List(ctx context.Context, owner string) ([]Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.getOrLoadLocked(ctx, owner)
	if err != nil {
		return nil, err
	}

	items := make([]Item, len(st.items))
	copy(items, st.items)
	return items, nil
}

func (s *Store) Get(ctx context.Context, owner, id string) (Item, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.getOrLoadLocked(ctx, owner)
	if err != nil {
		return Item{}, false, err
	}
	for _, it := range st.items {
		if it.ID == id {
			return it, true, nil
		}
	}
	return Item{}, false, nil
}

func (s *Store) Delete(ctx context.Context, owner, id string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.getOrLoadLocked(ctx, owner)
	if err != nil {
		return false, err
	}

	items := make([]Item, 0, len(st.items))
	for _, it := range st.items {
		if it.ID != id {
			items = append(items, it)
		}
	}
	if len(items) == len(st.items) {
		return false, nil
	}

	if err := s.saveItemsLocked(ctx, owner, items); err != nil {
		return false, err
	}
	st.items = items
	return true, nil
}

func (s *Store) Clear(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.getOrLoadLocked(ctx, owner)
	if err != nil {
		return err
	}
	if err := s.saveItemsLocked(ctx, owner, []Item{}); err != nil {
		return err
	}
	st.items = nil
	return nil
}

func (s *Store) OnboardingSeen(ctx context.Context, owner string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.getOrLoadLocked(ctx, owner)
	if err != nil {
		return false, err
	}
	return st.onboardingSeen, nil
}

func (s *Store) MarkOnboardingSeen(ctx context.Context, owner string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, err := s.getOrLoadLocked(ctx, owner)
	if err != nil {
		return err
	}
	if st.onboardingSeen {
		return nil
	}
	if err := s.backend.Put(ctx, onboardingKey(owner), []byte("true")); err != nil {
		return fmt.Errorf("save onboarding flag: %w", err)
	}
	st.onboardingSeen = true
	return nil
}

func (s *Store) getOrLoadLocked(ctx context.Context, owner string) (*ownerState, error) {
	owner = normalizeOwner(owner)
	if st, ok := s.owners[owner]; ok {
		return st, nil
	}

	st := &ownerState{}

	raw, ok, err := s.backend.Get(ctx, historyKey(owner))
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	if ok {
		if err := json.Unmarshal(raw, &st.items); err != nil {
			s.logger.Warn("discarding unreadable history", "owner", owner, "err", err)
			st.items = nil
		}
		if len(st.items) > s.maxHistory {
			st.items = st.items[:s.maxHistory]
		}
	}

	raw, ok, err = s.backend.Get(ctx, onboardingKey(owner))
	if err != nil {
		return nil, fmt.Errorf("load onboarding flag: %w", err)
	}
	if ok {
		st.onboardingSeen = strings.TrimSpace(string(raw)) == "true"
	}

	s.owners[owner] = st
	return st, nil
}

func (s *Store) saveItemsLocked(ctx context.Context, owner string, items []Item) error {
	raw, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := s.backend.Put(ctx, historyKey(normalizeOwner(owner)), raw); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

func normalizeOwner(owner string) string {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "local"
	}
	return owner
}

func historyKey(owner string) string {
	return "history/" + owner
}

func onboardingKey(owner string) string {
	return "onboarding/" + owner
}
