package mediagroup

import (
	"sync"
	"time"
)

// FileRef identifies one Telegram attachment of an album.
type FileRef struct {
	ID       string
	Name     string
	MimeType string
	Size     int64
}

type Item struct {
	ChatID       int64
	UserID       int64
	Username     string
	MediaGroupID string
	Caption      string
	File         FileRef
}

// Group is a whole album, in arrival order.
type Group struct {
	ChatID   int64
	UserID   int64
	Username string
	Caption  string
	Files    []FileRef
}

// MaxAlbumFiles is the most attachments Telegram puts in one album.
const MaxAlbumFiles = 10

type Options struct {
	Debounce time.Duration
	// MaxFiles flushes an album as soon as it holds this many files.
	MaxFiles int
	OnFlush  func(Group)
}

// Aggregator collects album items that Telegram delivers as separate updates. An album is
// flushed once no new item has arrived for the debounce window, or at once when it is full.
type Aggregator struct {
	mu       sync.Mutex
	debounce time.Duration
	maxFiles int
	onFlush  func(Group)
	albums   map[albumKey]*album
	stopped  bool
}

type albumKey struct {
	chatID int64
	id     string
}

type album struct {
	group Group
	seen  map[string]bool
	timer *time.Timer
}

func New(opts Options) *Aggregator {
	debounce := opts.Debounce
	if debounce <= 0 {
		debounce = 1200 * time.Millisecond
	}
	maxFiles := opts.MaxFiles
	if maxFiles <= 0 {
		maxFiles = MaxAlbumFiles
	}

	return &Aggregator{
		debounce: debounce,
		maxFiles: maxFiles,
		onFlush:  opts.OnFlush,
		albums:   make(map[albumKey]*album),
	}
}

// Add reports whether the item was taken. Items without an album ID or file are not, and a
// redelivered file is taken once.
func (a *Aggregator) Add(item Item) bool {
	if item.MediaGroupID == "" || item.File.ID == "" {
		return false
	}
	key := albumKey{chatID: item.ChatID, id: item.MediaGroupID}

	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return false
	}

	al, ok := a.albums[key]
	if !ok {
		al = &album{
			group: Group{ChatID: item.ChatID, UserID: item.UserID, Username: item.Username},
			seen:  make(map[string]bool),
		}
		a.albums[key] = al
	}
	if al.seen[item.File.ID] {
		a.mu.Unlock()
		return false
	}
	al.seen[item.File.ID] = true
	al.group.Files = append(al.group.Files, item.File)
	if item.Caption != "" {
		al.group.Caption = item.Caption
	}

	if al.timer != nil {
		al.timer.Stop()
	}
	full := len(al.group.Files) >= a.maxFiles
	if !full {
		al.timer = time.AfterFunc(a.debounce, func() { a.flush(key) })
	}
	a.mu.Unlock()

	if full {
		a.flush(key)
	}
	return true
}

// Stop drops every album still collecting and refuses further items.
func (a *Aggregator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.stopped = true
	for key, al := range a.albums {
		if al.timer != nil {
			al.timer.Stop()
		}
		delete(a.albums, key)
	}
}

func (a *Aggregator) flush(key albumKey) {
	a.mu.Lock()
	al, ok := a.albums[key]
	if ok {
		delete(a.albums, key)
	}
	onFlush := a.onFlush
	a.mu.Unlock()

	if ok && onFlush != nil {
		onFlush(al.group)
	}
}
