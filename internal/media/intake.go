package media

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Intake is the pending set of files for one analysis. Each accepted file is spooled to a
// private temp file that lives until Remove, Replace or Close.
type Intake struct {
	mu     sync.Mutex
	dir    string
	policy Policy
	files  []File
	closed bool
}

func NewIntake(baseDir string, policy Policy) (*Intake, error) {
	dir, err := os.MkdirTemp(baseDir, "intake-")
	if err != nil {
		return nil, fmt.Errorf("create intake dir: %w", err)
	}
	return &Intake{dir: dir, policy: policy.withDefaults()}, nil
}

// Add spools r. A file at or above the size limit is not added; the returned notice says why.
func (in *Intake) Add(name, mimeType string, r io.Reader) (File, *Notice, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.closed {
		return File{}, nil, errors.New("intake is closed")
	}

	f, notice, err := in.spoolLocked(name, mimeType, r)
	if err != nil || notice != nil {
		return File{}, notice, err
	}
	in.files = append(in.files, f)
	return f, nil, nil
}

// Replace swaps the file with the given id for a new one, keeping its position.
func (in *Intake) Replace(id, name, mimeType string, r io.Reader) (File, *Notice, error) {
	in.mu.Lock()
	defer in.mu.Unlock()

	idx := in.indexLocked(id)
	if idx < 0 {
		return File{}, nil, fmt.Errorf("file %s not found", id)
	}

	f, notice, err := in.spoolLocked(name, mimeType, r)
	if err != nil || notice != nil {
		return File{}, notice, err
	}

	_ = os.Remove(in.files[idx].Path)
	in.files[idx] = f
	return f, nil, nil
}

func (in *Intake) Remove(id string) bool {
	in.mu.Lock()
	defer in.mu.Unlock()

	idx := in.indexLocked(id)
	if idx < 0 {
		return false
	}
	_ = os.Remove(in.files[idx].Path)
	in.files = append(in.files[:idx], in.files[idx+1:]...)
	return true
}

func (in *Intake) Files() []File {
	in.mu.Lock()
	defer in.mu.Unlock()

	out := make([]File, len(in.files))
	copy(out, in.files)
	return out
}

func (in *Intake) HasMedia() bool {
	in.mu.Lock()
	defer in.mu.Unlock()
	return len(in.files) > 0
}

// Close releases every spooled file.
func (in *Intake) Close() error {
	in.mu.Lock()
	defer in.mu.Unlock()

	if in.closed {
		return nil
	}
	in.closed = true
	in.files = nil
	return os.RemoveAll(in.dir)
}

func (in *Intake) indexLocked(id string) int {
	for i, f := range in.files {
		if f.ID == id {
			return i
		}
	}
	return -1
}

func (in *Intake) spoolLocked(name, mimeType string, r io.Reader) (File, *Notice, error) {
	name = strings.TrimSpace(filepath.Base(name))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "upload"
	}

	head := make([]byte, 512)
	n, err := io.ReadFull(r, head)
	if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, io.EOF) {
		return File{}, nil, fmt.Errorf("read %q: %w", name, err)
	}
	head = head[:n]
	mimeType = normalizeMime(mimeType, head)

	id := uuid.NewString()
	path := filepath.Join(in.dir, id)
	out, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o600)
	if err != nil {
		return File{}, nil, fmt.Errorf("spool %q: %w", name, err)
	}

	limit := in.policy.MaxFileBytes
	written, err := io.CopyN(out, io.MultiReader(bytes.NewReader(head), r), limit)
	closeErr := out.Close()
	if err != nil && !errors.Is(err, io.EOF) {
		_ = os.Remove(path)
		return File{}, nil, fmt.Errorf("spool %q: %w", name, err)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return File{}, nil, fmt.Errorf("spool %q: %w", name, closeErr)
	}

	if written >= limit {
		_ = os.Remove(path)
		return File{}, &Notice{
			Name:    name,
			Message: fmt.Sprintf("%s is too large; files must be smaller than %s", name, formatBytes(limit)),
		}, nil
	}

	return File{
		ID:       id,
		Name:     name,
		MimeType: mimeType,
		Kind:     KindOf(mimeType),
		Size:     written,
		Path:     path,
	}, nil, nil
}

func normalizeMime(mimeType string, head []byte) string {
	mimeType = strings.TrimSpace(mimeType)
	if strings.Contains(mimeType, ";") {
		mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	if (mimeType == "" || mimeType == "application/octet-stream") && len(head) > 0 {
		mimeType = http.DetectContentType(head)
	}
	if strings.Contains(mimeType, ";") {
		mimeType = strings.TrimSpace(strings.SplitN(mimeType, ";", 2)[0])
	}
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return mimeType
}
