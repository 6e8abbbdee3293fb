package media

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

type Kind string

const (
	KindImage Kind = "image"
	KindVideo Kind = "video"
	KindOther Kind = "other"
)

// KindOf classifies a MIME type.
func KindOf(mimeType string) Kind {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "video/"):
		return KindVideo
	default:
		return KindOther
	}
}

// File is one user-supplied input waiting to be sent. Path points at a local copy.
type File struct {
	ID       string
	Name     string
	MimeType string
	Kind     Kind
	Size     int64
	Path     string
}

const (
	DefaultMaxFileBytes     int64 = 1 << 30
	DefaultInlineLimitBytes int64 = 20 << 20
	DefaultFrameCount             = 5
	DefaultPollInterval           = 2 * time.Second
	DefaultPollTimeout            = 10 * time.Minute
)

type Policy struct {
	MaxFileBytes     int64
	InlineLimitBytes int64
	FrameCount       int
	PollInterval     time.Duration
	PollTimeout      time.Duration
}

func DefaultPolicy() Policy {
	return Policy{
		MaxFileBytes:     DefaultMaxFileBytes,
		InlineLimitBytes: DefaultInlineLimitBytes,
		FrameCount:       DefaultFrameCount,
		PollInterval:     DefaultPollInterval,
		PollTimeout:      DefaultPollTimeout,
	}
}

func (p Policy) withDefaults() Policy {
	d := DefaultPolicy()
	if p.MaxFileBytes <= 0 {
		p.MaxFileBytes = d.MaxFileBytes
	}
	if p.InlineLimitBytes <= 0 {
		p.InlineLimitBytes = d.InlineLimitBytes
	}
	if p.FrameCount <= 0 {
		p.FrameCount = d.FrameCount
	}
	if p.PollInterval <= 0 {
		p.PollInterval = d.PollInterval
	}
	if p.PollTimeout <= 0 {
		p.PollTimeout = d.PollTimeout
	}
	return p
}

// Oversize reports whether size is at or above the per-file maximum.
func (p Policy) Oversize(size int64) bool {
	return size >= p.withDefaults().MaxFileBytes
}

var (
	ErrTooLarge     = errors.New("file exceeds the maximum size")
	ErrUploadFailed = errors.New("remote processing failed")
	ErrPollTimeout  = errors.New("remote processing did not finish in time")
)

// FileError aborts a whole batch and names the file that caused it.
type FileError struct {
	Name string
	Err  error
}

func (e *FileError) Error() string {
	return fmt.Sprintf("file %q: %v", e.Name, e.Err)
}

func (e *FileError) Unwrap() error {
	return e.Err
}

// Notice is a user-visible message about a file that was not accepted.
type Notice struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for v := n / unit; v >= unit; v /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
