package media

import (
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"viral-strategy-ai/internal/gemini"
)

// Uploader stages large files out of band. *gemini.Client satisfies it.
type Uploader interface {
	UploadFile(ctx context.Context, displayName, mimeType string, r io.Reader, size int64) (gemini.File, error)
	GetFile(ctx context.Context, name string) (gemini.File, error)
}

// Frame is one still sampled from a video.
type Frame struct {
	Data     []byte
	MimeType string
}

type FrameSampler interface {
	Sample(ctx context.Context, path string, n int) ([]Frame, error)
}

type Options struct {
	Policy   Policy
	Uploader Uploader
	Sampler  FrameSampler
	Logger   *slog.Logger
}

type Preparer struct {
	policy   Policy
	uploader Uploader
	sampler  FrameSampler
	logger   *slog.Logger
}

func NewPreparer(opts Options) *Preparer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Preparer{
		policy:   opts.Policy.withDefaults(),
		uploader: opts.Uploader,
		sampler:  opts.Sampler,
		logger:   logger,
	}
}

func (p *Preparer) Policy() Policy {
	return p.policy
}

// Prepare turns files into model parts, in input order. Files are processed one at a time and
// the first failure aborts the whole batch.
func (p *Preparer) Prepare(ctx context.Context, files []File) ([]gemini.Part, error) {
	var parts []gemini.Part
	for _, f := range files {
		fileParts, err := p.prepareOne(ctx, f)
		if err != nil {
			return nil, &FileError{Name: f.Name, Err: err}
		}
		parts = append(parts, fileParts...)
	}
	return parts, nil
}

func (p *Preparer) prepareOne(ctx context.Context, f File) ([]gemini.Part, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if p.policy.Oversize(f.Size) {
		return nil, fmt.Errorf("%w (%s, limit %s)", ErrTooLarge, formatBytes(f.Size), formatBytes(p.policy.MaxFileBytes))
	}

	kind := f.Kind
	if kind == "" {
		kind = KindOf(f.MimeType)
	}

	switch {
	case kind == KindVideo:
		return p.sampleVideo(ctx, f)
	case f.Size < p.policy.InlineLimitBytes:
		return p.inline(f)
	default:
		return p.upload(ctx, f)
	}
}

func (p *Preparer) sampleVideo(ctx context.Context, f File) ([]gemini.Part, error) {
	if p.sampler == nil {
		return nil, fmt.Errorf("video sampling is not configured")
	}

	frames, err := p.sampler.Sample(ctx, f.Path, p.policy.FrameCount)
	if err != nil {
		return nil, fmt.Errorf("sample frames: %w", err)
	}
	if len(frames) != p.policy.FrameCount {
		return nil, fmt.Errorf("sample frames: got %d frames, want %d", len(frames), p.policy.FrameCount)
	}

	parts := make([]gemini.Part, 0, len(frames))
	for _, fr := range frames {
		mimeType := fr.MimeType
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		parts = append(parts, gemini.InlinePart(base64.StdEncoding.EncodeToString(fr.Data), mimeType))
	}

	p.logger.Debug("video sampled", "file", f.Name, "frames", len(parts))
	return parts, nil
}

func (p *Preparer) inline(f File) ([]gemini.Part, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read: %w", err)
	}
	return []gemini.Part{gemini.InlinePart(base64.StdEncoding.EncodeToString(data), mimeOrDefault(f.MimeType))}, nil
}

func (p *Preparer) upload(ctx context.Context, f File) ([]gemini.Part, error) {
	if p.uploader == nil {
		return nil, fmt.Errorf("large file uploads are not configured")
	}

	fh, err := os.Open(f.Path)
	if err != nil {
		return nil, fmt.Errorf("open: %w", err)
	}
	defer fh.Close()

	mimeType := mimeOrDefault(f.MimeType)
	handle, err := p.uploader.UploadFile(ctx, f.Name, mimeType, fh, f.Size)
	if err != nil {
		return nil, fmt.Errorf("upload: %w", err)
	}

	handle, err = p.awaitReady(ctx, handle)
	if err != nil {
		return nil, err
	}

	if handle.MimeType != "" {
		mimeType = handle.MimeType
	}
	return []gemini.Part{gemini.FilePart(handle.URI, mimeType)}, nil
}

func (p *Preparer) awaitReady(ctx context.Context, handle gemini.File) (gemini.File, error) {
	deadline := time.NewTimer(p.policy.PollTimeout)
	defer deadline.Stop()

	for {
		switch handle.State {
		case gemini.FileStateReady:
			return handle, nil
		case gemini.FileStateFailed:
			return gemini.File{}, ErrUploadFailed
		}

		p.logger.Debug("waiting for remote processing", "name", handle.Name, "state", handle.State)

		select {
		case <-ctx.Done():
			return gemini.File{}, ctx.Err()
		case <-deadline.C:
			return gemini.File{}, ErrPollTimeout
		case <-time.After(p.policy.PollInterval):
		}

		next, err := p.uploader.GetFile(ctx, handle.Name)
		if err != nil {
			return gemini.File{}, fmt.Errorf("poll: %w", err)
		}
		if next.URI == "" {
			next.URI = handle.URI
		}
		handle = next
	}
}

func mimeOrDefault(mimeType string) string {
	if mimeType == "" {
		return "application/octet-stream"
	}
	return mimeType
}
