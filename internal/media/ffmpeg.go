package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
)

// FFmpegSampler decodes videos with the ffprobe/ffmpeg binaries.
type FFmpegSampler struct {
	FFmpegPath  string
	FFprobePath string
}

// Sample grabs n evenly spaced JPEG stills, skipping the very first and last instants.
func (s FFmpegSampler) Sample(ctx context.Context, path string, n int) ([]Frame, error) {
	if n <= 0 {
		return nil, nil
	}

	duration, err := s.duration(ctx, path)
	if err != nil {
		return nil, err
	}

	frames := make([]Frame, 0, n)
	for _, at := range FrameTimestamps(duration, n) {
		data, err := s.grab(ctx, path, at)
		if err != nil {
			return nil, fmt.Errorf("frame at %.3fs: %w", at, err)
		}
		frames = append(frames, Frame{Data: data, MimeType: "image/jpeg"})
	}
	return frames, nil
}

// FrameTimestamps returns n instants (seconds) at duration*i/(n+1) for i in 1..n.
func FrameTimestamps(duration float64, n int) []float64 {
	if n <= 0 || duration <= 0 {
		return nil
	}
	out := make([]float64, n)
	for i := 1; i <= n; i++ {
		out[i-1] = duration * float64(i) / float64(n+1)
	}
	return out
}

func (s FFmpegSampler) duration(ctx context.Context, path string) (float64, error) {
	cmd := exec.CommandContext(ctx, binOr(s.FFprobePath, "ffprobe"),
		"-v", "error",
		"-show_entries", "format=duration",
		"-of", "default=noprint_wrappers=1:nokey=1",
		path,
	)
	out, err := run(cmd)
	if err != nil {
		return 0, fmt.Errorf("probe duration: %w", err)
	}

	value := strings.TrimSpace(string(out))
	d, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0, fmt.Errorf("probe duration: unexpected output %q", value)
	}
	if d <= 0 {
		return 0, errors.New("probe duration: video has no duration")
	}
	return d, nil
}

func (s FFmpegSampler) grab(ctx context.Context, path string, at float64) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binOr(s.FFmpegPath, "ffmpeg"),
		"-v", "error",
		"-ss", strconv.FormatFloat(at, 'f', 3, 64),
		"-i", path,
		"-frames:v", "1",
		"-q:v", "3",
		"-f", "image2",
		"-vcodec", "mjpeg",
		"pipe:1",
	)
	out, err := run(cmd)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, errors.New("decoder produced no image")
	}
	return out, nil
}

func run(cmd *exec.Cmd) ([]byte, error) {
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

func binOr(path, fallback string) string {
	if p := strings.TrimSpace(path); p != "" {
		return p
	}
	return fallback
}
