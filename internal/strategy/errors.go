package strategy

import (
	"errors"
	"fmt"
	"strings"
)

// ValidationError reports a required field that is missing for the selected mode.
type ValidationError struct {
	Mode  Mode
	Field string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s is required", e.Mode, e.Field)
}

var ErrMalformedOutput = errors.New("malformed AI output")

// MalformedOutputError carries a short excerpt of the unparseable reply.
type MalformedOutputError struct {
	Excerpt string
	Err     error
}

func (e *MalformedOutputError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%v: %v", ErrMalformedOutput, e.Err)
	}
	return ErrMalformedOutput.Error()
}

func (e *MalformedOutputError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrMalformedOutput}
	}
	return []error{ErrMalformedOutput, e.Err}
}

func malformed(text string, err error) error {
	excerpt := strings.TrimSpace(text)
	if r := []rune(excerpt); len(r) > 200 {
		excerpt = string(r[:200])
	}
	return &MalformedOutputError{Excerpt: excerpt, Err: err}
}

// Validate performs presence checks for the selected mode before anything is sent.
func Validate(sel Selection, hasMedia bool) error {
	sel = sel.Normalized()
	cfg := sel.Config

	switch sel.Mode {
	case ModeGenerate:
		if !hasMedia && blank(cfg.Topic) {
			return &ValidationError{Mode: sel.Mode, Field: "topic or media"}
		}
	case ModeRefine:
		if !hasMedia && blank(cfg.Draft) {
			return &ValidationError{Mode: sel.Mode, Field: "draft or media"}
		}
	case ModeSpy:
		if blank(cfg.Competitor) && blank(cfg.Niche) {
			return &ValidationError{Mode: sel.Mode, Field: "competitor or niche"}
		}
	case ModeTrend:
		if blank(cfg.Niche) && blank(cfg.Topic) {
			return &ValidationError{Mode: sel.Mode, Field: "niche"}
		}
	}
	return nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
