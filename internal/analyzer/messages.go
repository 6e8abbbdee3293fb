package analyzer

import (
	"context"
	"errors"
	"fmt"

	"viral-strategy-ai/internal/gemini"
	"viral-strategy-ai/internal/media"
	"viral-strategy-ai/internal/strategy"
)

// Kind is the coarse error category shown to surfaces.
type Kind string

const (
	KindValidation Kind = "validation"
	KindFile       Kind = "file"
	KindMalformed  Kind = "malformed_output"
	KindTimeout    Kind = "timeout"
	KindInternal   Kind = "internal"
)

// KindOf reports the category of an analysis error. Remote failures keep their gemini kind.
func KindOf(err error) Kind {
	var (
		vErr *strategy.ValidationError
		fErr *media.FileError
		mErr *strategy.MalformedOutputError
	)
	switch {
	case errors.As(err, &vErr):
		return KindValidation
	case errors.As(err, &fErr):
		return KindFile
	case gemini.KindOf(err) != "":
		return Kind(gemini.KindOf(err))
	case errors.As(err, &mErr):
		return KindMalformed
	case errors.Is(err, context.DeadlineExceeded):
		return KindTimeout
	default:
		return KindInternal
	}
}

// UserMessage maps an analysis error to the text a user sees.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var vErr *strategy.ValidationError
	if errors.As(err, &vErr) {
		return fmt.Sprintf("Please provide the %s for %s mode.", vErr.Field, strategy.ModeName(vErr.Mode))
	}

	var fErr *media.FileError
	if errors.As(err, &fErr) {
		switch {
		case errors.Is(fErr, media.ErrTooLarge):
			return fmt.Sprintf("%q is too large to analyze. Remove it and try again.", fErr.Name)
		case errors.Is(fErr, media.ErrPollTimeout):
			return fmt.Sprintf("%q took too long to process on the AI service. Try a shorter or smaller file.", fErr.Name)
		case errors.Is(fErr, media.ErrUploadFailed):
			return fmt.Sprintf("The AI service could not process %q. Try a different file.", fErr.Name)
		case gemini.KindOf(fErr) != "":
			return fmt.Sprintf("Upload of %q failed. %s", fErr.Name, kindMessage(gemini.KindOf(fErr)))
		default:
			return fmt.Sprintf("Could not read %q. Check the file and try again.", fErr.Name)
		}
	}

	if kind := gemini.KindOf(err); kind != "" {
		return kindMessage(kind)
	}

	var mErr *strategy.MalformedOutputError
	if errors.As(err, &mErr) {
		return "The AI returned an answer that could not be read. Try rephrasing your input and run it again."
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return "The analysis took too long and was stopped. Try again."
	}
	return "Something went wrong while running the analysis. Try again."
}

func kindMessage(kind gemini.ErrorKind) string {
	switch kind {
	case gemini.KindUnauthorized:
		return "The API key was rejected. Check the configured Gemini API key."
	case gemini.KindRateLimited:
		return "Rate limit reached. Wait a minute before trying again."
	case gemini.KindBadRequest:
		return "The AI service rejected the request. The file type or size may not be supported."
	case gemini.KindServiceUnavailable:
		return "The AI service is unavailable right now. Try again shortly."
	default:
		return "The AI service returned an unexpected error. Try again."
	}
}
