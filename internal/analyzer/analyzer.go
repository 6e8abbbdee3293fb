package analyzer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"viral-strategy-ai/internal/gemini"
	"viral-strategy-ai/internal/history"
	"viral-strategy-ai/internal/media"
	"viral-strategy-ai/internal/metrics"
	"viral-strategy-ai/internal/strategy"
)

var errRecord = errors.New("record history")

// Model is the remote generation call. *gemini.Client satisfies it.
type Model interface {
	Generate(ctx context.Context, req gemini.Request) (gemini.Response, error)
}

// Preparer turns local files into model parts. *media.Preparer satisfies it.
type Preparer interface {
	Prepare(ctx context.Context, files []media.File) ([]gemini.Part, error)
}

type Options struct {
	Model       Model
	Preparer    Preparer
	History     *history.Store
	Models      strategy.Models
	Temperature float64
	Metrics     metrics.Recorder
	Logger      *slog.Logger
}

// Analyzer runs one analysis end to end: validate, prepare media, build the prompt, attach the
// response contract, call the model, normalize the reply, record history.
type Analyzer struct {
	model       Model
	preparer    Preparer
	history     *history.Store
	models      strategy.Models
	temperature float64
	metrics     metrics.Recorder
	logger      *slog.Logger
}

func New(opts Options) *Analyzer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	rec := opts.Metrics
	if rec == nil {
		rec = (*metrics.Metrics)(nil)
	}

	store := opts.History
	if store == nil {
		store = history.NewStore(history.Options{Logger: logger})
	}

	models := opts.Models
	if models == (strategy.Models{}) {
		models = strategy.DefaultModels()
	}

	return &Analyzer{
		model:       opts.Model,
		preparer:    opts.Preparer,
		history:     store,
		models:      models,
		temperature: opts.Temperature,
		metrics:     rec,
		logger:      logger,
	}
}

type Request struct {
	Owner     string
	Selection strategy.Selection
	Files     []media.File
}

type Outcome struct {
	Result strategy.Result
	Item   history.Item
}

func (a *Analyzer) History() *history.Store {
	return a.history
}

// Run executes one attempt. Any failure is terminal: nothing is retried and nothing is recorded.
func (a *Analyzer) Run(ctx context.Context, req Request) (out Outcome, err error) {
	sel := req.Selection.Normalized()
	start := time.Now()
	defer func() {
		a.metrics.ObserveAnalysis(string(sel.Mode), string(sel.Platform), outcomeOf(err), time.Since(start))
	}()

	if err := strategy.Validate(sel, len(req.Files) > 0); err != nil {
		return Outcome{}, err
	}

	var mediaParts []gemini.Part
	if len(req.Files) > 0 {
		if a.preparer == nil {
			return Outcome{}, errors.New("media preparer is not configured")
		}
		a.countFiles(req.Files)

		mediaParts, err = a.preparer.Prepare(ctx, req.Files)
		if err != nil {
			a.logger.Warn("media preparation failed", "owner", req.Owner, "mode", sel.Mode, "err", err)
			return Outcome{}, err
		}
	}

	parts := make([]gemini.Part, 0, len(mediaParts)+1)
	parts = append(parts, gemini.TextPart(strategy.BuildPrompt(sel)))
	parts = append(parts, mediaParts...)

	contract := strategy.ContractFor(sel.Mode, a.models)
	genReq := contract.Apply(gemini.Request{Parts: parts, Temperature: a.temperature})

	a.logger.Info("analysis started",
		"owner", req.Owner,
		"mode", sel.Mode,
		"platform", sel.Platform,
		"format", sel.Format,
		"model", genReq.Model,
		"files", len(req.Files),
		"search", genReq.Search,
	)

	resp, err := a.model.Generate(ctx, genReq)
	if err != nil {
		if kind := gemini.KindOf(err); kind != "" {
			a.metrics.ObserveModelError(string(kind))
		}
		a.logger.Warn("model call failed", "owner", req.Owner, "mode", sel.Mode, "kind", gemini.KindOf(err), "err", err)
		return Outcome{}, err
	}

	result, err := strategy.Normalize(sel.Mode, resp.Text, resp.Citations)
	if err != nil {
		a.logger.Warn("unparseable model output", "owner", req.Owner, "mode", sel.Mode, "err", err)
		return Outcome{}, err
	}

	item, err := a.history.Add(ctx, req.Owner, sel.Platform, result)
	if err != nil {
		return Outcome{}, fmt.Errorf("%w: %w", errRecord, err)
	}

	a.logger.Info("analysis finished",
		"owner", req.Owner,
		"mode", sel.Mode,
		"history_id", item.ID,
		"citations", len(resp.Citations),
		"elapsed", time.Since(start).Round(time.Millisecond).String(),
	)
	return Outcome{Result: result, Item: item}, nil
}

func (a *Analyzer) countFiles(files []media.File) {
	counts := make(map[media.Kind]int)
	for _, f := range files {
		counts[f.Kind]++
	}
	for kind, n := range counts {
		a.metrics.ObserveFiles(string(kind), n)
	}
}

func outcomeOf(err error) string {
	var (
		vErr *strategy.ValidationError
		fErr *media.FileError
		aErr *gemini.APIError
		mErr *strategy.MalformedOutputError
	)
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.As(err, &vErr):
		return metrics.OutcomeInvalid
	case errors.As(err, &fErr):
		return metrics.OutcomeFile
	case errors.As(err, &aErr):
		return metrics.OutcomeModel
	case errors.As(err, &mErr):
		return metrics.OutcomeMalformed
	case errors.Is(err, errRecord):
		return metrics.OutcomeHistory
	default:
		return metrics.OutcomeUnknown
	}
}
