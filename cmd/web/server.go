package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"viral-strategy-ai/internal/analyzer"
	"viral-strategy-ai/internal/gemini"
	"viral-strategy-ai/internal/history"
	"viral-strategy-ai/internal/media"
	"viral-strategy-ai/internal/strategy"
)

const (
	ownerHeader   = "X-Owner"
	defaultOwner  = "local"
	maxFieldBytes = 1 << 20
)

type runner interface {
	Run(ctx context.Context, req analyzer.Request) (analyzer.Outcome, error)
}

type serverOptions struct {
	Analyzer       runner
	History        *history.Store
	Policy         media.Policy
	SpoolDir       string
	RequestTimeout time.Duration
	Metrics        http.Handler
	Logger         *slog.Logger
}

type server struct {
	analyzer       runner
	history        *history.Store
	policy         media.Policy
	spoolDir       string
	requestTimeout time.Duration
	metrics        http.Handler
	logger         *slog.Logger

	mu   sync.Mutex
	busy map[string]bool
}

type apiError struct {
	Error   string         `json:"error"`
	Kind    string         `json:"kind,omitempty"`
	Notices []media.Notice `json:"notices,omitempty"`
}

type analyzeResponse struct {
	Mode      strategy.Mode   `json:"mode"`
	Result    strategy.Result `json:"result"`
	HistoryID string          `json:"history_id"`
	Notices   []media.Notice  `json:"notices,omitempty"`
}

type catalogResponse struct {
	Modes     []strategy.NamedOption            `json:"modes"`
	Platforms []strategy.NamedOption            `json:"platforms"`
	Formats   map[string][]strategy.NamedOption `json:"formats"`
}

func newServer(opts serverOptions) *server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 15 * time.Minute
	}
	return &server{
		analyzer:       opts.Analyzer,
		history:        opts.History,
		policy:         opts.Policy,
		spoolDir:       opts.SpoolDir,
		requestTimeout: timeout,
		metrics:        opts.Metrics,
		logger:         logger,
		busy:           make(map[string]bool),
	}
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("GET /api/history", s.handleHistoryList)
	mux.HandleFunc("DELETE /api/history", s.handleHistoryClear)
	mux.HandleFunc("GET /api/history/{id}", s.handleHistoryGet)
	mux.HandleFunc("DELETE /api/history/{id}", s.handleHistoryDelete)
	mux.HandleFunc("GET /api/onboarding", s.handleOnboardingGet)
	mux.HandleFunc("POST /api/onboarding", s.handleOnboardingSeen)
	mux.HandleFunc("GET /api/catalog", s.handleCatalog)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
	return withLogging(mux, s.logger)
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	owner := ownerOf(r)
	if !s.acquire(owner) {
		writeJSON(w, http.StatusConflict, apiError{Error: "an analysis is already running", Kind: "busy"})
		return
	}
	defer s.release(owner)

	intake, err := media.NewIntake(s.spoolDir, s.policy)
	if err != nil {
		s.logger.Error("intake unavailable", "err", err)
		writeJSON(w, http.StatusInternalServerError, apiError{Error: "upload storage unavailable", Kind: string(analyzer.KindInternal)})
		return
	}
	defer intake.Close()

	fields, notices, err := readForm(r, intake)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error(), Kind: string(analyzer.KindValidation), Notices: notices})
		return
	}

	sel := strategy.Selection{
		Mode:     strategy.Mode(fields["mode"]),
		Platform: strategy.Platform(fields["platform"]),
		Format:   fields["format"],
		Config: strategy.Config{
			Topic:           fields["topic"],
			Draft:           fields["draft"],
			Competitor:      fields["competitor"],
			Niche:           fields["niche"],
			Goal:            fields["goal"],
			Tones:           strategy.ParseTones(fields["tones"]),
			Keywords:        fields["keywords"],
			Geography:       fields["geography"],
			Audience:        fields["audience"],
			BrandGuidelines: fields["brand_guidelines"],
		},
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	out, err := s.analyzer.Run(ctx, analyzer.Request{Owner: owner, Selection: sel, Files: intake.Files()})
	if err != nil {
		kind := analyzer.KindOf(err)
		writeJSON(w, statusFor(kind), apiError{Error: analyzer.UserMessage(err), Kind: string(kind), Notices: notices})
		return
	}

	writeJSON(w, http.StatusOK, analyzeResponse{
		Mode:      out.Result.Mode(),
		Result:    out.Result,
		HistoryID: out.Item.ID,
		Notices:   notices,
	})
}

// readForm streams a multipart body: files go straight into intake, other parts become fields.
func readForm(r *http.Request, intake *media.Intake) (map[string]string, []media.Notice, error) {
	fields := make(map[string]string)
	var notices []media.Notice

	mr, err := r.MultipartReader()
	if err != nil {
		return nil, nil, errors.New("expected a multipart/form-data body")
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, notices, errors.New("invalid multipart body")
		}

		if part.FileName() != "" {
			_, notice, err := intake.Add(part.FileName(), part.Header.Get("Content-Type"), part)
			part.Close()
			if err != nil {
				return nil, notices, err
			}
			if notice != nil {
				notices = append(notices, *notice)
			}
			continue
		}

		value, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
		part.Close()
		if err != nil {
			return nil, notices, errors.New("invalid multipart body")
		}
		if len(value) > maxFieldBytes {
			return nil, notices, fmt.Errorf("field %q is larger than 1 MB", part.FormName())
		}
		fields[part.FormName()] = strings.TrimSpace(string(value))
	}
	return fields, notices, nil
}

func (s *server) handleHistoryList(w http.ResponseWriter, r *http.Request) {
	items, err := s.history.List(r.Context(), ownerOf(r))
	if err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (s *server) handleHistoryGet(w http.ResponseWriter, r *http.Request) {
	item, ok, err := s.history.Get(r.Context(), ownerOf(r), r.PathValue("id"))
	if err != nil {
		s.storageError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (s *server) handleHistoryDelete(w http.ResponseWriter, r *http.Request) {
	ok, err := s.history.Delete(r.Context(), ownerOf(r), r.PathValue("id"))
	if err != nil {
		s.storageError(w, err)
		return
	}
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "not found"})
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleHistoryClear(w http.ResponseWriter, r *http.Request) {
	if err := s.history.Clear(r.Context(), ownerOf(r)); err != nil {
		s.storageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *server) handleOnboardingGet(w http.ResponseWriter, r *http.Request) {
	seen, err := s.history.OnboardingSeen(r.Context(), ownerOf(r))
	if err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"seen": seen})
}

func (s *server) handleOnboardingSeen(w http.ResponseWriter, r *http.Request) {
	if err := s.history.MarkOnboardingSeen(r.Context(), ownerOf(r)); err != nil {
		s.storageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"seen": true})
}

func (s *server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	formats := make(map[string][]strategy.NamedOption)
	for _, p := range strategy.Platforms() {
		if f := strategy.Formats(strategy.Platform(p.Key)); len(f) > 0 {
			formats[p.Key] = f
		}
	}
	writeJSON(w, http.StatusOK, catalogResponse{
		Modes:     strategy.Modes(),
		Platforms: strategy.Platforms(),
		Formats:   formats,
	})
}

func (s *server) storageError(w http.ResponseWriter, err error) {
	s.logger.Error("storage failure", "err", err)
	writeJSON(w, http.StatusInternalServerError, apiError{Error: "storage unavailable", Kind: string(analyzer.KindInternal)})
}

func (s *server) acquire(owner string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.busy[owner] {
		return false
	}
	s.busy[owner] = true
	return true
}

func (s *server) release(owner string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.busy, owner)
}

func ownerOf(r *http.Request) string {
	if owner := strings.TrimSpace(r.Header.Get(ownerHeader)); owner != "" {
		return owner
	}
	return defaultOwner
}

func statusFor(kind analyzer.Kind) int {
	switch kind {
	case analyzer.KindValidation:
		return http.StatusBadRequest
	case analyzer.KindFile:
		return http.StatusUnprocessableEntity
	case analyzer.Kind(gemini.KindRateLimited):
		return http.StatusTooManyRequests
	case analyzer.Kind(gemini.KindServiceUnavailable):
		return http.StatusServiceUnavailable
	case analyzer.KindTimeout:
		return http.StatusGatewayTimeout
	case analyzer.KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		logger.Info("http",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"owner", ownerOf(r),
			"dur_ms", time.Since(start).Milliseconds(),
		)
	})
}
