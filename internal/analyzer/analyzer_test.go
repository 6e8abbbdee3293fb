package analyzer

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viral-strategy-ai/internal/gemini"
	"viral-strategy-ai/internal/history"
	"viral-strategy-ai/internal/media"
	"viral-strategy-ai/internal/storage"
	"viral-strategy-ai/internal/strategy"
)

type fakeModel struct {
	mu       sync.Mutex
	requests []gemini.Request
	resp     gemini.Response
	err      error
}

func (m *fakeModel) Generate(ctx context.Context, req gemini.Request) (gemini.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	return m.resp, m.err
}

func (m *fakeModel) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

type failingUploader struct {
	uploads int
}

func (u *failingUploader) UploadFile(ctx context.Context, displayName, mimeType string, r io.Reader, size int64) (gemini.File, error) {
	u.uploads++
	return gemini.File{Name: "files/" + displayName, State: gemini.FileStateProcessing}, nil
}

func (u *failingUploader) GetFile(ctx context.Context, name string) (gemini.File, error) {
	return gemini.File{Name: name, State: gemini.FileStateFailed}, nil
}

type recorder struct {
	mu       sync.Mutex
	outcomes []string
	kinds    []string
	files    map[string]int
}

func (r *recorder) ObserveAnalysis(mode, platform, outcome string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.outcomes = append(r.outcomes, outcome)
}

func (r *recorder) ObserveModelError(kind string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds = append(r.kinds, kind)
}

func (r *recorder) ObserveFiles(kind string, n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.files == nil {
		r.files = make(map[string]int)
	}
	r.files[kind] += n
}

func newAnalyzer(t *testing.T, model Model, prep Preparer) (*Analyzer, *history.Store, *recorder) {
	t.Helper()
	store := history.NewStore(history.Options{Backend: storage.NewMemory()})
	rec := &recorder{}
	a := New(Options{
		Model:    model,
		Preparer: prep,
		History:  store,
		Models:   strategy.Models{Default: "fast", Deep: "deep", DeepThinkingBudget: 2048},
		Metrics:  rec,
	})
	return a, store, rec
}

func spool(t *testing.T, name, mimeType string, size int) media.File {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o600))
	return media.File{ID: name, Name: name, MimeType: mimeType, Kind: media.KindOf(mimeType), Size: int64(size), Path: path}
}

const generationJSON = `{"virality":{"score":72,"verdict":"Good"},"strategy":{"hook":"Stop scrolling","caption":"c","hashtags":["coffee"]},"seo":{"keywords":["cold brew"]},"optimizationIdeas":["shorter intro"]}`

func TestRun_GenerateWithImage(t *testing.T) {
	model := &fakeModel{resp: gemini.Response{Text: "```json\n" + generationJSON + "\n```"}}
	prep := media.NewPreparer(media.Options{})
	a, store, rec := newAnalyzer(t, model, prep)

	out, err := a.Run(context.Background(), Request{
		Owner: "alice",
		Selection: strategy.Selection{
			Mode:     strategy.ModeGenerate,
			Platform: strategy.PlatformInstagram,
			Format:   strategy.FormatReel,
		},
		Files: []media.File{spool(t, "shot.png", "image/png", 64)},
	})
	require.NoError(t, err)

	gen, ok := out.Result.(strategy.GenerationResult)
	require.True(t, ok)
	assert.Equal(t, 72, gen.Virality.Score)
	assert.Equal(t, "Stop scrolling", out.Item.Summary)

	require.Equal(t, 1, model.calls())
	req := model.requests[0]
	assert.Equal(t, "fast", req.Model)
	assert.NotNil(t, req.Schema)
	assert.False(t, req.Search)
	require.Len(t, req.Parts, 2)
	assert.NotEmpty(t, req.Parts[0].Text)
	require.NotNil(t, req.Parts[1].InlineData)
	assert.Equal(t, "image/png", req.Parts[1].InlineData.MimeType)

	items, err := store.List(context.Background(), "alice")
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, out.Item.ID, items[0].ID)
	assert.Equal(t, strategy.PlatformInstagram, items[0].Platform)

	assert.Equal(t, []string{"ok"}, rec.outcomes)
	assert.Equal(t, 1, rec.files["image"])
}

func TestRun_RefineUsesDeepModel(t *testing.T) {
	model := &fakeModel{resp: gemini.Response{Text: `{"refineData":{"baselineScore":40,"finalScore":80,"changes":["hook"]}}`}}
	a, _, _ := newAnalyzer(t, model, nil)

	out, err := a.Run(context.Background(), Request{Selection: strategy.Selection{
		Mode:   strategy.ModeRefine,
		Config: strategy.Config{Draft: "my draft"},
	}})
	require.NoError(t, err)
	assert.Equal(t, 80, out.Result.(strategy.RefineResult).RefineData.FinalScore)

	req := model.requests[0]
	assert.Equal(t, "deep", req.Model)
	assert.Equal(t, 2048, req.ThinkingBudget)
	assert.NotNil(t, req.Schema)
}

func TestRun_SpyAttachesCitations(t *testing.T) {
	citations := []gemini.Citation{{URI: "https://example.com/post", Title: "Post"}}
	model := &fakeModel{resp: gemini.Response{
		Text:      `Here you go: {"spyReport":[{"analysis":"a","keywords":"k","strategy":"s","learning":"l"}]}`,
		Citations: citations,
	}}
	a, _, _ := newAnalyzer(t, model, nil)

	out, err := a.Run(context.Background(), Request{Selection: strategy.Selection{
		Mode:     strategy.ModeSpy,
		Platform: strategy.PlatformYouTube,
		Config:   strategy.Config{Competitor: "@rival"},
	}})
	require.NoError(t, err)

	spy := out.Result.(strategy.SpyResult)
	assert.Len(t, spy.CompetitorInsights.SpyReport, 1)
	assert.Equal(t, citations, spy.GroundingMetadata.Sources)

	req := model.requests[0]
	assert.True(t, req.Search)
	assert.Nil(t, req.Schema)
}

func TestRun_ValidationSendsNothing(t *testing.T) {
	model := &fakeModel{}
	a, store, rec := newAnalyzer(t, model, nil)

	_, err := a.Run(context.Background(), Request{Selection: strategy.Selection{Mode: strategy.ModeTrend}})
	var vErr *strategy.ValidationError
	require.True(t, errors.As(err, &vErr))
	assert.Equal(t, KindValidation, KindOf(err))
	assert.Zero(t, model.calls())

	items, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, []string{"invalid"}, rec.outcomes)
}

func TestRun_MalformedOutputLeavesHistoryUnchanged(t *testing.T) {
	model := &fakeModel{resp: gemini.Response{Text: "invalid{{{"}}
	a, store, rec := newAnalyzer(t, model, nil)

	_, err := a.Run(context.Background(), Request{Owner: "bob", Selection: strategy.Selection{
		Mode:   strategy.ModeGenerate,
		Config: strategy.Config{Topic: "sourdough"},
	}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, strategy.ErrMalformedOutput))
	assert.Equal(t, KindMalformed, KindOf(err))
	assert.Contains(t, UserMessage(err), "could not be read")

	items, err := store.List(context.Background(), "bob")
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Equal(t, []string{"malformed"}, rec.outcomes)
}

func TestRun_FailedUploadNeverCallsModel(t *testing.T) {
	model := &fakeModel{}
	uploader := &failingUploader{}
	prep := media.NewPreparer(media.Options{
		Policy:   media.Policy{InlineLimitBytes: 16, PollInterval: time.Millisecond},
		Uploader: uploader,
	})
	a, store, _ := newAnalyzer(t, model, prep)

	_, err := a.Run(context.Background(), Request{
		Selection: strategy.Selection{Mode: strategy.ModeGenerate},
		Files: []media.File{
			spool(t, "small.png", "image/png", 8),
			spool(t, "deck.pdf", "application/pdf", 64),
		},
	})

	var fErr *media.FileError
	require.True(t, errors.As(err, &fErr))
	assert.Equal(t, "deck.pdf", fErr.Name)
	assert.True(t, errors.Is(err, media.ErrUploadFailed))
	assert.Equal(t, KindFile, KindOf(err))
	assert.Contains(t, UserMessage(err), "deck.pdf")

	assert.Equal(t, 1, uploader.uploads)
	assert.Zero(t, model.calls())

	items, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestRun_ModelErrorKinds(t *testing.T) {
	model := &fakeModel{err: &gemini.APIError{Kind: gemini.KindRateLimited, StatusCode: 429, Message: "quota"}}
	a, store, rec := newAnalyzer(t, model, nil)

	_, err := a.Run(context.Background(), Request{Selection: strategy.Selection{
		Mode:   strategy.ModeTrend,
		Config: strategy.Config{Niche: "fitness"},
	}})
	require.Error(t, err)
	assert.Equal(t, Kind(gemini.KindRateLimited), KindOf(err))
	assert.Equal(t, []string{"rate_limited"}, rec.kinds)
	assert.Equal(t, []string{"model_error"}, rec.outcomes)

	items, err := store.List(context.Background(), "")
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUserMessage_DistinctPerKind(t *testing.T) {
	errs := []error{
		&strategy.ValidationError{Mode: strategy.ModeSpy, Field: "competitor or niche"},
		&media.FileError{Name: "a.mp4", Err: media.ErrTooLarge},
		&media.FileError{Name: "a.mp4", Err: media.ErrPollTimeout},
		&media.FileError{Name: "a.mp4", Err: media.ErrUploadFailed},
		&gemini.APIError{Kind: gemini.KindUnauthorized},
		&gemini.APIError{Kind: gemini.KindRateLimited},
		&gemini.APIError{Kind: gemini.KindBadRequest},
		&gemini.APIError{Kind: gemini.KindServiceUnavailable},
		&gemini.APIError{Kind: gemini.KindUnknown},
		&strategy.MalformedOutputError{Excerpt: "x"},
		context.DeadlineExceeded,
	}

	seen := make(map[string]bool)
	for _, err := range errs {
		msg := UserMessage(err)
		require.NotEmpty(t, msg)
		assert.False(t, seen[msg], "duplicate message %q", msg)
		seen[msg] = true
	}
	assert.Empty(t, UserMessage(nil))
}
