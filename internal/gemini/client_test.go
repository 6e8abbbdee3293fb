package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viral-strategy-ai/internal/httpclient"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(Options{APIKey: "test-key", BaseURL: srv.URL, HTTPClient: srv.Client()})
}

func TestGenerate_SchemaRequest(t *testing.T) {
	var captured map[string]any
	var path string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = io.WriteString(w, `{"candidates":[{"content":{"parts":[{"text":"{\"a\":"},{"text":"1}"}]}}]}`)
	})

	resp, err := c.Generate(context.Background(), Request{
		Model:          DeepModel,
		Parts:          []Part{TextPart("hello"), InlinePart("AAAA", "image/png")},
		Schema:         &Schema{Type: "OBJECT"},
		ThinkingBudget: 32768,
	})
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, resp.Text)
	assert.Equal(t, "/v1beta/models/"+DeepModel+":generateContent", path)

	cfg := captured["generationConfig"].(map[string]any)
	assert.Equal(t, "application/json", cfg["responseMimeType"])
	assert.NotNil(t, cfg["responseSchema"])
	assert.Equal(t, float64(32768), cfg["thinkingConfig"].(map[string]any)["thinkingBudget"])
	assert.Nil(t, captured["tools"])
}

func TestGenerate_SearchRequestAndCitations(t *testing.T) {
	var captured map[string]any
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = io.WriteString(w, `{"candidates":[{
			"content":{"parts":[{"text":"thinking","thought":true},{"text":"[]"}]},
			"groundingMetadata":{"groundingChunks":[
				{"web":{"uri":"https://a.example","title":"A"}},
				{"web":{"uri":"https://a.example","title":"A again"}},
				{"web":{"uri":"https://b.example","title":"B"}}
			]}
		}]}`)
	})

	resp, err := c.Generate(context.Background(), Request{Parts: []Part{TextPart("trends")}, Search: true})
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Text)
	assert.Equal(t, []Citation{{URI: "https://a.example", Title: "A"}, {URI: "https://b.example", Title: "B"}}, resp.Citations)

	tools := captured["tools"].([]any)
	require.Len(t, tools, 1)
	assert.Contains(t, tools[0].(map[string]any), "googleSearch")
	cfg, _ := captured["generationConfig"].(map[string]any)
	assert.Nil(t, cfg["responseSchema"])
}

func TestGenerate_RefusesSchemaWithSearch(t *testing.T) {
	called := false
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) { called = true })

	_, err := c.Generate(context.Background(), Request{
		Parts:  []Part{TextPart("x")},
		Schema: &Schema{Type: "OBJECT"},
		Search: true,
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSchemaWithSearch))
	assert.Equal(t, KindBadRequest, KindOf(err))
	assert.False(t, called)
}

func TestGenerate_ErrorKinds(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		want   ErrorKind
	}{
		{"invalid key", 400, `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`, KindUnauthorized},
		{"forbidden", 403, `{"error":{"code":403,"message":"denied","status":"PERMISSION_DENIED"}}`, KindUnauthorized},
		{"rate limited", 429, `{"error":{"code":429,"message":"quota","status":"RESOURCE_EXHAUSTED"}}`, KindRateLimited},
		{"bad request", 400, `{"error":{"code":400,"message":"bad field","status":"INVALID_ARGUMENT"}}`, KindBadRequest},
		{"overloaded", 503, `{"error":{"code":503,"message":"overloaded","status":"UNAVAILABLE"}}`, KindServiceUnavailable},
		{"plain text body", 500, `boom`, KindServiceUnavailable},
		{"teapot", 418, `?`, KindUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = io.WriteString(w, tt.body)
			})
			_, err := c.Generate(context.Background(), Request{Parts: []Part{TextPart("x")}})
			require.Error(t, err)

			var apiErr *APIError
			require.True(t, errors.As(err, &apiErr))
			assert.Equal(t, tt.want, apiErr.Kind)
			assert.Equal(t, tt.status, apiErr.StatusCode)
		})
	}
}

func TestUploadFileAndGetFile(t *testing.T) {
	var uploaded string
	mux := http.NewServeMux()
	var srvURL string
	mux.HandleFunc("/upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "resumable", r.Header.Get("X-Goog-Upload-Protocol"))
		assert.Equal(t, "start", r.Header.Get("X-Goog-Upload-Command"))
		assert.Equal(t, "5", r.Header.Get("X-Goog-Upload-Header-Content-Length"))
		assert.Equal(t, "application/pdf", r.Header.Get("X-Goog-Upload-Header-Content-Type"))
		w.Header().Set("X-Goog-Upload-URL", srvURL+"/resumable/1")
	})
	mux.HandleFunc("/resumable/1", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "upload, finalize", r.Header.Get("X-Goog-Upload-Command"))
		b, _ := io.ReadAll(r.Body)
		uploaded = string(b)
		_, _ = io.WriteString(w, `{"file":{"name":"files/abc","uri":"https://files/abc","mimeType":"application/pdf","state":"PROCESSING"}}`)
	})
	mux.HandleFunc("/v1beta/files/abc", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"name":"files/abc","uri":"https://files/abc","mimeType":"application/pdf","state":"ACTIVE"}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	c := New(Options{APIKey: "k", BaseURL: srv.URL, HTTPClient: srv.Client()})

	f, err := c.UploadFile(context.Background(), "deck.pdf", "application/pdf", strings.NewReader("hello"), 5)
	require.NoError(t, err)
	assert.Equal(t, "hello", uploaded)
	assert.Equal(t, File{Name: "files/abc", URI: "https://files/abc", MimeType: "application/pdf", State: FileStateProcessing}, f)

	f, err = c.GetFile(context.Background(), f.Name)
	require.NoError(t, err)
	assert.Equal(t, FileStateReady, f.State)
}

func TestMapFileState(t *testing.T) {
	assert.Equal(t, FileStateReady, mapFileState("ACTIVE"))
	assert.Equal(t, FileStateProcessing, mapFileState("PROCESSING"))
	assert.Equal(t, FileStateFailed, mapFileState("FAILED"))
	assert.Equal(t, FileStatePending, mapFileState("STATE_UNSPECIFIED"))
}

type trickleReader struct {
	data  []byte
	delay time.Duration
}

func (r *trickleReader) Read(p []byte) (int, error) {
	if len(r.data) == 0 {
		return 0, io.EOF
	}
	if len(p) == 0 {
		return 0, nil
	}
	time.Sleep(r.delay)
	n := copy(p[:1], r.data)
	r.data = r.data[n:]
	return n, nil
}

func TestUploadFile_SlowBodyOutlivesCallTimeout(t *testing.T) {
	var srvURL string
	var uploaded string
	mux := http.NewServeMux()
	mux.HandleFunc("/upload/v1beta/files", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Goog-Upload-URL", srvURL+"/resumable/slow")
	})
	mux.HandleFunc("/resumable/slow", func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		uploaded = string(b)
		_, _ = io.WriteString(w, `{"file":{"name":"files/slow","uri":"https://files/slow","mimeType":"video/mp4","state":"PROCESSING"}}`)
	})
	mux.HandleFunc("/v1beta/models/slow:generateContent", func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(time.Second)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	srvURL = srv.URL

	hc := httpclient.New(httpclient.Options{Timeout: 300 * time.Millisecond})
	c := New(Options{APIKey: "k", BaseURL: srv.URL, HTTPClient: hc})

	body := strings.Repeat("v", 20)
	f, err := c.UploadFile(context.Background(), "clip.mp4", "video/mp4", &trickleReader{data: []byte(body), delay: 50 * time.Millisecond}, int64(len(body)))
	require.NoError(t, err)
	assert.Equal(t, body, uploaded)
	assert.Equal(t, "files/slow", f.Name)

	// Model calls still obey the shared client's timeout.
	_, err = c.Generate(context.Background(), Request{Model: "slow", Parts: []Part{TextPart("hi")}})
	require.Error(t, err)
	assert.Equal(t, 300*time.Millisecond, hc.Timeout)
}
