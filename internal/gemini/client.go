package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"golang.org/x/time/rate"
)

const (
	DefaultModel = "gemini-2.5-flash"
	DeepModel    = "gemini-3-pro-preview"
)

type Options struct {
	APIKey     string
	BaseURL    string
	APIVersion string
	HTTPClient *http.Client
	Logger     *slog.Logger

	// RequestsPerMinute paces outbound calls; 0 disables pacing.
	RequestsPerMinute int
}

type Client struct {
	apiKey     string
	baseURL    string
	apiVersion string
	httpClient *http.Client

	// uploadClient shares httpClient's transport without its overall timeout; upload bodies are
	// bounded by the caller's context and the transport's header timeout instead.
	uploadClient *http.Client
	logger       *slog.Logger
	limiter      *rate.Limiter
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	var limiter *rate.Limiter
	if opts.RequestsPerMinute > 0 {
		limiter = rate.NewLimiter(rate.Limit(float64(opts.RequestsPerMinute)/60.0), 1)
	}

	return &Client{
		apiKey:       opts.APIKey,
		baseURL:      baseURL,
		apiVersion:   apiVersion,
		httpClient:   opts.HTTPClient,
		uploadClient: withoutTimeout(opts.HTTPClient),
		logger:       logger,
		limiter:      limiter,
	}
}

func withoutTimeout(hc *http.Client) *http.Client {
	if hc == nil {
		return nil
	}
	uc := *hc
	uc.Timeout = 0
	return &uc
}

// Generate performs a single generateContent call. It never retries.
func (c *Client) Generate(ctx context.Context, req Request) (Response, error) {
	if req.Schema != nil && req.Search {
		return Response{}, &APIError{Kind: KindBadRequest, Err: ErrSchemaWithSearch}
	}
	if len(req.Parts) == 0 {
		return Response{}, &APIError{Kind: KindBadRequest, Err: errors.New("request has no parts")}
	}

	model := strings.TrimSpace(req.Model)
	if model == "" {
		model = DefaultModel
	}

	var cfg generationConfig
	cfg.Temperature = req.Temperature
	if req.Schema != nil {
		cfg.ResponseMimeType = "application/json"
		cfg.ResponseSchema = req.Schema
	}
	if req.ThinkingBudget > 0 {
		cfg.ThinkingConfig = &thinkingConfig{ThinkingBudget: req.ThinkingBudget}
	}

	payload := generateContentRequest{
		Contents:         []content{{Role: "user", Parts: req.Parts}},
		GenerationConfig: cfg,
	}
	if req.Search {
		payload.Tools = []tool{{GoogleSearch: &struct{}{}}}
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	var decoded generateContentResponse
	if err := c.doJSON(ctx, http.MethodPost, url, payload, &decoded); err != nil {
		return Response{}, err
	}

	resp := extractResponse(decoded)
	c.logger.Debug("gemini generate done",
		"model", model,
		"schema", req.Schema != nil,
		"search", req.Search,
		"text_len", len(resp.Text),
		"citations", len(resp.Citations),
	)
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, url string, in any, out any) error {
	if c.httpClient == nil {
		return errors.New("http client is nil")
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		httpReq.Header.Set("content-type", "application/json")
	}
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	rawBody, err := c.send(ctx, c.httpClient, httpReq)
	if err != nil {
		return err
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rawBody, out); err != nil {
		return &APIError{Kind: KindUnknown, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (c *Client) send(ctx context.Context, hc *http.Client, httpReq *http.Request) ([]byte, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &APIError{Kind: KindUnknown, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	httpResp, err := hc.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, &APIError{Kind: KindUnknown, Err: fmt.Errorf("request: %w", err)}
		}
		return nil, newTransportError(fmt.Errorf("request: %w", err))
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, newTransportError(fmt.Errorf("read response: %w", err))
	}

	if httpResp.StatusCode >= 400 {
		apiErr := newHTTPError(httpResp.StatusCode, rawBody)
		c.logger.Warn("gemini request failed", "status", httpResp.StatusCode, "kind", apiErr.Kind)
		return nil, apiErr
	}
	return rawBody, nil
}

func extractResponse(resp generateContentResponse) Response {
	if len(resp.Candidates) == 0 {
		return Response{}
	}

	cand := resp.Candidates[0]
	var textBuilder strings.Builder
	for _, p := range cand.Content.Parts {
		if p.Thought {
			continue
		}
		textBuilder.WriteString(p.Text)
	}

	var citations []Citation
	if cand.GroundingMetadata != nil {
		seen := make(map[string]bool)
		for _, chunk := range cand.GroundingMetadata.GroundingChunks {
			if chunk.Web == nil || chunk.Web.URI == "" || seen[chunk.Web.URI] {
				continue
			}
			seen[chunk.Web.URI] = true
			citations = append(citations, Citation{URI: chunk.Web.URI, Title: chunk.Web.Title})
		}
	}

	return Response{
		Text:      textBuilder.String(),
		Citations: citations,
	}
}

type generateContentRequest struct {
	Contents         []content        `json:"contents"`
	Tools            []tool           `json:"tools,omitempty"`
	GenerationConfig generationConfig `json:"generationConfig,omitempty"`
}

type tool struct {
	GoogleSearch *struct{} `json:"googleSearch,omitempty"`
}

type generationConfig struct {
	Temperature      float64         `json:"temperature,omitempty"`
	ResponseMimeType string          `json:"responseMimeType,omitempty"`
	ResponseSchema   *Schema         `json:"responseSchema,omitempty"`
	ThinkingConfig   *thinkingConfig `json:"thinkingConfig,omitempty"`
}

type thinkingConfig struct {
	ThinkingBudget int `json:"thinkingBudget,omitempty"`
}

type content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

type responsePart struct {
	Text    string `json:"text,omitempty"`
	Thought bool   `json:"thought,omitempty"`
}

type generateContentResponse struct {
	Candidates []candidate `json:"candidates"`
}

type candidate struct {
	Content struct {
		Parts []responsePart `json:"parts"`
	} `json:"content"`
	GroundingMetadata *groundingMetadata `json:"groundingMetadata,omitempty"`
}

type groundingMetadata struct {
	GroundingChunks []struct {
		Web *struct {
			URI   string `json:"uri"`
			Title string `json:"title"`
		} `json:"web,omitempty"`
	} `json:"groundingChunks"`
}
