package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// UploadFile stages a file through the resumable Files API protocol (start + upload/finalize).
func (c *Client) UploadFile(ctx context.Context, displayName, mimeType string, r io.Reader, size int64) (File, error) {
	if c.httpClient == nil {
		return File{}, errors.New("http client is nil")
	}

	meta, err := json.Marshal(map[string]any{"file": map[string]string{"display_name": displayName}})
	if err != nil {
		return File{}, fmt.Errorf("marshal upload metadata: %w", err)
	}

	startURL := fmt.Sprintf("%s/upload/%s/files", c.baseURL, c.apiVersion)
	startReq, err := http.NewRequestWithContext(ctx, http.MethodPost, startURL, bytes.NewReader(meta))
	if err != nil {
		return File{}, fmt.Errorf("create upload request: %w", err)
	}
	startReq.Header.Set("x-goog-api-key", c.apiKey)
	startReq.Header.Set("content-type", "application/json")
	startReq.Header.Set("X-Goog-Upload-Protocol", "resumable")
	startReq.Header.Set("X-Goog-Upload-Command", "start")
	startReq.Header.Set("X-Goog-Upload-Header-Content-Length", strconv.FormatInt(size, 10))
	startReq.Header.Set("X-Goog-Upload-Header-Content-Type", mimeType)

	uploadURL, err := c.startUpload(ctx, startReq)
	if err != nil {
		return File{}, err
	}

	dataReq, err := http.NewRequestWithContext(ctx, http.MethodPost, uploadURL, r)
	if err != nil {
		return File{}, fmt.Errorf("create upload request: %w", err)
	}
	dataReq.ContentLength = size
	dataReq.Header.Set("x-goog-api-key", c.apiKey)
	dataReq.Header.Set("X-Goog-Upload-Offset", "0")
	dataReq.Header.Set("X-Goog-Upload-Command", "upload, finalize")

	rawBody, err := c.send(ctx, c.uploadClient, dataReq)
	if err != nil {
		return File{}, err
	}

	var decoded struct {
		File fileResource `json:"file"`
	}
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return File{}, &APIError{Kind: KindUnknown, Err: fmt.Errorf("decode upload response: %w", err)}
	}

	f := decoded.File.toFile()
	c.logger.Debug("gemini file uploaded", "name", f.Name, "state", f.State, "size", size)
	return f, nil
}

// GetFile fetches the current state of a staged file by its resource name ("files/abc").
func (c *Client) GetFile(ctx context.Context, name string) (File, error) {
	name = strings.TrimPrefix(strings.TrimSpace(name), "/")
	if name == "" {
		return File{}, errors.New("file name is empty")
	}

	var res fileResource
	url := fmt.Sprintf("%s/%s/%s", c.baseURL, c.apiVersion, name)
	if err := c.doJSON(ctx, http.MethodGet, url, nil, &res); err != nil {
		return File{}, err
	}
	return res.toFile(), nil
}

func (c *Client) startUpload(ctx context.Context, req *http.Request) (string, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return "", &APIError{Kind: KindUnknown, Err: fmt.Errorf("rate limiter: %w", err)}
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", newTransportError(fmt.Errorf("start upload: %w", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(resp.Body)
		return "", newHTTPError(resp.StatusCode, body)
	}
	_, _ = io.Copy(io.Discard, resp.Body)

	uploadURL := strings.TrimSpace(resp.Header.Get("X-Goog-Upload-URL"))
	if uploadURL == "" {
		return "", &APIError{Kind: KindUnknown, Err: errors.New("upload url missing from start response")}
	}
	return uploadURL, nil
}

type fileResource struct {
	Name     string `json:"name"`
	URI      string `json:"uri"`
	MimeType string `json:"mimeType"`
	State    string `json:"state"`
}

func (r fileResource) toFile() File {
	return File{
		Name:     r.Name,
		URI:      r.URI,
		MimeType: r.MimeType,
		State:    mapFileState(r.State),
	}
}

func mapFileState(state string) FileState {
	switch strings.ToUpper(strings.TrimSpace(state)) {
	case "ACTIVE":
		return FileStateReady
	case "PROCESSING":
		return FileStateProcessing
	case "FAILED":
		return FileStateFailed
	default:
		return FileStatePending
	}
}
