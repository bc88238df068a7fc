// Package client talks to the elasticlm server over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"elasticlm-backend/internal/models"
)

// Client is an elasticlm API client. Token, when set, is sent as a bearer
// token on admin calls.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Token   string
}

func New(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimSuffix(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 10 * time.Minute},
	}
}

// APIError is a non-2xx response. Message is the server's detail or error
// text when it sent one.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned status %d: %s", e.StatusCode, e.Message)
}

func apiError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var payload struct {
		Detail string `json:"detail"`
		Error  json.RawMessage
	}
	msg := strings.TrimSpace(string(body))
	if json.Unmarshal(body, &payload) == nil {
		var s string
		switch {
		case payload.Detail != "":
			msg = payload.Detail
		case json.Unmarshal(payload.Error, &s) == nil && s != "":
			msg = s
		}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: msg}
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, admin bool) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	if admin && c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s %s: %w", method, path, err)
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, apiError(resp)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out interface{}, admin bool) error {
	var body io.Reader
	contentType := ""
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = bytes.NewReader(data)
		contentType = "application/json"
	}

	resp, err := c.do(ctx, method, path, body, contentType, admin)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// Upload sends the file at path for ingestion.
func (c *Client) Upload(ctx context.Context, path string) (*models.UploadAccepted, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return c.UploadReader(ctx, filepath.Base(path), f)
}

// UploadReader sends r as a file named name.
func (c *Client) UploadReader(ctx context.Context, name string, r io.Reader) (*models.UploadAccepted, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("file", name)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	resp, err := c.do(ctx, http.MethodPost, "/upload/", pr, mw.FormDataContentType(), false)
	if err != nil {
		pr.CloseWithError(err)
		return nil, err
	}
	defer resp.Body.Close()

	var accepted models.UploadAccepted
	if err := json.NewDecoder(resp.Body).Decode(&accepted); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	return &accepted, nil
}

func (c *Client) UploadYouTube(ctx context.Context, videoURL string) (*models.UploadAccepted, error) {
	var accepted models.UploadAccepted
	err := c.doJSON(ctx, http.MethodPost, "/upload/youtube", models.YouTubeUploadRequest{URL: videoURL}, &accepted, false)
	if err != nil {
		return nil, err
	}
	return &accepted, nil
}

// Status returns the upload status by file name.
func (c *Client) Status(ctx context.Context, filename string) (*models.UploadStatusResponse, error) {
	return c.status(ctx, url.Values{"filename": {filename}})
}

// StatusByID returns the upload status of one document.
func (c *Client) StatusByID(ctx context.Context, documentID string) (*models.UploadStatusResponse, error) {
	return c.status(ctx, url.Values{"document_id": {documentID}})
}

func (c *Client) status(ctx context.Context, q url.Values) (*models.UploadStatusResponse, error) {
	var st models.UploadStatusResponse
	if err := c.doJSON(ctx, http.MethodGet, "/upload/status?"+q.Encode(), nil, &st, false); err != nil {
		return nil, err
	}
	return &st, nil
}

// Chat sends the conversation and calls fn with each chunk of the streamed
// answer as it arrives. It returns the chat id assigned by the server.
func (c *Client) Chat(ctx context.Context, req *models.ChatRequest, fn func(chunk string) error) (string, error) {
	data, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/chat/", bytes.NewReader(data), "application/json", false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	buf := make([]byte, 4096)
	for {
		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if err := fn(string(buf[:n])); err != nil {
				return "", err
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("reading stream: %w", readErr)
		}
	}
	return resp.Header.Get("X-Chat-ID"), nil
}

type DocumentList struct {
	Documents []models.Document `json:"documents"`
	Total     int               `json:"total"`
}

func (c *Client) ListDocuments(ctx context.Context) (*DocumentList, error) {
	var list DocumentList
	if err := c.doJSON(ctx, http.MethodGet, "/admin/documents", nil, &list, true); err != nil {
		return nil, err
	}
	return &list, nil
}

// DeleteDocument removes a document and its indexed content.
func (c *Client) DeleteDocument(ctx context.Context, documentID string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	path := "/admin/documents?" + url.Values{"document_id": {documentID}}.Encode()
	if err := c.doJSON(ctx, http.MethodDelete, path, nil, &resp, true); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// WikiSearch runs the travel-guide search against the given cluster.
func (c *Client) WikiSearch(ctx context.Context, req *models.WikiSearchRequest) ([]json.RawMessage, error) {
	return c.proxy(ctx, "/api/search", req)
}

func (c *Client) GeoSearch(ctx context.Context, req *models.GeoSearchRequest) ([]json.RawMessage, error) {
	return c.proxy(ctx, "/api/geo-search", req)
}

func (c *Client) proxy(ctx context.Context, path string, in interface{}) ([]json.RawMessage, error) {
	var resp struct {
		Success bool              `json:"success"`
		Data    []json.RawMessage `json:"data"`
	}
	if err := c.doJSON(ctx, http.MethodPost, path, in, &resp, false); err != nil {
		return nil, err
	}
	return resp.Data, nil
}

// ValidateElasticsearch checks a cluster URL and API key through the server.
func (c *Client) ValidateElasticsearch(ctx context.Context, req *models.ValidateRequest) (*models.ProxyResponse, error) {
	var resp models.ProxyResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/validate-elasticsearch", req, &resp, false); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) BooksChat(ctx context.Context, query string, history []string) (string, error) {
	var resp models.BooksChatResponse
	req := models.BooksChatRequest{Query: query, History: history}
	if err := c.doJSON(ctx, http.MethodPost, "/api/books-chat", req, &resp, false); err != nil {
		return "", err
	}
	return resp.Response, nil
}
