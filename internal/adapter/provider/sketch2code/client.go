// Package sketch2code is the HTTP client for the remote sketch conversion
// service and its blob store.
//
// Every call is a single attempt. Callers decide whether to repeat an
// operation; the client never retries on its own.
package sketch2code

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultAPIURL  = "https://s2c.shashwat.workers.dev"
	DefaultBlobURL = "https://s2cblob.shashwat.workers.dev"

	defaultTimeout = 60 * time.Second
	// maxBodyBytes caps any response body read into memory.
	maxBodyBytes = 32 << 20
)

// Client talks to one API base and one blob base.
type Client struct {
	apiURL     string
	blobURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// NewClient creates a Client for the given endpoints.
func NewClient(apiURL, blobURL string, timeout time.Duration, logger *slog.Logger) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return NewClientWithHTTP(apiURL, blobURL, &http.Client{Timeout: timeout}, logger)
}

// NewClientWithHTTP creates a Client with a caller-supplied http.Client (for testing).
func NewClientWithHTTP(apiURL, blobURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	return &Client{
		apiURL:     strings.TrimRight(apiURL, "/"),
		blobURL:    strings.TrimRight(blobURL, "/"),
		httpClient: httpClient,
		log:        logger.With("adapter", "sketch2code"),
	}
}

// APIURL returns the API base the client was built with.
func (c *Client) APIURL() string { return c.apiURL }

// BlobURL returns the blob base the client was built with.
func (c *Client) BlobURL() string { return c.blobURL }

type saveOriginalResponse struct {
	FolderID string `json:"folderId"`
}

// SaveOriginalFile stores a base64 payload and returns the folder id the
// service assigned to it. A data-URI prefix ("data:...;base64,") is stripped
// before sending.
func (c *Client) SaveOriginalFile(ctx context.Context, payload string) (string, error) {
	form := url.Values{"imgBase64": {StripDataURI(payload)}}

	body, err := c.postForm(ctx, "/SaveOriginalFile", form)
	if err != nil {
		return "", err
	}

	var resp saveOriginalResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("sketch2code: decode save response: %w", err)
	}
	if resp.FolderID == "" {
		return "", fmt.Errorf("sketch2code: save response has no folderId")
	}

	c.log.DebugContext(ctx, "original file saved", slog.String("folder_id", resp.FolderID))

	return resp.FolderID, nil
}

// Upload asks the service to convert the file stored under correlationID.
// The service acknowledges without signalling completion.
func (c *Client) Upload(ctx context.Context, correlationID string) error {
	_, err := c.postForm(ctx, "/upload", url.Values{"correlationId": {correlationID}})
	return err
}

// LayoutResult returns the rendered HTML for folderID.
func (c *Client) LayoutResult(ctx context.Context, folderID string) (string, error) {
	body, err := c.get(ctx, c.ResultURL(folderID, nil))
	if err != nil {
		return "", err
	}
	return string(body), nil
}

// Fetch downloads any client-accessible URL, typically an attachment.
func (c *Client) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	return c.get(ctx, rawURL)
}

// OriginalURL returns the blob URL of the file stored under folderID.
func (c *Client) OriginalURL(folderID string, params url.Values) string {
	u := c.blobURL + "/" + url.PathEscape(folderID) + "/original.png"
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// ResultURL returns the layout result URL for folderID.
func (c *Client) ResultURL(folderID string, params url.Values) string {
	u := c.apiURL + "/layout/result/" + url.PathEscape(folderID)
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	return u
}

// Ping reports whether the API base answers at all. Any response below 500
// counts as reachable; the service has no dedicated health route.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.apiURL+"/", nil)
	if err != nil {
		return fmt.Errorf("sketch2code: create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("sketch2code: ping: %w", err)
	}
	resp.Body.Close()

	if resp.StatusCode >= 500 {
		return &StatusError{Method: req.Method, Path: req.URL.Path, StatusCode: resp.StatusCode}
	}
	return nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("sketch2code: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	return c.do(ctx, req)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("sketch2code: create request: %w", err)
	}
	return c.do(ctx, req)
}

func (c *Client) do(ctx context.Context, req *http.Request) ([]byte, error) {
	start := time.Now()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.ErrorContext(ctx, "sketch2code request failed",
			slog.String("method", req.Method),
			slog.String("path", req.URL.Path),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("sketch2code: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("sketch2code: read body: %w", err)
	}

	c.log.DebugContext(ctx, "sketch2code response",
		slog.String("method", req.Method),
		slog.String("path", req.URL.Path),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{Method: req.Method, Path: req.URL.Path, StatusCode: resp.StatusCode}
	}

	return body, nil
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	Method     string
	Path       string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sketch2code: %s %s: unexpected status %d", e.Method, e.Path, e.StatusCode)
}
