// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/jeranaias/rigchat-tui/internal/sse"
)

// Configuration constants for the rigchat server API.
const (
	// DefaultTimeout is the default timeout for non-streaming requests.
	DefaultTimeout = 60 * time.Second

	// DefaultMaxRetries is the default number of retry attempts for
	// transient errors on non-streaming requests.
	DefaultMaxRetries = 3

	// retryBaseDelay is the base delay for exponential backoff.
	retryBaseDelay = 500 * time.Millisecond

	// retryMaxDelay is the maximum delay for exponential backoff.
	retryMaxDelay = 10 * time.Second

	// MaxResponseSize caps non-streaming response bodies.
	MaxResponseSize = 10 * 1024 * 1024 // 10MB
)

var (
	// PERFORMANCE: Connection pooling reduces TCP handshake overhead.
	// Shared HTTP client for all request/response calls.
	sharedHTTPClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
		Timeout: DefaultTimeout,
	}

	// sharedStreamingClient is used for streaming requests. No client
	// timeout: stream lifetime is controlled via context.
	sharedStreamingClient = &http.Client{
		Transport: &http.Transport{
			MaxIdleConns:        100,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
			TLSHandshakeTimeout: 10 * time.Second,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNotConfigured indicates the server base URL is not set.
	ErrNotConfigured = errors.New("rigchat server URL not configured")

	// ErrStreamUnavailable indicates the streaming transport could not be
	// established; callers degrade to the non-streaming fallback.
	ErrStreamUnavailable = errors.New("streaming transport unavailable")

	// ErrChatNotFound indicates the addressed chat does not exist.
	ErrChatNotFound = errors.New("chat not found")

	// ErrRateLimited indicates too many requests were made.
	ErrRateLimited = errors.New("rate limited")
)

// APIError represents a structured error response from the server.
type APIError struct {
	Status  int
	Code    string
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("rigchat server error [%s] (HTTP %d): %s", e.Code, e.Status, e.Message)
	}
	return fmt.Sprintf("rigchat server error (HTTP %d): %s", e.Status, e.Message)
}

// Is allows APIError comparison against sentinel errors.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrChatNotFound:
		return e.Status == http.StatusNotFound
	case ErrRateLimited:
		return e.Status == http.StatusTooManyRequests
	}
	return false
}

// ProviderError is a structured failure of the upstream model provider
// (e.g. quota exhaustion), relayed by the server. It is distinguished from
// transport faults: the session engine writes it into the assistant message
// instead of failing the send.
type ProviderError struct {
	Message string
}

// Error implements the error interface.
func (e *ProviderError) Error() string {
	return e.Message
}

// apiErrorResponse is the server's JSON error envelope.
type apiErrorResponse struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// =============================================================================
// WIRE TYPES
// =============================================================================

// Chat is the wire representation of a chat.
type Chat struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	ModelID      string    `json:"modelId"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	MessageCount int       `json:"messageCount"`
	Shared       bool      `json:"shared,omitempty"`
	ShareToken   string    `json:"shareToken,omitempty"`
	ParentChatID string    `json:"parentChatId,omitempty"`
}

// SendRequest describes one send operation.
type SendRequest struct {
	ChatID        string   `json:"chatId"`
	Content       string   `json:"content"`
	ModelID       string   `json:"modelId,omitempty"`
	AttachmentIDs []string `json:"attachmentIds,omitempty"`
}

// CancelRequest asks the server to durably save partial content before the
// client aborts the transport.
type CancelRequest struct {
	ChatID         string `json:"chatId"`
	PartialContent string `json:"partialContent"`
	ModelID        string `json:"modelId,omitempty"`
}

// CancelResponse carries the server-confirmed saved message.
type CancelResponse struct {
	Message   sse.Message `json:"message"`
	Cancelled bool        `json:"cancelled"`
}

// FetchChatResponse carries a chat and its authoritative messages, oldest
// first.
type FetchChatResponse struct {
	Chat     Chat          `json:"chat"`
	Messages []sse.Message `json:"messages"`
}

// AttachmentInfo is the server's record of an uploaded attachment.
type AttachmentInfo struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}

// sendResponse is the non-streaming send/retry result.
type sendResponse struct {
	Message sse.Message `json:"message"`
}

// titleResponse is the generate-title result.
type titleResponse struct {
	Title string `json:"title"`
}

// =============================================================================
// CLIENT
// =============================================================================

// Client is an HTTP client for the rigchat server.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	streamClient *http.Client
	maxRetries   int
	queueSize    int
}

// NewClient creates a client for the given server base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		httpClient:   sharedHTTPClient,
		streamClient: sharedStreamingClient,
		maxRetries:   DefaultMaxRetries,
		queueSize:    0, // iterator default
	}
}

// WithHTTPClient overrides both HTTP clients. Used by tests.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	c.httpClient = hc
	c.streamClient = hc
	return c
}

// WithMaxRetries sets the maximum number of retry attempts.
func (c *Client) WithMaxRetries(maxRetries int) *Client {
	c.maxRetries = maxRetries
	return c
}

// WithQueueSize sets the iterator queue bound for streams this client
// opens.
func (c *Client) WithQueueSize(n int) *Client {
	c.queueSize = n
	return c
}

// IsConfigured returns true if the client has a base URL.
func (c *Client) IsConfigured() bool {
	return c.baseURL != ""
}

// =============================================================================
// REST COLLABORATORS
// =============================================================================

// CreateChat creates a new chat on the server.
func (c *Client) CreateChat(ctx context.Context, modelID string) (*Chat, error) {
	body := map[string]string{"modelId": modelID}
	var out struct {
		Chat Chat `json:"chat"`
	}
	if err := c.postJSON(ctx, "/api/chats", body, &out); err != nil {
		return nil, err
	}
	return &out.Chat, nil
}

// FetchChat retrieves a chat and its authoritative messages.
func (c *Client) FetchChat(ctx context.Context, chatID string) (*FetchChatResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/chats/"+chatID, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	var out FetchChatResponse
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CancelStream asks the server to save partial content for a cancelled
// stream. Called before the transport abort so the server never observes a
// severed connection ahead of the save.
func (c *Client) CancelStream(ctx context.Context, req CancelRequest) (*CancelResponse, error) {
	var out CancelResponse
	if err := c.postJSON(ctx, "/api/chats/"+req.ChatID+"/stream/cancel", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GenerateTitle asks the server to derive a chat title from its first
// exchange. Cosmetic; callers swallow failures.
func (c *Client) GenerateTitle(ctx context.Context, chatID string) (string, error) {
	var out titleResponse
	if err := c.postJSON(ctx, "/api/chats/"+chatID+"/title", struct{}{}, &out); err != nil {
		return "", err
	}
	return out.Title, nil
}

// UploadAttachment uploads raw file bytes and returns the server-assigned
// identity and durable URL.
func (c *Client) UploadAttachment(ctx context.Context, filename, fileType string, data []byte) (*AttachmentInfo, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := mw.WriteField("fileType", fileType); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to build upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/attachments", &buf)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out AttachmentInfo
	if err := c.doJSON(req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// =============================================================================
// REQUEST PLUMBING
// =============================================================================

// postJSON issues a JSON POST with retry and decodes the JSON response.
func (c *Client) postJSON(ctx context.Context, path string, body, out any) error {
	if !c.IsConfigured() {
		return ErrNotConfigured
	}

	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doJSON(req, out)
}

// doJSON executes a request with retry/backoff and decodes a JSON body into
// out.
func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.doWithRetry(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// doWithRetry performs a request with exponential backoff on transient
// failures. 4xx responses are returned immediately (except 429).
func (c *Client) doWithRetry(req *http.Request) (*http.Response, error) {
	var bodyBytes []byte
	if req.Body != nil {
		var err error
		bodyBytes, err = io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to buffer request body: %w", err)
		}
		req.Body.Close()
	}

	var lastErr error
	for attempt := 0; attempt < c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := calculateBackoff(attempt)
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(delay):
			}
		}

		attemptReq := req.Clone(req.Context())
		if bodyBytes != nil {
			attemptReq.Body = io.NopCloser(bytes.NewReader(bodyBytes))
		}

		resp, err := c.httpClient.Do(attemptReq)
		if err != nil {
			lastErr = err
			continue
		}

		if resp.StatusCode == http.StatusOK {
			return resp, nil
		}

		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		apiErr := c.classifyError(resp.StatusCode, body)

		// Retry 5xx and 429; everything else is final.
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = apiErr
			continue
		}
		return nil, apiErr
	}

	return nil, fmt.Errorf("max retries exceeded: %w", lastErr)
}

// classifyError maps an error response to a typed error. Structured
// provider failures become *ProviderError so the session engine can render
// them as assistant content instead of failing the send.
func (c *Client) classifyError(status int, body []byte) error {
	var envelope apiErrorResponse
	if err := json.Unmarshal(body, &envelope); err == nil && envelope.Error.Message != "" {
		if envelope.Error.Code == "provider_error" {
			return &ProviderError{Message: envelope.Error.Message}
		}
		return &APIError{Status: status, Code: envelope.Error.Code, Message: envelope.Error.Message}
	}

	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	// SECURITY: never log response bodies, they may echo message content.
	log.Printf("api: request failed with HTTP %d", status)
	return &APIError{Status: status, Message: msg}
}

// calculateBackoff returns the delay before the given retry attempt.
func calculateBackoff(attempt int) time.Duration {
	delay := retryBaseDelay << uint(attempt-1)
	if delay > retryMaxDelay {
		delay = retryMaxDelay
	}
	return delay
}
