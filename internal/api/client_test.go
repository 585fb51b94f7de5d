// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

// =============================================================================
// ERROR CLASSIFICATION TESTS
// =============================================================================

func TestClassifyError(t *testing.T) {
	c := NewClient("http://example.invalid")

	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "provider error envelope",
			status: http.StatusBadGateway,
			body:   `{"error":{"code":"provider_error","message":"quota exceeded"}}`,
			check: func(t *testing.T, err error) {
				var pe *ProviderError
				if !errors.As(err, &pe) {
					t.Fatalf("err = %v, want *ProviderError", err)
				}
				if pe.Message != "quota exceeded" {
					t.Errorf("Message = %q", pe.Message)
				}
			},
		},
		{
			name:   "structured api error",
			status: http.StatusBadRequest,
			body:   `{"error":{"code":"invalid_model","message":"unknown model"}}`,
			check: func(t *testing.T, err error) {
				var ae *APIError
				if !errors.As(err, &ae) {
					t.Fatalf("err = %v, want *APIError", err)
				}
				if ae.Code != "invalid_model" || ae.Status != http.StatusBadRequest {
					t.Errorf("got %+v", ae)
				}
			},
		},
		{
			name:   "plain body",
			status: http.StatusInternalServerError,
			body:   "boom",
			check: func(t *testing.T, err error) {
				var ae *APIError
				if !errors.As(err, &ae) {
					t.Fatalf("err = %v, want *APIError", err)
				}
				if ae.Message != "boom" {
					t.Errorf("Message = %q", ae.Message)
				}
			},
		},
		{
			name:   "empty body falls back to status text",
			status: http.StatusServiceUnavailable,
			body:   "",
			check: func(t *testing.T, err error) {
				var ae *APIError
				if !errors.As(err, &ae) {
					t.Fatalf("err = %v, want *APIError", err)
				}
				if ae.Message != http.StatusText(http.StatusServiceUnavailable) {
					t.Errorf("Message = %q", ae.Message)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, c.classifyError(tt.status, []byte(tt.body)))
		})
	}
}

func TestAPIError_SentinelMatching(t *testing.T) {
	notFound := &APIError{Status: http.StatusNotFound, Message: "no such chat"}
	if !errors.Is(notFound, ErrChatNotFound) {
		t.Error("404 should match ErrChatNotFound")
	}
	if errors.Is(notFound, ErrRateLimited) {
		t.Error("404 should not match ErrRateLimited")
	}

	limited := &APIError{Status: http.StatusTooManyRequests}
	if !errors.Is(limited, ErrRateLimited) {
		t.Error("429 should match ErrRateLimited")
	}
}

// =============================================================================
// RETRY TESTS
// =============================================================================

func TestDoWithRetry_RecoversFromServerError(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, `{"chat":{"id":"c1","title":"New chat"}}`)
	}))
	defer srv.Close()

	chat, err := NewClient(srv.URL).CreateChat(context.Background(), "gpt")
	if err != nil {
		t.Fatalf("CreateChat: %v", err)
	}
	if chat.ID != "c1" {
		t.Errorf("ID = %q", chat.ID)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestDoWithRetry_ClientErrorIsFinal(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"error":{"code":"not_found","message":"no such chat"}}`)
	}))
	defer srv.Close()

	_, err := NewClient(srv.URL).FetchChat(context.Background(), "nope")
	if !errors.Is(err, ErrChatNotFound) {
		t.Errorf("err = %v, want ErrChatNotFound", err)
	}
	if n := calls.Load(); n != 1 {
		t.Errorf("calls = %d, 404 must not be retried", n)
	}
}

func TestDoWithRetry_Exhaustion(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	client := NewClient(srv.URL).WithMaxRetries(2)
	_, err := client.GenerateTitle(context.Background(), "c1")
	if !errors.Is(err, ErrRateLimited) {
		t.Errorf("err = %v, want ErrRateLimited after exhaustion", err)
	}
	if n := calls.Load(); n != 2 {
		t.Errorf("calls = %d, want 2", n)
	}
}

func TestDoWithRetry_ContextCancelDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := NewClient(srv.URL).GenerateTitle(ctx, "c1")
	if err == nil {
		t.Fatal("expected error")
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Errorf("cancellation not honored during backoff, took %v", elapsed)
	}
}

func TestCalculateBackoff(t *testing.T) {
	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{1, 500 * time.Millisecond},
		{2, time.Second},
		{3, 2 * time.Second},
		{10, retryMaxDelay},
	}
	for _, tt := range tests {
		if got := calculateBackoff(tt.attempt); got != tt.want {
			t.Errorf("calculateBackoff(%d) = %v, want %v", tt.attempt, got, tt.want)
		}
	}
}

// =============================================================================
// REST COLLABORATOR TESTS
// =============================================================================

func TestCancelStream_SendsPartialBeforeAbort(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chats/c1/stream/cancel" {
			t.Errorf("path = %q", r.URL.Path)
		}
		var req CancelRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatal(err)
		}
		if req.PartialContent != "half an answ" {
			t.Errorf("PartialContent = %q", req.PartialContent)
		}
		fmt.Fprint(w, `{"message":{"id":"m4","content":"half an answ"},"cancelled":true}`)
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL).CancelStream(context.Background(), CancelRequest{
		ChatID:         "c1",
		PartialContent: "half an answ",
	})
	if err != nil {
		t.Fatal(err)
	}
	if !resp.Cancelled || resp.Message.ID != "m4" {
		t.Errorf("resp = %+v", resp)
	}
}

func TestUploadAttachment(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Fatalf("ParseMultipartForm: %v", err)
		}
		f, hdr, err := r.FormFile("file")
		if err != nil {
			t.Fatalf("FormFile: %v", err)
		}
		defer f.Close()
		if hdr.Filename != "note.txt" {
			t.Errorf("filename = %q", hdr.Filename)
		}
		if ft := r.FormValue("fileType"); ft != "text/plain" {
			t.Errorf("fileType = %q", ft)
		}
		fmt.Fprint(w, `{"id":"att1","url":"https://files.example/att1"}`)
	}))
	defer srv.Close()

	info, err := NewClient(srv.URL).UploadAttachment(context.Background(), "note.txt", "text/plain", []byte("hello"))
	if err != nil {
		t.Fatal(err)
	}
	if info.ID != "att1" || info.URL == "" {
		t.Errorf("info = %+v", info)
	}
}

func TestClient_NotConfigured(t *testing.T) {
	c := NewClient("")
	if _, err := c.CreateChat(context.Background(), "m"); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("CreateChat err = %v", err)
	}
	if _, err := c.UploadAttachment(context.Background(), "f", "t", nil); !errors.Is(err, ErrNotConfigured) {
		t.Errorf("UploadAttachment err = %v", err)
	}
}
