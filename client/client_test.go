package client

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/andybalholm/brotli"
)

func TestNewWithDefaults(t *testing.T) {
	c := NewWith(Config{})
	if c.Retries != defaultRetries {
		t.Errorf("Expected %d retries, got %d", defaultRetries, c.Retries)
	}
	if c.Timeout != defaultTimeout {
		t.Errorf("Expected timeout %v, got %v", defaultTimeout, c.Timeout)
	}
	if c.UserAgent != userAgentValue {
		t.Errorf("Expected default user agent, got %q", c.UserAgent)
	}
	if c.StallAfter() != defaultStallTimeout {
		t.Errorf("Expected stall timeout %v, got %v", defaultStallTimeout, c.StallAfter())
	}

	c = NewWith(Config{Timeout: time.Second, StallTimeout: 2 * time.Second, Retries: 7, UserAgent: "ua/1", ProxyURL: "http://127.0.0.1:3128"})
	if c.Retries != 7 || c.Timeout != time.Second || c.StallAfter() != 2*time.Second || c.UserAgent != "ua/1" {
		t.Errorf("Config not applied: %+v", c)
	}
}

func TestGetPage_Encodings(t *testing.T) {
	const body = `<html><body data-sources="[]">hello</body></html>`

	var brBuf, gzBuf bytes.Buffer
	bw := brotli.NewWriter(&brBuf)
	_, _ = bw.Write([]byte(body))
	_ = bw.Close()
	gw := gzip.NewWriter(&gzBuf)
	_, _ = gw.Write([]byte(body))
	_ = gw.Close()

	tests := []struct {
		name     string
		encoding string
		payload  []byte
	}{
		{"identity", "", []byte(body)},
		{"gzip", "gzip", gzBuf.Bytes()},
		{"brotli", "br", brBuf.Bytes()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Header.Get("User-Agent") == "" {
					t.Error("Expected User-Agent header")
				}
				if tt.encoding != "" {
					w.Header().Set("Content-Encoding", tt.encoding)
				}
				_, _ = w.Write(tt.payload)
			}))
			defer server.Close()

			c := WithHTTPClient(server.Client())
			page, err := c.GetPage(context.Background(), server.URL)
			if err != nil {
				t.Fatalf("GetPage: %v", err)
			}
			if string(page.Body) != body {
				t.Errorf("Expected decoded body, got %q", string(page.Body))
			}
			if page.URL != server.URL {
				t.Errorf("Expected final URL %s, got %s", server.URL, page.URL)
			}
		})
	}
}

func TestGetPage_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte("ok"))
	}))
	defer server.Close()

	c := WithHTTPClient(server.Client())
	page, err := c.GetPage(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("GetPage: %v", err)
	}
	if string(page.Body) != "ok" {
		t.Errorf("Expected ok, got %q", string(page.Body))
	}
	if calls.Load() != 2 {
		t.Errorf("Expected 2 calls, got %d", calls.Load())
	}
}

func TestGetPageOnce_DoesNotRetry(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := WithHTTPClient(server.Client())
	_, err := c.GetPageOnce(context.Background(), server.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusBadGateway {
		t.Fatalf("Expected 502 StatusError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single call, got %d", calls.Load())
	}
}

func TestGetPage_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := WithHTTPClient(server.Client())
	_, err := c.GetPage(context.Background(), server.URL)
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusNotFound {
		t.Fatalf("Expected 404 StatusError, got %v", err)
	}
	if calls.Load() != 1 {
		t.Errorf("Expected a single call, got %d", calls.Load())
	}
}

func TestGetPage_ContextCancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := WithHTTPClient(server.Client())
	if _, err := c.GetPage(ctx, server.URL); err == nil {
		t.Fatal("Expected error for cancelled context")
	}
}

func TestOpen(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		if got := r.Header.Get("Accept-Encoding"); got != "identity" {
			t.Errorf("Expected identity encoding, got %q", got)
		}
		_, _ = w.Write([]byte("stream-bytes"))
	}))
	defer server.Close()

	c := WithHTTPClient(server.Client())
	body, n, err := c.Open(context.Background(), server.URL+"/video")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "stream-bytes" || n != int64(len("stream-bytes")) {
		t.Errorf("Unexpected stream %q (length %d)", string(data), n)
	}

	_, _, err = c.Open(context.Background(), server.URL+"/missing")
	var se *StatusError
	if !errors.As(err, &se) || se.Code != http.StatusForbidden {
		t.Fatalf("Expected 403 StatusError, got %v", err)
	}
	if se.Temporary() {
		t.Error("403 should not be temporary")
	}
}
