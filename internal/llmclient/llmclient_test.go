package llmclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"training-load-engine/internal/apperr"
)

func TestComplete_ReturnsConcatenatedTextBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("x-api-key"); got != "test-key" {
			t.Errorf("x-api-key = %q, want test-key", got)
		}
		var req messageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decoding request: %v", err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "hello" {
			t.Errorf("unexpected request body: %+v", req)
		}

		resp := messageResponse{
			Content: []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			}{
				{Type: "text", Text: "part one. "},
				{Type: "text", Text: "part two."},
			},
			StopReason: "end_turn",
		}
		json.NewEncoder(w).Encode(resp)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	got, err := c.Complete(context.Background(), "you are a coach", "hello")
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if got != "part one. part two." {
		t.Errorf("got %q, want %q", got, "part one. part two.")
	}
}

func TestComplete_AuthErrorClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"error":"invalid key"}`))
	}))
	defer srv.Close()

	c := New(Config{APIKey: "bad-key", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "", "hello")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !apperr.Is(err, apperr.KindAuth) {
		t.Errorf("expected KindAuth, got %v", err)
	}
}

func TestComplete_TransientErrorClassified(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(Config{APIKey: "k", BaseURL: srv.URL})
	_, err := c.Complete(context.Background(), "", "hello")
	if err == nil {
		t.Fatal("expected an error")
	}
	if !apperr.Is(err, apperr.KindTransientProvider) {
		t.Errorf("expected KindTransientProvider, got %v", err)
	}
}
