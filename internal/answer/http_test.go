package answer

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestHTTPGenerator(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req completionRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}
		if req.Prompt == "" {
			t.Error("empty prompt")
		}
		_ = json.NewEncoder(w).Encode(completionResponse{Text: "generated answer"})
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, time.Second)
	out, err := g.Generate(context.Background(), "some prompt")
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if out != "generated answer" {
		t.Fatalf("out = %q", out)
	}
}

func TestHTTPGeneratorErrorResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		_ = json.NewEncoder(w).Encode(completionResponse{Error: "backend down"})
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, time.Second)
	if _, err := g.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for 503 response")
	}
}

func TestHTTPGeneratorEmptyText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completionResponse{})
	}))
	defer srv.Close()

	g := NewHTTPGenerator(srv.URL, time.Second)
	if _, err := g.Generate(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error for empty completion text")
	}
}
