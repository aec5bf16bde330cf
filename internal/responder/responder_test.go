package responder

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestCannedReply(t *testing.T) {
	got, err := Canned{}.Reply(context.Background(), "A", nil)
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if !strings.Contains(got, "Obrigado por seu contato, Usuário A") {
		t.Fatalf("unexpected reply %q", got)
	}
}

func TestRegistry(t *testing.T) {
	reg := NewRegistry()
	reg.Register(" Canned ", func(ctx context.Context) (Responder, error) {
		_ = ctx
		return Canned{}, nil
	})

	if _, err := reg.Get(context.Background(), "CANNED"); err != nil {
		t.Fatalf("get canned: %v", err)
	}
	if _, err := reg.Get(context.Background(), ""); err != nil {
		t.Fatalf("empty name should default to canned: %v", err)
	}
	if _, err := reg.Get(context.Background(), "gpt"); err == nil {
		t.Fatalf("expected unknown responder error")
	}
}

func TestOllamaReply(t *testing.T) {
	var got ollamaChatReq
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_ = json.NewEncoder(w).Encode(ollamaChatResp{Message: ollamaMsg{Role: "assistant", Content: " Olá! "}})
	}))
	defer srv.Close()

	p := NewOllama(srv.URL, "tiny")
	reply, err := p.Reply(context.Background(), "B", []Turn{{Role: "user", Content: "oi"}})
	if err != nil {
		t.Fatalf("reply: %v", err)
	}
	if reply != "Olá!" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if got.Model != "tiny" || got.Stream {
		t.Fatalf("unexpected request: model=%q stream=%v", got.Model, got.Stream)
	}
	if len(got.Messages) != 2 || got.Messages[0].Role != "system" || got.Messages[1].Content != "oi" {
		t.Fatalf("unexpected messages: %+v", got.Messages)
	}
}

func TestOllamaReply_ErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not found", http.StatusNotFound)
	}))
	defer srv.Close()

	_, err := NewOllama(srv.URL, "missing").Reply(context.Background(), "A", nil)
	if err == nil || !strings.Contains(err.Error(), "model not found") {
		t.Fatalf("expected error carrying body, got %v", err)
	}
}
