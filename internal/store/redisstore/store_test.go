package redisstore

import (
	"context"
	"errors"
	"os"
	"testing"

	"github.com/suPer8Hu/message-app/internal/session"
)

func TestStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	ctx := context.Background()

	s, err := New(addr, os.Getenv("REDIS_PASSWORD"), 0, "message-app-test:")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer s.Close()
	defer s.Delete(ctx, "activeUser")

	if err := s.Set(ctx, "activeUser", "A"); err != nil {
		t.Fatalf("set: %v", err)
	}
	v, err := s.Get(ctx, "activeUser")
	if err != nil || v != "A" {
		t.Fatalf("get: v=%q err=%v", v, err)
	}
	if err := s.Delete(ctx, "activeUser"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "activeUser"); !errors.Is(err, session.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
