package message

import (
	"context"
	"errors"
	"testing"
)

func TestVerifySentEvent(t *testing.T) {
	db := openTestDB(t)
	pub := &recordingPublisher{}
	svc := NewService(NewRepo(db), nil, pub, 20, nil)
	ctx := context.Background()

	if _, _, err := svc.SendMessage(ctx, "A", "hi"); err != nil {
		t.Fatalf("send A: %v", err)
	}
	if _, _, err := svc.SendMessage(ctx, "B", "hello"); err != nil {
		t.Fatalf("send B: %v", err)
	}
	if len(pub.events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(pub.events))
	}

	for _, ev := range pub.events {
		if err := svc.VerifySentEvent(ctx, ev); err != nil {
			t.Fatalf("verify %+v: %v", ev, err)
		}
	}

	evA, evB := pub.events[0], pub.events[1]
	bad := []SentEvent{
		{User: "C", UserMessageID: evA.UserMessageID, BotMessageID: evA.BotMessageID},
		{User: "B", UserMessageID: evA.UserMessageID, BotMessageID: evA.BotMessageID},
		{User: "A", UserMessageID: evA.UserMessageID, BotMessageID: evB.BotMessageID},
		{User: "A", UserMessageID: evA.BotMessageID, BotMessageID: evA.UserMessageID},
		{User: "A", UserMessageID: 0, BotMessageID: evA.BotMessageID},
		{User: "A", UserMessageID: 1000, BotMessageID: 1001},
	}
	for _, ev := range bad {
		if err := svc.VerifySentEvent(ctx, ev); !errors.Is(err, ErrEventMismatch) {
			t.Fatalf("verify %+v: expected ErrEventMismatch, got %v", ev, err)
		}
	}
}
