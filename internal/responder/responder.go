// Package responder produces the automated reply to every message a user sends.
package responder

import (
	"context"
	"fmt"
)

// Turn is one earlier message given to a responder as context, oldest first.
type Turn struct {
	Role    string // "user" or "assistant"
	Content string
}

type Responder interface {
	Reply(ctx context.Context, user string, history []Turn) (string, error)
}

// DisplayName is how users are addressed: "Usuário A", "Usuário B".
func DisplayName(user string) string {
	return "Usuário " + user
}

// Canned always answers with the same acknowledgement.
type Canned struct{}

func (Canned) Reply(_ context.Context, user string, _ []Turn) (string, error) {
	return CannedReply(user), nil
}

func CannedReply(user string) string {
	return fmt.Sprintf("Obrigado por seu contato, %s. Em breve responderemos.", DisplayName(user))
}
