package message

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/suPer8Hu/message-app/internal/observability"
	"github.com/suPer8Hu/message-app/internal/responder"
)

// ValidUsers are the only identities that can log in.
var ValidUsers = []string{"A", "B"}

var (
	ErrInvalidUser = errors.New("Usuário deve ser do tipo 'A' ou 'B'")
	ErrEmptyText   = errors.New("O texto é obrigatório")
)

// BotSender is the sender stored on replies to user.
func BotSender(user string) string {
	return "Usuário: " + user
}

// Publisher receives an event for every stored message pair. Optional.
type Publisher interface {
	PublishMessageSent(ctx context.Context, ev SentEvent) error
}

type Service struct {
	repo              *Repo
	responder         responder.Responder
	publisher         Publisher
	contextWindowSize int
	log               *slog.Logger
	now               func() time.Time
}

func NewService(repo *Repo, r responder.Responder, publisher Publisher, contextWindowSize int, log *slog.Logger) *Service {
	if contextWindowSize <= 0 || contextWindowSize > 100 {
		contextWindowSize = 20
	}
	if r == nil {
		r = responder.Canned{}
	}
	return &Service{
		repo:              repo,
		responder:         r,
		publisher:         publisher,
		contextWindowSize: contextWindowSize,
		log:               observability.OrDiscard(log),
		now:               time.Now,
	}
}

// ValidateUser returns the canonical identity for user, or ErrInvalidUser.
func (s *Service) ValidateUser(user string) (string, error) {
	user = strings.TrimSpace(user)
	for _, u := range ValidUsers {
		if u == user {
			return u, nil
		}
	}
	return "", ErrInvalidUser
}

func (s *Service) ListMessages(ctx context.Context, user string) ([]Message, error) {
	if _, err := s.ValidateUser(user); err != nil {
		return nil, err
	}
	return s.repo.ListForUser(ctx, user)
}

// SendMessage stores text from user together with the responder's reply and
// returns both.
func (s *Service) SendMessage(ctx context.Context, user, text string) (*Message, *Message, error) {
	if _, err := s.ValidateUser(user); err != nil {
		return nil, nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, nil, ErrEmptyText
	}

	log := observability.FromContext(ctx, s.log).With("user", user)

	reply := s.generateReply(ctx, log, user, text)

	now := s.now().UTC()
	userMsg := &Message{Sender: user, UserText: &text, CreatedAt: now}
	botMsg := &Message{Sender: BotSender(user), BotText: &reply, CreatedAt: now}
	if err := s.repo.InsertPair(ctx, userMsg, botMsg); err != nil {
		return nil, nil, err
	}

	if s.publisher != nil {
		ev := SentEvent{User: user, UserMessageID: userMsg.ID, BotMessageID: botMsg.ID, At: now}
		if err := s.publisher.PublishMessageSent(ctx, ev); err != nil {
			log.Warn("publish message.sent failed", "user_message_id", userMsg.ID, "error", err)
		}
	}
	return userMsg, botMsg, nil
}

// generateReply asks the responder, falling back to the canned reply so a
// responder outage never fails a send.
func (s *Service) generateReply(ctx context.Context, log *slog.Logger, user, text string) string {
	recentDesc, err := s.repo.ListRecentForUserDesc(ctx, user, s.contextWindowSize)
	if err != nil {
		log.Warn("load responder context failed", "error", err)
		recentDesc = nil
	}

	// responder expects oldest first, ending with the new message
	history := make([]responder.Turn, 0, len(recentDesc)+1)
	for i := len(recentDesc) - 1; i >= 0; i-- {
		m := recentDesc[i]
		if m.UserText != nil {
			history = append(history, responder.Turn{Role: "user", Content: *m.UserText})
		} else if m.BotText != nil {
			history = append(history, responder.Turn{Role: "assistant", Content: *m.BotText})
		}
	}
	history = append(history, responder.Turn{Role: "user", Content: text})

	reply, err := s.responder.Reply(ctx, user, history)
	if err != nil || strings.TrimSpace(reply) == "" {
		log.Warn("responder failed, using canned reply", "error", err)
		return responder.CannedReply(user)
	}
	return reply
}
