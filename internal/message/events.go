package message

import (
	"context"
	"errors"
	"fmt"
)

var ErrEventMismatch = errors.New("message.sent event does not match stored messages")

// VerifySentEvent checks that ev names a stored pair: a message from ev.User
// followed by a reply addressed to ev.User.
func (s *Service) VerifySentEvent(ctx context.Context, ev SentEvent) error {
	if _, err := s.ValidateUser(ev.User); err != nil {
		return fmt.Errorf("%w: user %q", ErrEventMismatch, ev.User)
	}
	if ev.UserMessageID == 0 || ev.BotMessageID <= ev.UserMessageID {
		return fmt.Errorf("%w: ids %d/%d", ErrEventMismatch, ev.UserMessageID, ev.BotMessageID)
	}

	msgs, err := s.repo.GetByIDs(ctx, ev.UserMessageID, ev.BotMessageID)
	if err != nil {
		return err
	}
	if len(msgs) != 2 {
		return fmt.Errorf("%w: found %d of 2 messages", ErrEventMismatch, len(msgs))
	}

	userMsg, botMsg := msgs[0], msgs[1]
	if userMsg.Sender != ev.User || userMsg.UserText == nil {
		return fmt.Errorf("%w: message %d is not from %s", ErrEventMismatch, userMsg.ID, ev.User)
	}
	if botMsg.Sender != BotSender(ev.User) || botMsg.BotText == nil {
		return fmt.Errorf("%w: message %d is not a reply to %s", ErrEventMismatch, botMsg.ID, ev.User)
	}
	return nil
}
