package api

import (
	"encoding/json"
	"errors"
	"time"
)

// Message is one entry of a user's history as the service returns it.
// Exactly one of UserText and BotText is set.
type Message struct {
	ID        uint64    `json:"id"`
	Sender    string    `json:"sender"`
	UserText  *string   `json:"user_text"`
	BotText   *string   `json:"bot_text"`
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalJSON also accepts the older "user_sender" spelling of sender.
func (m *Message) UnmarshalJSON(b []byte) error {
	type plain Message
	var raw struct {
		plain
		UserSender string `json:"user_sender"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	*m = Message(raw.plain)
	if m.Sender == "" {
		m.Sender = raw.UserSender
	}
	return nil
}

// Text returns whichever body is present.
func (m Message) Text() string {
	if m.UserText != nil {
		return *m.UserText
	}
	if m.BotText != nil {
		return *m.BotText
	}
	return ""
}

var ErrInvalidMessage = errors.New("api: message must carry exactly one of user_text or bot_text")

func (m Message) Validate() error {
	if (m.UserText == nil) == (m.BotText == nil) {
		return ErrInvalidMessage
	}
	return nil
}

type loginReq struct {
	User string `json:"user"`
}

type loginResp struct {
	ActiveUser string `json:"active_user"`
	Message    string `json:"message"`
}

type sendMessageReq struct {
	Text string `json:"text"`
}

// SentMessages is the pair produced by one send: the stored user message and
// the responder's reply to it.
type SentMessages struct {
	UserMessage Message `json:"user_message"`
	BotMessage  Message `json:"bot_message"`
}
