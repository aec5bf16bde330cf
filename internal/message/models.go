package message

import "time"

// Message is a stored message. User messages carry UserText, responder
// replies carry BotText; never both.
type Message struct {
	ID        uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	Sender    string    `gorm:"type:varchar(32);index;not null" json:"sender"`
	UserText  *string   `gorm:"type:text" json:"user_text"`
	BotText   *string   `gorm:"type:text" json:"bot_text"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}

func (Message) TableName() string { return "messages" }

// SentEvent is published after a user message and its reply are stored.
type SentEvent struct {
	User          string    `json:"user"`
	UserMessageID uint64    `json:"user_message_id"`
	BotMessageID  uint64    `json:"bot_message_id"`
	At            time.Time `json:"at"`
}
