package message

import (
	"context"

	"gorm.io/gorm"
)

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) Migrate() error {
	return r.db.AutoMigrate(&Message{})
}

func (r *Repo) InsertMessage(ctx context.Context, m *Message) error {
	return r.db.WithContext(ctx).Create(m).Error
}

// InsertPair stores a user message and its reply atomically, user first.
func (r *Repo) InsertPair(ctx context.Context, userMsg, botMsg *Message) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(userMsg).Error; err != nil {
			return err
		}
		return tx.Create(botMsg).Error
	})
}

// ListForUser returns user's messages and the replies to them in insertion
// order, which is also creation order.
func (r *Repo) ListForUser(ctx context.Context, user string) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("sender IN ?", []string{user, BotSender(user)}).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// ListRecentForUserDesc returns the newest limit messages, newest first.
func (r *Repo) ListRecentForUserDesc(ctx context.Context, user string, limit int) ([]Message, error) {
	if limit <= 0 {
		limit = 20
	}
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("sender IN ?", []string{user, BotSender(user)}).
		Order("id DESC").
		Limit(limit).
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}

// GetByIDs returns the messages with the given ids, ordered by id.
func (r *Repo) GetByIDs(ctx context.Context, ids ...uint64) ([]Message, error) {
	var msgs []Message
	if err := r.db.WithContext(ctx).
		Where("id IN ?", ids).
		Order("id ASC").
		Find(&msgs).Error; err != nil {
		return nil, err
	}
	return msgs, nil
}
