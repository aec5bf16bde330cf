package sqlstore

import (
	"context"
	"errors"
	"time"

	"github.com/suPer8Hu/message-app/internal/session"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one persisted client key.
type Entry struct {
	Name      string `gorm:"column:name;primaryKey;size:128"`
	Value     string `gorm:"type:text;not null"`
	UpdatedAt time.Time
}

func (Entry) TableName() string { return "client_kv" }

// Store is a session.Storage backed by a single gorm table.
type Store struct {
	db *gorm.DB
}

var _ session.Storage = (*Store)(nil)

func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var e Entry
	if err := s.db.WithContext(ctx).Where("name = ?", key).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", session.ErrNotFound
		}
		return "", err
	}
	return e.Value, nil
}

func (s *Store) Set(ctx context.Context, key, value string) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "name"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&Entry{Name: key, Value: value, UpdatedAt: time.Now()}).Error
}

func (s *Store) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("name = ?", key).Delete(&Entry{}).Error
}
