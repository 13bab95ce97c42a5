// Package sqlstore implements core.TranscriptStore on a relational database
// through gorm. SQLite, PostgreSQL and MySQL are supported.
package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	jsoniter "github.com/json-iterator/go"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hupe1980/agentchat/config"
	"github.com/hupe1980/agentchat/core"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var _ core.TranscriptStore = (*Store)(nil)

// ConversationRecord is one row per conversation.
type ConversationRecord struct {
	ID         string `gorm:"primaryKey;size:64"`
	Terminated bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// TableName implements gorm's tabler interface.
func (ConversationRecord) TableName() string { return "conversations" }

// MessageRecord is one row per message. Seq orders messages within a
// conversation.
type MessageRecord struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	ConversationID string `gorm:"size:64;not null;uniqueIndex:idx_conversation_seq"`
	Seq            int    `gorm:"not null;uniqueIndex:idx_conversation_seq"`
	MessageID      string `gorm:"size:64"`
	FromName       string `gorm:"size:255"`
	ToName         string `gorm:"size:255"`
	Payload        string `gorm:"type:text;not null"`
	CreatedAt      time.Time
}

// TableName implements gorm's tabler interface.
func (MessageRecord) TableName() string { return "messages" }

// Store is a gorm backed transcript store.
type Store struct {
	db    *gorm.DB
	owned bool
}

// New wraps db and migrates the schema. Close does not close db.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&ConversationRecord{}, &MessageRecord{}); err != nil {
		return nil, fmt.Errorf("failed to auto migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Open connects using cfg.Driver and cfg.DSN.
func Open(cfg config.SQLConfig) (*Store, error) {
	dialector, err := Dialector(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect database: %w", err)
	}

	s, err := New(db)
	if err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, err
	}
	s.owned = true

	return s, nil
}

// Dialector returns the gorm dialector for driver.
func Dialector(driver, dsn string) (gorm.Dialector, error) {
	switch driver {
	case "sqlite":
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(dsn), nil
	case "mysql":
		return mysql.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %s (supported: sqlite, postgres, mysql)", driver)
	}
}

// Append implements core.TranscriptStore. The conversation row is created on
// first use and the message gets the next sequence number.
func (s *Store) Append(ctx context.Context, conversationID string, msg core.Message) error {
	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureConversation(tx, conversationID); err != nil {
			return err
		}

		var seq int
		if err := tx.Model(&MessageRecord{}).
			Where("conversation_id = ?", conversationID).
			Select("COALESCE(MAX(seq), 0)").
			Scan(&seq).Error; err != nil {
			return err
		}

		return tx.Create(&MessageRecord{
			ConversationID: conversationID,
			Seq:            seq + 1,
			MessageID:      msg.ID,
			FromName:       msg.From,
			ToName:         msg.To,
			Payload:        string(payload),
		}).Error
	})
}

// Load implements core.TranscriptStore.
func (s *Store) Load(ctx context.Context, conversationID string) ([]core.Message, error) {
	var records []MessageRecord
	if err := s.db.WithContext(ctx).
		Where("conversation_id = ?", conversationID).
		Order("seq ASC").
		Find(&records).Error; err != nil {
		return nil, err
	}

	msgs := make([]core.Message, 0, len(records))
	for _, r := range records {
		var msg core.Message
		if err := json.Unmarshal([]byte(r.Payload), &msg); err != nil {
			return nil, fmt.Errorf("decode message %d of %s: %w", r.Seq, conversationID, err)
		}
		msgs = append(msgs, msg)
	}

	return msgs, nil
}

// MarkTerminated implements core.TranscriptStore.
func (s *Store) MarkTerminated(ctx context.Context, conversationID string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureConversation(tx, conversationID); err != nil {
			return err
		}
		return tx.Model(&ConversationRecord{}).
			Where("id = ?", conversationID).
			Update("terminated", true).Error
	})
}

// Terminated implements core.TranscriptStore.
func (s *Store) Terminated(ctx context.Context, conversationID string) (bool, error) {
	var rec ConversationRecord
	err := s.db.WithContext(ctx).First(&rec, "id = ?", conversationID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rec.Terminated, nil
}

// Conversations lists stored conversation ids, oldest first.
func (s *Store) Conversations(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(ctx).
		Model(&ConversationRecord{}).
		Order("created_at ASC").
		Pluck("id", &ids).Error
	return ids, err
}

// Close closes the connection pool when it was created by Open.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func ensureConversation(tx *gorm.DB, id string) error {
	return tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&ConversationRecord{ID: id}).Error
}
