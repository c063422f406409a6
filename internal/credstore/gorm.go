package credstore

import (
	"context"
	"strconv"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one persisted key/value pair.
type Entry struct {
	Key   string `gorm:"primaryKey;size:64" json:"key"`
	Value string `gorm:"not null"           json:"value"`
}

func (Entry) TableName() string {
	return "client_state"
}

// GormStore keeps the credential in a sqlite file or a postgres table.
type GormStore struct {
	DB *gorm.DB
}

func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&Entry{}); err != nil {
		return nil, err
	}
	return &GormStore{DB: db}, nil
}

func (s *GormStore) Load(ctx context.Context) (Credentials, error) {
	var entries []Entry
	if err := s.DB.WithContext(ctx).
		Where("key IN ?", []string{KeyToken, KeyUserID}).
		Find(&entries).Error; err != nil {
		return Credentials{}, err
	}

	var c Credentials
	for _, e := range entries {
		switch e.Key {
		case KeyToken:
			c.Token = e.Value
		case KeyUserID:
			c.UserID = parseUserID(e.Value)
		}
	}
	return c, nil
}

func (s *GormStore) Save(ctx context.Context, c Credentials) error {
	if !c.Complete() {
		return ErrIncomplete
	}
	entries := []Entry{
		{Key: KeyToken, Value: c.Token},
		{Key: KeyUserID, Value: strconv.FormatInt(c.UserID, 10)},
	}
	return s.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&entries).Error
	})
}

func (s *GormStore) Clear(ctx context.Context) error {
	return s.DB.WithContext(ctx).
		Where("key IN ?", []string{KeyToken, KeyUserID}).
		Delete(&Entry{}).Error
}
