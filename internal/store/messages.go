package store

import (
	"time"

	"outreach-gateway/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type MessageStore interface {
	// InsertDeduped inserts the message unless a row with the same
	// (tenant, provider message id) already exists. Returns false when the
	// insert was suppressed by the uniqueness constraint.
	InsertDeduped(msg *models.Message) (bool, error)
	Insert(msg *models.Message) error
	List(tenantID string, contactID uint, limit int, before *time.Time) ([]models.Message, error)
	ClearConversation(tenantID string, contactID uint) (int64, error)
	MarkDeleted(tenantID string, id uint) error
}

type GormMessageStore struct {
	DB *gorm.DB
}

func NewMessageStore(db *gorm.DB) *GormMessageStore {
	return &GormMessageStore{DB: db}
}

// InsertDeduped relies on the ux_tenant_provider_msg unique index: the insert
// races of two near-simultaneous webhook deliveries are settled by the
// database, not by a select-then-insert round trip.
func (s *GormMessageStore) InsertDeduped(msg *models.Message) (bool, error) {
	res := s.DB.Clauses(clause.OnConflict{DoNothing: true}).Create(msg)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *GormMessageStore) Insert(msg *models.Message) error {
	return s.DB.Create(msg).Error
}

func (s *GormMessageStore) List(tenantID string, contactID uint, limit int, before *time.Time) ([]models.Message, error) {
	messages := []models.Message{}
	q := s.DB.Where("tenant_id = ? AND contact_id = ?", tenantID, contactID)
	if before != nil {
		q = q.Where("created_at < ?", *before)
	}
	err := q.Order("created_at DESC").Limit(limit).Find(&messages).Error
	return messages, err
}

func (s *GormMessageStore) ClearConversation(tenantID string, contactID uint) (int64, error) {
	res := s.DB.Where("tenant_id = ? AND contact_id = ?", tenantID, contactID).Delete(&models.Message{})
	return res.RowsAffected, res.Error
}

func (s *GormMessageStore) MarkDeleted(tenantID string, id uint) error {
	now := time.Now()
	return s.DB.Model(&models.Message{}).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		Update("deleted_at", now).Error
}
