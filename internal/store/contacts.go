// Package store is the tenant-scoped persistence layer. Every query filters
// on tenant id; cross-tenant reads or writes are a correctness violation.
package store

import (
	"time"

	"outreach-gateway/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ContactStore is the persistence surface the handlers and webhook pipeline
// depend on; tests substitute mocks.
type ContactStore interface {
	Upsert(tenantID, phoneNumber string, name *string, hasWhatsApp bool) (*models.Contact, error)
	Touch(tenantID string, contactID uint, at time.Time) error
	Get(tenantID string, id uint) (*models.Contact, error)
	GetByPhone(tenantID, phoneNumber string) (*models.Contact, error)
	List(tenantID string, limit, offset int) ([]models.Contact, error)
	UpdateProfile(tenantID, phoneNumber, picURL, about, presence string) error
	SetUnread(tenantID string, contactID uint, unread bool) error
	Delete(tenantID string, id uint) (bool, error)
}

type GormContactStore struct {
	DB *gorm.DB
}

func NewContactStore(db *gorm.DB) *GormContactStore {
	return &GormContactStore{DB: db}
}

// Upsert creates the (tenant, phone) contact or refreshes it on conflict.
// The name is only overwritten when a non-empty one is supplied.
func (s *GormContactStore) Upsert(tenantID, phoneNumber string, name *string, hasWhatsApp bool) (*models.Contact, error) {
	now := time.Now()
	contact := models.Contact{
		TenantID:      tenantID,
		Phone:         phoneNumber,
		Name:          name,
		HasWhatsApp:   hasWhatsApp,
		LastMessageAt: &now,
	}

	assignments := map[string]interface{}{
		"has_whatsapp":    hasWhatsApp,
		"last_message_at": now,
		"updated_at":      now,
	}
	if name != nil && *name != "" {
		assignments["name"] = *name
	}

	err := s.DB.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "phone"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(&contact).Error
	if err != nil {
		return nil, err
	}

	// The conflict path does not populate the primary key; re-read the row.
	var saved models.Contact
	if err := s.DB.Where("tenant_id = ? AND phone = ?", tenantID, phoneNumber).First(&saved).Error; err != nil {
		return nil, err
	}
	return &saved, nil
}

func (s *GormContactStore) Touch(tenantID string, contactID uint, at time.Time) error {
	return s.DB.Model(&models.Contact{}).
		Where("tenant_id = ? AND id = ?", tenantID, contactID).
		Updates(map[string]interface{}{"last_message_at": at, "unread": true}).Error
}

func (s *GormContactStore) Get(tenantID string, id uint) (*models.Contact, error) {
	var contact models.Contact
	err := s.DB.Where("tenant_id = ? AND id = ?", tenantID, id).First(&contact).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *GormContactStore) GetByPhone(tenantID, phoneNumber string) (*models.Contact, error) {
	var contact models.Contact
	err := s.DB.Where("tenant_id = ? AND phone = ?", tenantID, phoneNumber).First(&contact).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *GormContactStore) List(tenantID string, limit, offset int) ([]models.Contact, error) {
	contacts := []models.Contact{}
	err := s.DB.Where("tenant_id = ?", tenantID).
		Order("last_message_at DESC NULLS LAST").
		Limit(limit).Offset(offset).
		Find(&contacts).Error
	return contacts, err
}

func (s *GormContactStore) UpdateProfile(tenantID, phoneNumber, picURL, about, presence string) error {
	return s.DB.Model(&models.Contact{}).
		Where("tenant_id = ? AND phone = ?", tenantID, phoneNumber).
		Updates(map[string]interface{}{
			"profile_pic_url": picURL,
			"about":           about,
			"presence":        presence,
		}).Error
}

func (s *GormContactStore) SetUnread(tenantID string, contactID uint, unread bool) error {
	return s.DB.Model(&models.Contact{}).
		Where("tenant_id = ? AND id = ?", tenantID, contactID).
		Update("unread", unread).Error
}

// Delete removes a contact and cascades to its messages. Returns false when
// the contact does not exist under this tenant.
func (s *GormContactStore) Delete(tenantID string, id uint) (bool, error) {
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tenant_id = ? AND contact_id = ?", tenantID, id).Delete(&models.Message{}).Error; err != nil {
			return err
		}
		res := tx.Where("tenant_id = ? AND id = ?", tenantID, id).Delete(&models.Contact{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return nil
	})
	if err == gorm.ErrRecordNotFound {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
