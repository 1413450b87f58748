package models

import (
	"time"
)

// Message delivery/receipt states.
const (
	StatusReceived = "received"
	StatusSent     = "sent"
	StatusFailed   = "failed"
)

// Message directions.
const (
	DirectionInbound  = "inbound"
	DirectionOutbound = "outbound"
)

// Contact represents one conversation partner, unique per (tenant, phone).
type Contact struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	TenantID      string     `gorm:"type:varchar(100);not null;uniqueIndex:ux_tenant_phone,priority:1" json:"tenant_id"`
	Phone         string     `gorm:"type:varchar(50);not null;uniqueIndex:ux_tenant_phone,priority:2" json:"phone"`
	Name          *string    `gorm:"type:varchar(255)" json:"name"`
	HasWhatsApp   bool       `gorm:"column:has_whatsapp;default:false" json:"has_whatsapp"`
	ProfilePicURL string     `gorm:"type:text" json:"profile_pic_url"`
	About         string     `gorm:"type:text" json:"about"`
	Presence      string     `gorm:"type:varchar(50)" json:"presence"`
	Unread        bool       `gorm:"default:false" json:"unread"`
	LastMessageAt *time.Time `gorm:"index" json:"last_message_at"`
	Messages      []Message  `gorm:"foreignKey:ContactID;constraint:OnDelete:CASCADE;" json:"-"`
	CreatedAt     time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Message belongs to exactly one contact and one tenant. ProviderMessageID is
// the id assigned by the messaging provider; when present it is unique per
// tenant and acts as the webhook deduplication key.
type Message struct {
	ID                uint       `gorm:"primaryKey" json:"id"`
	ContactID         uint       `gorm:"index;not null" json:"contact_id"`
	TenantID          string     `gorm:"type:varchar(100);not null;uniqueIndex:ux_tenant_provider_msg,priority:1" json:"tenant_id"`
	Direction         string     `gorm:"type:varchar(10);not null" json:"direction"`
	Body              *string    `gorm:"type:text" json:"body"`
	MediaURL          string     `gorm:"type:text" json:"media_url"`
	MediaMimeType     string     `gorm:"type:varchar(100)" json:"media_mime_type"`
	MediaFilename     string     `gorm:"type:varchar(255)" json:"media_filename"`
	Status            string     `gorm:"type:varchar(20)" json:"status"`
	ProviderMessageID *string    `gorm:"type:varchar(255);uniqueIndex:ux_tenant_provider_msg,priority:2" json:"provider_message_id"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	EditedAt          *time.Time `json:"edited_at"`
	DeletedAt         *time.Time `json:"deleted_at"`
}

func (Message) TableName() string {
	return "messages"
}
