package models

import (
	"gorm.io/gorm"
)

type NotificationType string

const (
	NotificationBookingCreated   NotificationType = "booking_created"
	NotificationBookingCancelled NotificationType = "booking_cancelled"
	NotificationBookingCompleted NotificationType = "booking_completed"
)

// Notification is a company-facing record of a booking lifecycle event.
// Delivery (email) happens asynchronously; the row is the audit trail.
type Notification struct {
	gorm.Model
	CompanyID uint             `gorm:"column:company_id;not null;index" json:"company_id"`
	Type      NotificationType `gorm:"column:type;size:50;not null" json:"type"`
	Message   string           `gorm:"column:message;type:text;not null" json:"message"`
	Data      string           `gorm:"column:data;type:text" json:"data,omitempty"`
	Read      bool             `gorm:"column:read;default:false" json:"read"`

	Company *Company `gorm:"foreignKey:CompanyID" json:"-"`
}

func (Notification) TableName() string {
	return "notifications"
}
