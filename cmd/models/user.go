package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a staff member (worker or company admin). Customers live in their
// own table because they authenticate and book through the public surface.
type User struct {
	gorm.Model
	FullName              string    `gorm:"column:full_name;size:255;not null" json:"full_name"`
	Email                 string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	PasswordHash          string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	Role                  string    `gorm:"column:role;size:50;not null;default:worker" json:"role"`
	Phone                 string    `gorm:"column:phone;size:20" json:"phone"`
	Status                string    `gorm:"column:status;size:50;not null;default:active" json:"status"`
	Refresh               string    `gorm:"column:refresh_token;size:255" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`

	WeeklyAvailabilities []WeeklyAvailability `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"weekly_availabilities,omitempty"`
	TimeOffs             []TimeOff            `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"time_offs,omitempty"`
}

const (
	RoleOwner  = "owner"
	RoleAdmin  = "admin"
	RoleWorker = "worker"
)

type Customer struct {
	gorm.Model
	FirstName             string    `gorm:"column:first_name;size:50;not null" json:"first_name"`
	LastName              string    `gorm:"column:last_name;size:50;not null" json:"last_name"`
	Email                 string    `gorm:"column:email;size:255;not null;uniqueIndex" json:"email"`
	Phone                 string    `gorm:"column:phone;size:20" json:"phone"`
	PasswordHash          string    `gorm:"column:password_hash;size:255;not null" json:"-"`
	Active                bool      `gorm:"column:active;default:true" json:"active"`
	Refresh               string    `gorm:"column:refresh_token;size:255" json:"-"`
	RefreshTokenExpiredAt time.Time `gorm:"column:refresh_token_expired_at" json:"-"`
}

func (Customer) TableName() string {
	return "customers"
}
