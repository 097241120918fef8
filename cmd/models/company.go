package models

import (
	"gorm.io/gorm"
)

type Company struct {
	gorm.Model
	Name        string `gorm:"column:name;size:100;not null" json:"name"`
	Slug        string `gorm:"column:slug;size:100;not null;uniqueIndex" json:"slug"`
	Email       string `gorm:"column:email;size:255;not null" json:"email"`
	Phone       string `gorm:"column:phone;size:20" json:"phone"`
	Address     string `gorm:"column:address;type:text" json:"address"`
	City        string `gorm:"column:city;size:100" json:"city"`
	Country     string `gorm:"column:country;size:50" json:"country"`
	Description string `gorm:"column:description;type:text" json:"description"`
	// Timezone interprets the local times of staff weekly availability rules.
	Timezone string `gorm:"column:timezone;size:50;not null;default:UTC" json:"timezone"`
	OwnerID  uint   `gorm:"column:owner_id;not null" json:"owner_id"`
	Status   string `gorm:"column:status;size:50;not null;default:active" json:"status"`

	Owner *User          `gorm:"foreignKey:OwnerID" json:"-"`
	Staff []CompanyStaff `gorm:"foreignKey:CompanyID;constraint:OnDelete:CASCADE" json:"staff,omitempty"`
}

func (Company) TableName() string {
	return "companies"
}

type CompanyStaff struct {
	gorm.Model
	CompanyID uint `gorm:"column:company_id;not null;index;uniqueIndex:idx_company_user" json:"company_id"`
	UserID    uint `gorm:"column:user_id;not null;uniqueIndex:idx_company_user" json:"user_id"`
	IsActive  bool `gorm:"column:is_active;default:true" json:"is_active"`

	Company *Company `gorm:"foreignKey:CompanyID" json:"-"`
	User    *User    `gorm:"foreignKey:UserID" json:"user,omitempty"`
}

func (CompanyStaff) TableName() string {
	return "company_staff"
}
