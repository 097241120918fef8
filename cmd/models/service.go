package models

import (
	"gorm.io/gorm"
)

// Service is the catalog definition. Duration is in minutes, price in the
// company's currency unit.
type Service struct {
	gorm.Model
	Name            string  `gorm:"column:name;size:100;not null" json:"name"`
	Description     string  `gorm:"column:description;type:text" json:"description"`
	DefaultDuration int     `gorm:"column:default_duration;not null" json:"default_duration"`
	DefaultPrice    float64 `gorm:"column:default_price;not null" json:"default_price"`
}

func (Service) TableName() string {
	return "services"
}

// CompanyService maps a catalog service into a company, optionally overriding
// duration and price. A booking leg snapshots the effective values at creation
// time, so later edits here never rewrite history.
type CompanyService struct {
	gorm.Model
	CompanyID      uint     `gorm:"column:company_id;not null;index;uniqueIndex:idx_company_service" json:"company_id"`
	ServiceID      uint     `gorm:"column:service_id;not null;uniqueIndex:idx_company_service" json:"service_id"`
	CustomDuration *int     `gorm:"column:custom_duration" json:"custom_duration,omitempty"`
	CustomPrice    *float64 `gorm:"column:custom_price" json:"custom_price,omitempty"`
	Active         bool     `gorm:"column:active;default:true" json:"active"`

	Company *Company `gorm:"foreignKey:CompanyID" json:"-"`
	Service *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
}

func (CompanyService) TableName() string {
	return "company_services"
}

// EffectiveDuration returns the per-company duration override when present,
// otherwise the catalog default. Minutes.
func (cs *CompanyService) EffectiveDuration() int {
	if cs.CustomDuration != nil {
		return *cs.CustomDuration
	}
	if cs.Service != nil {
		return cs.Service.DefaultDuration
	}
	return 0
}

func (cs *CompanyService) EffectivePrice() float64 {
	if cs.CustomPrice != nil {
		return *cs.CustomPrice
	}
	if cs.Service != nil {
		return cs.Service.DefaultPrice
	}
	return 0
}
