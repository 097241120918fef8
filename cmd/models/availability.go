package models

import (
	"time"

	"gorm.io/gorm"
)

// WeeklyAvailability is a recurring working-hours rule, not a concrete date.
// DayOfWeek follows time.Weekday numbering (0 = Sunday). StartTime/EndTime are
// local wall-clock times ("15:04") in the company's timezone. A rule whose end
// is not after its start wraps past midnight into the next day. Multiple
// non-overlapping rules per day model split shifts.
type WeeklyAvailability struct {
	gorm.Model
	UserID    uint   `gorm:"column:user_id;not null;index" json:"user_id"`
	DayOfWeek int    `gorm:"column:day_of_week;not null" json:"day_of_week"`
	StartTime string `gorm:"column:start_time;size:5;not null" json:"start_time"`
	EndTime   string `gorm:"column:end_time;size:5;not null" json:"end_time"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (WeeklyAvailability) TableName() string {
	return "weekly_availabilities"
}

// TimeOff is an exception interval in absolute UTC. It overrides any weekly
// rule it overlaps.
type TimeOff struct {
	gorm.Model
	UserID  uint      `gorm:"column:user_id;not null;index" json:"user_id"`
	StartAt time.Time `gorm:"column:start_at;not null" json:"start_at"`
	EndAt   time.Time `gorm:"column:end_at;not null" json:"end_at"`
	Reason  string    `gorm:"column:reason;size:255" json:"reason"`

	User *User `gorm:"foreignKey:UserID" json:"-"`
}

func (TimeOff) TableName() string {
	return "time_offs"
}
