package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type BookingStatus string

const (
	BookingPending   BookingStatus = "pending"
	BookingConfirmed BookingStatus = "confirmed"
	BookingCancelled BookingStatus = "cancelled"
	BookingCompleted BookingStatus = "completed"
	BookingNoShow    BookingStatus = "no_show"
)

// ActiveStatuses are the booking states whose legs block a worker's time.
// Cancelled, completed and no-show legs never block availability.
var ActiveStatuses = []BookingStatus{BookingPending, BookingConfirmed}

var transitions = map[BookingStatus][]BookingStatus{
	BookingPending:   {BookingConfirmed, BookingCancelled},
	BookingConfirmed: {BookingCancelled, BookingCompleted, BookingNoShow},
}

// InvalidTransitionError reports a status change the lifecycle does not allow.
type InvalidTransitionError struct {
	From BookingStatus
	To   BookingStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid booking transition from %s to %s", e.From, e.To)
}

// CanTransition reports whether from → to is a permitted lifecycle step.
func CanTransition(from, to BookingStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Booking is a customer session spanning one or more legs. StartAt is the
// first leg's start, EndAt the last leg's end, TotalPrice the sum of leg
// prices. Never physically deleted: cancellation is a status.
type Booking struct {
	gorm.Model
	Reference  string        `gorm:"column:reference;size:36;not null;uniqueIndex" json:"reference"`
	CustomerID uint          `gorm:"column:customer_id;not null;index" json:"customer_id"`
	CompanyID  uint          `gorm:"column:company_id;not null;index" json:"company_id"`
	Status     BookingStatus `gorm:"column:status;size:20;not null;default:pending" json:"status"`
	StartAt    time.Time     `gorm:"column:start_at;not null" json:"start_at"`
	EndAt      time.Time     `gorm:"column:end_at;not null" json:"end_at"`
	TotalPrice float64       `gorm:"column:total_price;not null" json:"total_price"`
	Notes      string        `gorm:"column:notes;type:text" json:"notes"`

	Customer *Customer    `gorm:"foreignKey:CustomerID" json:"customer,omitempty"`
	Company  *Company     `gorm:"foreignKey:CompanyID" json:"-"`
	Legs     []BookingLeg `gorm:"foreignKey:BookingID;constraint:OnDelete:CASCADE" json:"legs"`
}

func (Booking) TableName() string {
	return "bookings"
}

// TransitionTo moves the booking to next, or returns InvalidTransitionError.
// The caller persists the change (and the mirrored leg status) itself.
func (b *Booking) TransitionTo(next BookingStatus) error {
	if !CanTransition(b.Status, next) {
		return &InvalidTransitionError{From: b.Status, To: next}
	}
	b.Status = next
	for i := range b.Legs {
		b.Legs[i].Status = next
	}
	return nil
}

// BookingLeg is one service-worker-time segment of a booking ("booking
// service" in the salon domain). Duration is in minutes; Duration and Price
// are snapshots taken at scheduling time. Status mirrors the parent booking
// status so the storage exclusion constraint and the availability resolver can
// filter active legs without a join.
type BookingLeg struct {
	gorm.Model
	BookingID uint          `gorm:"column:booking_id;not null;index" json:"booking_id"`
	ServiceID uint          `gorm:"column:service_id;not null" json:"service_id"`
	WorkerID  uint          `gorm:"column:worker_id;not null;index" json:"worker_id"`
	Status    BookingStatus `gorm:"column:status;size:20;not null;default:pending" json:"status"`
	Duration  int           `gorm:"column:duration;not null" json:"duration"`
	Price     float64       `gorm:"column:price;not null" json:"price"`
	StartAt   time.Time     `gorm:"column:start_at;not null" json:"start_at"`
	EndAt     time.Time     `gorm:"column:end_at;not null" json:"end_at"`
	Notes     string        `gorm:"column:notes;type:text" json:"notes"`

	Booking *Booking `gorm:"foreignKey:BookingID" json:"-"`
	Service *Service `gorm:"foreignKey:ServiceID" json:"service,omitempty"`
	Worker  *User    `gorm:"foreignKey:WorkerID" json:"worker,omitempty"`
}

func (BookingLeg) TableName() string {
	return "booking_legs"
}
