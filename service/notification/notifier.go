package notification

import (
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/elvinmirzazada/salona-api/cmd/models"
	"gopkg.in/gomail.v2"
	"gorm.io/gorm"
)

// Notifier records booking lifecycle events and delivers emails. Callers fire
// it on a goroutine after commit; booking flows never wait on delivery and a
// failed email never fails a booking.
type Notifier struct {
	db *gorm.DB
}

func NewNotifier(db *gorm.DB) *Notifier {
	return &Notifier{db: db}
}

func (n *Notifier) BookingCreated(booking *models.Booking, customer *models.Customer, company *models.Company) {
	n.record(booking, company, models.NotificationBookingCreated,
		fmt.Sprintf("A new booking has been created by %s %s", customer.FirstName, customer.LastName))

	body := fmt.Sprintf(
		"Hi %s,\n\nYour booking at %s is confirmed for %s.\nBooking reference: %s\nTotal: %.2f\n",
		customer.FirstName,
		company.Name,
		booking.StartAt.UTC().Format(time.RFC1123),
		booking.Reference,
		booking.TotalPrice,
	)
	if err := sendEmail(customer.Email, "Your booking at "+company.Name, body); err != nil {
		log.Printf("Error sending booking confirmation email: %v", err)
	}

	n.notifyWorkers(booking, company, fmt.Sprintf(
		"New booking %s on %s from %s %s.",
		booking.Reference,
		booking.StartAt.UTC().Format(time.RFC1123),
		customer.FirstName,
		customer.LastName,
	))
}

func (n *Notifier) BookingCancelled(booking *models.Booking, customer *models.Customer, company *models.Company, reason string) {
	message := fmt.Sprintf("Booking %s has been cancelled", booking.Reference)
	if reason != "" {
		message += ": " + reason
	}
	n.record(booking, company, models.NotificationBookingCancelled, message)

	n.notifyWorkers(booking, company, message)

	if customer != nil {
		body := fmt.Sprintf("Hi %s,\n\nYour booking %s at %s has been cancelled.\n",
			customer.FirstName, booking.Reference, company.Name)
		if err := sendEmail(customer.Email, "Booking cancelled", body); err != nil {
			log.Printf("Error sending cancellation email: %v", err)
		}
	}
}

func (n *Notifier) BookingCompleted(booking *models.Booking, company *models.Company) {
	n.record(booking, company, models.NotificationBookingCompleted,
		fmt.Sprintf("Booking %s has been completed", booking.Reference))
}

// record persists the company-facing notification row with a small JSON
// payload for dashboard consumers.
func (n *Notifier) record(booking *models.Booking, company *models.Company, typ models.NotificationType, message string) {
	data, _ := json.Marshal(map[string]string{
		"booking_id": strconv.FormatUint(uint64(booking.ID), 10),
		"reference":  booking.Reference,
		"company_id": strconv.FormatUint(uint64(company.ID), 10),
	})

	notification := models.Notification{
		CompanyID: company.ID,
		Type:      typ,
		Message:   message,
		Data:      string(data),
	}
	if err := n.db.Create(&notification).Error; err != nil {
		log.Printf("Error recording notification: %v", err)
	}
}

// notifyWorkers emails every worker assigned to a leg of the booking.
func (n *Notifier) notifyWorkers(booking *models.Booking, company *models.Company, message string) {
	seen := make(map[uint]bool)
	for _, leg := range booking.Legs {
		if seen[leg.WorkerID] {
			continue
		}
		seen[leg.WorkerID] = true

		var worker models.User
		if err := n.db.First(&worker, leg.WorkerID).Error; err != nil {
			log.Printf("Error loading worker %d for notification: %v", leg.WorkerID, err)
			continue
		}
		body := fmt.Sprintf("Hi %s,\n\n%s\n", worker.FullName, message)
		if err := sendEmail(worker.Email, company.Name+": booking update", body); err != nil {
			log.Printf("Error sending worker notification email: %v", err)
		}
	}
}

func sendEmail(to, subject, body string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPort := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")

	if smtpHost == "" {
		log.Printf("SMTP not configured, skipping email to %s", to)
		return nil
	}

	m := gomail.NewMessage()
	m.SetHeader("From", smtpUser)
	m.SetHeader("To", to)
	m.SetHeader("Subject", subject)
	m.SetBody("text/plain", body)

	port, err := strconv.Atoi(smtpPort)
	if err != nil {
		return fmt.Errorf("invalid SMTP port: %w", err)
	}

	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)
	return d.DialAndSend(m)
}
