package booking

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/elvinmirzazada/salona-api/cmd/models"
	"github.com/elvinmirzazada/salona-api/cmd/utils"
	"github.com/elvinmirzazada/salona-api/service/notification"
	"github.com/elvinmirzazada/salona-api/service/schedule"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type BookingHandler struct {
	db       *gorm.DB
	notifier *notification.Notifier
	pricing  PricingAdjuster
}

func NewBookingHandler(db *gorm.DB, notifier *notification.Notifier) *BookingHandler {
	return &BookingHandler{
		db:       db,
		notifier: notifier,
		pricing:  passthroughPricing{},
	}
}

// WithPricing installs an external pricing policy (membership discounts).
func (h *BookingHandler) WithPricing(p PricingAdjuster) *BookingHandler {
	h.pricing = p
	return h
}

func (h *BookingHandler) RegisterRoutes(router *mux.Router) {
	router.Handle("/companies/{companyId}/bookings",
		utils.OptionalCustomerAuth(http.HandlerFunc(h.CreateBooking))).Methods("POST")
	router.Handle("/bookings",
		utils.CustomerAuthMiddleware(http.HandlerFunc(h.GetMyBookings))).Methods("GET")
	router.HandleFunc("/bookings/{id}", h.GetBooking).Methods("GET")
	router.Handle("/bookings/{id}",
		utils.OptionalCustomerAuth(http.HandlerFunc(h.UpdateBooking))).Methods("PATCH")
	router.Handle("/bookings/{id}/cancel",
		utils.OptionalCustomerAuth(http.HandlerFunc(h.CancelBooking))).Methods("POST")
}

type customerInfo struct {
	ID        uint   `json:"id,omitempty"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
}

type createBookingRequest struct {
	StartAt      time.Time             `json:"start_at"`
	Notes        string                `json:"notes"`
	Legs         []schedule.LegRequest `json:"legs"`
	CustomerInfo *customerInfo         `json:"customer_info,omitempty"`
}

// CreateBooking schedules and commits a multi-service booking session. The
// whole write path runs in one transaction: plan legs sequentially, re-check
// worker exclusivity, insert booking plus legs. Conflicting transactions fail
// fast; retry policy belongs to the caller.
func (h *BookingHandler) CreateBooking(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	companyID, err := strconv.ParseUint(vars["companyId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return
	}

	var req createBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var company models.Company
	if err := h.db.First(&company, companyID).Error; err != nil {
		http.Error(w, "Company not found", http.StatusNotFound)
		return
	}

	loc, err := time.LoadLocation(company.Timezone)
	if err != nil {
		loc = time.UTC
	}

	if req.StartAt.IsZero() {
		http.Error(w, "start_at is required", http.StatusBadRequest)
		return
	}
	if req.StartAt.Before(time.Now().UTC()) {
		http.Error(w, "Cannot create booking in the past", http.StatusBadRequest)
		return
	}
	if len(req.Legs) == 0 {
		http.Error(w, "At least one service is required", http.StatusBadRequest)
		return
	}

	customer, err := h.resolveCustomer(r, req.CustomerInfo)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	tx := h.db.Begin()

	legs, err := schedule.Plan(tx, uint(companyID), req.StartAt, req.Legs, loc)
	if err != nil {
		tx.Rollback()
		writeSchedulingError(w, err)
		return
	}

	// Commit-time re-validation. Between Plan's read and this insert another
	// request may have claimed the same worker time; the storage exclusion
	// constraint is the final arbiter, this check gives the precise error.
	for _, leg := range legs {
		if err := schedule.EnsureExclusive(tx, leg.WorkerID, leg.StartAt, leg.EndAt, 0); err != nil {
			tx.Rollback()
			writeSchedulingError(w, err)
			return
		}
	}

	total := h.pricing.AdjustTotal(customer.ID, uint(companyID), schedule.TotalPrice(legs))

	booking := models.Booking{
		Reference:  uuid.New().String(),
		CustomerID: customer.ID,
		CompanyID:  uint(companyID),
		Status:     models.BookingPending,
		StartAt:    legs[0].StartAt,
		EndAt:      legs[len(legs)-1].EndAt,
		TotalPrice: total,
		Notes:      req.Notes,
	}
	for _, leg := range legs {
		booking.Legs = append(booking.Legs, models.BookingLeg{
			ServiceID: leg.ServiceID,
			WorkerID:  leg.WorkerID,
			Status:    models.BookingPending,
			Duration:  leg.Duration,
			Price:     leg.Price,
			StartAt:   leg.StartAt,
			EndAt:     leg.EndAt,
			Notes:     leg.Notes,
		})
	}

	if err := tx.Create(&booking).Error; err != nil {
		tx.Rollback()
		if schedule.IsExclusionViolation(err) {
			writeSchedulingError(w, schedule.ErrSlotConflict)
			return
		}
		http.Error(w, "Error creating booking", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		if schedule.IsExclusionViolation(err) {
			writeSchedulingError(w, schedule.ErrSlotConflict)
			return
		}
		http.Error(w, "Error completing booking", http.StatusInternalServerError)
		return
	}

	h.reload(&booking)

	go h.notifier.BookingCreated(&booking, customer, &company)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) GetBooking(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bookingID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var booking models.Booking
	if err := h.db.Preload("Legs.Service").Preload("Legs.Worker").Preload("Customer").
		First(&booking, bookingID).Error; err != nil {
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) GetMyBookings(w http.ResponseWriter, r *http.Request) {
	customerID, err := utils.GetCustomerIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 20

	query := h.db.Model(&models.Booking{}).Where("customer_id = ?", customerID)
	if status := r.URL.Query().Get("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var total int64
	query.Count(&total)

	var bookings []models.Booking
	if err := query.Preload("Legs.Service").Preload("Legs.Worker").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Order("start_at DESC").Find(&bookings).Error; err != nil {
		http.Error(w, "Error retrieving bookings", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"bookings":    bookings,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

type legUpdate struct {
	LegID    uint   `json:"leg_id"`
	WorkerID uint   `json:"worker_id,omitempty"`
	Notes    string `json:"notes,omitempty"`
}

type updateBookingRequest struct {
	Status *models.BookingStatus `json:"status,omitempty"`
	Notes  *string               `json:"notes,omitempty"`
	Legs   []legUpdate           `json:"legs,omitempty"`
}

// UpdateBooking applies status transitions, notes and per-leg worker
// reassignment. Only legs explicitly included are re-validated; the rest are
// untouched. Reassignment keeps the leg's time window, so gaps between legs
// of a manually edited booking are permitted.
func (h *BookingHandler) UpdateBooking(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bookingID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var req updateBookingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	tx := h.db.Begin()

	var booking models.Booking
	if err := tx.Preload("Legs").First(&booking, bookingID).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}
	if !ownsBooking(r, &booking) {
		tx.Rollback()
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}

	var company models.Company
	if err := tx.First(&company, booking.CompanyID).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Company not found", http.StatusNotFound)
		return
	}
	loc, err := time.LoadLocation(company.Timezone)
	if err != nil {
		loc = time.UTC
	}

	for _, update := range req.Legs {
		if err := h.reassignLeg(tx, &booking, update, loc); err != nil {
			tx.Rollback()
			writeSchedulingError(w, err)
			return
		}
	}

	if req.Status != nil {
		if err := booking.TransitionTo(*req.Status); err != nil {
			tx.Rollback()
			writeSchedulingError(w, err)
			return
		}
		if err := tx.Model(&models.BookingLeg{}).Where("booking_id = ?", booking.ID).
			Update("status", booking.Status).Error; err != nil {
			tx.Rollback()
			http.Error(w, "Error updating booking", http.StatusInternalServerError)
			return
		}
	}
	if req.Notes != nil {
		booking.Notes = *req.Notes
	}

	if err := tx.Omit("Legs").Save(&booking).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error updating booking", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		if schedule.IsExclusionViolation(err) {
			writeSchedulingError(w, schedule.ErrSlotConflict)
			return
		}
		http.Error(w, "Error completing update", http.StatusInternalServerError)
		return
	}

	h.reload(&booking)

	if req.Status != nil {
		switch *req.Status {
		case models.BookingCancelled:
			go h.notifier.BookingCancelled(&booking, booking.Customer, &company, "")
		case models.BookingCompleted:
			go h.notifier.BookingCompleted(&booking, &company)
		}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

func (h *BookingHandler) CancelBooking(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	bookingID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid booking ID", http.StatusBadRequest)
		return
	}

	var req struct {
		Reason string `json:"reason"`
	}
	if r.Body != nil {
		json.NewDecoder(r.Body).Decode(&req)
	}

	tx := h.db.Begin()

	var booking models.Booking
	if err := tx.Preload("Legs").First(&booking, bookingID).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}
	if !ownsBooking(r, &booking) {
		tx.Rollback()
		http.Error(w, "Booking not found", http.StatusNotFound)
		return
	}

	if err := booking.TransitionTo(models.BookingCancelled); err != nil {
		tx.Rollback()
		writeSchedulingError(w, err)
		return
	}

	// Cancellation never deletes rows; the legs simply stop blocking
	// availability once their mirrored status leaves the active set.
	if err := tx.Model(&models.BookingLeg{}).Where("booking_id = ?", booking.ID).
		Update("status", models.BookingCancelled).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error cancelling booking", http.StatusInternalServerError)
		return
	}
	if err := tx.Omit("Legs").Save(&booking).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error cancelling booking", http.StatusInternalServerError)
		return
	}

	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error completing cancellation", http.StatusInternalServerError)
		return
	}

	h.reload(&booking)

	var company models.Company
	h.db.First(&company, booking.CompanyID)
	go h.notifier.BookingCancelled(&booking, booking.Customer, &company, req.Reason)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(booking)
}

// ownsBooking gates customer mutations: a request carrying a customer
// identity may only touch its own bookings, and a foreign booking id looks
// exactly like a missing one. Requests without a customer token (staff
// tooling) pass through.
func ownsBooking(r *http.Request, booking *models.Booking) bool {
	customerID, err := utils.GetCustomerIDFromContext(r)
	if err != nil {
		return true
	}
	return customerID == booking.CustomerID
}

// reload refreshes the booking with its associations for the response body.
// The booking is already committed at this point; on a failed read the
// in-memory copy is served instead.
func (h *BookingHandler) reload(booking *models.Booking) {
	if err := h.db.Preload("Legs.Service").Preload("Legs.Worker").Preload("Customer").
		First(booking, booking.ID).Error; err != nil {
		log.Printf("Error reloading booking %d for response: %v", booking.ID, err)
	}
}

// reassignLeg moves one leg to a different worker, keeping its time window.
// The new worker's free set is computed with this booking's own legs carved
// out, then re-checked for exclusivity against concurrent writers.
func (h *BookingHandler) reassignLeg(tx *gorm.DB, booking *models.Booking, update legUpdate, loc *time.Location) error {
	var leg *models.BookingLeg
	for i := range booking.Legs {
		if booking.Legs[i].ID == update.LegID {
			leg = &booking.Legs[i]
			break
		}
	}
	if leg == nil {
		return schedule.NewValidationError("leg %d does not belong to this booking", update.LegID)
	}

	if booking.Status != models.BookingPending && booking.Status != models.BookingConfirmed {
		return &models.InvalidTransitionError{From: booking.Status, To: booking.Status}
	}

	if update.Notes != "" {
		leg.Notes = update.Notes
	}
	if update.WorkerID == 0 || update.WorkerID == leg.WorkerID {
		return tx.Save(leg).Error
	}

	window := schedule.Interval{Start: leg.StartAt.UTC(), End: leg.EndAt.UTC()}
	resolver := schedule.NewResolver(tx)
	data, err := resolver.DayData(update.WorkerID, window)
	if err != nil {
		return err
	}

	// The booking's own legs must not block its own reassignment.
	kept := data.Legs[:0]
	for _, other := range data.Legs {
		if other.BookingID != booking.ID {
			kept = append(kept, other)
		}
	}
	data.Legs = kept

	free := schedule.FreeWindow(window, loc, data)
	if !schedule.Contains(free, window) {
		return &schedule.WorkerUnavailableError{
			WorkerID: update.WorkerID,
			StartAt:  window.Start,
			EndAt:    window.End,
		}
	}

	if err := schedule.EnsureExclusive(tx, update.WorkerID, window.Start, window.End, booking.ID); err != nil {
		return err
	}

	leg.WorkerID = update.WorkerID
	return tx.Save(leg).Error
}

// resolveCustomer returns the authenticated customer, or creates/reuses an
// inactive guest account from the embedded customer info.
func (h *BookingHandler) resolveCustomer(r *http.Request, info *customerInfo) (*models.Customer, error) {
	if customerID, err := utils.GetCustomerIDFromContext(r); err == nil {
		var customer models.Customer
		if err := h.db.First(&customer, customerID).Error; err != nil {
			return nil, errors.New("Customer not found")
		}
		return &customer, nil
	}

	if info == nil {
		return nil, errors.New("Customer information required for unregistered booking")
	}

	if info.ID != 0 {
		var customer models.Customer
		if err := h.db.First(&customer, info.ID).Error; err != nil {
			return nil, errors.New("Customer with provided ID not found")
		}
		return &customer, nil
	}

	if info.Email == "" || info.FirstName == "" {
		return nil, errors.New("Customer information required for unregistered booking")
	}

	var existing models.Customer
	if err := h.db.Where("email = ?", info.Email).First(&existing).Error; err == nil {
		return &existing, nil
	}

	// Guest checkout creates an inactive account with a throwaway password.
	hash, err := bcrypt.GenerateFromPassword([]byte(uuid.New().String()), bcrypt.DefaultCost)
	if err != nil {
		return nil, errors.New("Error creating customer")
	}
	customer := models.Customer{
		FirstName:    info.FirstName,
		LastName:     info.LastName,
		Email:        info.Email,
		Phone:        info.Phone,
		PasswordHash: string(hash),
		Active:       false,
	}
	if err := h.db.Create(&customer).Error; err != nil {
		return nil, errors.New("Error creating customer")
	}
	return &customer, nil
}

// writeSchedulingError maps engine errors to transport responses. Validation
// failures are 400, availability misses and commit races are both 409 but
// carry distinct codes so clients can retry the race immediately.
func writeSchedulingError(w http.ResponseWriter, err error) {
	w.Header().Set("Content-Type", "application/json")

	var validationErr *schedule.ValidationError
	if errors.As(err, &validationErr) {
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{
			"code":  "validation_error",
			"error": validationErr.Error(),
		})
		return
	}

	var unavailableErr *schedule.WorkerUnavailableError
	if errors.As(err, &unavailableErr) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"code":      "worker_unavailable",
			"error":     unavailableErr.Error(),
			"leg_index": unavailableErr.LegIndex,
			"worker_id": unavailableErr.WorkerID,
			"start_at":  unavailableErr.StartAt.UTC().Format(time.RFC3339),
			"end_at":    unavailableErr.EndAt.UTC().Format(time.RFC3339),
		})
		return
	}

	if errors.Is(err, schedule.ErrSlotConflict) {
		w.WriteHeader(http.StatusConflict)
		json.NewEncoder(w).Encode(map[string]string{
			"code":  "slot_conflict",
			"error": "The selected time was booked concurrently, please re-query availability",
		})
		return
	}

	var transitionErr *models.InvalidTransitionError
	if errors.As(err, &transitionErr) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(map[string]string{
			"code":  "invalid_state_transition",
			"error": transitionErr.Error(),
		})
		return
	}

	w.WriteHeader(http.StatusInternalServerError)
	json.NewEncoder(w).Encode(map[string]string{
		"code":  "internal_error",
		"error": "Internal server error",
	})
}
