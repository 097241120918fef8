package availability

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elvinmirzazada/salona-api/cmd/models"
	"github.com/elvinmirzazada/salona-api/service/schedule"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type AvailabilityHandler struct {
	db *gorm.DB
}

func NewAvailabilityHandler(db *gorm.DB) *AvailabilityHandler {
	return &AvailabilityHandler{db: db}
}

func (h *AvailabilityHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/workers/{workerId}/availability", h.CreateWeeklyRule).Methods("POST")
	router.HandleFunc("/workers/{workerId}/availability", h.GetWeeklyRules).Methods("GET")
	router.HandleFunc("/workers/{workerId}/availability/{id}", h.UpdateWeeklyRule).Methods("PUT")
	router.HandleFunc("/workers/{workerId}/availability/{id}", h.DeleteWeeklyRule).Methods("DELETE")

	router.HandleFunc("/workers/{workerId}/time-off", h.CreateTimeOff).Methods("POST")
	router.HandleFunc("/workers/{workerId}/time-off", h.GetTimeOffs).Methods("GET")
	router.HandleFunc("/workers/{workerId}/time-off/{id}", h.DeleteTimeOff).Methods("DELETE")

	router.HandleFunc("/companies/{companyId}/availability", h.GetCompanySlots).Methods("GET")
}

func (h *AvailabilityHandler) CreateWeeklyRule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	workerID, err := strconv.ParseUint(vars["workerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid worker ID", http.StatusBadRequest)
		return
	}

	var rule models.WeeklyAvailability
	if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	rule.UserID = uint(workerID)

	if err := validateRule(&rule); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Split shifts are allowed, overlapping rules on the same day are not.
	var existing []models.WeeklyAvailability
	if err := h.db.Where("user_id = ? AND day_of_week = ?", workerID, rule.DayOfWeek).
		Find(&existing).Error; err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	for _, other := range existing {
		if rulesOverlap(&rule, &other) {
			http.Error(w, "Rule overlaps with existing availability", http.StatusConflict)
			return
		}
	}

	if err := h.db.Create(&rule).Error; err != nil {
		http.Error(w, "Error creating availability rule", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(rule)
}

func (h *AvailabilityHandler) GetWeeklyRules(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	workerID, err := strconv.ParseUint(vars["workerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid worker ID", http.StatusBadRequest)
		return
	}

	var rules []models.WeeklyAvailability
	if err := h.db.Where("user_id = ?", workerID).
		Order("day_of_week, start_time").Find(&rules).Error; err != nil {
		http.Error(w, "Error retrieving availability rules", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rules)
}

func (h *AvailabilityHandler) UpdateWeeklyRule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	workerID, err := strconv.ParseUint(vars["workerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid worker ID", http.StatusBadRequest)
		return
	}
	ruleID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid rule ID", http.StatusBadRequest)
		return
	}

	var updateData models.WeeklyAvailability
	if err := json.NewDecoder(r.Body).Decode(&updateData); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	updateData.UserID = uint(workerID)
	if err := validateRule(&updateData); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	var rule models.WeeklyAvailability
	if err := h.db.Where("id = ? AND user_id = ?", ruleID, workerID).First(&rule).Error; err != nil {
		http.Error(w, "Availability rule not found", http.StatusNotFound)
		return
	}

	var existing []models.WeeklyAvailability
	if err := h.db.Where("user_id = ? AND day_of_week = ? AND id <> ?",
		workerID, updateData.DayOfWeek, ruleID).Find(&existing).Error; err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	for _, other := range existing {
		if rulesOverlap(&updateData, &other) {
			http.Error(w, "Rule overlaps with existing availability", http.StatusConflict)
			return
		}
	}

	rule.DayOfWeek = updateData.DayOfWeek
	rule.StartTime = updateData.StartTime
	rule.EndTime = updateData.EndTime

	if err := h.db.Save(&rule).Error; err != nil {
		http.Error(w, "Error updating availability rule", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(rule)
}

func (h *AvailabilityHandler) DeleteWeeklyRule(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	workerID, err := strconv.ParseUint(vars["workerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid worker ID", http.StatusBadRequest)
		return
	}
	ruleID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid rule ID", http.StatusBadRequest)
		return
	}

	result := h.db.Where("id = ? AND user_id = ?", ruleID, workerID).Delete(&models.WeeklyAvailability{})
	if result.Error != nil {
		http.Error(w, "Error deleting availability rule", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Availability rule not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Availability rule deleted successfully",
	})
}

func (h *AvailabilityHandler) CreateTimeOff(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	workerID, err := strconv.ParseUint(vars["workerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid worker ID", http.StatusBadRequest)
		return
	}

	var timeOff models.TimeOff
	if err := json.NewDecoder(r.Body).Decode(&timeOff); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	timeOff.UserID = uint(workerID)

	if !timeOff.EndAt.After(timeOff.StartAt) {
		http.Error(w, "End time must be after start time", http.StatusBadRequest)
		return
	}

	if err := h.db.Create(&timeOff).Error; err != nil {
		http.Error(w, "Error creating time off", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(timeOff)
}

func (h *AvailabilityHandler) GetTimeOffs(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	workerID, err := strconv.ParseUint(vars["workerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid worker ID", http.StatusBadRequest)
		return
	}

	query := h.db.Where("user_id = ?", workerID)
	if from := r.URL.Query().Get("from"); from != "" {
		query = query.Where("end_at >= ?", from)
	}
	if to := r.URL.Query().Get("to"); to != "" {
		query = query.Where("start_at <= ?", to)
	}

	var timeOffs []models.TimeOff
	if err := query.Order("start_at").Find(&timeOffs).Error; err != nil {
		http.Error(w, "Error retrieving time offs", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(timeOffs)
}

func (h *AvailabilityHandler) DeleteTimeOff(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	workerID, err := strconv.ParseUint(vars["workerId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid worker ID", http.StatusBadRequest)
		return
	}
	timeOffID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid time off ID", http.StatusBadRequest)
		return
	}

	result := h.db.Where("id = ? AND user_id = ?", timeOffID, workerID).Delete(&models.TimeOff{})
	if result.Error != nil {
		http.Error(w, "Error deleting time off", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Time off not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Time off deleted successfully",
	})
}

// GetCompanySlots is the public availability query: bookable windows for the
// combined duration of the requested services on one date. When no worker is
// pinned the union across the company's active staff is returned without
// worker attribution; callers that need a deterministic worker must pin one.
func (h *AvailabilityHandler) GetCompanySlots(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	companyID, err := strconv.ParseUint(vars["companyId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
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

	date, err := time.ParseInLocation("2006-01-02", r.URL.Query().Get("date"), loc)
	if err != nil {
		http.Error(w, "Invalid date format. Use YYYY-MM-DD", http.StatusBadRequest)
		return
	}

	totalDuration, err := h.totalServiceDuration(uint(companyID), r.URL.Query().Get("service_ids"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	workerIDs, err := h.resolveWorkers(uint(companyID), r.URL.Query().Get("worker_id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	// Same-day queries never return retroactive slots. include_past=true is
	// the administrative backfill escape hatch.
	notBefore := time.Now().UTC()
	if r.URL.Query().Get("include_past") == "true" {
		notBefore = time.Time{}
	}

	resolver := schedule.NewResolver(h.db)
	step := schedule.Step()

	lists := make([][]schedule.Slot, 0, len(workerIDs))
	for _, workerID := range workerIDs {
		free, err := resolver.FreeSet(workerID, date, loc)
		if err != nil {
			http.Error(w, "Error computing availability", http.StatusInternalServerError)
			return
		}
		lists = append(lists, schedule.Slots(free, totalDuration, step, notBefore))
	}
	slots := schedule.UnionSlots(lists...)
	if slots == nil {
		slots = []schedule.Slot{}
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"date":  date.Format("2006-01-02"),
		"slots": slots,
	})
}

func (h *AvailabilityHandler) totalServiceDuration(companyID uint, raw string) (time.Duration, error) {
	if strings.TrimSpace(raw) == "" {
		return 0, errors.New("service_ids is required")
	}

	var total int
	for _, part := range strings.Split(raw, ",") {
		serviceID, err := strconv.ParseUint(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return 0, errors.New("Invalid service ID: " + part)
		}

		var cs models.CompanyService
		err = h.db.Preload("Service").
			Where("company_id = ? AND service_id = ? AND active = ?", companyID, serviceID, true).
			First(&cs).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, errors.New("Service not found or doesn't belong to this company: " + part)
		}
		if err != nil {
			return 0, errors.New("Database error")
		}
		total += cs.EffectiveDuration()
	}
	if total <= 0 {
		return 0, errors.New("Requested services have no positive duration")
	}
	return time.Duration(total) * time.Minute, nil
}

func (h *AvailabilityHandler) resolveWorkers(companyID uint, raw string) ([]uint, error) {
	if raw != "" {
		workerID, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, errors.New("Invalid worker ID")
		}
		var staff models.CompanyStaff
		if err := h.db.Where("company_id = ? AND user_id = ? AND is_active = ?",
			companyID, workerID, true).First(&staff).Error; err != nil {
			return nil, errors.New("Worker not found or doesn't belong to this company")
		}
		return []uint{uint(workerID)}, nil
	}

	var staff []models.CompanyStaff
	if err := h.db.Where("company_id = ? AND is_active = ?", companyID, true).Find(&staff).Error; err != nil {
		return nil, errors.New("Database error")
	}
	workerIDs := make([]uint, 0, len(staff))
	for _, s := range staff {
		workerIDs = append(workerIDs, s.UserID)
	}
	return workerIDs, nil
}

func validateRule(rule *models.WeeklyAvailability) error {
	if rule.DayOfWeek < 0 || rule.DayOfWeek > 6 {
		return errors.New("day_of_week must be between 0 (Sunday) and 6 (Saturday)")
	}
	if _, err := time.Parse("15:04", rule.StartTime); err != nil {
		return errors.New("start_time must be in HH:MM format")
	}
	if _, err := time.Parse("15:04", rule.EndTime); err != nil {
		return errors.New("end_time must be in HH:MM format")
	}
	return nil
}

// rulesOverlap compares two same-day rules on the local wall clock. Rules
// wrapping past midnight are treated as running to 24:00 on their own day;
// the spill into the next day is handled by the resolver, not here.
func rulesOverlap(a, b *models.WeeklyAvailability) bool {
	aStart, aEnd := ruleMinutes(a)
	bStart, bEnd := ruleMinutes(b)
	return aStart < bEnd && bStart < aEnd
}

func ruleMinutes(rule *models.WeeklyAvailability) (start, end int) {
	s, _ := time.Parse("15:04", rule.StartTime)
	e, _ := time.Parse("15:04", rule.EndTime)
	start = s.Hour()*60 + s.Minute()
	end = e.Hour()*60 + e.Minute()
	if end <= start {
		end = 24 * 60
	}
	return start, end
}
