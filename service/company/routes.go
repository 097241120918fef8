package company

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/elvinmirzazada/salona-api/cmd/models"
	"github.com/elvinmirzazada/salona-api/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type CompanyHandler struct {
	db *gorm.DB
}

func NewCompanyHandler(db *gorm.DB) *CompanyHandler {
	return &CompanyHandler{db: db}
}

func (h *CompanyHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/companies", h.GetCompanies).Methods("GET")
	router.HandleFunc("/companies/{companyId}", h.GetCompany).Methods("GET")
	router.Handle("/companies",
		utils.StaffAuthMiddleware(http.HandlerFunc(h.CreateCompany))).Methods("POST")
	router.Handle("/companies/{companyId}",
		utils.StaffAuthMiddleware(http.HandlerFunc(h.UpdateCompany))).Methods("PUT")

	router.HandleFunc("/companies/{companyId}/staff", h.GetCompanyStaff).Methods("GET")
	router.Handle("/companies/{companyId}/staff",
		utils.StaffAuthMiddleware(http.HandlerFunc(h.AddStaff))).Methods("POST")
	router.Handle("/companies/{companyId}/staff/{userId}",
		utils.StaffAuthMiddleware(http.HandlerFunc(h.RemoveStaff))).Methods("DELETE")
}

func (h *CompanyHandler) GetCompanies(w http.ResponseWriter, r *http.Request) {
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	if page < 1 {
		page = 1
	}
	pageSize := 20

	query := h.db.Model(&models.Company{}).Where("status = ?", "active")
	if search := r.URL.Query().Get("search"); search != "" {
		query = query.Where("name ILIKE ? OR city ILIKE ?", "%"+search+"%", "%"+search+"%")
	}

	var total int64
	query.Count(&total)

	var companies []models.Company
	if err := query.Offset((page - 1) * pageSize).Limit(pageSize).
		Order("name ASC").Find(&companies).Error; err != nil {
		http.Error(w, "Error retrieving companies", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"companies":   companies,
		"total":       total,
		"page":        page,
		"page_size":   pageSize,
		"total_pages": (total + int64(pageSize) - 1) / int64(pageSize),
	})
}

// GetCompany resolves by numeric id or slug.
func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var company models.Company
	if companyID, err := strconv.ParseUint(vars["companyId"], 10, 64); err == nil {
		err = h.db.First(&company, companyID).Error
		if err != nil {
			http.Error(w, "Company not found", http.StatusNotFound)
			return
		}
	} else if err := h.db.Where("slug = ?", vars["companyId"]).First(&company).Error; err != nil {
		http.Error(w, "Company not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(company)
}

type companyRequest struct {
	Name        string `json:"name"`
	Slug        string `json:"slug"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	Address     string `json:"address"`
	City        string `json:"city"`
	Country     string `json:"country"`
	Description string `json:"description"`
	Timezone    string `json:"timezone"`
}

func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" || req.Email == "" {
		http.Error(w, "Company name and email are required", http.StatusBadRequest)
		return
	}

	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}
	if _, err := time.LoadLocation(timezone); err != nil {
		http.Error(w, "Invalid timezone", http.StatusBadRequest)
		return
	}

	slug := req.Slug
	if slug == "" {
		slug = strings.ToLower(strings.ReplaceAll(req.Name, " ", "-"))
	}

	company := models.Company{
		Name:        req.Name,
		Slug:        slug,
		Email:       req.Email,
		Phone:       req.Phone,
		Address:     req.Address,
		City:        req.City,
		Country:     req.Country,
		Description: req.Description,
		Timezone:    timezone,
		OwnerID:     userID,
		Status:      "active",
	}

	tx := h.db.Begin()
	if err := tx.Create(&company).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error creating company", http.StatusInternalServerError)
		return
	}
	// The owner is always staff of their own company.
	if err := tx.Create(&models.CompanyStaff{
		CompanyID: company.ID,
		UserID:    userID,
		IsActive:  true,
	}).Error; err != nil {
		tx.Rollback()
		http.Error(w, "Error creating company", http.StatusInternalServerError)
		return
	}
	if err := tx.Commit().Error; err != nil {
		http.Error(w, "Error creating company", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(company)
}

func (h *CompanyHandler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	companyID, err := strconv.ParseUint(vars["companyId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return
	}

	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var company models.Company
	if err := h.db.First(&company, companyID).Error; err != nil {
		http.Error(w, "Company not found", http.StatusNotFound)
		return
	}
	if company.OwnerID != userID {
		http.Error(w, "Only the company owner can update the company", http.StatusForbidden)
		return
	}

	var req companyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Timezone != "" {
		if _, err := time.LoadLocation(req.Timezone); err != nil {
			http.Error(w, "Invalid timezone", http.StatusBadRequest)
			return
		}
		company.Timezone = req.Timezone
	}
	if req.Name != "" {
		company.Name = req.Name
	}
	if req.Email != "" {
		company.Email = req.Email
	}
	if req.Phone != "" {
		company.Phone = req.Phone
	}
	if req.Address != "" {
		company.Address = req.Address
	}
	if req.City != "" {
		company.City = req.City
	}
	if req.Country != "" {
		company.Country = req.Country
	}
	if req.Description != "" {
		company.Description = req.Description
	}

	if err := h.db.Save(&company).Error; err != nil {
		http.Error(w, "Error updating company", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(company)
}

func (h *CompanyHandler) GetCompanyStaff(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	companyID, err := strconv.ParseUint(vars["companyId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return
	}

	var staff []models.CompanyStaff
	if err := h.db.Preload("User").
		Where("company_id = ? AND is_active = ?", companyID, true).
		Find(&staff).Error; err != nil {
		http.Error(w, "Error retrieving staff", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(staff)
}

func (h *CompanyHandler) AddStaff(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	companyID, err := strconv.ParseUint(vars["companyId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return
	}

	var req struct {
		UserID uint `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := h.db.First(&user, req.UserID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	var existing models.CompanyStaff
	if err := h.db.Where("company_id = ? AND user_id = ?", companyID, req.UserID).
		First(&existing).Error; err == nil {
		// Re-adding former staff reactivates the membership.
		if existing.IsActive {
			http.Error(w, "User is already staff of this company", http.StatusConflict)
			return
		}
		existing.IsActive = true
		if err := h.db.Save(&existing).Error; err != nil {
			http.Error(w, "Error adding staff", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(existing)
		return
	}

	staff := models.CompanyStaff{
		CompanyID: uint(companyID),
		UserID:    req.UserID,
		IsActive:  true,
	}
	if err := h.db.Create(&staff).Error; err != nil {
		http.Error(w, "Error adding staff", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(staff)
}

// RemoveStaff deactivates the membership. Existing bookings for the worker
// keep their legs; the worker simply stops appearing in availability queries.
func (h *CompanyHandler) RemoveStaff(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	companyID, err := strconv.ParseUint(vars["companyId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return
	}
	userID, err := strconv.ParseUint(vars["userId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid user ID", http.StatusBadRequest)
		return
	}

	result := h.db.Model(&models.CompanyStaff{}).
		Where("company_id = ? AND user_id = ?", companyID, userID).
		Update("is_active", false)
	if result.Error != nil {
		http.Error(w, "Error removing staff", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Staff member not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Staff member removed",
	})
}
