package catalog

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/elvinmirzazada/salona-api/cmd/models"
	"github.com/elvinmirzazada/salona-api/cmd/utils"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type CatalogHandler struct {
	db *gorm.DB
}

func NewCatalogHandler(db *gorm.DB) *CatalogHandler {
	return &CatalogHandler{db: db}
}

func (h *CatalogHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/services", h.GetServices).Methods("GET")
	router.HandleFunc("/services/{id}", h.GetService).Methods("GET")
	router.Handle("/services",
		utils.StaffAuthMiddleware(http.HandlerFunc(h.CreateService))).Methods("POST")
	router.Handle("/services/{id}",
		utils.StaffAuthMiddleware(http.HandlerFunc(h.UpdateService))).Methods("PUT")

	router.HandleFunc("/companies/{companyId}/services", h.GetCompanyServices).Methods("GET")
	router.Handle("/companies/{companyId}/services",
		utils.StaffAuthMiddleware(http.HandlerFunc(h.AddCompanyService))).Methods("POST")
	router.Handle("/companies/{companyId}/services/{id}",
		utils.StaffAuthMiddleware(http.HandlerFunc(h.UpdateCompanyService))).Methods("PUT")
	router.Handle("/companies/{companyId}/services/{id}",
		utils.StaffAuthMiddleware(http.HandlerFunc(h.RemoveCompanyService))).Methods("DELETE")
}

func (h *CatalogHandler) GetServices(w http.ResponseWriter, r *http.Request) {
	var services []models.Service
	query := h.db.Model(&models.Service{})
	if search := r.URL.Query().Get("search"); search != "" {
		query = query.Where("name ILIKE ?", "%"+search+"%")
	}
	if err := query.Order("name ASC").Find(&services).Error; err != nil {
		http.Error(w, "Error retrieving services", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(services)
}

func (h *CatalogHandler) GetService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	serviceID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid service ID", http.StatusBadRequest)
		return
	}

	var service models.Service
	if err := h.db.First(&service, serviceID).Error; err != nil {
		http.Error(w, "Service not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(service)
}

type serviceRequest struct {
	Name            string  `json:"name"`
	Description     string  `json:"description"`
	DefaultDuration int     `json:"default_duration"`
	DefaultPrice    float64 `json:"default_price"`
}

func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Service name is required", http.StatusBadRequest)
		return
	}
	if req.DefaultDuration <= 0 {
		http.Error(w, "Service duration must be positive", http.StatusBadRequest)
		return
	}

	service := models.Service{
		Name:            req.Name,
		Description:     req.Description,
		DefaultDuration: req.DefaultDuration,
		DefaultPrice:    req.DefaultPrice,
	}
	if err := h.db.Create(&service).Error; err != nil {
		http.Error(w, "Error creating service", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(service)
}

func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	serviceID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid service ID", http.StatusBadRequest)
		return
	}

	var service models.Service
	if err := h.db.First(&service, serviceID).Error; err != nil {
		http.Error(w, "Service not found", http.StatusNotFound)
		return
	}

	var req serviceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Name != "" {
		service.Name = req.Name
	}
	if req.Description != "" {
		service.Description = req.Description
	}
	if req.DefaultDuration > 0 {
		service.DefaultDuration = req.DefaultDuration
	}
	if req.DefaultPrice > 0 {
		service.DefaultPrice = req.DefaultPrice
	}

	if err := h.db.Save(&service).Error; err != nil {
		http.Error(w, "Error updating service", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(service)
}

// GetCompanyServices lists the company's offered services with effective
// duration and price resolved from overrides.
func (h *CatalogHandler) GetCompanyServices(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	companyID, err := strconv.ParseUint(vars["companyId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return
	}

	query := h.db.Preload("Service").Where("company_id = ?", companyID)
	if r.URL.Query().Get("include_inactive") != "true" {
		query = query.Where("active = ?", true)
	}

	var companyServices []models.CompanyService
	if err := query.Find(&companyServices).Error; err != nil {
		http.Error(w, "Error retrieving company services", http.StatusInternalServerError)
		return
	}

	type offeredService struct {
		models.CompanyService
		EffectiveDuration int     `json:"effective_duration"`
		EffectivePrice    float64 `json:"effective_price"`
	}
	offered := make([]offeredService, 0, len(companyServices))
	for _, cs := range companyServices {
		offered = append(offered, offeredService{
			CompanyService:    cs,
			EffectiveDuration: cs.EffectiveDuration(),
			EffectivePrice:    cs.EffectivePrice(),
		})
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(offered)
}

type companyServiceRequest struct {
	ServiceID      uint     `json:"service_id"`
	CustomDuration *int     `json:"custom_duration,omitempty"`
	CustomPrice    *float64 `json:"custom_price,omitempty"`
	Active         *bool    `json:"active,omitempty"`
}

func (h *CatalogHandler) AddCompanyService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	companyID, err := strconv.ParseUint(vars["companyId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return
	}

	var req companyServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var service models.Service
	if err := h.db.First(&service, req.ServiceID).Error; err != nil {
		http.Error(w, "Service not found", http.StatusNotFound)
		return
	}
	if req.CustomDuration != nil && *req.CustomDuration <= 0 {
		http.Error(w, "Custom duration must be positive", http.StatusBadRequest)
		return
	}

	var existing models.CompanyService
	if err := h.db.Where("company_id = ? AND service_id = ?", companyID, req.ServiceID).
		First(&existing).Error; err == nil {
		http.Error(w, "Service already offered by this company", http.StatusConflict)
		return
	}

	companyService := models.CompanyService{
		CompanyID:      uint(companyID),
		ServiceID:      req.ServiceID,
		CustomDuration: req.CustomDuration,
		CustomPrice:    req.CustomPrice,
		Active:         true,
	}
	if err := h.db.Create(&companyService).Error; err != nil {
		http.Error(w, "Error adding service to company", http.StatusInternalServerError)
		return
	}

	h.db.Preload("Service").First(&companyService, companyService.ID)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(companyService)
}

func (h *CatalogHandler) UpdateCompanyService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	companyID, err := strconv.ParseUint(vars["companyId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return
	}
	companyServiceID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid company service ID", http.StatusBadRequest)
		return
	}

	var companyService models.CompanyService
	if err := h.db.Where("company_id = ?", companyID).
		First(&companyService, companyServiceID).Error; err != nil {
		http.Error(w, "Company service not found", http.StatusNotFound)
		return
	}

	var req companyServiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.CustomDuration != nil && *req.CustomDuration <= 0 {
		http.Error(w, "Custom duration must be positive", http.StatusBadRequest)
		return
	}

	// Existing booking legs keep their snapshot; overrides apply to new
	// bookings only.
	companyService.CustomDuration = req.CustomDuration
	companyService.CustomPrice = req.CustomPrice
	if req.Active != nil {
		companyService.Active = *req.Active
	}

	if err := h.db.Save(&companyService).Error; err != nil {
		http.Error(w, "Error updating company service", http.StatusInternalServerError)
		return
	}

	h.db.Preload("Service").First(&companyService, companyService.ID)

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(companyService)
}

// RemoveCompanyService deactivates the offering rather than deleting it, so
// existing bookings keep a resolvable reference.
func (h *CatalogHandler) RemoveCompanyService(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	companyID, err := strconv.ParseUint(vars["companyId"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid company ID", http.StatusBadRequest)
		return
	}
	companyServiceID, err := strconv.ParseUint(vars["id"], 10, 64)
	if err != nil {
		http.Error(w, "Invalid company service ID", http.StatusBadRequest)
		return
	}

	result := h.db.Model(&models.CompanyService{}).
		Where("id = ? AND company_id = ?", companyServiceID, companyID).
		Update("active", false)
	if result.Error != nil {
		http.Error(w, "Error removing company service", http.StatusInternalServerError)
		return
	}
	if result.RowsAffected == 0 {
		http.Error(w, "Company service not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"message": "Service removed from company",
	})
}
