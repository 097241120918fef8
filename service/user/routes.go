package user

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/elvinmirzazada/salona-api/cmd/models"
	"github.com/elvinmirzazada/salona-api/cmd/utils"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	accessTokenMinutes = 60
	refreshTokenDays   = 30
)

type UserHandler struct {
	db *gorm.DB
}

func NewUserHandler(db *gorm.DB) *UserHandler {
	return &UserHandler{db: db}
}

func (h *UserHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/customers/register", h.RegisterCustomer).Methods("POST")
	router.HandleFunc("/customers/login", h.LoginCustomer).Methods("POST")
	router.HandleFunc("/customers/refresh", h.RefreshCustomer).Methods("POST")
	router.Handle("/customers/me",
		utils.CustomerAuthMiddleware(http.HandlerFunc(h.GetCustomerProfile))).Methods("GET")

	router.HandleFunc("/users/register", h.RegisterStaff).Methods("POST")
	router.HandleFunc("/users/login", h.LoginStaff).Methods("POST")
	router.HandleFunc("/users/refresh", h.RefreshStaff).Methods("POST")
	router.Handle("/users/me",
		utils.StaffAuthMiddleware(http.HandlerFunc(h.GetStaffProfile))).Methods("GET")
}

type registerCustomerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Password  string `json:"password"`
}

func (h *UserHandler) RegisterCustomer(w http.ResponseWriter, r *http.Request) {
	var req registerCustomerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" || req.FirstName == "" {
		http.Error(w, "First name, email and password are required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	var existing models.Customer
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		// A guest checkout may have created an inactive account for this
		// email. Registration claims it instead of failing.
		if existing.Active {
			http.Error(w, "Email already registered", http.StatusConflict)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			http.Error(w, "Error creating account", http.StatusInternalServerError)
			return
		}
		existing.FirstName = req.FirstName
		existing.LastName = req.LastName
		existing.Phone = req.Phone
		existing.PasswordHash = string(hash)
		existing.Active = true
		if err := h.db.Save(&existing).Error; err != nil {
			http.Error(w, "Error creating account", http.StatusInternalServerError)
			return
		}
		h.respondWithCustomerTokens(w, &existing, http.StatusOK)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error creating account", http.StatusInternalServerError)
		return
	}

	customer := models.Customer{
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Active:       true,
	}
	if err := h.db.Create(&customer).Error; err != nil {
		http.Error(w, "Error creating account", http.StatusInternalServerError)
		return
	}

	h.respondWithCustomerTokens(w, &customer, http.StatusCreated)
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *UserHandler) LoginCustomer(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var customer models.Customer
	if err := h.db.Where("email = ? AND active = ?", req.Email, true).
		First(&customer).Error; err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(customer.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	h.respondWithCustomerTokens(w, &customer, http.StatusOK)
}

func (h *UserHandler) RefreshCustomer(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		http.Error(w, "Refresh token required", http.StatusBadRequest)
		return
	}

	var customer models.Customer
	if err := h.db.Where("refresh_token = ?", req.RefreshToken).
		First(&customer).Error; err != nil {
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}
	if time.Now().After(customer.RefreshTokenExpiredAt) {
		http.Error(w, "Refresh token expired", http.StatusUnauthorized)
		return
	}

	h.respondWithCustomerTokens(w, &customer, http.StatusOK)
}

func (h *UserHandler) GetCustomerProfile(w http.ResponseWriter, r *http.Request) {
	customerID, err := utils.GetCustomerIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var customer models.Customer
	if err := h.db.First(&customer, customerID).Error; err != nil {
		http.Error(w, "Customer not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(customer)
}

type registerStaffRequest struct {
	FullName string `json:"full_name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

func (h *UserHandler) RegisterStaff(w http.ResponseWriter, r *http.Request) {
	var req registerStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.Email == "" || req.Password == "" || req.FullName == "" {
		http.Error(w, "Full name, email and password are required", http.StatusBadRequest)
		return
	}
	if len(req.Password) < 8 {
		http.Error(w, "Password must be at least 8 characters", http.StatusBadRequest)
		return
	}

	role := req.Role
	switch role {
	case "":
		role = models.RoleWorker
	case models.RoleWorker, models.RoleAdmin, models.RoleOwner:
	default:
		http.Error(w, "Invalid role", http.StatusBadRequest)
		return
	}

	var existing models.User
	if err := h.db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		http.Error(w, "Email already registered", http.StatusConflict)
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		http.Error(w, "Error creating account", http.StatusInternalServerError)
		return
	}

	user := models.User{
		FullName:     req.FullName,
		Email:        req.Email,
		Phone:        req.Phone,
		PasswordHash: string(hash),
		Role:         role,
		Status:       "active",
	}
	if err := h.db.Create(&user).Error; err != nil {
		http.Error(w, "Error creating account", http.StatusInternalServerError)
		return
	}

	h.respondWithStaffTokens(w, &user, http.StatusCreated)
}

func (h *UserHandler) LoginStaff(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := h.db.Where("email = ? AND status = ?", req.Email, "active").
		First(&user).Error; err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		http.Error(w, "Invalid credentials", http.StatusUnauthorized)
		return
	}

	h.respondWithStaffTokens(w, &user, http.StatusOK)
}

func (h *UserHandler) RefreshStaff(w http.ResponseWriter, r *http.Request) {
	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		http.Error(w, "Refresh token required", http.StatusBadRequest)
		return
	}

	var user models.User
	if err := h.db.Where("refresh_token = ?", req.RefreshToken).
		First(&user).Error; err != nil {
		http.Error(w, "Invalid refresh token", http.StatusUnauthorized)
		return
	}
	if time.Now().After(user.RefreshTokenExpiredAt) {
		http.Error(w, "Refresh token expired", http.StatusUnauthorized)
		return
	}

	h.respondWithStaffTokens(w, &user, http.StatusOK)
}

func (h *UserHandler) GetStaffProfile(w http.ResponseWriter, r *http.Request) {
	userID, err := utils.GetUserIDFromContext(r)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	var user models.User
	if err := h.db.Preload("WeeklyAvailabilities").First(&user, userID).Error; err != nil {
		http.Error(w, "User not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(user)
}

// respondWithCustomerTokens rotates the refresh token and returns the token
// pair with the profile.
func (h *UserHandler) respondWithCustomerTokens(w http.ResponseWriter, customer *models.Customer, status int) {
	accessToken, err := utils.GenerateToken(customer.ID, utils.AudienceCustomer, accessTokenMinutes)
	if err != nil {
		http.Error(w, "Error generating token", http.StatusInternalServerError)
		return
	}

	customer.Refresh = uuid.New().String()
	customer.RefreshTokenExpiredAt = time.Now().AddDate(0, 0, refreshTokenDays)
	if err := h.db.Save(customer).Error; err != nil {
		http.Error(w, "Error generating token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": customer.Refresh,
		"customer":      customer,
	})
}

func (h *UserHandler) respondWithStaffTokens(w http.ResponseWriter, user *models.User, status int) {
	accessToken, err := utils.GenerateToken(user.ID, utils.AudienceStaff, accessTokenMinutes)
	if err != nil {
		http.Error(w, "Error generating token", http.StatusInternalServerError)
		return
	}

	user.Refresh = uuid.New().String()
	user.RefreshTokenExpiredAt = time.Now().AddDate(0, 0, refreshTokenDays)
	if err := h.db.Save(user).Error; err != nil {
		http.Error(w, "Error generating token", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"access_token":  accessToken,
		"refresh_token": user.Refresh,
		"user":          user,
	})
}
