package api

import (
	"log"
	"net/http"

	"github.com/elvinmirzazada/salona-api/service/availability"
	"github.com/elvinmirzazada/salona-api/service/booking"
	"github.com/elvinmirzazada/salona-api/service/catalog"
	"github.com/elvinmirzazada/salona-api/service/company"
	"github.com/elvinmirzazada/salona-api/service/notification"
	"github.com/elvinmirzazada/salona-api/service/user"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"gorm.io/gorm"
)

type APIServer struct {
	address string
	db      *gorm.DB
}

func NewApiServer(address string, db *gorm.DB) *APIServer {
	return &APIServer{
		address: address,
		db:      db,
	}
}

func (s *APIServer) Run() error {
	router := mux.NewRouter()
	subrouter := router.PathPrefix("/api/v1").Subrouter()

	userHandler := user.NewUserHandler(s.db)
	userHandler.RegisterRoutes(subrouter)

	companyHandler := company.NewCompanyHandler(s.db)
	companyHandler.RegisterRoutes(subrouter)

	catalogHandler := catalog.NewCatalogHandler(s.db)
	catalogHandler.RegisterRoutes(subrouter)

	availabilityHandler := availability.NewAvailabilityHandler(s.db)
	availabilityHandler.RegisterRoutes(subrouter)

	notifier := notification.NewNotifier(s.db)

	bookingHandler := booking.NewBookingHandler(s.db, notifier)
	bookingHandler.RegisterRoutes(subrouter)

	notificationHandler := notification.NewNotificationHandler(s.db)
	notificationHandler.RegisterRoutes(subrouter)

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)

	log.Println("Server running at", s.address)
	return http.ListenAndServe(s.address, cors(router))
}
