package main

import (
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/elvinmirzazada/salona-api/cmd/api"
	"github.com/elvinmirzazada/salona-api/cmd/models"
	"github.com/elvinmirzazada/salona-api/db"
	"gorm.io/gorm"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "migrate":
			runMigrations()
			return
		case "clear-db":
			runDatabaseClear()
			return
		default:
			log.Fatalf("Unknown command: %s", os.Args[1])
		}
	}

	startServer()
}

func runMigrations() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database for migrations")

	if err := performMigrations(DB); err != nil {
		log.Fatalf("Migration error: %v", err)
	}
	log.Println("Migrations completed successfully")
}

func performMigrations(DB *gorm.DB) error {
	migrations := map[interface{}]string{
		&models.User{}:               "User",
		&models.Customer{}:           "Customer",
		&models.Company{}:            "Company",
		&models.CompanyStaff{}:       "CompanyStaff",
		&models.Service{}:            "Service",
		&models.CompanyService{}:     "CompanyService",
		&models.WeeklyAvailability{}: "WeeklyAvailability",
		&models.TimeOff{}:            "TimeOff",
		&models.Booking{}:            "Booking",
		&models.BookingLeg{}:         "BookingLeg",
		&models.Notification{}:       "Notification",
	}

	log.Println("Starting database migrations...")
	for model, name := range migrations {
		log.Printf("Migrating %s table...", name)
		if err := DB.AutoMigrate(model); err != nil {
			return fmt.Errorf("error migrating %s table: %w", name, err)
		}
		log.Printf("%s migration successful", name)
	}

	// The worker time exclusion constraint lives outside AutoMigrate.
	log.Println("Installing scheduling constraints...")
	if err := db.EnsureSchedulingConstraints(DB); err != nil {
		return fmt.Errorf("error installing scheduling constraints: %w", err)
	}

	log.Println("All migrations completed successfully")
	return nil
}

func startServer() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()
	log.Println("Connected to the database")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	server := api.NewApiServer(":"+port, DB)

	go func() {
		if err := server.Run(); err != nil {
			log.Fatalf("Server error: %v", err)
		}
	}()
	log.Printf("Server running on port %s", port)

	<-quit
	log.Println("Shutting down server...")
}

func clearDatabase(DB *gorm.DB, tables []interface{}) error {
	if len(tables) == 0 {
		tables = []interface{}{
			&models.Notification{},
			&models.BookingLeg{},
			&models.Booking{},
			&models.TimeOff{},
			&models.WeeklyAvailability{},
			&models.CompanyService{},
			&models.CompanyStaff{},
			&models.Service{},
			&models.Company{},
			&models.Customer{},
			&models.User{},
		}
	}

	log.Println("Dropping tables...")

	for _, table := range tables {
		if err := DB.Migrator().DropTable(table); err != nil {
			log.Printf("Warning dropping table %T: %v", table, err)
		} else {
			log.Printf("Table %T dropped", table)
		}
	}

	return nil
}

func runDatabaseClear() {
	DB, err := db.NewPSQLStorage()
	if err != nil {
		log.Fatalf("Database initialization error: %v", err)
	}
	defer func() {
		sqlDB, _ := DB.DB()
		sqlDB.Close()
		log.Println("Database connection closed")
	}()

	log.Println("Preparing to clear database...")

	var confirmation string
	fmt.Print("Are you sure you want to clear the database? (yes/no): ")
	fmt.Scanln(&confirmation)

	if confirmation != "yes" {
		log.Println("Database clearing cancelled.")
		return
	}

	var tableNames string
	fmt.Print("Enter table names to clear (comma separated) or leave blank to clear all: ")
	fmt.Scanln(&tableNames)

	var tables []interface{}
	if tableNames != "" {
		for _, table := range strings.Split(tableNames, ",") {
			switch strings.TrimSpace(table) {
			case "User":
				tables = append(tables, &models.User{})
			case "Customer":
				tables = append(tables, &models.Customer{})
			case "Company":
				tables = append(tables, &models.Company{})
			case "CompanyStaff":
				tables = append(tables, &models.CompanyStaff{})
			case "Service":
				tables = append(tables, &models.Service{})
			case "CompanyService":
				tables = append(tables, &models.CompanyService{})
			case "WeeklyAvailability":
				tables = append(tables, &models.WeeklyAvailability{})
			case "TimeOff":
				tables = append(tables, &models.TimeOff{})
			case "Booking":
				tables = append(tables, &models.Booking{})
			case "BookingLeg":
				tables = append(tables, &models.BookingLeg{})
			case "Notification":
				tables = append(tables, &models.Notification{})
			default:
				log.Printf("Unknown table: %s", table)
			}
		}
	}

	if err := clearDatabase(DB, tables); err != nil {
		log.Fatalf("Error clearing database: %v", err)
	}

	log.Println("Database cleared successfully")
}
