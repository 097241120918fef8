package db

import (
	"log"
	"os"

	"github.com/joho/godotenv"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func NewPSQLStorage() (*gorm.DB, error) {

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}

	connString := os.Getenv("DB_URL")

	db, err := gorm.Open(postgres.Open(connString), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}

	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(25)

	return db, nil
}

// EnsureSchedulingConstraints installs the storage-level exclusivity guarantee
// for booking legs: two active legs for the same worker can never hold
// overlapping time ranges, regardless of how many application instances are
// writing. The application-level re-check only exists for a better error
// message; this constraint is the final arbiter.
func EnsureSchedulingConstraints(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS btree_gist`).Error; err != nil {
		return err
	}

	return db.Exec(`
DO $$
BEGIN
    ALTER TABLE booking_legs
        ADD CONSTRAINT booking_legs_worker_time_excl
        EXCLUDE USING gist (
            worker_id WITH =,
            tstzrange(start_at, end_at) WITH &&
        ) WHERE (status IN ('pending', 'confirmed'));
EXCEPTION
    WHEN duplicate_table THEN NULL;
    WHEN duplicate_object THEN NULL;
END
$$`).Error
}
