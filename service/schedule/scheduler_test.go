package schedule

import (
	"testing"
	"time"

	"github.com/elvinmirzazada/salona-api/cmd/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func testDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Customer{},
		&models.Company{},
		&models.CompanyStaff{},
		&models.Service{},
		&models.CompanyService{},
		&models.WeeklyAvailability{},
		&models.TimeOff{},
		&models.Booking{},
		&models.BookingLeg{},
	))

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

type fixture struct {
	company models.Company
	worker  models.User
	haircut models.Service
	color   models.Service
}

// seedCompany creates a company with one worker available Mondays 09:00-17:00
// UTC and two offered services: a 30-minute haircut and a 60-minute coloring.
func seedCompany(t *testing.T, db *gorm.DB) fixture {
	t.Helper()

	worker := models.User{FullName: "Aysel Quliyeva", Email: "aysel@example.com", PasswordHash: "x"}
	require.NoError(t, db.Create(&worker).Error)

	company := models.Company{
		Name: "Salon One", Slug: "salon-one", Email: "salon@example.com",
		Timezone: "UTC", OwnerID: worker.ID,
	}
	require.NoError(t, db.Create(&company).Error)
	require.NoError(t, db.Create(&models.CompanyStaff{
		CompanyID: company.ID, UserID: worker.ID, IsActive: true,
	}).Error)

	require.NoError(t, db.Create(&models.WeeklyAvailability{
		UserID: worker.ID, DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00",
	}).Error)

	haircut := models.Service{Name: "Haircut", DefaultDuration: 30, DefaultPrice: 25}
	color := models.Service{Name: "Coloring", DefaultDuration: 60, DefaultPrice: 80}
	require.NoError(t, db.Create(&haircut).Error)
	require.NoError(t, db.Create(&color).Error)
	require.NoError(t, db.Create(&models.CompanyService{
		CompanyID: company.ID, ServiceID: haircut.ID, Active: true,
	}).Error)
	require.NoError(t, db.Create(&models.CompanyService{
		CompanyID: company.ID, ServiceID: color.ID, Active: true,
	}).Error)

	return fixture{company: company, worker: worker, haircut: haircut, color: color}
}

// monday is a Monday well inside the seeded weekly rule.
var monday = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func TestPlan_ChainsLegsSequentially(t *testing.T) {
	db := testDB(t)
	fx := seedCompany(t, db)

	legs, err := Plan(db, fx.company.ID, monday, []LegRequest{
		{ServiceID: fx.haircut.ID, WorkerID: fx.worker.ID},
		{ServiceID: fx.color.ID, WorkerID: fx.worker.ID},
	}, time.UTC)

	require.NoError(t, err)
	require.Len(t, legs, 2)

	assert.True(t, legs[0].StartAt.Equal(monday))
	assert.True(t, legs[0].EndAt.Equal(monday.Add(30*time.Minute)))
	assert.True(t, legs[1].StartAt.Equal(monday.Add(30*time.Minute)))
	assert.True(t, legs[1].EndAt.Equal(monday.Add(90*time.Minute)))

	assert.Equal(t, 30, legs[0].Duration)
	assert.Equal(t, 60, legs[1].Duration)
	assert.Equal(t, 105.0, TotalPrice(legs))
}

func TestPlan_UsesCompanyOverrides(t *testing.T) {
	db := testDB(t)
	fx := seedCompany(t, db)

	duration := 45
	price := 35.0
	require.NoError(t, db.Model(&models.CompanyService{}).
		Where("company_id = ? AND service_id = ?", fx.company.ID, fx.haircut.ID).
		Updates(map[string]interface{}{"custom_duration": duration, "custom_price": price}).Error)

	legs, err := Plan(db, fx.company.ID, monday, []LegRequest{
		{ServiceID: fx.haircut.ID, WorkerID: fx.worker.ID},
	}, time.UTC)

	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, 45, legs[0].Duration)
	assert.Equal(t, 35.0, legs[0].Price)
	assert.True(t, legs[0].EndAt.Equal(monday.Add(45*time.Minute)))
}

func TestPlan_WorkerUnavailableAbortsWholeAttempt(t *testing.T) {
	db := testDB(t)
	fx := seedCompany(t, db)

	// 16:45 start: the haircut fits before 17:00 but the coloring does not.
	late := time.Date(2026, 3, 2, 16, 45, 0, 0, time.UTC)
	legs, err := Plan(db, fx.company.ID, late, []LegRequest{
		{ServiceID: fx.haircut.ID, WorkerID: fx.worker.ID},
		{ServiceID: fx.color.ID, WorkerID: fx.worker.ID},
	}, time.UTC)

	require.Error(t, err)
	assert.Nil(t, legs)

	var unavailable *WorkerUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 1, unavailable.LegIndex)
	assert.Equal(t, fx.worker.ID, unavailable.WorkerID)
}

func TestPlan_ExistingBookingBlocksOverlap(t *testing.T) {
	db := testDB(t)
	fx := seedCompany(t, db)

	require.NoError(t, db.Create(&models.BookingLeg{
		BookingID: 999, ServiceID: fx.haircut.ID, WorkerID: fx.worker.ID,
		Status: models.BookingConfirmed, Duration: 30, Price: 25,
		StartAt: monday.Add(15 * time.Minute), EndAt: monday.Add(45 * time.Minute),
	}).Error)

	_, err := Plan(db, fx.company.ID, monday, []LegRequest{
		{ServiceID: fx.haircut.ID, WorkerID: fx.worker.ID},
	}, time.UTC)

	var unavailable *WorkerUnavailableError
	require.ErrorAs(t, err, &unavailable)
	assert.Equal(t, 0, unavailable.LegIndex)
}

func TestPlan_CancelledBookingDoesNotBlock(t *testing.T) {
	db := testDB(t)
	fx := seedCompany(t, db)

	require.NoError(t, db.Create(&models.BookingLeg{
		BookingID: 999, ServiceID: fx.haircut.ID, WorkerID: fx.worker.ID,
		Status: models.BookingCancelled, Duration: 30, Price: 25,
		StartAt: monday, EndAt: monday.Add(30 * time.Minute),
	}).Error)

	legs, err := Plan(db, fx.company.ID, monday, []LegRequest{
		{ServiceID: fx.haircut.ID, WorkerID: fx.worker.ID},
	}, time.UTC)

	require.NoError(t, err)
	require.Len(t, legs, 1)
}

func TestPlan_ValidationErrors(t *testing.T) {
	db := testDB(t)
	fx := seedCompany(t, db)

	var validation *ValidationError

	_, err := Plan(db, fx.company.ID, monday, nil, time.UTC)
	require.ErrorAs(t, err, &validation)

	_, err = Plan(db, fx.company.ID, monday, []LegRequest{
		{ServiceID: fx.haircut.ID},
	}, time.UTC)
	require.ErrorAs(t, err, &validation)

	_, err = Plan(db, fx.company.ID, monday, []LegRequest{
		{ServiceID: 12345, WorkerID: fx.worker.ID},
	}, time.UTC)
	require.ErrorAs(t, err, &validation)
}

func TestPlan_InactiveServiceRejected(t *testing.T) {
	db := testDB(t)
	fx := seedCompany(t, db)

	require.NoError(t, db.Model(&models.CompanyService{}).
		Where("company_id = ? AND service_id = ?", fx.company.ID, fx.haircut.ID).
		Update("active", false).Error)

	_, err := Plan(db, fx.company.ID, monday, []LegRequest{
		{ServiceID: fx.haircut.ID, WorkerID: fx.worker.ID},
	}, time.UTC)

	var validation *ValidationError
	require.ErrorAs(t, err, &validation)
}
