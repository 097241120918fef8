package booking

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/elvinmirzazada/salona-api/cmd/models"
	"github.com/elvinmirzazada/salona-api/cmd/utils"
	"github.com/elvinmirzazada/salona-api/service/notification"
	"github.com/gorilla/mux"
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
		&models.Notification{},
	))

	t.Cleanup(func() {
		// Give fire-and-forget notifier goroutines time to finish before the
		// database goes away.
		time.Sleep(50 * time.Millisecond)
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})
	return db
}

type fixture struct {
	db      *gorm.DB
	router  *mux.Router
	company models.Company
	worker  models.User
	haircut models.Service
	color   models.Service
}

func setup(t *testing.T) fixture {
	t.Helper()
	db := testDB(t)

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

	router := mux.NewRouter()
	NewBookingHandler(db, notification.NewNotifier(db)).RegisterRoutes(router)

	return fixture{db: db, router: router, company: company, worker: worker, haircut: haircut, color: color}
}

// futureMonday returns the next Monday at 10:00 UTC at least a week out, so
// the past-start guard never trips regardless of when the tests run.
func futureMonday() time.Time {
	d := time.Now().UTC().AddDate(0, 0, 7)
	for d.Weekday() != time.Monday {
		d = d.AddDate(0, 0, 1)
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 10, 0, 0, 0, time.UTC)
}

func (fx fixture) createBooking(t *testing.T, body map[string]interface{}) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/companies/%d/bookings", fx.company.ID), bytes.NewReader(payload))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	return rec
}

func guestBody(startAt time.Time, legs ...map[string]interface{}) map[string]interface{} {
	return map[string]interface{}{
		"start_at": startAt.Format(time.RFC3339),
		"legs":     legs,
		"customer_info": map[string]interface{}{
			"first_name": "Leyla",
			"last_name":  "Mammadova",
			"email":      "leyla@example.com",
		},
	}
}

func TestCreateBooking_GuestCheckout(t *testing.T) {
	fx := setup(t)
	start := futureMonday()

	rec := fx.createBooking(t, guestBody(start,
		map[string]interface{}{"service_id": fx.haircut.ID, "worker_id": fx.worker.ID},
		map[string]interface{}{"service_id": fx.color.ID, "worker_id": fx.worker.ID},
	))

	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var booking models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booking))
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.NotEmpty(t, booking.Reference)
	assert.Equal(t, 105.0, booking.TotalPrice)
	require.Len(t, booking.Legs, 2)
	assert.True(t, booking.StartAt.Equal(start))
	assert.True(t, booking.EndAt.Equal(start.Add(90*time.Minute)))
	assert.True(t, booking.Legs[1].StartAt.Equal(booking.Legs[0].EndAt))

	// Guest checkout created an inactive customer account.
	var customer models.Customer
	require.NoError(t, fx.db.Where("email = ?", "leyla@example.com").First(&customer).Error)
	assert.False(t, customer.Active)
	assert.Equal(t, customer.ID, booking.CustomerID)
}

func TestCreateBooking_OverlapReturnsConflict(t *testing.T) {
	fx := setup(t)
	start := futureMonday()

	first := fx.createBooking(t, guestBody(start,
		map[string]interface{}{"service_id": fx.haircut.ID, "worker_id": fx.worker.ID},
	))
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	second := fx.createBooking(t, guestBody(start.Add(15*time.Minute),
		map[string]interface{}{"service_id": fx.haircut.ID, "worker_id": fx.worker.ID},
	))
	require.Equal(t, http.StatusConflict, second.Code, second.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(second.Body.Bytes(), &resp))
	assert.Equal(t, "worker_unavailable", resp["code"])
}

func TestCreateBooking_PastStartRejected(t *testing.T) {
	fx := setup(t)

	rec := fx.createBooking(t, guestBody(time.Now().UTC().Add(-time.Hour),
		map[string]interface{}{"service_id": fx.haircut.ID, "worker_id": fx.worker.ID},
	))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBooking_OutsideWorkingHours(t *testing.T) {
	fx := setup(t)
	// 18:00 on a Monday is past the 17:00 rule end.
	start := futureMonday().Add(8 * time.Hour)

	rec := fx.createBooking(t, guestBody(start,
		map[string]interface{}{"service_id": fx.haircut.ID, "worker_id": fx.worker.ID},
	))

	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "worker_unavailable", resp["code"])
}

func TestCreateBooking_UnknownServiceRejected(t *testing.T) {
	fx := setup(t)

	rec := fx.createBooking(t, guestBody(futureMonday(),
		map[string]interface{}{"service_id": 9999, "worker_id": fx.worker.ID},
	))

	require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "validation_error", resp["code"])
}

func TestCancelBooking_FreesTheSlot(t *testing.T) {
	fx := setup(t)
	start := futureMonday()
	body := guestBody(start,
		map[string]interface{}{"service_id": fx.haircut.ID, "worker_id": fx.worker.ID},
	)

	first := fx.createBooking(t, body)
	require.Equal(t, http.StatusCreated, first.Code, first.Body.String())

	var booking models.Booking
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &booking))

	blocked := fx.createBooking(t, body)
	require.Equal(t, http.StatusConflict, blocked.Code)

	cancelReq := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/bookings/%d/cancel", booking.ID),
		bytes.NewReader([]byte(`{"reason":"customer request"}`)))
	cancelRec := httptest.NewRecorder()
	fx.router.ServeHTTP(cancelRec, cancelReq)
	require.Equal(t, http.StatusOK, cancelRec.Code, cancelRec.Body.String())

	var cancelled models.Booking
	require.NoError(t, json.Unmarshal(cancelRec.Body.Bytes(), &cancelled))
	assert.Equal(t, models.BookingCancelled, cancelled.Status)
	for _, leg := range cancelled.Legs {
		assert.Equal(t, models.BookingCancelled, leg.Status)
	}

	retry := fx.createBooking(t, body)
	assert.Equal(t, http.StatusCreated, retry.Code, retry.Body.String())
}

func TestCancelBooking_TwiceIsInvalid(t *testing.T) {
	fx := setup(t)

	first := fx.createBooking(t, guestBody(futureMonday(),
		map[string]interface{}{"service_id": fx.haircut.ID, "worker_id": fx.worker.ID},
	))
	require.Equal(t, http.StatusCreated, first.Code)

	var booking models.Booking
	require.NoError(t, json.Unmarshal(first.Body.Bytes(), &booking))

	for i, wantCode := range []int{http.StatusOK, http.StatusUnprocessableEntity} {
		req := httptest.NewRequest(http.MethodPost,
			fmt.Sprintf("/bookings/%d/cancel", booking.ID), nil)
		rec := httptest.NewRecorder()
		fx.router.ServeHTTP(rec, req)
		require.Equal(t, wantCode, rec.Code, "attempt %d: %s", i, rec.Body.String())
	}
}

func TestUpdateBooking_StatusTransition(t *testing.T) {
	fx := setup(t)

	created := fx.createBooking(t, guestBody(futureMonday(),
		map[string]interface{}{"service_id": fx.haircut.ID, "worker_id": fx.worker.ID},
	))
	require.Equal(t, http.StatusCreated, created.Code)

	var booking models.Booking
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &booking))

	patch := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch,
			fmt.Sprintf("/bookings/%d", booking.ID), bytes.NewReader([]byte(body)))
		rec := httptest.NewRecorder()
		fx.router.ServeHTTP(rec, req)
		return rec
	}

	rec := patch(`{"status":"confirmed"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, models.BookingConfirmed, updated.Status)
	for _, leg := range updated.Legs {
		assert.Equal(t, models.BookingConfirmed, leg.Status)
	}

	// Confirmed bookings cannot go back to pending.
	rec = patch(`{"status":"pending"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestUpdateBooking_ReassignWorker(t *testing.T) {
	fx := setup(t)

	other := models.User{FullName: "Rauf Aliyev", Email: "rauf@example.com", PasswordHash: "x"}
	require.NoError(t, fx.db.Create(&other).Error)
	require.NoError(t, fx.db.Create(&models.CompanyStaff{
		CompanyID: fx.company.ID, UserID: other.ID, IsActive: true,
	}).Error)
	require.NoError(t, fx.db.Create(&models.WeeklyAvailability{
		UserID: other.ID, DayOfWeek: 1, StartTime: "09:00", EndTime: "17:00",
	}).Error)

	created := fx.createBooking(t, guestBody(futureMonday(),
		map[string]interface{}{"service_id": fx.haircut.ID, "worker_id": fx.worker.ID},
	))
	require.Equal(t, http.StatusCreated, created.Code)

	var booking models.Booking
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &booking))
	require.Len(t, booking.Legs, 1)

	payload := fmt.Sprintf(`{"legs":[{"leg_id":%d,"worker_id":%d}]}`, booking.Legs[0].ID, other.ID)
	req := httptest.NewRequest(http.MethodPatch,
		fmt.Sprintf("/bookings/%d", booking.ID), bytes.NewReader([]byte(payload)))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var updated models.Booking
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, other.ID, updated.Legs[0].WorkerID)
	assert.True(t, updated.Legs[0].StartAt.Equal(booking.Legs[0].StartAt))
}

func TestUpdateBooking_ReassignToUnavailableWorkerFails(t *testing.T) {
	fx := setup(t)

	// No weekly rules: the second worker is never available.
	other := models.User{FullName: "Rauf Aliyev", Email: "rauf@example.com", PasswordHash: "x"}
	require.NoError(t, fx.db.Create(&other).Error)

	created := fx.createBooking(t, guestBody(futureMonday(),
		map[string]interface{}{"service_id": fx.haircut.ID, "worker_id": fx.worker.ID},
	))
	require.Equal(t, http.StatusCreated, created.Code)

	var booking models.Booking
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &booking))

	payload := fmt.Sprintf(`{"legs":[{"leg_id":%d,"worker_id":%d}]}`, booking.Legs[0].ID, other.ID)
	req := httptest.NewRequest(http.MethodPatch,
		fmt.Sprintf("/bookings/%d", booking.ID), bytes.NewReader([]byte(payload)))
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusConflict, rec.Code, rec.Body.String())

	// The original assignment survives the failed update.
	var leg models.BookingLeg
	require.NoError(t, fx.db.First(&leg, booking.Legs[0].ID).Error)
	assert.Equal(t, fx.worker.ID, leg.WorkerID)
}

func TestReload_KeepsInMemoryBookingOnReadFailure(t *testing.T) {
	db := testDB(t)
	h := NewBookingHandler(db, notification.NewNotifier(db))

	booking := models.Booking{
		Reference:  "ref-123",
		Status:     models.BookingPending,
		TotalPrice: 25,
	}
	booking.ID = 5

	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	h.reload(&booking)

	assert.Equal(t, "ref-123", booking.Reference)
	assert.Equal(t, models.BookingPending, booking.Status)
	assert.Equal(t, 25.0, booking.TotalPrice)
}

func TestCancelBooking_ForeignCustomerSeesNotFound(t *testing.T) {
	fx := setup(t)
	t.Setenv("SECRET_KEY", "test-secret")

	created := fx.createBooking(t, guestBody(futureMonday(),
		map[string]interface{}{"service_id": fx.haircut.ID, "worker_id": fx.worker.ID},
	))
	require.Equal(t, http.StatusCreated, created.Code)

	var booking models.Booking
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &booking))

	intruder := models.Customer{
		FirstName: "Nigar", LastName: "Hasanova",
		Email: "nigar@example.com", PasswordHash: "x", Active: true,
	}
	require.NoError(t, fx.db.Create(&intruder).Error)
	token, err := utils.GenerateToken(intruder.ID, utils.AudienceCustomer, 60)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/bookings/%d/cancel", booking.ID), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	// The booking is untouched.
	var stored models.Booking
	require.NoError(t, fx.db.First(&stored, booking.ID).Error)
	assert.Equal(t, models.BookingPending, stored.Status)

	// The owner's own token cancels it.
	ownerToken, err := utils.GenerateToken(booking.CustomerID, utils.AudienceCustomer, 60)
	require.NoError(t, err)
	req = httptest.NewRequest(http.MethodPost,
		fmt.Sprintf("/bookings/%d/cancel", booking.ID), nil)
	req.Header.Set("Authorization", "Bearer "+ownerToken)
	rec = httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
}

func TestUpdateBooking_ForeignCustomerSeesNotFound(t *testing.T) {
	fx := setup(t)
	t.Setenv("SECRET_KEY", "test-secret")

	created := fx.createBooking(t, guestBody(futureMonday(),
		map[string]interface{}{"service_id": fx.haircut.ID, "worker_id": fx.worker.ID},
	))
	require.Equal(t, http.StatusCreated, created.Code)

	var booking models.Booking
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &booking))

	intruder := models.Customer{
		FirstName: "Nigar", LastName: "Hasanova",
		Email: "nigar@example.com", PasswordHash: "x", Active: true,
	}
	require.NoError(t, fx.db.Create(&intruder).Error)
	token, err := utils.GenerateToken(intruder.ID, utils.AudienceCustomer, 60)
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPatch,
		fmt.Sprintf("/bookings/%d", booking.ID),
		bytes.NewReader([]byte(`{"status":"confirmed"}`)))
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusNotFound, rec.Code, rec.Body.String())

	var stored models.Booking
	require.NoError(t, fx.db.First(&stored, booking.ID).Error)
	assert.Equal(t, models.BookingPending, stored.Status)
}

func TestGetBooking_NotFound(t *testing.T) {
	fx := setup(t)

	req := httptest.NewRequest(http.MethodGet, "/bookings/9999", nil)
	rec := httptest.NewRecorder()
	fx.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
