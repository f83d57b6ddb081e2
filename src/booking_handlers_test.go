package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"
	"wanderlust/src/db"
	"wanderlust/src/lib"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"
	"github.com/tidwall/gjson"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

const (
	testUserId = uint(7)
	testSecret = "test_key_secret"
)

type fakeOrderClient struct {
	calls       int
	amountMinor int64
	currency    string
}

func (f *fakeOrderClient) CreateOrder(amountMinor int64, currency string, receipt string) (map[string]any, error) {
	f.calls++
	f.amountMinor = amountMinor
	f.currency = currency
	return map[string]any{
		"id":       "order_EKwxwAgItmmXdp",
		"amount":   amountMinor,
		"currency": currency,
		"receipt":  receipt,
		"status":   "created",
	}, nil
}

type BookingTestSuite struct {
	suite.Suite
	Mock   sqlmock.Sqlmock
	Fake   *fakeOrderClient
	Router *gin.Engine
}

func newMockDB() (*gorm.DB, sqlmock.Sqlmock) {
	conn, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening a stub database connection", err)
	}
	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: conn}), &gorm.Config{})
	if err != nil {
		log.Fatalf("An error '%s' was not expected when opening gorm database", err)
	}
	return gormDB, mock
}

func stubAuthMiddleware(ctx *gin.Context) {
	ctx.Set("id", testUserId)
	ctx.Set("email", "traveler@example.com")
	ctx.Set("username", "traveler1")
}

func (s *BookingTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	os.Setenv("RAZORPAY_KEY_SECRET", testSecret)
	registerValidators()
}

func (s *BookingTestSuite) SetupTest() {
	d, mock := newMockDB()
	db.NewDB(d)
	s.Mock = mock

	s.Fake = &fakeOrderClient{}
	lib.NewOrderClient(s.Fake)

	router := gin.New()
	authorized := router.Group(apiPrefix)
	authorized.Use(stubAuthMiddleware)
	bookingHandlers(authorized)
	s.Router = router
}

func (s *BookingTestSuite) post(path string, body map[string]any) *httptest.ResponseRecorder {
	b, _ := json.Marshal(body)
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, strings.NewReader(string(b)))
	req.Header.Set("Content-Type", "application/json")
	s.Router.ServeHTTP(w, req)
	return w
}

func signFor(orderId, paymentId, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(orderId + "|" + paymentId))
	return hex.EncodeToString(mac.Sum(nil))
}

func bookingColumns() []string {
	return []string{
		"id", "listing_id", "traveler_id", "check_in", "check_out",
		"number_of_guests", "total_price", "status", "order_id",
		"payment_id", "payment_status",
	}
}

func listingRow(ownerId uint) *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "title", "price", "location", "country", "owner_id"}).
		AddRow(1, "Cozy Beachfront Cottage", 625, "Goa", "India", ownerId)
}

func (s *BookingTestSuite) TestCreateOrderInvertedDatesRejected() {
	w := s.post("/api/v1/listings/1/bookings/create-order", map[string]any{
		"amount":           2500,
		"check_in":         "2025-06-10",
		"check_out":        "2025-06-08",
		"number_of_guests": 2,
	})

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	// rejected before any processor or ledger interaction
	assert.Equal(s.T(), 0, s.Fake.calls)
}

func (s *BookingTestSuite) TestCreateOrderStayTooLongRejected() {
	s.Mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRow(3))

	w := s.post("/api/v1/listings/1/bookings/create-order", map[string]any{
		"amount":           2500,
		"check_in":         "2025-06-01",
		"check_out":        "2025-07-10",
		"number_of_guests": 2,
	})

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	rbytes, _ := io.ReadAll(w.Body)
	assert.Contains(s.T(), gjson.GetBytes(rbytes, "message").String(), "30 days")
	assert.Equal(s.T(), 0, s.Fake.calls)
}

func (s *BookingTestSuite) TestCreateOrderSelfBookingRejected() {
	s.Mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRow(testUserId))

	w := s.post("/api/v1/listings/1/bookings/create-order", map[string]any{
		"amount":           2500,
		"check_in":         "2025-06-01",
		"check_out":        "2025-06-05",
		"number_of_guests": 2,
	})

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	rbytes, _ := io.ReadAll(w.Body)
	assert.False(s.T(), gjson.GetBytes(rbytes, "success").Bool())
	assert.Equal(s.T(), 0, s.Fake.calls)
}

func (s *BookingTestSuite) TestCreateOrderConvertsToMinorUnits() {
	newId := uuid.New()
	s.Mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRow(3))
	s.Mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	s.Mock.ExpectBegin()
	s.Mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	s.Mock.ExpectQuery(`INSERT INTO "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(newId.String()))
	s.Mock.ExpectCommit()

	w := s.post("/api/v1/listings/1/bookings/create-order", map[string]any{
		"amount":           2500,
		"check_in":         "2025-06-01",
		"check_out":        "2025-06-05",
		"number_of_guests": 2,
	})

	assert.Equal(s.T(), http.StatusOK, w.Code)
	assert.Equal(s.T(), 1, s.Fake.calls)
	assert.Equal(s.T(), int64(250000), s.Fake.amountMinor)
	assert.Equal(s.T(), "INR", s.Fake.currency)
	rbytes, _ := io.ReadAll(w.Body)
	assert.True(s.T(), gjson.GetBytes(rbytes, "success").Bool())
	assert.Equal(s.T(), "order_EKwxwAgItmmXdp", gjson.GetBytes(rbytes, "order.id").String())
	assert.Equal(s.T(), newId.String(), gjson.GetBytes(rbytes, "bookingId").String())
	assert.Nil(s.T(), s.Mock.ExpectationsWereMet())
}

func (s *BookingTestSuite) TestCreateOrderRejectsUnavailableDates() {
	s.Mock.ExpectQuery(`SELECT (.+) FROM "listings"`).
		WillReturnRows(listingRow(3))
	s.Mock.ExpectQuery(`SELECT count\(\*\) FROM "bookings"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	w := s.post("/api/v1/listings/1/bookings/create-order", map[string]any{
		"amount":           2500,
		"check_in":         "2025-06-01",
		"check_out":        "2025-06-05",
		"number_of_guests": 2,
	})

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	rbytes, _ := io.ReadAll(w.Body)
	assert.Contains(s.T(), gjson.GetBytes(rbytes, "message").String(), "already booked")
	assert.Equal(s.T(), 0, s.Fake.calls)
}

func (s *BookingTestSuite) TestVerifyPaymentTamperedSignature() {
	w := s.post("/api/v1/listings/1/bookings/verify-payment", map[string]any{
		"razorpay_order_id":   "order_EKwxwAgItmmXdp",
		"razorpay_payment_id": "pay_29QQoUBi66xm2f",
		"razorpay_signature":  "deadbeef",
	})

	assert.Equal(s.T(), http.StatusBadRequest, w.Code)
	rbytes, _ := io.ReadAll(w.Body)
	assert.False(s.T(), gjson.GetBytes(rbytes, "success").Bool())
	assert.Equal(s.T(), "Invalid Signature", gjson.GetBytes(rbytes, "message").String())
	// nothing was persisted
	assert.Nil(s.T(), s.Mock.ExpectationsWereMet())
}

func (s *BookingTestSuite) TestVerifyPaymentConfirmsPendingBooking() {
	orderId := "order_EKwxwAgItmmXdp"
	paymentId := "pay_29QQoUBi66xm2f"
	bookingId := uuid.New()

	checkIn := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	checkOut := time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)
	pending := sqlmock.NewRows(bookingColumns()).
		AddRow(bookingId.String(), 1, testUserId, checkIn, checkOut, 2, 2500, "pending", orderId, nil, "unpaid")

	s.Mock.ExpectBegin()
	s.Mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE payment_id`).
		WillReturnRows(sqlmock.NewRows(bookingColumns()))
	s.Mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE "bookings"\."order_id"`).
		WillReturnRows(pending)
	s.Mock.ExpectExec(`UPDATE "bookings" SET`).
		WillReturnResult(sqlmock.NewResult(0, 1))
	s.Mock.ExpectQuery(`INSERT INTO "notification_jobs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	s.Mock.ExpectQuery(`INSERT INTO "notification_jobs"`).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(uuid.New().String()))
	s.Mock.ExpectCommit()

	w := s.post("/api/v1/listings/1/bookings/verify-payment", map[string]any{
		"razorpay_order_id":   orderId,
		"razorpay_payment_id": paymentId,
		"razorpay_signature":  signFor(orderId, paymentId, testSecret),
		"bookingDetails": map[string]any{
			"listingId":      "1",
			"userId":         "7",
			"checkIn":        "2025-06-01",
			"checkOut":       "2025-06-05",
			"numberOfGuests": 2,
			"totalPrice":     2500,
		},
	})

	assert.Equal(s.T(), http.StatusOK, w.Code)
	rbytes, _ := io.ReadAll(w.Body)
	assert.True(s.T(), gjson.GetBytes(rbytes, "success").Bool())
	assert.Equal(s.T(), "Payment verified and Booking confirmed", gjson.GetBytes(rbytes, "message").String())
	assert.Equal(s.T(), bookingId.String(), gjson.GetBytes(rbytes, "bookingId").String())
	assert.Equal(s.T(), "/listings/1/"+bookingId.String()+"/success", gjson.GetBytes(rbytes, "redirectUrl").String())
}

func (s *BookingTestSuite) TestVerifyPaymentLedgerGapIsNotAPaymentFailure() {
	orderId := "order_unknown"
	paymentId := "pay_29QQoUBi66xm2f"

	s.Mock.ExpectBegin()
	s.Mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE payment_id`).
		WillReturnRows(sqlmock.NewRows(bookingColumns()))
	s.Mock.ExpectQuery(`SELECT (.+) FROM "bookings" WHERE "bookings"\."order_id"`).
		WillReturnRows(sqlmock.NewRows(bookingColumns()))
	s.Mock.ExpectRollback()

	w := s.post("/api/v1/listings/1/bookings/verify-payment", map[string]any{
		"razorpay_order_id":   orderId,
		"razorpay_payment_id": paymentId,
		"razorpay_signature":  signFor(orderId, paymentId, testSecret),
	})

	assert.Equal(s.T(), http.StatusInternalServerError, w.Code)
	rbytes, _ := io.ReadAll(w.Body)
	assert.False(s.T(), gjson.GetBytes(rbytes, "success").Bool())
	assert.Equal(s.T(), "Payment captured, booking pending reconciliation", gjson.GetBytes(rbytes, "message").String())
}

func TestBookingTestSuite(t *testing.T) {
	suite.Run(t, new(BookingTestSuite))
}
