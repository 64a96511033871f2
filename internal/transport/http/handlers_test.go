package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"coursehub/internal/application/usecase"
	"coursehub/internal/domain"
	"coursehub/internal/infrastructure/gateway"
	"coursehub/internal/infrastructure/logger"
	"coursehub/internal/infrastructure/security"
	"coursehub/internal/middleware"
	"coursehub/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	keySecret     = "key_secret"
	webhookSecret = "webhook_secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubGateway struct {
	mu     sync.Mutex
	orders map[string]*gateway.Order
	err    error
}

func (g *stubGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return nil, g.err
	}
	o := &gateway.Order{ID: fmt.Sprintf("order_%d", len(g.orders)+1), Amount: req.Amount, Currency: req.Currency, Receipt: req.Receipt, Notes: req.Notes}
	g.orders[o.ID] = o
	return o, nil
}

func (g *stubGateway) FetchOrder(_ context.Context, id string) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if o, ok := g.orders[id]; ok {
		return o, nil
	}
	return nil, gateway.ErrOrderNotFound
}

func (g *stubGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return gateway.VerifySignature(orderID, paymentID, signature, keySecret)
}

func (g *stubGateway) VerifyWebhookSignature(raw []byte, signature string) bool {
	return gateway.VerifyWebhookSignature(raw, signature, webhookSecret)
}

type testServer struct {
	router  *gin.Engine
	db      *gorm.DB
	courses *repository.CourseRepository
	gw      *stubGateway
	tokens  *security.TokenManager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:http_%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.AutoMigrate(db))

	log := logger.NewNop()
	courses := repository.NewCourseRepository(db, nil)
	purchases := repository.NewPurchaseRepository(db)
	progress := repository.NewProgressRepository(db)
	events := repository.NewWebhookEventRepository(db)
	gw := &stubGateway{orders: map[string]*gateway.Order{}}
	tokens := security.NewTokenManager("access_secret")

	purchaseUC := usecase.NewPurchaseUseCase(courses, purchases, events, gw, log)
	progressUC := usecase.NewProgressUseCase(courses, progress, purchases, log)
	catalogUC := usecase.NewCatalogUseCase(courses, purchases, log)

	router := NewRouter(RouterDeps{
		Course:      NewCourseHandler(catalogUC, log),
		Payment:     NewPaymentHandler(purchaseUC, "rzp_test_key", log),
		Progress:    NewProgressHandler(progressUC, log),
		Health:      NewHealthHandler(db, nil),
		Tokens:      tokens,
		Limiter:     middleware.NewRateLimiter(nil),
		Log:         log,
		ServiceName: "coursehub-test",
	})
	return &testServer{router: router, db: db, courses: courses, gw: gw, tokens: tokens}
}

func (s *testServer) course(t *testing.T, price int64, lectures int) *domain.Course {
	t.Helper()
	c := &domain.Course{
		ID:           uuid.New(),
		Title:        "Distributed Systems",
		Description:  "consensus and replication",
		Category:     "programming",
		Level:        "advanced",
		Price:        decimal.NewFromInt(price),
		InstructorID: uuid.New(),
	}
	for i := 0; i < lectures; i++ {
		c.Lectures = append(c.Lectures, domain.Lecture{ID: uuid.New(), Title: fmt.Sprintf("L%d", i), VideoURL: "https://cdn/x.mp4", Position: i})
	}
	require.NoError(t, s.courses.Upsert(context.Background(), c))
	return c
}

func (s *testServer) token(t *testing.T, user uuid.UUID) string {
	t.Helper()
	tok, err := s.tokens.GenerateAccess(user)
	require.NoError(t, err)
	return tok
}

type call struct {
	method, path string
	body         interface{}
	token        string
	headers      map[string]string
}

func (s *testServer) do(t *testing.T, c call) (int, map[string]interface{}) {
	t.Helper()
	var buf bytes.Buffer
	switch b := c.body.(type) {
	case nil:
	case []byte:
		buf.Write(b)
	default:
		require.NoError(t, json.NewEncoder(&buf).Encode(b))
	}
	req := httptest.NewRequest(c.method, c.path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var out map[string]interface{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec.Code, out
}

func data(t *testing.T, body map[string]interface{}) map[string]interface{} {
	t.Helper()
	d, ok := body["data"].(map[string]interface{})
	require.True(t, ok, "missing data in %v", body)
	return d
}

func TestPurchaseAndProgressFlow(t *testing.T) {
	s := newTestServer(t)
	course := s.course(t, 500, 4)
	user := uuid.New()
	tok := s.token(t, user)

	code, body := s.do(t, call{method: http.MethodPost, path: "/api/v1/payments/checkout", token: tok, body: gin.H{"courseId": course.ID}})
	require.Equal(t, http.StatusOK, code, body)
	order := data(t, body)["order"].(map[string]interface{})
	assert.EqualValues(t, 50000, order["amount"])
	assert.Equal(t, "INR", order["currency"])
	assert.Equal(t, "rzp_test_key", data(t, body)["keyId"])
	orderID := order["id"].(string)

	code, body = s.do(t, call{method: http.MethodGet, path: "/api/v1/payments/purchase-status?courseId=" + course.ID.String(), token: tok})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, data(t, body)["hasPurchased"])

	code, _ = s.do(t, call{method: http.MethodPatch, path: fmt.Sprintf("/api/v1/progress/%s/lectures/%s", course.ID, course.Lectures[0].ID), token: tok})
	assert.Equal(t, http.StatusForbidden, code)

	verify := gin.H{
		"razorpay_order_id":   orderID,
		"razorpay_payment_id": "pay_1",
		"razorpay_signature":  gateway.PaymentSignature(orderID, "pay_1", keySecret),
		"courseId":            course.ID,
	}
	code, body = s.do(t, call{method: http.MethodPost, path: "/api/v1/payments/verify", token: tok, body: verify})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "success", body["status"])

	code, body = s.do(t, call{method: http.MethodPost, path: "/api/v1/payments/verify", token: tok, body: verify})
	assert.Equal(t, http.StatusConflict, code)
	assert.Equal(t, "fail", body["status"])

	code, body = s.do(t, call{method: http.MethodPost, path: "/api/v1/payments/checkout", token: tok, body: gin.H{"courseId": course.ID}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "You have already purchased this course", body["message"])

	for _, l := range course.Lectures[:2] {
		code, body = s.do(t, call{method: http.MethodPatch, path: fmt.Sprintf("/api/v1/progress/%s/lectures/%s", course.ID, l.ID), token: tok})
		require.Equal(t, http.StatusOK, code, body)
	}
	assert.Equal(t, "Lecture progress updated successfully", body["message"])

	code, body = s.do(t, call{method: http.MethodGet, path: "/api/v1/progress/" + course.ID.String(), token: tok})
	require.Equal(t, http.StatusOK, code)
	d := data(t, body)
	assert.EqualValues(t, 2, d["completedLectures"])
	assert.EqualValues(t, 4, d["totalLectures"])
	assert.EqualValues(t, 50, d["percentage"])

	code, body = s.do(t, call{method: http.MethodPatch, path: "/api/v1/progress/" + course.ID.String() + "/complete", token: tok})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "You are not eligible for certificate complete the remaining course", body["message"])
	assert.Equal(t, false, data(t, body)["eligible"])

	code, body = s.do(t, call{method: http.MethodPatch, path: "/api/v1/progress/" + course.ID.String() + "/reset", token: tok})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, "Course progress has been reset", body["message"])

	code, body = s.do(t, call{method: http.MethodGet, path: "/api/v1/payments/purchases", token: tok})
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, data(t, body)["purchases"], 1)

	code, body = s.do(t, call{method: http.MethodGet, path: "/api/v1/courses/" + course.ID.String() + "/lectures", token: tok})
	require.Equal(t, http.StatusOK, code)
	assert.Len(t, data(t, body)["lectures"], 4)
}

func TestVerifyRejectsTamperedSignature(t *testing.T) {
	s := newTestServer(t)
	course := s.course(t, 500, 1)
	tok := s.token(t, uuid.New())

	code, body := s.do(t, call{method: http.MethodPost, path: "/api/v1/payments/verify", token: tok, body: gin.H{
		"orderId": "o1", "paymentId": "p1", "signature": gateway.PaymentSignature("o1", "p2", keySecret), "courseId": course.ID,
	}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Payment verification failed", body["message"])

	code, _ = s.do(t, call{method: http.MethodPost, path: "/api/v1/payments/verify", token: tok, body: gin.H{"orderId": "o1"}})
	assert.Equal(t, http.StatusBadRequest, code)

	var n int64
	require.NoError(t, s.db.Model(&domain.Purchase{}).Count(&n).Error)
	assert.Zero(t, n)
}

func TestWebhookUsesRawBody(t *testing.T) {
	s := newTestServer(t)

	// Key order and spacing differ from what json.Marshal would produce.
	raw := []byte(`{ "event":"payment.captured",  "payload":{"payment":{"entity":{"order_id":"order_1","id":"pay_1"}}}}`)

	code, body := s.do(t, call{method: http.MethodPost, path: "/api/v1/payments/webhook", body: raw, headers: map[string]string{
		"X-Razorpay-Signature": gateway.WebhookSignature(raw, webhookSecret),
		"X-Razorpay-Event-Id":  "evt_1",
	}})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, true, body["received"])
	assert.NotContains(t, body, "duplicate")

	code, body = s.do(t, call{method: http.MethodPost, path: "/api/v1/payments/webhook", body: raw, headers: map[string]string{
		"X-Razorpay-Signature": gateway.WebhookSignature(raw, webhookSecret),
		"X-Razorpay-Event-Id":  "evt_1",
	}})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, true, body["duplicate"])

	code, body = s.do(t, call{method: http.MethodPost, path: "/api/v1/payments/webhook", body: raw, headers: map[string]string{
		"X-Razorpay-Signature": gateway.WebhookSignature(raw, "another_secret"),
	}})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Invalid signature", body["message"])

	var n int64
	require.NoError(t, s.db.Model(&domain.WebhookEvent{}).Count(&n).Error)
	assert.EqualValues(t, 1, n)
}

func TestWebhookMalformedBodyIsAcknowledged(t *testing.T) {
	s := newTestServer(t)
	raw := []byte("not json at all")

	code, body := s.do(t, call{method: http.MethodPost, path: "/api/v1/payments/webhook", body: raw, headers: map[string]string{
		"X-Razorpay-Signature": gateway.WebhookSignature(raw, webhookSecret),
	}})
	require.Equal(t, http.StatusOK, code, body)
	assert.Equal(t, "success", body["status"])
	assert.Equal(t, true, body["received"])
	assert.NotContains(t, body, "message")

	var ev domain.WebhookEvent
	require.NoError(t, s.db.First(&ev, "event_id = ?", gateway.MalformedEventID("", raw)).Error)
	assert.NotEmpty(t, ev.ProcessingError)
}

func TestAuthRequired(t *testing.T) {
	s := newTestServer(t)
	course := s.course(t, 100, 1)

	for _, c := range []call{
		{method: http.MethodPost, path: "/api/v1/payments/checkout", body: gin.H{"courseId": course.ID}},
		{method: http.MethodGet, path: "/api/v1/progress/" + course.ID.String()},
		{method: http.MethodGet, path: "/api/v1/courses/" + course.ID.String() + "/lectures"},
	} {
		code, body := s.do(t, c)
		assert.Equal(t, http.StatusUnauthorized, code, c.path)
		assert.Equal(t, "fail", body["status"])
	}
}

func TestCatalogEndpoints(t *testing.T) {
	s := newTestServer(t)
	course := s.course(t, 700, 2)

	code, body := s.do(t, call{method: http.MethodGet, path: "/api/v1/courses?keyword=distributed&sortBy=priceAsc&limit=5"})
	require.Equal(t, http.StatusOK, code)
	d := data(t, body)
	assert.Len(t, d["courses"], 1)
	assert.EqualValues(t, 1, d["pagination"].(map[string]interface{})["total"])

	code, _ = s.do(t, call{method: http.MethodGet, path: "/api/v1/courses?sortBy=bogus"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = s.do(t, call{method: http.MethodGet, path: "/api/v1/courses?minPrice=abc"})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = s.do(t, call{method: http.MethodGet, path: "/api/v1/courses/" + course.ID.String()})
	require.Equal(t, http.StatusOK, code)
	lectures := data(t, body)["lectures"].([]interface{})
	require.Len(t, lectures, 2)
	_, hasVideo := lectures[0].(map[string]interface{})["videoUrl"]
	assert.False(t, hasVideo)

	code, body = s.do(t, call{method: http.MethodGet, path: "/api/v1/courses/" + uuid.NewString()})
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Course not found", body["message"])

	code, _ = s.do(t, call{method: http.MethodGet, path: "/api/v1/courses/not-a-uuid"})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestGatewayOutageIs503(t *testing.T) {
	s := newTestServer(t)
	s.gw.err = fmt.Errorf("%w: connection refused", domain.ErrGatewayUnavailable)
	course := s.course(t, 100, 1)

	code, body := s.do(t, call{method: http.MethodPost, path: "/api/v1/payments/checkout", token: s.token(t, uuid.New()), body: gin.H{"courseId": course.ID}})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "error", body["status"])
}

func TestHealthcheck(t *testing.T) {
	s := newTestServer(t)

	code, body := s.do(t, call{method: http.MethodGet, path: "/healthcheck"})
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "OK", body["status"])
	assert.Equal(t, "connected", body["dbState"])

	sqlDB, err := s.db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	code, body = s.do(t, call{method: http.MethodGet, path: "/healthcheck"})
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.Equal(t, "disconnected", body["dbState"])
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		err    error
		status int
		state  string
	}{
		{fmt.Errorf("%w: missing orderId", domain.ErrValidation), http.StatusBadRequest, "fail"},
		{domain.ErrNotEnrolled, http.StatusForbidden, "fail"},
		{domain.ErrAlreadyPurchased, http.StatusConflict, "fail"},
		{fmt.Errorf("create order: %w", gateway.ErrGatewayRejected), http.StatusBadGateway, "error"},
		{errors.New("boom"), http.StatusInternalServerError, "error"},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(rec)
		c.Request = httptest.NewRequest(http.MethodGet, "/", nil)
		respondError(c, logger.NewNop(), tc.err)

		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
		var body map[string]string
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tc.state, body["status"])
		assert.NotEmpty(t, body["message"])
	}
}
