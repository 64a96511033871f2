package usecase

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"coursehub/internal/domain"
	"coursehub/internal/infrastructure/gateway"
	"coursehub/internal/infrastructure/logger"
	"coursehub/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const (
	testKeySecret     = "key_secret"
	testWebhookSecret = "webhook_secret"
)

type fakeGateway struct {
	mu        sync.Mutex
	orders    map[string]*gateway.Order
	requests  []gateway.OrderRequest
	createErr error
	fetchErr  error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{orders: map[string]*gateway.Order{}}
}

func (g *fakeGateway) CreateOrder(_ context.Context, req gateway.OrderRequest) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.createErr != nil {
		return nil, g.createErr
	}
	o := &gateway.Order{
		ID:       fmt.Sprintf("order_%d", len(g.requests)),
		Amount:   req.Amount,
		Currency: req.Currency,
		Receipt:  req.Receipt,
		Status:   "created",
		Notes:    req.Notes,
	}
	g.orders[o.ID] = o
	return o, nil
}

func (g *fakeGateway) FetchOrder(_ context.Context, orderID string) (*gateway.Order, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.fetchErr != nil {
		return nil, g.fetchErr
	}
	o, ok := g.orders[orderID]
	if !ok {
		return nil, gateway.ErrOrderNotFound
	}
	return o, nil
}

func (g *fakeGateway) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return gateway.VerifySignature(orderID, paymentID, signature, testKeySecret)
}

func (g *fakeGateway) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	return gateway.VerifyWebhookSignature(rawBody, signature, testWebhookSecret)
}

type fixture struct {
	db        *gorm.DB
	courses   *repository.CourseRepository
	purchases *repository.PurchaseRepository
	progress  *repository.ProgressRepository
	events    *repository.WebhookEventRepository
	gateway   *fakeGateway
	log       *logger.Logger
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:uc_%s?mode=memory&cache=shared", name)), &gorm.Config{
		TranslateError: true,
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, repository.AutoMigrate(db))

	return &fixture{
		db:        db,
		courses:   repository.NewCourseRepository(db, nil),
		purchases: repository.NewPurchaseRepository(db),
		progress:  repository.NewProgressRepository(db),
		events:    repository.NewWebhookEventRepository(db),
		gateway:   newFakeGateway(),
		log:       logger.NewNop(),
	}
}

func (f *fixture) purchaseUC(opts ...PurchaseOption) *PurchaseUseCase {
	return NewPurchaseUseCase(f.courses, f.purchases, f.events, f.gateway, f.log, opts...)
}

func (f *fixture) progressUC() *ProgressUseCase {
	return NewProgressUseCase(f.courses, f.progress, f.purchases, f.log)
}

func (f *fixture) catalogUC() *CatalogUseCase {
	return NewCatalogUseCase(f.courses, f.purchases, f.log)
}

func (f *fixture) course(t *testing.T, price int64, lectures int) *domain.Course {
	t.Helper()
	c := &domain.Course{
		ID:           uuid.New(),
		Title:        "Course " + uuid.NewString()[:8],
		Description:  "a course",
		Category:     "programming",
		Level:        "beginner",
		Price:        decimal.NewFromInt(price),
		InstructorID: uuid.New(),
		IsPublished:  true,
	}
	for i := 0; i < lectures; i++ {
		c.Lectures = append(c.Lectures, domain.Lecture{
			ID:       uuid.New(),
			Title:    fmt.Sprintf("Lecture %d", i+1),
			VideoURL: fmt.Sprintf("https://cdn.example.com/%d.mp4", i+1),
			Duration: 120,
			Position: i + 1,
		})
	}
	require.NoError(t, f.courses.Upsert(context.Background(), c))
	return c
}

func (f *fixture) grant(t *testing.T, userID, courseID uuid.UUID) {
	t.Helper()
	require.NoError(t, f.purchases.Create(context.Background(), &domain.Purchase{
		UserID:    userID,
		CourseID:  courseID,
		OrderID:   "order_" + uuid.NewString()[:8],
		PaymentID: "pay_" + uuid.NewString()[:8],
	}))
}

func (f *fixture) count(t *testing.T, model interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(model).Count(&n).Error)
	return n
}
