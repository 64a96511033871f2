package usecase

import (
	"context"

	"coursehub/internal/domain"
	"coursehub/internal/infrastructure/gateway"

	"github.com/google/uuid"
)

type CourseRepository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	GetWithLectures(ctx context.Context, id uuid.UUID) (*domain.Course, error)
	GetLecture(ctx context.Context, courseID, lectureID uuid.UUID) (*domain.Lecture, error)
	Search(ctx context.Context, f domain.CourseFilter) ([]domain.Course, int64, error)
}

type PurchaseRepository interface {
	Exists(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	Create(ctx context.Context, p *domain.Purchase) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Purchase, error)
	ListCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error)
	CountByCourse(ctx context.Context, courseID uuid.UUID) (int64, error)
}

type ProgressRepository interface {
	Get(ctx context.Context, userID, courseID uuid.UUID) (*domain.Progress, error)
	AddLecture(ctx context.Context, userID, courseID, lectureID uuid.UUID) (*domain.Progress, error)
	EnsureExists(ctx context.Context, userID, courseID uuid.UUID) (*domain.Progress, error)
	Reset(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
}

type WebhookEventRepository interface {
	Record(ctx context.Context, ev *domain.WebhookEvent) (bool, error)
	Get(ctx context.Context, eventID string) (*domain.WebhookEvent, error)
	MarkProcessed(ctx context.Context, eventID string, procErr error) error
}

// PaymentGateway is satisfied by *gateway.Client.
type PaymentGateway interface {
	CreateOrder(ctx context.Context, req gateway.OrderRequest) (*gateway.Order, error)
	FetchOrder(ctx context.Context, orderID string) (*gateway.Order, error)
	VerifyPaymentSignature(orderID, paymentID, signature string) bool
	VerifyWebhookSignature(rawBody []byte, signature string) bool
}
