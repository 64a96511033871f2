package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"coursehub/internal/domain"
	"coursehub/internal/infrastructure/gateway"
	"coursehub/internal/infrastructure/logger"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

type PurchaseUseCase struct {
	courses   CourseRepository
	purchases PurchaseRepository
	events    WebhookEventRepository
	gateway   PaymentGateway
	access    *AccessPolicy
	log       *logger.Logger

	currency      string
	webhookGrants bool
	now           func() time.Time
}

type PurchaseOption func(*PurchaseUseCase)

func WithCurrency(currency string) PurchaseOption {
	return func(uc *PurchaseUseCase) {
		if currency != "" {
			uc.currency = currency
		}
	}
}

// WithWebhookGrants lets payment.captured deliveries create the purchase when
// the client never completed the verify call.
func WithWebhookGrants(enabled bool) PurchaseOption {
	return func(uc *PurchaseUseCase) { uc.webhookGrants = enabled }
}

func WithClock(now func() time.Time) PurchaseOption {
	return func(uc *PurchaseUseCase) { uc.now = now }
}

func NewPurchaseUseCase(
	cr CourseRepository,
	pr PurchaseRepository,
	er WebhookEventRepository,
	gw PaymentGateway,
	log *logger.Logger,
	opts ...PurchaseOption,
) *PurchaseUseCase {
	uc := &PurchaseUseCase{
		courses:   cr,
		purchases: pr,
		events:    er,
		gateway:   gw,
		access:    NewAccessPolicy(pr),
		log:       log.With("usecase", "purchase"),
		currency:  "INR",
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(uc)
	}
	return uc
}

type CheckoutResult struct {
	Order  domain.CheckoutOrder
	Course *domain.Course
}

func (uc *PurchaseUseCase) InitiateCheckout(ctx context.Context, userID, courseID uuid.UUID) (*CheckoutResult, error) {
	course, err := uc.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}

	owned, err := uc.access.HasAccess(ctx, userID, course)
	if err != nil {
		return nil, err
	}
	if owned {
		return nil, domain.ErrAlreadyOwned
	}

	req := gateway.OrderRequest{
		Amount:   domain.MinorUnits(course.Price),
		Currency: uc.currency,
		Receipt:  fmt.Sprintf("receipt_order_%d", uc.now().UnixNano()),
		Notes: map[string]string{
			domain.NoteUserID:   userID.String(),
			domain.NoteCourseID: courseID.String(),
		},
	}
	order, err := uc.gateway.CreateOrder(ctx, req)
	if err != nil {
		uc.log.Error("create order failed", "user_id", userID, "course_id", courseID, "error", err)
		return nil, fmt.Errorf("create order: %w", err)
	}

	uc.log.Info("checkout initiated", "user_id", userID, "course_id", courseID, "order_id", order.ID, "amount", order.Amount)
	return &CheckoutResult{
		Order: domain.CheckoutOrder{
			ID:       order.ID,
			Amount:   order.Amount,
			Currency: order.Currency,
			Receipt:  order.Receipt,
		},
		Course: course,
	}, nil
}

type VerifyInput struct {
	UserID    uuid.UUID
	CourseID  uuid.UUID
	OrderID   string
	PaymentID string
	Signature string
}

func (in VerifyInput) validate() error {
	if in.OrderID == "" || in.PaymentID == "" || in.Signature == "" || in.CourseID == uuid.Nil {
		return fmt.Errorf("%w: orderId, paymentId, signature and courseId are required", domain.ErrValidation)
	}
	return nil
}

// VerifyPayment grants entitlement once the checkout signature checks out and
// the order's notes name the same user and course.
func (uc *PurchaseUseCase) VerifyPayment(ctx context.Context, in VerifyInput) (*domain.Purchase, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	if _, err := uc.courses.GetByID(ctx, in.CourseID); err != nil {
		return nil, err
	}

	if !uc.gateway.VerifyPaymentSignature(in.OrderID, in.PaymentID, in.Signature) {
		uc.log.Warn("payment signature mismatch", "user_id", in.UserID, "order_id", in.OrderID, "payment_id", in.PaymentID)
		return nil, domain.ErrPaymentVerificationFailed
	}

	order, err := uc.gateway.FetchOrder(ctx, in.OrderID)
	if err != nil {
		if errors.Is(err, gateway.ErrOrderNotFound) {
			return nil, domain.ErrPaymentVerificationFailed
		}
		return nil, fmt.Errorf("fetch order: %w", err)
	}
	if order.Notes[domain.NoteUserID] != in.UserID.String() || order.Notes[domain.NoteCourseID] != in.CourseID.String() {
		uc.log.Warn("order intent mismatch", "user_id", in.UserID, "order_id", in.OrderID, "course_id", in.CourseID)
		return nil, domain.ErrPaymentVerificationFailed
	}

	exists, err := uc.purchases.Exists(ctx, in.UserID, in.CourseID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, domain.ErrAlreadyPurchased
	}

	purchase := &domain.Purchase{
		ID:        uuid.New(),
		UserID:    in.UserID,
		CourseID:  in.CourseID,
		OrderID:   in.OrderID,
		PaymentID: in.PaymentID,
	}
	if err := uc.purchases.Create(ctx, purchase); err != nil {
		return nil, err
	}

	uc.log.Info("purchase recorded", "user_id", in.UserID, "course_id", in.CourseID, "order_id", in.OrderID, "payment_id", in.PaymentID)
	return purchase, nil
}

type WebhookResult struct {
	Received  bool
	Duplicate bool
}

// HandleWebhook authenticates a gateway delivery over the exact bytes
// received. Each distinct event is processed once; a delivery whose earlier
// processing failed is processed again. Any delivery with a valid signature
// that can never be applied is recorded and acknowledged.
func (uc *PurchaseUseCase) HandleWebhook(ctx context.Context, rawBody []byte, signature, eventIDHeader string) (*WebhookResult, error) {
	if !uc.gateway.VerifyWebhookSignature(rawBody, signature) {
		uc.log.Warn("webhook signature rejected", "bytes", len(rawBody))
		return nil, domain.ErrInvalidWebhookSignature
	}

	ev, err := gateway.ParseWebhookEvent(rawBody)
	if err != nil {
		return uc.acknowledgeMalformed(ctx, rawBody, eventIDHeader, err)
	}
	eventID := ev.EventID(eventIDHeader, rawBody)

	done, err := uc.recordEvent(ctx, &domain.WebhookEvent{
		EventID:   eventID,
		EventType: ev.Event,
		PaymentID: ev.PaymentID,
		OrderID:   ev.OrderID,
		Payload:   datatypes.JSON(rawBody),
	})
	if err != nil {
		return nil, err
	}
	if done {
		uc.log.Info("duplicate webhook delivery", "event_id", eventID, "event", ev.Event)
		return &WebhookResult{Received: true, Duplicate: true}, nil
	}

	return uc.finishEvent(ctx, eventID, uc.processEvent(ctx, ev))
}

func (uc *PurchaseUseCase) acknowledgeMalformed(ctx context.Context, rawBody []byte, eventIDHeader string, parseErr error) (*WebhookResult, error) {
	eventID := gateway.MalformedEventID(eventIDHeader, rawBody)
	uc.log.Warn("malformed webhook delivery", "event_id", eventID, "bytes", len(rawBody), "error", parseErr)

	payload := rawBody
	if !json.Valid(payload) {
		// jsonb only takes valid JSON, so keep the bytes as a JSON string.
		payload, _ = json.Marshal(string(rawBody))
	}
	if _, err := uc.recordEvent(ctx, &domain.WebhookEvent{
		EventID:   eventID,
		EventType: gateway.EventTypeMalformed,
		Payload:   datatypes.JSON(payload),
	}); err != nil {
		return nil, err
	}
	return uc.finishEvent(ctx, eventID, fmt.Errorf("%w: %v", errUnusableEvent, parseErr))
}

// recordEvent stores the delivery and reports whether an earlier delivery of
// the same event was already processed successfully.
func (uc *PurchaseUseCase) recordEvent(ctx context.Context, row *domain.WebhookEvent) (bool, error) {
	created, err := uc.events.Record(ctx, row)
	if err != nil {
		return false, fmt.Errorf("record webhook event: %w", err)
	}
	if created {
		return false, nil
	}
	prev, err := uc.events.Get(ctx, row.EventID)
	if err != nil {
		return false, fmt.Errorf("load webhook event: %w", err)
	}
	return prev.ProcessedAt != nil && prev.ProcessingError == "", nil
}

// finishEvent stores the processing outcome. Unusable events are acknowledged;
// anything else that failed, including storing the outcome, is returned so
// the gateway redelivers. Reprocessing is safe because grants are idempotent.
func (uc *PurchaseUseCase) finishEvent(ctx context.Context, eventID string, procErr error) (*WebhookResult, error) {
	markErr := uc.events.MarkProcessed(ctx, eventID, procErr)
	if markErr != nil {
		markErr = fmt.Errorf("mark webhook event: %w", markErr)
	}
	if procErr != nil && !errors.Is(procErr, errUnusableEvent) {
		return nil, errors.Join(procErr, markErr)
	}
	if markErr != nil {
		return nil, markErr
	}
	return &WebhookResult{Received: true}, nil
}

// errUnusableEvent marks a delivery that can never be applied; it is recorded
// and acknowledged so the gateway stops redelivering it.
var errUnusableEvent = errors.New("unusable webhook event")

func (uc *PurchaseUseCase) processEvent(ctx context.Context, ev *gateway.WebhookEvent) error {
	switch ev.Event {
	case domain.EventPaymentCaptured:
		uc.log.Info("payment captured", "payment_id", ev.PaymentID, "order_id", ev.OrderID, "amount", ev.Amount)
		if !uc.webhookGrants {
			return nil
		}
		return uc.grantFromWebhook(ctx, ev)
	case domain.EventPaymentFailed:
		uc.log.Warn("payment rejected", "payment_id", ev.PaymentID, "order_id", ev.OrderID, "reason", ev.ErrorDescription)
		return nil
	default:
		uc.log.Debug("webhook event ignored", "event", ev.Event)
		return nil
	}
}

func (uc *PurchaseUseCase) grantFromWebhook(ctx context.Context, ev *gateway.WebhookEvent) error {
	userID, errU := uuid.Parse(ev.Notes[domain.NoteUserID])
	courseID, errC := uuid.Parse(ev.Notes[domain.NoteCourseID])
	if errU != nil || errC != nil || ev.PaymentID == "" || ev.OrderID == "" {
		uc.log.Warn("captured payment without purchase intent", "payment_id", ev.PaymentID, "order_id", ev.OrderID)
		return fmt.Errorf("%w: missing purchase intent", errUnusableEvent)
	}
	if _, err := uc.courses.GetByID(ctx, courseID); err != nil {
		if errors.Is(err, domain.ErrCourseNotFound) {
			return fmt.Errorf("%w: %v", errUnusableEvent, err)
		}
		return err
	}

	err := uc.purchases.Create(ctx, &domain.Purchase{
		ID:        uuid.New(),
		UserID:    userID,
		CourseID:  courseID,
		OrderID:   ev.OrderID,
		PaymentID: ev.PaymentID,
	})
	switch {
	case err == nil:
		uc.log.Info("purchase recorded from webhook", "user_id", userID, "course_id", courseID, "payment_id", ev.PaymentID)
		return nil
	case errors.Is(err, domain.ErrAlreadyPurchased):
		return nil
	default:
		return err
	}
}

func (uc *PurchaseUseCase) HasPurchased(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	if _, err := uc.courses.GetByID(ctx, courseID); err != nil {
		return false, err
	}
	return uc.purchases.Exists(ctx, userID, courseID)
}

func (uc *PurchaseUseCase) ListPurchases(ctx context.Context, userID uuid.UUID) ([]domain.Purchase, error) {
	return uc.purchases.ListByUser(ctx, userID)
}

func (uc *PurchaseUseCase) ListPurchasedCourseIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return uc.purchases.ListCourseIDs(ctx, userID)
}

func (uc *PurchaseUseCase) CountEnrollments(ctx context.Context, courseID uuid.UUID) (int64, error) {
	if _, err := uc.courses.GetByID(ctx, courseID); err != nil {
		return 0, err
	}
	return uc.purchases.CountByCourse(ctx, courseID)
}

// HasAccess is the entitlement check exposed to sibling services.
func (uc *PurchaseUseCase) HasAccess(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	course, err := uc.courses.GetByID(ctx, courseID)
	if err != nil {
		return false, err
	}
	return uc.access.HasAccess(ctx, userID, course)
}
