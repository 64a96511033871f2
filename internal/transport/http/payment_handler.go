package handlers

import (
	"context"
	"net/http"

	"coursehub/internal/application/usecase"
	"coursehub/internal/domain"
	"coursehub/internal/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerWebhookSignature = "X-Razorpay-Signature"
	headerWebhookEventID   = "X-Razorpay-Event-Id"

	maxWebhookBody = 1 << 20
)

type PurchaseService interface {
	InitiateCheckout(ctx context.Context, userID, courseID uuid.UUID) (*usecase.CheckoutResult, error)
	VerifyPayment(ctx context.Context, in usecase.VerifyInput) (*domain.Purchase, error)
	HandleWebhook(ctx context.Context, rawBody []byte, signature, eventIDHeader string) (*usecase.WebhookResult, error)
	HasPurchased(ctx context.Context, userID, courseID uuid.UUID) (bool, error)
	ListPurchases(ctx context.Context, userID uuid.UUID) ([]domain.Purchase, error)
}

type PaymentHandler struct {
	svc   PurchaseService
	keyID string
	log   *logger.Logger
}

// NewPaymentHandler takes the public gateway key id, which the checkout widget
// needs alongside the order.
func NewPaymentHandler(svc PurchaseService, keyID string, log *logger.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, keyID: keyID, log: log.With("handler", "payment")}
}

type checkoutReq struct {
	CourseID string `json:"courseId" binding:"required"`
}

func (h *PaymentHandler) Checkout(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req checkoutReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondStatus(c, http.StatusBadRequest, "courseId is required")
		return
	}
	courseID, err := uuid.Parse(req.CourseID)
	if err != nil {
		respondStatus(c, http.StatusBadRequest, "invalid courseId")
		return
	}

	res, err := h.svc.InitiateCheckout(c.Request.Context(), userID, courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"data": gin.H{
			"keyId": h.keyID,
			"order": res.Order,
			"course": gin.H{
				"id":        res.Course.ID,
				"title":     res.Course.Title,
				"price":     res.Course.Price,
				"thumbnail": res.Course.Thumbnail,
			},
		},
	})
}

// verifyReq accepts both the short field names and the ones the checkout
// widget hands back verbatim.
type verifyReq struct {
	OrderID   string `json:"orderId"`
	PaymentID string `json:"paymentId"`
	Signature string `json:"signature"`
	CourseID  string `json:"courseId"`

	RazorpayOrderID   string `json:"razorpay_order_id"`
	RazorpayPaymentID string `json:"razorpay_payment_id"`
	RazorpaySignature string `json:"razorpay_signature"`
}

func (r verifyReq) input(userID uuid.UUID) (usecase.VerifyInput, bool) {
	in := usecase.VerifyInput{
		UserID:    userID,
		OrderID:   firstNonEmpty(r.OrderID, r.RazorpayOrderID),
		PaymentID: firstNonEmpty(r.PaymentID, r.RazorpayPaymentID),
		Signature: firstNonEmpty(r.Signature, r.RazorpaySignature),
	}
	if r.CourseID != "" {
		id, err := uuid.Parse(r.CourseID)
		if err != nil {
			return in, false
		}
		in.CourseID = id
	}
	return in, true
}

func (h *PaymentHandler) Verify(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req verifyReq
	if err := c.ShouldBindJSON(&req); err != nil {
		respondStatus(c, http.StatusBadRequest, "invalid request body")
		return
	}
	in, ok := req.input(userID)
	if !ok {
		respondStatus(c, http.StatusBadRequest, "invalid courseId")
		return
	}

	purchase, err := h.svc.VerifyPayment(c.Request.Context(), in)
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	respondOK(c, http.StatusOK, gin.H{
		"message": "Payment verified successfully",
		"data":    gin.H{"purchase": purchase},
	})
}

// Webhook must see the body byte for byte as sent; it is read raw and never
// bound into a struct before the signature check.
func (h *PaymentHandler) Webhook(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody)
	raw, err := c.GetRawData()
	if err != nil {
		respondStatus(c, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.svc.HandleWebhook(c.Request.Context(), raw,
		c.GetHeader(headerWebhookSignature), c.GetHeader(headerWebhookEventID))
	if err != nil {
		respondError(c, h.log, err)
		return
	}

	body := gin.H{"received": res.Received}
	if res.Duplicate {
		body["duplicate"] = true
	}
	respondOK(c, http.StatusOK, body)
}

func (h *PaymentHandler) PurchaseStatus(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	courseID, err := uuid.Parse(c.Query("courseId"))
	if err != nil {
		respondStatus(c, http.StatusBadRequest, "invalid courseId")
		return
	}

	purchased, err := h.svc.HasPurchased(c.Request.Context(), userID, courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"data": gin.H{"hasPurchased": purchased}})
}

func (h *PaymentHandler) Purchases(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	purchases, err := h.svc.ListPurchases(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	if purchases == nil {
		purchases = []domain.Purchase{}
	}
	respondOK(c, http.StatusOK, gin.H{"data": gin.H{"purchases": purchases}})
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
