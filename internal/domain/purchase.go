package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Purchase is the entitlement record. One per (user, course), enforced by the
// unique index, and one per gateway payment.
type Purchase struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_purchases_user_course,priority:1;index" json:"userId"`
	CourseID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:ux_purchases_user_course,priority:2" json:"courseId"`
	OrderID   string    `gorm:"size:64;not null;index" json:"orderId"`
	PaymentID string    `gorm:"size:64;not null;uniqueIndex" json:"paymentId"`
	CreatedAt time.Time `json:"createdAt"`

	Course *Course `gorm:"foreignKey:CourseID;constraint:OnDelete:RESTRICT;" json:"course,omitempty"`
}

// CheckoutOrder is the gateway-side order returned to the client. It is not
// persisted; its notes carry the purchase intent until verification.
type CheckoutOrder struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

// Order notes keys attached at checkout.
const (
	NoteUserID   = "userId"
	NoteCourseID = "courseId"
)

// Gateway webhook event types.
const (
	EventPaymentCaptured = "payment.captured"
	EventPaymentFailed   = "payment.failed"
)

// WebhookEvent is the audit row for each distinct gateway delivery. The
// primary key deduplicates redeliveries.
type WebhookEvent struct {
	EventID         string         `gorm:"primaryKey;size:191"`
	EventType       string         `gorm:"size:100;not null;index"`
	PaymentID       string         `gorm:"size:64;index"`
	OrderID         string         `gorm:"size:64;index"`
	Payload         datatypes.JSON `gorm:"not null"`
	ProcessedAt     *time.Time
	ProcessingError string `gorm:"type:text"`
	CreatedAt       time.Time
}
