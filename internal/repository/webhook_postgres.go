package repository

import (
	"context"
	"time"

	"coursehub/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookEventRepository struct {
	db *gorm.DB
}

func NewWebhookEventRepository(db *gorm.DB) *WebhookEventRepository {
	return &WebhookEventRepository{db: db}
}

// Record stores the delivery and reports whether it is new. A redelivery of a
// known event id returns false and changes nothing.
func (r *WebhookEventRepository) Record(ctx context.Context, ev *domain.WebhookEvent) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(ev)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *WebhookEventRepository) MarkProcessed(ctx context.Context, eventID string, procErr error) error {
	updates := map[string]interface{}{"processed_at": time.Now(), "processing_error": ""}
	if procErr != nil {
		updates["processing_error"] = procErr.Error()
	}
	return r.db.WithContext(ctx).Model(&domain.WebhookEvent{}).
		Where("event_id = ?", eventID).
		Updates(updates).Error
}

func (r *WebhookEventRepository) Get(ctx context.Context, eventID string) (*domain.WebhookEvent, error) {
	var ev domain.WebhookEvent
	err := r.db.WithContext(ctx).First(&ev, "event_id = ?", eventID).Error
	if err != nil {
		return nil, err
	}
	return &ev, nil
}
