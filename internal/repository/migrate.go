package repository

import (
	"coursehub/internal/domain"

	"gorm.io/gorm"
)

// AutoMigrate creates the schema, including the (user_id, course_id) and
// payment_id unique indexes on purchases.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&domain.Course{},
		&domain.Lecture{},
		&domain.Purchase{},
		&domain.CourseProgress{},
		&domain.CompletedLecture{},
		&domain.WebhookEvent{},
	)
}
