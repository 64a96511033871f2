package repository

import (
	"context"
	"errors"
	"time"

	"coursehub/internal/domain"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type ProgressRepository struct {
	db *gorm.DB
}

func NewProgressRepository(db *gorm.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

func (r *ProgressRepository) Get(ctx context.Context, userID, courseID uuid.UUID) (*domain.Progress, error) {
	return r.load(r.db.WithContext(ctx), userID, courseID)
}

// AddLecture creates the header on first use and adds the lecture to the
// completed set. Adding a lecture twice leaves the set unchanged.
func (r *ProgressRepository) AddLecture(ctx context.Context, userID, courseID, lectureID uuid.UUID) (*domain.Progress, error) {
	var progress *domain.Progress
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureHeader(tx, userID, courseID); err != nil {
			return err
		}
		item := domain.CompletedLecture{UserID: userID, CourseID: courseID, LectureID: lectureID}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&item)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected > 0 {
			if err := touch(tx, userID, courseID, nil); err != nil {
				return err
			}
		}
		var err error
		progress, err = r.load(tx, userID, courseID)
		return err
	})
	return progress, err
}

func (r *ProgressRepository) EnsureExists(ctx context.Context, userID, courseID uuid.UUID) (*domain.Progress, error) {
	db := r.db.WithContext(ctx)
	if err := ensureHeader(db, userID, courseID); err != nil {
		return nil, err
	}
	return r.load(db, userID, courseID)
}

// Reset empties the completed set. It reports false when there was no
// progress record to reset.
func (r *ProgressRepository) Reset(ctx context.Context, userID, courseID uuid.UUID) (bool, error) {
	found := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var header domain.CourseProgress
		err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).First(&header).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		if err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).
			Delete(&domain.CompletedLecture{}).Error; err != nil {
			return err
		}
		now := time.Now()
		return touch(tx, userID, courseID, &now)
	})
	return found, err
}

func (r *ProgressRepository) load(db *gorm.DB, userID, courseID uuid.UUID) (*domain.Progress, error) {
	var header domain.CourseProgress
	err := db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&header).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrProgressNotFound
		}
		return nil, err
	}

	var ids []uuid.UUID
	err = db.Model(&domain.CompletedLecture{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Order("created_at asc").
		Pluck("lecture_id", &ids).Error
	if err != nil {
		return nil, err
	}

	return &domain.Progress{
		UserID:            header.UserID,
		CourseID:          header.CourseID,
		CompletedLectures: ids,
		ResetAt:           header.ResetAt,
		UpdatedAt:         header.UpdatedAt,
	}, nil
}

func ensureHeader(db *gorm.DB, userID, courseID uuid.UUID) error {
	header := domain.CourseProgress{UserID: userID, CourseID: courseID}
	return db.Clauses(clause.OnConflict{DoNothing: true}).Create(&header).Error
}

func touch(db *gorm.DB, userID, courseID uuid.UUID, resetAt *time.Time) error {
	updates := map[string]interface{}{"updated_at": time.Now()}
	if resetAt != nil {
		updates["reset_at"] = *resetAt
	}
	return db.Model(&domain.CourseProgress{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Updates(updates).Error
}
