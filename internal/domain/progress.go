package domain

import (
	"time"

	"github.com/google/uuid"
)

// CourseProgress is the lazily created per-(user, course) progress header.
type CourseProgress struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CourseID  uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	ResetAt   *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CompletedLecture is one member of the completed set. The composite key makes
// re-marking a lecture a no-op.
type CompletedLecture struct {
	UserID    uuid.UUID `gorm:"type:uuid;primaryKey"`
	CourseID  uuid.UUID `gorm:"type:uuid;primaryKey;index"`
	LectureID uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time
}

// Progress is the read model assembled from the header and the completed set.
type Progress struct {
	UserID            uuid.UUID
	CourseID          uuid.UUID
	CompletedLectures []uuid.UUID
	ResetAt           *time.Time
	UpdatedAt         time.Time
}

func (p *Progress) CompletedCount() int {
	if p == nil {
		return 0
	}
	return len(p.CompletedLectures)
}

// ProgressSummary is what the progress endpoints report.
type ProgressSummary struct {
	CompletedLectures int `json:"completedLectures"`
	TotalLectures     int `json:"totalLectures"`
	Percentage        int `json:"percentage"`
}

func NewProgressSummary(completed, total int) ProgressSummary {
	return ProgressSummary{
		CompletedLectures: completed,
		TotalLectures:     total,
		Percentage:        Percentage(completed, total),
	}
}

// Percentage returns round-half-up(100*completed/total), or 0 when total is 0.
func Percentage(completed, total int) int {
	if total <= 0 || completed <= 0 {
		return 0
	}
	return (200*completed + total) / (2 * total)
}
