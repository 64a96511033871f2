package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Course struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string          `gorm:"index;not null" json:"title"`
	Subtitle      string          `json:"subtitle,omitempty"`
	Description   string          `json:"description"`
	Category      string          `gorm:"index" json:"category"`
	Level         string          `gorm:"index" json:"level"`
	Price         decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"price"` // major units (rupees)
	Thumbnail     string          `json:"thumbnail,omitempty"`
	InstructorID  uuid.UUID       `gorm:"type:uuid;index" json:"instructorId"`
	IsPublished   bool            `gorm:"default:false" json:"isPublished"`
	TotalLectures int             `gorm:"default:0" json:"totalLectures"`
	TotalDuration int             `gorm:"default:0" json:"totalDuration"` // seconds
	AverageRating float64         `gorm:"default:0" json:"averageRating"`

	Lectures []Lecture `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE;" json:"lectures,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Lecture struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID `gorm:"type:uuid;index;not null" json:"courseId"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	VideoURL    string    `json:"videoUrl,omitempty"`
	Duration    int       `json:"duration"`
	Position    int       `gorm:"index" json:"position"`

	CreatedAt time.Time `json:"createdAt"`
}

// IsInstructor reports whether userID authored the course. Instructors are
// always entitled to their own course.
func (c *Course) IsInstructor(userID uuid.UUID) bool {
	return c != nil && userID != uuid.Nil && c.InstructorID == userID
}

// MinorUnits converts a major-unit price into the gateway's smallest currency
// unit (paise for INR).
func MinorUnits(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// CourseFilter drives catalog search.
type CourseFilter struct {
	Keyword   string
	Category  string
	Level     string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	MinRating float64
	SortBy    string
	Page      int
	Limit     int
}

const (
	SortPriceAsc   = "priceAsc"
	SortPriceDesc  = "priceDesc"
	SortRatingDesc = "ratingDesc"

	DefaultPageLimit = 10
	MaxPageLimit     = 100
)

// Normalize fills paging defaults and clamps the limit.
func (f CourseFilter) Normalize() CourseFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f
}

func (f CourseFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}
