package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"coursehub/internal/domain"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const searchCacheTTL = 10 * time.Minute

type CourseRepository struct {
	db  *gorm.DB
	rdb *redis.Client // optional
}

func NewCourseRepository(db *gorm.DB, rdb *redis.Client) *CourseRepository {
	return &CourseRepository{db: db, rdb: rdb}
}

func (r *CourseRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	var course domain.Course
	err := r.db.WithContext(ctx).First(&course, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}

// GetWithLectures loads the course and its lectures in display order.
func (r *CourseRepository) GetWithLectures(ctx context.Context, id uuid.UUID) (*domain.Course, error) {
	var course domain.Course
	err := r.db.WithContext(ctx).
		Preload("Lectures", func(db *gorm.DB) *gorm.DB {
			return db.Order("position asc")
		}).
		First(&course, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrCourseNotFound
		}
		return nil, err
	}
	return &course, nil
}

func (r *CourseRepository) GetLecture(ctx context.Context, courseID, lectureID uuid.UUID) (*domain.Lecture, error) {
	var lecture domain.Lecture
	err := r.db.WithContext(ctx).
		Where("id = ? AND course_id = ?", lectureID, courseID).
		First(&lecture).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrLectureNotFound
		}
		return nil, err
	}
	return &lecture, nil
}

type searchResult struct {
	Courses []domain.Course
	Total   int64
}

// Search results are cached per filter. Catalog changes show up once the TTL
// runs out.
func (r *CourseRepository) Search(ctx context.Context, f domain.CourseFilter) ([]domain.Course, int64, error) {
	f = f.Normalize()
	key := searchCacheKey(f)

	if r.rdb != nil {
		if val, err := r.rdb.Get(ctx, key).Result(); err == nil {
			var cached searchResult
			if json.Unmarshal([]byte(val), &cached) == nil {
				return cached.Courses, cached.Total, nil
			}
		}
	}

	query := r.db.WithContext(ctx).Model(&domain.Course{})
	if kw := strings.TrimSpace(f.Keyword); kw != "" {
		like := "%" + strings.ToLower(kw) + "%"
		query = query.Where("LOWER(title) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}
	if f.Category != "" {
		query = query.Where("category = ?", f.Category)
	}
	if f.Level != "" {
		query = query.Where("level = ?", f.Level)
	}
	if f.MinPrice != nil {
		query = query.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		query = query.Where("price <= ?", *f.MaxPrice)
	}
	if f.MinRating > 0 {
		query = query.Where("average_rating >= ?", f.MinRating)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var courses []domain.Course
	err := query.Order(searchOrder(f.SortBy)).Limit(f.Limit).Offset(f.Offset()).Find(&courses).Error
	if err != nil {
		return nil, 0, err
	}

	if r.rdb != nil {
		if data, err := json.Marshal(searchResult{Courses: courses, Total: total}); err == nil {
			r.rdb.Set(ctx, key, data, searchCacheTTL)
		}
	}
	return courses, total, nil
}

// Upsert writes a course with its lectures and keeps TotalLectures in step.
// Used by the catalog seeder.
func (r *CourseRepository) Upsert(ctx context.Context, c *domain.Course) error {
	c.TotalLectures = len(c.Lectures)
	c.TotalDuration = 0
	for i := range c.Lectures {
		c.Lectures[i].CourseID = c.ID
		c.TotalDuration += c.Lectures[i].Duration
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		lectures := c.Lectures
		c.Lectures = nil
		defer func() { c.Lectures = lectures }()

		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(c).Error; err != nil {
			return err
		}
		if len(lectures) == 0 {
			return nil
		}
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&lectures).Error
	})
}

func searchOrder(sortBy string) clause.OrderByColumn {
	switch sortBy {
	case domain.SortPriceAsc:
		return clause.OrderByColumn{Column: clause.Column{Name: "price"}}
	case domain.SortPriceDesc:
		return clause.OrderByColumn{Column: clause.Column{Name: "price"}, Desc: true}
	case domain.SortRatingDesc:
		return clause.OrderByColumn{Column: clause.Column{Name: "average_rating"}, Desc: true}
	default:
		return clause.OrderByColumn{Column: clause.Column{Name: "created_at"}, Desc: true}
	}
}

func searchCacheKey(f domain.CourseFilter) string {
	minPrice, maxPrice := "", ""
	if f.MinPrice != nil {
		minPrice = f.MinPrice.String()
	}
	if f.MaxPrice != nil {
		maxPrice = f.MaxPrice.String()
	}
	return fmt.Sprintf("courses:search:%s:%s:%s:%s:%s:%g:%s:%d:%d",
		strings.ToLower(strings.TrimSpace(f.Keyword)), f.Category, f.Level,
		minPrice, maxPrice, f.MinRating, f.SortBy, f.Page, f.Limit)
}
