package repository

import (
	"context"
	"fmt"
	"os"

	"coursehub/internal/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// seedNamespace derives stable ids for catalog entries that omit one, so a
// file can be loaded repeatedly without duplicating rows.
var seedNamespace = uuid.MustParse("6f1c3b7e-2a4d-4e8f-9b0a-5c7d1e2f3a4b")

type SeedCourse struct {
	ID            string        `yaml:"id"`
	Title         string        `yaml:"title"`
	Subtitle      string        `yaml:"subtitle"`
	Description   string        `yaml:"description"`
	Category      string        `yaml:"category"`
	Level         string        `yaml:"level"`
	Price         string        `yaml:"price"`
	Thumbnail     string        `yaml:"thumbnail"`
	InstructorID  string        `yaml:"instructorId"`
	Published     bool          `yaml:"published"`
	AverageRating float64       `yaml:"averageRating"`
	Lectures      []SeedLecture `yaml:"lectures"`
}

type SeedLecture struct {
	ID          string `yaml:"id"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	VideoURL    string `yaml:"videoUrl"`
	Duration    int    `yaml:"duration"`
}

type seedFile struct {
	Courses []SeedCourse `yaml:"courses"`
}

// ParseCatalog decodes a YAML catalog into courses ready for Upsert.
func ParseCatalog(raw []byte) ([]*domain.Course, error) {
	var f seedFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}

	courses := make([]*domain.Course, 0, len(f.Courses))
	for i, sc := range f.Courses {
		c, err := sc.toDomain()
		if err != nil {
			return nil, fmt.Errorf("course %d (%q): %w", i, sc.Title, err)
		}
		courses = append(courses, c)
	}
	return courses, nil
}

func (sc SeedCourse) toDomain() (*domain.Course, error) {
	if sc.Title == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	id, err := seedID(sc.ID, sc.Title)
	if err != nil {
		return nil, err
	}
	price, err := decimal.NewFromString(sc.Price)
	if err != nil || price.IsNegative() {
		return nil, fmt.Errorf("%w: invalid price %q", domain.ErrValidation, sc.Price)
	}
	var instructor uuid.UUID
	if sc.InstructorID != "" {
		if instructor, err = uuid.Parse(sc.InstructorID); err != nil {
			return nil, fmt.Errorf("%w: invalid instructorId", domain.ErrValidation)
		}
	}

	c := &domain.Course{
		ID:            id,
		Title:         sc.Title,
		Subtitle:      sc.Subtitle,
		Description:   sc.Description,
		Category:      sc.Category,
		Level:         sc.Level,
		Price:         price,
		Thumbnail:     sc.Thumbnail,
		InstructorID:  instructor,
		IsPublished:   sc.Published,
		AverageRating: sc.AverageRating,
	}
	for pos, sl := range sc.Lectures {
		lid, err := seedID(sl.ID, id.String()+"/"+sl.Title)
		if err != nil {
			return nil, err
		}
		c.Lectures = append(c.Lectures, domain.Lecture{
			ID:          lid,
			CourseID:    id,
			Title:       sl.Title,
			Description: sl.Description,
			VideoURL:    sl.VideoURL,
			Duration:    sl.Duration,
			Position:    pos + 1,
		})
	}
	return c, nil
}

func seedID(explicit, name string) (uuid.UUID, error) {
	if explicit == "" {
		return uuid.NewSHA1(seedNamespace, []byte(name)), nil
	}
	id, err := uuid.Parse(explicit)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid id %q", domain.ErrValidation, explicit)
	}
	return id, nil
}

// SeedCatalog loads the YAML file at path and upserts every course in it.
func SeedCatalog(ctx context.Context, repo *CourseRepository, path string) (int, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	courses, err := ParseCatalog(raw)
	if err != nil {
		return 0, err
	}
	for _, c := range courses {
		if err := repo.Upsert(ctx, c); err != nil {
			return 0, fmt.Errorf("upsert %q: %w", c.Title, err)
		}
	}
	return len(courses), nil
}
