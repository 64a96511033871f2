package handlers

import (
	"context"
	"net/http"
	"strconv"

	"coursehub/internal/application/usecase"
	"coursehub/internal/domain"
	"coursehub/internal/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type CatalogService interface {
	Search(ctx context.Context, f domain.CourseFilter) (*usecase.SearchResult, error)
	GetCourse(ctx context.Context, courseID uuid.UUID) (*domain.Course, error)
	GetLectures(ctx context.Context, userID, courseID uuid.UUID) ([]domain.Lecture, error)
}

type CourseHandler struct {
	svc CatalogService
	log *logger.Logger
}

func NewCourseHandler(svc CatalogService, log *logger.Logger) *CourseHandler {
	return &CourseHandler{svc: svc, log: log.With("handler", "course")}
}

func (h *CourseHandler) List(c *gin.Context) {
	f, err := filterFromQuery(c)
	if err != nil {
		respondStatus(c, http.StatusBadRequest, err.Error())
		return
	}

	res, err := h.svc.Search(c.Request.Context(), f)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"data": gin.H{
			"courses": res.Courses,
			"pagination": gin.H{
				"total":      res.Total,
				"page":       res.Page,
				"limit":      res.Limit,
				"totalPages": res.TotalPages,
			},
		},
	})
}

func (h *CourseHandler) GetOne(c *gin.Context) {
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	course, err := h.svc.GetCourse(c.Request.Context(), courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"data": course})
}

func (h *CourseHandler) Lectures(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	lectures, err := h.svc.GetLectures(c.Request.Context(), userID, courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"data": gin.H{"lectures": lectures}})
}

type badQuery string

func (e badQuery) Error() string { return "invalid query parameter " + string(e) }

func filterFromQuery(c *gin.Context) (domain.CourseFilter, error) {
	f := domain.CourseFilter{
		Keyword:  c.Query("keyword"),
		Category: c.Query("category"),
		Level:    c.Query("level"),
		SortBy:   c.Query("sortBy"),
	}
	for name, dst := range map[string]**decimal.Decimal{"minPrice": &f.MinPrice, "maxPrice": &f.MaxPrice} {
		if v := c.Query(name); v != "" {
			d, err := decimal.NewFromString(v)
			if err != nil {
				return f, badQuery(name)
			}
			*dst = &d
		}
	}
	if v := c.Query("minRating"); v != "" {
		r, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return f, badQuery("minRating")
		}
		f.MinRating = r
	}
	for name, dst := range map[string]*int{"page": &f.Page, "limit": &f.Limit} {
		if v := c.Query(name); v != "" {
			n, err := strconv.Atoi(v)
			if err != nil {
				return f, badQuery(name)
			}
			*dst = n
		}
	}
	switch f.SortBy {
	case "", domain.SortPriceAsc, domain.SortPriceDesc, domain.SortRatingDesc:
	default:
		return f, badQuery("sortBy")
	}
	return f, nil
}
