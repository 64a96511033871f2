package handlers

import (
	"context"
	"net/http"

	"coursehub/internal/application/usecase"
	"coursehub/internal/infrastructure/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type ProgressService interface {
	GetProgress(ctx context.Context, userID, courseID uuid.UUID) (*usecase.ProgressView, error)
	MarkLectureComplete(ctx context.Context, userID, courseID, lectureID uuid.UUID) (*usecase.ProgressView, error)
	CheckCompletion(ctx context.Context, userID, courseID uuid.UUID) (*usecase.CompletionResult, error)
	ResetProgress(ctx context.Context, userID, courseID uuid.UUID) (*usecase.ResetResult, error)
}

type ProgressHandler struct {
	svc ProgressService
	log *logger.Logger
}

func NewProgressHandler(svc ProgressService, log *logger.Logger) *ProgressHandler {
	return &ProgressHandler{svc: svc, log: log.With("handler", "progress")}
}

func progressData(v *usecase.ProgressView) gin.H {
	return gin.H{
		"completedLectures":   v.CompletedLectures,
		"totalLectures":       v.TotalLectures,
		"percentage":          v.Percentage,
		"completedLectureIds": v.CompletedLectureIDs,
	}
}

func (h *ProgressHandler) Get(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}

	view, err := h.svc.GetProgress(c.Request.Context(), userID, courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	body := gin.H{"data": progressData(view)}
	if view.Message != "" {
		body["message"] = view.Message
	}
	respondOK(c, http.StatusOK, body)
}

func (h *ProgressHandler) MarkLecture(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}
	lectureID, ok := uuidParam(c, "lectureId")
	if !ok {
		return
	}

	view, err := h.svc.MarkLectureComplete(c.Request.Context(), userID, courseID, lectureID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": view.Message, "data": progressData(view)})
}

func (h *ProgressHandler) Complete(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}

	res, err := h.svc.CheckCompletion(c.Request.Context(), userID, courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{
		"message": res.Message,
		"data": gin.H{
			"completedLectures": res.CompletedLectures,
			"totalLectures":     res.TotalLectures,
			"percentage":        res.Percentage,
			"eligible":          res.Eligible,
		},
	})
}

func (h *ProgressHandler) Reset(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	courseID, ok := uuidParam(c, "courseId")
	if !ok {
		return
	}

	res, err := h.svc.ResetProgress(c.Request.Context(), userID, courseID)
	if err != nil {
		respondError(c, h.log, err)
		return
	}
	respondOK(c, http.StatusOK, gin.H{"message": res.Message, "data": gin.H{"reset": res.Reset}})
}
