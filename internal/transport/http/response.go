package handlers

import (
	"errors"
	"net/http"

	"coursehub/internal/domain"
	"coursehub/internal/infrastructure/gateway"
	"coursehub/internal/infrastructure/logger"
	"coursehub/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type errorMapping struct {
	target  error
	status  int
	message string
}

// Order matters: the first matching sentinel wins. An empty message means the
// error text is shown as is.
var errorMappings = []errorMapping{
	{domain.ErrValidation, http.StatusBadRequest, ""},
	{domain.ErrCourseNotFound, http.StatusNotFound, "Course not found"},
	{domain.ErrLectureNotFound, http.StatusNotFound, "Lecture not found"},
	{domain.ErrProgressNotFound, http.StatusNotFound, "No progress found for this course"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "Unauthorized"},
	{domain.ErrNotEnrolled, http.StatusForbidden, "You are not enrolled in this course"},
	{domain.ErrForbidden, http.StatusForbidden, "Forbidden"},
	{domain.ErrAlreadyOwned, http.StatusBadRequest, "You have already purchased this course"},
	{domain.ErrAlreadyPurchased, http.StatusConflict, "You have already purchased this course"},
	{domain.ErrPaymentVerificationFailed, http.StatusBadRequest, "Payment verification failed"},
	{domain.ErrInvalidWebhookSignature, http.StatusBadRequest, "Invalid signature"},
	{domain.ErrGatewayUnavailable, http.StatusServiceUnavailable, "Payment gateway is unavailable, please try again"},
	{gateway.ErrGatewayRejected, http.StatusBadGateway, "Payment gateway rejected the request"},
}

func respondError(c *gin.Context, log *logger.Logger, err error) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			msg := m.message
			if msg == "" {
				msg = err.Error()
			}
			if m.status >= http.StatusInternalServerError {
				log.Error("request failed", "path", c.FullPath(), "error", err)
			}
			respondStatus(c, m.status, msg)
			return
		}
	}
	log.Error("unhandled error", "path", c.FullPath(), "error", err)
	respondStatus(c, http.StatusInternalServerError, "Internal server error")
}

// respondStatus writes the error envelope: "fail" for client errors, "error"
// for server errors.
func respondStatus(c *gin.Context, status int, message string) {
	state := "fail"
	if status >= http.StatusInternalServerError {
		state = "error"
	}
	c.JSON(status, gin.H{"status": state, "message": message})
}

func respondOK(c *gin.Context, status int, body gin.H) {
	body["status"] = "success"
	c.JSON(status, body)
}

func uuidParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		respondStatus(c, http.StatusBadRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func currentUser(c *gin.Context) (uuid.UUID, bool) {
	id, ok := middleware.UserID(c)
	if !ok {
		respondStatus(c, http.StatusUnauthorized, "Unauthorized")
		return uuid.Nil, false
	}
	return id, true
}
