package domain

import "errors"

var (
	ErrCourseNotFound   = errors.New("course not found")
	ErrLectureNotFound  = errors.New("lecture not found")
	ErrProgressNotFound = errors.New("progress not found")

	ErrValidation   = errors.New("validation failed")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrNotEnrolled  = errors.New("you are not enrolled in this course")

	// ErrAlreadyOwned is reported at checkout time; it informs the user rather
	// than signalling a race.
	ErrAlreadyOwned = errors.New("you have already purchased this course")
	// ErrAlreadyPurchased is the Conflict raised by the entitlement store and by
	// a repeated verification of an already granted pair.
	ErrAlreadyPurchased = errors.New("you already purchased this course")

	ErrPaymentVerificationFailed = errors.New("payment verification failed")
	ErrInvalidWebhookSignature   = errors.New("invalid signature")
	ErrGatewayUnavailable        = errors.New("payment gateway unavailable")
)
