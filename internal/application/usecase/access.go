package usecase

import (
	"context"

	"coursehub/internal/domain"

	"github.com/google/uuid"
)

// AccessPolicy decides entitlement: the course instructor, or anyone holding
// a purchase for it.
type AccessPolicy struct {
	purchases PurchaseRepository
}

func NewAccessPolicy(purchases PurchaseRepository) *AccessPolicy {
	return &AccessPolicy{purchases: purchases}
}

func (p *AccessPolicy) HasAccess(ctx context.Context, userID uuid.UUID, course *domain.Course) (bool, error) {
	if course.IsInstructor(userID) {
		return true, nil
	}
	return p.purchases.Exists(ctx, userID, course.ID)
}

// RequireEnrollment returns domain.ErrNotEnrolled when the user has no access.
func (p *AccessPolicy) RequireEnrollment(ctx context.Context, userID uuid.UUID, course *domain.Course) error {
	ok, err := p.HasAccess(ctx, userID, course)
	if err != nil {
		return err
	}
	if !ok {
		return domain.ErrNotEnrolled
	}
	return nil
}
