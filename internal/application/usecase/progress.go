package usecase

import (
	"context"
	"errors"

	"coursehub/internal/domain"
	"coursehub/internal/infrastructure/logger"

	"github.com/google/uuid"
)

const (
	MsgNoProgress        = "No progress found for this course"
	MsgLectureUpdated    = "Lecture progress updated successfully"
	MsgEligible          = "Now you are eligible for certificate"
	MsgNotEligible       = "You are not eligible for certificate complete the remaining course"
	MsgNoProgressToReset = "No progress to reset"
	MsgProgressReset     = "Course progress has been reset"
)

type ProgressUseCase struct {
	courses  CourseRepository
	progress ProgressRepository
	access   *AccessPolicy
	log      *logger.Logger
}

func NewProgressUseCase(cr CourseRepository, pr ProgressRepository, purchases PurchaseRepository, log *logger.Logger) *ProgressUseCase {
	return &ProgressUseCase{
		courses:  cr,
		progress: pr,
		access:   NewAccessPolicy(purchases),
		log:      log.With("usecase", "progress"),
	}
}

type ProgressView struct {
	domain.ProgressSummary
	CompletedLectureIDs []uuid.UUID
	Found               bool
	Message             string
}

type CompletionResult struct {
	domain.ProgressSummary
	Eligible bool
	Message  string
}

type ResetResult struct {
	Reset   bool
	Message string
}

// GetProgress never creates a record; a user who has not started gets zeros.
func (uc *ProgressUseCase) GetProgress(ctx context.Context, userID, courseID uuid.UUID) (*ProgressView, error) {
	course, err := uc.courses.GetWithLectures(ctx, courseID)
	if err != nil {
		return nil, err
	}
	p, err := uc.progress.Get(ctx, userID, courseID)
	if errors.Is(err, domain.ErrProgressNotFound) {
		return &ProgressView{
			ProgressSummary:     domain.NewProgressSummary(0, course.TotalLectures),
			CompletedLectureIDs: []uuid.UUID{},
			Message:             MsgNoProgress,
		}, nil
	}
	if err != nil {
		return nil, err
	}
	return viewOf(course, p, ""), nil
}

func (uc *ProgressUseCase) MarkLectureComplete(ctx context.Context, userID, courseID, lectureID uuid.UUID) (*ProgressView, error) {
	course, err := uc.courses.GetWithLectures(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := uc.access.RequireEnrollment(ctx, userID, course); err != nil {
		return nil, err
	}
	if !hasLecture(course, lectureID) {
		return nil, domain.ErrLectureNotFound
	}

	p, err := uc.progress.AddLecture(ctx, userID, courseID, lectureID)
	if err != nil {
		return nil, err
	}
	view := viewOf(course, p, MsgLectureUpdated)
	uc.log.Debug("lecture completed", "user_id", userID, "course_id", courseID, "lecture_id", lectureID, "percentage", view.Percentage)
	return view, nil
}

// CheckCompletion reports certificate eligibility. Nothing about completion
// is stored; eligibility is recomputed from the completed set each time.
func (uc *ProgressUseCase) CheckCompletion(ctx context.Context, userID, courseID uuid.UUID) (*CompletionResult, error) {
	course, err := uc.courses.GetWithLectures(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := uc.access.RequireEnrollment(ctx, userID, course); err != nil {
		return nil, err
	}
	p, err := uc.progress.EnsureExists(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}

	summary := viewOf(course, p, "").ProgressSummary
	res := &CompletionResult{ProgressSummary: summary, Message: MsgNotEligible}
	if summary.Percentage == 100 {
		res.Eligible = true
		res.Message = MsgEligible
	}
	return res, nil
}

func (uc *ProgressUseCase) ResetProgress(ctx context.Context, userID, courseID uuid.UUID) (*ResetResult, error) {
	course, err := uc.courses.GetByID(ctx, courseID)
	if err != nil {
		return nil, err
	}
	if err := uc.access.RequireEnrollment(ctx, userID, course); err != nil {
		return nil, err
	}
	found, err := uc.progress.Reset(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if !found {
		return &ResetResult{Message: MsgNoProgressToReset}, nil
	}
	uc.log.Info("progress reset", "user_id", userID, "course_id", courseID)
	return &ResetResult{Reset: true, Message: MsgProgressReset}, nil
}

func hasLecture(course *domain.Course, lectureID uuid.UUID) bool {
	for _, l := range course.Lectures {
		if l.ID == lectureID {
			return true
		}
	}
	return false
}

// viewOf counts only lectures still in the course, so lectures removed after
// completion cannot push the percentage past 100.
func viewOf(course *domain.Course, p *domain.Progress, msg string) *ProgressView {
	inCourse := make(map[uuid.UUID]struct{}, len(course.Lectures))
	for _, l := range course.Lectures {
		inCourse[l.ID] = struct{}{}
	}
	ids := make([]uuid.UUID, 0, len(p.CompletedLectures))
	for _, id := range p.CompletedLectures {
		if _, ok := inCourse[id]; ok {
			ids = append(ids, id)
		}
	}
	completed := len(ids)
	if completed > course.TotalLectures {
		completed = course.TotalLectures
	}
	return &ProgressView{
		ProgressSummary:     domain.NewProgressSummary(completed, course.TotalLectures),
		CompletedLectureIDs: ids,
		Found:               true,
		Message:             msg,
	}
}
