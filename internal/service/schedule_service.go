package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/conflict"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/models"
	appErrors "github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/errors"
)

type scheduleRepository interface {
	List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, int, error)
	FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error)
	ListScheduledByDay(ctx context.Context, day models.DayOfWeek) ([]models.ScheduleEntry, error)
	Create(ctx context.Context, entry *models.ScheduleEntry) error
	Update(ctx context.Context, entry *models.ScheduleEntry) error
	UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus) error
	Delete(ctx context.Context, id string) error
}

type lessonRepository interface {
	ListBySchedule(ctx context.Context, scheduleID string) ([]models.Lesson, error)
	ExistingDates(ctx context.Context, scheduleID string) ([]time.Time, error)
	BulkCreate(ctx context.Context, lessons []models.Lesson) error
}

type snapshotCache interface {
	Get(ctx context.Context, day models.DayOfWeek) ([]models.ScheduleEntry, error)
	Set(ctx context.Context, day models.DayOfWeek, entries []models.ScheduleEntry) error
	Invalidate(ctx context.Context) error
}

// ScheduleConflictError signals that a candidate collided with existing
// entries in a blocking way. It carries the full report for the caller.
type ScheduleConflictError struct {
	Report conflict.Report
}

// Error implements the error interface.
func (e *ScheduleConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("schedule conflicts with %d existing entries", len(e.Report.Conflicts))
}

// CreateScheduleRequest describes payload for creating a schedule entry.
type CreateScheduleRequest struct {
	Subject     string   `json:"subject" validate:"required"`
	TeacherID   string   `json:"teacher_id" validate:"required"`
	ClassroomID string   `json:"classroom_id" validate:"required"`
	StudentIDs  []string `json:"student_ids"`
	DayOfWeek   string   `json:"day_of_week" validate:"required"`
	StartTime   string   `json:"start_time" validate:"required"`
	EndTime     string   `json:"end_time" validate:"required"`
}

// UpdateScheduleRequest updates an existing schedule entry.
type UpdateScheduleRequest struct {
	Subject     string   `json:"subject" validate:"required"`
	TeacherID   string   `json:"teacher_id" validate:"required"`
	ClassroomID string   `json:"classroom_id" validate:"required"`
	StudentIDs  []string `json:"student_ids"`
	DayOfWeek   string   `json:"day_of_week" validate:"required"`
	StartTime   string   `json:"start_time" validate:"required"`
	EndTime     string   `json:"end_time" validate:"required"`
}

// CheckScheduleRequest is a dry-run conflict check for form-side gating.
type CheckScheduleRequest struct {
	TeacherID   string   `json:"teacher_id"`
	ClassroomID string   `json:"classroom_id"`
	StudentIDs  []string `json:"student_ids"`
	DayOfWeek   string   `json:"day_of_week" validate:"required"`
	StartTime   string   `json:"start_time" validate:"required"`
	EndTime     string   `json:"end_time" validate:"required"`
	ExcludeID   string   `json:"exclude_id"`
}

// UpdateScheduleStatusRequest transitions the lifecycle status.
type UpdateScheduleStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

// GenerateLessonsRequest expands a schedule over a date range.
type GenerateLessonsRequest struct {
	From string `json:"from" validate:"required"`
	To   string `json:"to" validate:"required"`
}

// ScheduleService coordinates schedule CRUD and conflict gating.
type ScheduleService struct {
	repo      scheduleRepository
	lessons   lessonRepository
	cache     snapshotCache
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	policy    conflict.Policy
}

// NewScheduleService instantiates ScheduleService. Cache and metrics are optional.
func NewScheduleService(repo scheduleRepository, lessons lessonRepository, cache snapshotCache, metrics *MetricsService, validate *validator.Validate, logger *zap.Logger, policy conflict.Policy) *ScheduleService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ScheduleService{repo: repo, lessons: lessons, cache: cache, metrics: metrics, validator: validate, logger: logger, policy: policy}
}

// List returns schedule entries with pagination metadata.
func (s *ScheduleService) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, *models.Pagination, error) {
	entries, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list schedules")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	pagination := &models.Pagination{Page: page, PageSize: size, TotalCount: total}
	return entries, pagination, nil
}

// Get loads a single schedule entry.
func (s *ScheduleService) Get(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	entry, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	return entry, nil
}

// Create inserts a new schedule entry after conflict gating. The returned
// report carries advisory (non-blocking) conflicts, if any.
func (s *ScheduleService) Create(ctx context.Context, req CreateScheduleRequest) (*models.ScheduleEntry, *conflict.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	day, err := models.ParseDayOfWeek(req.DayOfWeek)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day of week")
	}

	candidate := conflict.Candidate{
		TeacherID:   req.TeacherID,
		ClassroomID: req.ClassroomID,
		StudentIDs:  req.StudentIDs,
		DayOfWeek:   day,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
	}

	report, err := s.runConflictCheck(ctx, candidate)
	if err != nil {
		return nil, nil, err
	}
	if report.Blocking {
		return nil, nil, s.wrapConflict(report)
	}

	entry := models.ScheduleEntry{
		Subject:     req.Subject,
		TeacherID:   req.TeacherID,
		ClassroomID: req.ClassroomID,
		StudentIDs:  req.StudentIDs,
		DayOfWeek:   day,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      models.ScheduleStatusScheduled,
	}

	if err := s.repo.Create(ctx, &entry); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create schedule")
	}
	s.invalidateSnapshots(ctx)
	return &entry, &report, nil
}

// Update modifies an existing schedule entry, re-running the conflict check
// with the entry itself excluded.
func (s *ScheduleService) Update(ctx context.Context, id string, req UpdateScheduleRequest) (*models.ScheduleEntry, *conflict.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid schedule payload")
	}

	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}

	day, err := models.ParseDayOfWeek(req.DayOfWeek)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day of week")
	}

	candidate := conflict.Candidate{
		TeacherID:   req.TeacherID,
		ClassroomID: req.ClassroomID,
		StudentIDs:  req.StudentIDs,
		DayOfWeek:   day,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		ExcludeID:   existing.ID,
	}

	report, err := s.runConflictCheck(ctx, candidate)
	if err != nil {
		return nil, nil, err
	}
	if report.Blocking {
		return nil, nil, s.wrapConflict(report)
	}

	updated := models.ScheduleEntry{
		ID:          existing.ID,
		Subject:     req.Subject,
		TeacherID:   req.TeacherID,
		ClassroomID: req.ClassroomID,
		StudentIDs:  req.StudentIDs,
		DayOfWeek:   day,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Status:      existing.Status,
		CreatedAt:   existing.CreatedAt,
	}

	if err := s.repo.Update(ctx, &updated); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule")
	}
	s.invalidateSnapshots(ctx)
	return &updated, &report, nil
}

// UpdateStatus transitions an entry's lifecycle status. A canceled or
// completed entry frees its resources for future conflict checks.
func (s *ScheduleService) UpdateStatus(ctx context.Context, id string, req UpdateScheduleStatusRequest) (*models.ScheduleEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}

	status := models.ScheduleStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown schedule status %q", req.Status))
	}

	entry, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.repo.UpdateStatus(ctx, entry.ID, status); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update schedule status")
	}
	entry.Status = status
	s.invalidateSnapshots(ctx)
	return entry, nil
}

// Delete removes a schedule entry and its generated lessons.
func (s *ScheduleService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete schedule")
	}
	s.invalidateSnapshots(ctx)
	return nil
}

// Check performs a dry-run conflict check without persisting anything.
func (s *ScheduleService) Check(ctx context.Context, req CheckScheduleRequest) (*conflict.Report, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check payload")
	}

	day, err := models.ParseDayOfWeek(req.DayOfWeek)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid day of week")
	}

	candidate := conflict.Candidate{
		TeacherID:   req.TeacherID,
		ClassroomID: req.ClassroomID,
		StudentIDs:  req.StudentIDs,
		DayOfWeek:   day,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		ExcludeID:   req.ExcludeID,
	}

	report, err := s.runConflictCheck(ctx, candidate)
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// GenerateLessons expands a SCHEDULED entry onto concrete dates between from
// and to (inclusive, "2006-01-02"), skipping dates already generated.
func (s *ScheduleService) GenerateLessons(ctx context.Context, scheduleID string, req GenerateLessonsRequest) ([]models.Lesson, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid lesson generation payload")
	}

	from, err := time.Parse("2006-01-02", req.From)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date, expected YYYY-MM-DD")
	}
	to, err := time.Parse("2006-01-02", req.To)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date, expected YYYY-MM-DD")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "from date must not be after to date")
	}

	entry, err := s.Get(ctx, scheduleID)
	if err != nil {
		return nil, err
	}
	if entry.Status != models.ScheduleStatusScheduled {
		return nil, appErrors.Clone(appErrors.ErrConflict, "lessons can only be generated for scheduled entries")
	}

	existingDates, err := s.lessons.ExistingDates(ctx, entry.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load existing lessons")
	}
	taken := make(map[string]struct{}, len(existingDates))
	for _, d := range existingDates {
		taken[d.Format("2006-01-02")] = struct{}{}
	}

	var created []models.Lesson
	for date := from; !date.After(to); date = date.AddDate(0, 0, 1) {
		if date.Weekday() != entry.DayOfWeek.Weekday() {
			continue
		}
		if _, exists := taken[date.Format("2006-01-02")]; exists {
			continue
		}
		created = append(created, models.Lesson{
			ScheduleID: entry.ID,
			Date:       date,
			StartTime:  entry.StartTime,
			EndTime:    entry.EndTime,
			Status:     models.LessonStatusPlanned,
		})
	}

	if err := s.lessons.BulkCreate(ctx, created); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create lessons")
	}

	s.logger.Info("lessons generated",
		zap.String("schedule_id", entry.ID),
		zap.Int("count", len(created)),
	)
	return created, nil
}

// ListLessons returns the generated lessons for a schedule.
func (s *ScheduleService) ListLessons(ctx context.Context, scheduleID string) ([]models.Lesson, error) {
	if _, err := s.Get(ctx, scheduleID); err != nil {
		return nil, err
	}
	lessons, err := s.lessons.ListBySchedule(ctx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list lessons")
	}
	return lessons, nil
}

// WeeklyTimetable loads every SCHEDULED entry grouped for export, ordered
// Monday through Sunday by start time.
func (s *ScheduleService) WeeklyTimetable(ctx context.Context) ([]models.ScheduleEntry, error) {
	days := []models.DayOfWeek{models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday, models.Saturday, models.Sunday}
	var all []models.ScheduleEntry
	for _, day := range days {
		entries, err := s.loadSnapshot(ctx, day)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load timetable")
		}
		all = append(all, entries...)
	}
	return all, nil
}

func (s *ScheduleService) runConflictCheck(ctx context.Context, candidate conflict.Candidate) (conflict.Report, error) {
	if err := candidate.Validate(); err != nil {
		return conflict.Report{}, appErrors.Wrap(err, appErrors.ErrInvalidTimeRange.Code, appErrors.ErrInvalidTimeRange.Status, "invalid schedule time range")
	}

	snapshot, err := s.loadSnapshot(ctx, candidate.DayOfWeek)
	if err != nil {
		return conflict.Report{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule snapshot")
	}

	report, err := conflict.Check(candidate, snapshot, s.policy)
	if err != nil {
		return conflict.Report{}, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "conflict check rejected candidate")
	}

	if s.metrics != nil {
		outcome := "clean"
		if report.Blocking {
			outcome = "blocking"
		} else if report.HasConflicts {
			outcome = "advisory"
		}
		s.metrics.ObserveConflictCheck(outcome)
	}
	return report, nil
}

func (s *ScheduleService) loadSnapshot(ctx context.Context, day models.DayOfWeek) ([]models.ScheduleEntry, error) {
	if s.cache != nil {
		entries, err := s.cache.Get(ctx, day)
		if err == nil {
			if s.metrics != nil {
				s.metrics.ObserveSnapshotCache(true)
			}
			return entries, nil
		}
		if !errors.Is(err, appErrors.ErrCacheMiss) {
			s.logger.Warn("snapshot cache read failed", zap.Error(err))
		}
		if s.metrics != nil {
			s.metrics.ObserveSnapshotCache(false)
		}
	}

	entries, err := s.repo.ListScheduledByDay(ctx, day)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, day, entries); err != nil {
			s.logger.Warn("snapshot cache write failed", zap.Error(err))
		}
	}
	return entries, nil
}

func (s *ScheduleService) invalidateSnapshots(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		s.logger.Warn("snapshot cache invalidation failed", zap.Error(err))
	}
}

func (s *ScheduleService) wrapConflict(report conflict.Report) error {
	domainErr := &ScheduleConflictError{Report: report}
	return appErrors.Wrap(domainErr, appErrors.ErrConflict.Code, appErrors.ErrConflict.Status, "schedule conflicts detected")
}
