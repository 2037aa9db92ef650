package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/conflict"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/models"
	appErrors "github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/errors"
)

type mockScheduleRepo struct {
	items      map[string]*models.ScheduleEntry
	byDayCalls int
}

func (m *mockScheduleRepo) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, int, error) {
	var out []models.ScheduleEntry
	for _, item := range m.items {
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (m *mockScheduleRepo) FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	if entry, ok := m.items[id]; ok {
		cp := *entry
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleRepo) ListScheduledByDay(ctx context.Context, day models.DayOfWeek) ([]models.ScheduleEntry, error) {
	m.byDayCalls++
	var out []models.ScheduleEntry
	for _, item := range m.items {
		if item.DayOfWeek == day && item.Status == models.ScheduleStatusScheduled {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *mockScheduleRepo) Create(ctx context.Context, entry *models.ScheduleEntry) error {
	if m.items == nil {
		m.items = make(map[string]*models.ScheduleEntry)
	}
	if entry.ID == "" {
		entry.ID = "generated"
	}
	now := time.Now()
	entry.CreatedAt = now
	entry.UpdatedAt = now
	cp := *entry
	m.items[entry.ID] = &cp
	return nil
}

func (m *mockScheduleRepo) Update(ctx context.Context, entry *models.ScheduleEntry) error {
	cp := *entry
	m.items[entry.ID] = &cp
	return nil
}

func (m *mockScheduleRepo) UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus) error {
	if entry, ok := m.items[id]; ok {
		entry.Status = status
	}
	return nil
}

func (m *mockScheduleRepo) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type mockLessonRepo struct {
	lessons []models.Lesson
}

func (m *mockLessonRepo) ListBySchedule(ctx context.Context, scheduleID string) ([]models.Lesson, error) {
	var out []models.Lesson
	for _, lesson := range m.lessons {
		if lesson.ScheduleID == scheduleID {
			out = append(out, lesson)
		}
	}
	return out, nil
}

func (m *mockLessonRepo) ExistingDates(ctx context.Context, scheduleID string) ([]time.Time, error) {
	var out []time.Time
	for _, lesson := range m.lessons {
		if lesson.ScheduleID == scheduleID {
			out = append(out, lesson.Date)
		}
	}
	return out, nil
}

func (m *mockLessonRepo) BulkCreate(ctx context.Context, lessons []models.Lesson) error {
	m.lessons = append(m.lessons, lessons...)
	return nil
}

type mockSnapshotCache struct {
	entries     map[models.DayOfWeek][]models.ScheduleEntry
	invalidated int
}

func (m *mockSnapshotCache) Get(ctx context.Context, day models.DayOfWeek) ([]models.ScheduleEntry, error) {
	if entries, ok := m.entries[day]; ok {
		return entries, nil
	}
	return nil, appErrors.ErrCacheMiss
}

func (m *mockSnapshotCache) Set(ctx context.Context, day models.DayOfWeek, entries []models.ScheduleEntry) error {
	if m.entries == nil {
		m.entries = make(map[models.DayOfWeek][]models.ScheduleEntry)
	}
	m.entries[day] = entries
	return nil
}

func (m *mockSnapshotCache) Invalidate(ctx context.Context) error {
	m.invalidated++
	m.entries = nil
	return nil
}

func newScheduleService(repo *mockScheduleRepo, lessons *mockLessonRepo, cache *mockSnapshotCache, policy conflict.Policy) *ScheduleService {
	var c snapshotCache
	if cache != nil {
		c = cache
	}
	return NewScheduleService(repo, lessons, c, nil, validator.New(), zap.NewNop(), policy)
}

func existingEntry(id string) *models.ScheduleEntry {
	return &models.ScheduleEntry{
		ID:          id,
		Subject:     "Math",
		TeacherID:   "t1",
		ClassroomID: "r1",
		DayOfWeek:   models.Monday,
		StartTime:   "09:00",
		EndTime:     "10:00",
		Status:      models.ScheduleStatusScheduled,
	}
}

func TestScheduleServiceCreate(t *testing.T) {
	repo := &mockScheduleRepo{}
	svc := newScheduleService(repo, &mockLessonRepo{}, nil, conflict.Policy{})

	entry, report, err := svc.Create(context.Background(), CreateScheduleRequest{
		Subject:     "Math",
		TeacherID:   "t1",
		ClassroomID: "r1",
		DayOfWeek:   "monday",
		StartTime:   "09:00",
		EndTime:     "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, models.Monday, entry.DayOfWeek)
	assert.Equal(t, models.ScheduleStatusScheduled, entry.Status)
	assert.False(t, report.HasConflicts)
	assert.Len(t, repo.items, 1)
}

func TestScheduleServiceCreateBlockedByTeacherConflict(t *testing.T) {
	repo := &mockScheduleRepo{items: map[string]*models.ScheduleEntry{"e1": existingEntry("e1")}}
	svc := newScheduleService(repo, &mockLessonRepo{}, nil, conflict.Policy{})

	_, _, err := svc.Create(context.Background(), CreateScheduleRequest{
		Subject:     "English",
		TeacherID:   "t1",
		ClassroomID: "r2",
		DayOfWeek:   "MONDAY",
		StartTime:   "09:30",
		EndTime:     "10:30",
	})
	require.Error(t, err)

	appErr := appErrors.FromError(err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErr.Code)

	var domainErr *ScheduleConflictError
	require.True(t, errors.As(err, &domainErr))
	require.Len(t, domainErr.Report.Conflicts, 1)
	assert.Equal(t, []conflict.Reason{conflict.ReasonTeacher}, domainErr.Report.Conflicts[0].Reasons)
	assert.Len(t, repo.items, 1)
}

func TestScheduleServiceCreateAdvisoryStudentConflict(t *testing.T) {
	existing := existingEntry("e1")
	existing.StudentIDs = []string{"s1"}
	repo := &mockScheduleRepo{items: map[string]*models.ScheduleEntry{"e1": existing}}
	svc := newScheduleService(repo, &mockLessonRepo{}, nil, conflict.Policy{})

	entry, report, err := svc.Create(context.Background(), CreateScheduleRequest{
		Subject:     "English",
		TeacherID:   "t2",
		ClassroomID: "r2",
		StudentIDs:  []string{"s1", "s2"},
		DayOfWeek:   "MONDAY",
		StartTime:   "09:30",
		EndTime:     "10:30",
	})
	require.NoError(t, err)
	assert.NotNil(t, entry)
	assert.True(t, report.HasConflicts)
	assert.False(t, report.Blocking)
	assert.Len(t, repo.items, 2)
}

func TestScheduleServiceCreateStudentConflictBlocksWhenConfigured(t *testing.T) {
	existing := existingEntry("e1")
	existing.StudentIDs = []string{"s1"}
	repo := &mockScheduleRepo{items: map[string]*models.ScheduleEntry{"e1": existing}}
	svc := newScheduleService(repo, &mockLessonRepo{}, nil, conflict.Policy{StudentOverlapBlocks: true})

	_, _, err := svc.Create(context.Background(), CreateScheduleRequest{
		Subject:     "English",
		TeacherID:   "t2",
		ClassroomID: "r2",
		StudentIDs:  []string{"s1"},
		DayOfWeek:   "MONDAY",
		StartTime:   "09:30",
		EndTime:     "10:30",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCreateRejectsInvertedRange(t *testing.T) {
	svc := newScheduleService(&mockScheduleRepo{}, &mockLessonRepo{}, nil, conflict.Policy{})

	_, _, err := svc.Create(context.Background(), CreateScheduleRequest{
		Subject:     "Math",
		TeacherID:   "t1",
		ClassroomID: "r1",
		DayOfWeek:   "MONDAY",
		StartTime:   "10:00",
		EndTime:     "09:00",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInvalidTimeRange.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceUpdateExcludesSelf(t *testing.T) {
	repo := &mockScheduleRepo{items: map[string]*models.ScheduleEntry{"e1": existingEntry("e1")}}
	svc := newScheduleService(repo, &mockLessonRepo{}, nil, conflict.Policy{})

	// Same slot and resources as before: must not conflict with itself.
	updated, report, err := svc.Update(context.Background(), "e1", UpdateScheduleRequest{
		Subject:     "Math II",
		TeacherID:   "t1",
		ClassroomID: "r1",
		DayOfWeek:   "MONDAY",
		StartTime:   "09:00",
		EndTime:     "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, "Math II", updated.Subject)
	assert.False(t, report.HasConflicts)
}

func TestScheduleServiceCancelFreesSlot(t *testing.T) {
	repo := &mockScheduleRepo{items: map[string]*models.ScheduleEntry{"e1": existingEntry("e1")}}
	svc := newScheduleService(repo, &mockLessonRepo{}, nil, conflict.Policy{})

	_, err := svc.UpdateStatus(context.Background(), "e1", UpdateScheduleStatusRequest{Status: "CANCELED"})
	require.NoError(t, err)

	_, report, err := svc.Create(context.Background(), CreateScheduleRequest{
		Subject:     "Math",
		TeacherID:   "t1",
		ClassroomID: "r1",
		DayOfWeek:   "MONDAY",
		StartTime:   "09:00",
		EndTime:     "10:00",
	})
	require.NoError(t, err)
	assert.False(t, report.HasConflicts)
}

func TestScheduleServiceUpdateStatusRejectsUnknownValue(t *testing.T) {
	repo := &mockScheduleRepo{items: map[string]*models.ScheduleEntry{"e1": existingEntry("e1")}}
	svc := newScheduleService(repo, &mockLessonRepo{}, nil, conflict.Policy{})

	_, err := svc.UpdateStatus(context.Background(), "e1", UpdateScheduleStatusRequest{Status: "PAUSED"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceCheckDryRun(t *testing.T) {
	repo := &mockScheduleRepo{items: map[string]*models.ScheduleEntry{"e1": existingEntry("e1")}}
	svc := newScheduleService(repo, &mockLessonRepo{}, nil, conflict.Policy{})

	report, err := svc.Check(context.Background(), CheckScheduleRequest{
		ClassroomID: "r1",
		DayOfWeek:   "MONDAY",
		StartTime:   "09:30",
		EndTime:     "10:30",
	})
	require.NoError(t, err)
	require.Len(t, report.Conflicts, 1)
	assert.Equal(t, []conflict.Reason{conflict.ReasonClassroom}, report.Conflicts[0].Reasons)
	// Dry run persists nothing.
	assert.Len(t, repo.items, 1)
}

func TestScheduleServiceUsesSnapshotCache(t *testing.T) {
	repo := &mockScheduleRepo{items: map[string]*models.ScheduleEntry{"e1": existingEntry("e1")}}
	cache := &mockSnapshotCache{}
	svc := newScheduleService(repo, &mockLessonRepo{}, cache, conflict.Policy{})

	_, err := svc.Check(context.Background(), CheckScheduleRequest{
		TeacherID: "t1",
		DayOfWeek: "MONDAY",
		StartTime: "11:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.byDayCalls)

	// Second check hits the cache.
	_, err = svc.Check(context.Background(), CheckScheduleRequest{
		TeacherID: "t1",
		DayOfWeek: "MONDAY",
		StartTime: "11:00",
		EndTime:   "12:00",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.byDayCalls)
}

func TestScheduleServiceWritesInvalidateSnapshotCache(t *testing.T) {
	repo := &mockScheduleRepo{}
	cache := &mockSnapshotCache{}
	svc := newScheduleService(repo, &mockLessonRepo{}, cache, conflict.Policy{})

	_, _, err := svc.Create(context.Background(), CreateScheduleRequest{
		Subject:     "Math",
		TeacherID:   "t1",
		ClassroomID: "r1",
		DayOfWeek:   "MONDAY",
		StartTime:   "09:00",
		EndTime:     "10:00",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, cache.invalidated)
}

func TestScheduleServiceGenerateLessons(t *testing.T) {
	repo := &mockScheduleRepo{items: map[string]*models.ScheduleEntry{"e1": existingEntry("e1")}}
	lessons := &mockLessonRepo{}
	svc := newScheduleService(repo, lessons, nil, conflict.Policy{})

	// 2026-08-03 through 2026-08-17 contains three Mondays.
	created, err := svc.GenerateLessons(context.Background(), "e1", GenerateLessonsRequest{From: "2026-08-03", To: "2026-08-17"})
	require.NoError(t, err)
	require.Len(t, created, 3)
	for _, lesson := range created {
		assert.Equal(t, time.Monday, lesson.Date.Weekday())
		assert.Equal(t, "09:00", lesson.StartTime)
		assert.Equal(t, models.LessonStatusPlanned, lesson.Status)
	}

	// Re-running the same range generates nothing new.
	again, err := svc.GenerateLessons(context.Background(), "e1", GenerateLessonsRequest{From: "2026-08-03", To: "2026-08-17"})
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, lessons.lessons, 3)
}

func TestScheduleServiceGenerateLessonsRequiresScheduledStatus(t *testing.T) {
	entry := existingEntry("e1")
	entry.Status = models.ScheduleStatusCanceled
	repo := &mockScheduleRepo{items: map[string]*models.ScheduleEntry{"e1": entry}}
	svc := newScheduleService(repo, &mockLessonRepo{}, nil, conflict.Policy{})

	_, err := svc.GenerateLessons(context.Background(), "e1", GenerateLessonsRequest{From: "2026-08-03", To: "2026-08-17"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestScheduleServiceDeleteRemovesEntry(t *testing.T) {
	repo := &mockScheduleRepo{items: map[string]*models.ScheduleEntry{"e1": existingEntry("e1")}}
	svc := newScheduleService(repo, &mockLessonRepo{}, nil, conflict.Policy{})

	require.NoError(t, svc.Delete(context.Background(), "e1"))
	assert.Empty(t, repo.items)

	err := svc.Delete(context.Background(), "e1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
