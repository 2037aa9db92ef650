package handler

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/conflict"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/models"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/service"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/response"
)

type scheduleRepoStub struct {
	items map[string]*models.ScheduleEntry
}

func (m *scheduleRepoStub) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleEntry, int, error) {
	var out []models.ScheduleEntry
	for _, item := range m.items {
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (m *scheduleRepoStub) FindByID(ctx context.Context, id string) (*models.ScheduleEntry, error) {
	if entry, ok := m.items[id]; ok {
		cp := *entry
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *scheduleRepoStub) ListScheduledByDay(ctx context.Context, day models.DayOfWeek) ([]models.ScheduleEntry, error) {
	var out []models.ScheduleEntry
	for _, item := range m.items {
		if item.DayOfWeek == day && item.Status == models.ScheduleStatusScheduled {
			out = append(out, *item)
		}
	}
	return out, nil
}

func (m *scheduleRepoStub) Create(ctx context.Context, entry *models.ScheduleEntry) error {
	if m.items == nil {
		m.items = make(map[string]*models.ScheduleEntry)
	}
	if entry.ID == "" {
		entry.ID = "generated"
	}
	cp := *entry
	m.items[entry.ID] = &cp
	return nil
}

func (m *scheduleRepoStub) Update(ctx context.Context, entry *models.ScheduleEntry) error {
	cp := *entry
	m.items[entry.ID] = &cp
	return nil
}

func (m *scheduleRepoStub) UpdateStatus(ctx context.Context, id string, status models.ScheduleStatus) error {
	if entry, ok := m.items[id]; ok {
		entry.Status = status
	}
	return nil
}

func (m *scheduleRepoStub) Delete(ctx context.Context, id string) error {
	delete(m.items, id)
	return nil
}

type lessonRepoStub struct{}

func (lessonRepoStub) ListBySchedule(ctx context.Context, scheduleID string) ([]models.Lesson, error) {
	return nil, nil
}

func (lessonRepoStub) ExistingDates(ctx context.Context, scheduleID string) ([]time.Time, error) {
	return nil, nil
}

func (lessonRepoStub) BulkCreate(ctx context.Context, lessons []models.Lesson) error {
	return nil
}

func newScheduleHandlerForTest(repo *scheduleRepoStub) *ScheduleHandler {
	schedules := service.NewScheduleService(repo, lessonRepoStub{}, nil, nil, nil, zap.NewNop(), conflict.Policy{})
	exports := service.NewExportService(schedules, nil, nil, zap.NewNop())
	return NewScheduleHandler(schedules, exports)
}

func testContext(t *testing.T, method, target string, payload interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var body *bytes.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	} else {
		body = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, target, body)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func TestScheduleHandlerCreate(t *testing.T) {
	handler := newScheduleHandlerForTest(&scheduleRepoStub{})
	c, w := testContext(t, http.MethodPost, "/schedules", service.CreateScheduleRequest{
		Subject:     "Math",
		TeacherID:   "t1",
		ClassroomID: "r1",
		DayOfWeek:   "MONDAY",
		StartTime:   "09:00",
		EndTime:     "10:00",
	})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)

	var envelope response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Nil(t, envelope.Error)
	assert.Nil(t, envelope.Meta)
}

func TestScheduleHandlerCreateConflictReturnsReport(t *testing.T) {
	repo := &scheduleRepoStub{items: map[string]*models.ScheduleEntry{
		"e1": {
			ID: "e1", Subject: "Math", TeacherID: "t1", ClassroomID: "r1",
			DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:00",
			Status: models.ScheduleStatusScheduled,
		},
	}}
	handler := newScheduleHandlerForTest(repo)
	c, w := testContext(t, http.MethodPost, "/schedules", service.CreateScheduleRequest{
		Subject:     "English",
		TeacherID:   "t1",
		ClassroomID: "r2",
		DayOfWeek:   "MONDAY",
		StartTime:   "09:30",
		EndTime:     "10:30",
	})

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)

	var envelope struct {
		Error *struct {
			Code string `json:"code"`
		} `json:"error"`
		Meta struct {
			Conflicts conflict.Report `json:"conflicts"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "CONFLICT", envelope.Error.Code)
	require.Len(t, envelope.Meta.Conflicts.Conflicts, 1)
	assert.Equal(t, "e1", envelope.Meta.Conflicts.Conflicts[0].EntryID)
	assert.True(t, envelope.Meta.Conflicts.Blocking)
}

func TestScheduleHandlerCheck(t *testing.T) {
	repo := &scheduleRepoStub{items: map[string]*models.ScheduleEntry{
		"e1": {
			ID: "e1", Subject: "Math", TeacherID: "t1", ClassroomID: "r1",
			DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:00",
			Status: models.ScheduleStatusScheduled,
		},
	}}
	handler := newScheduleHandlerForTest(repo)
	c, w := testContext(t, http.MethodPost, "/schedules/check", service.CheckScheduleRequest{
		ClassroomID: "r1",
		DayOfWeek:   "MONDAY",
		StartTime:   "09:30",
		EndTime:     "10:30",
	})

	handler.Check(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data conflict.Report `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.True(t, envelope.Data.HasConflicts)
	require.Len(t, envelope.Data.Conflicts, 1)
}

func TestScheduleHandlerCreateInvalidBody(t *testing.T) {
	handler := newScheduleHandlerForTest(&scheduleRepoStub{})
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/schedules", bytes.NewReader([]byte(`invalid`)))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req

	handler.Create(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestScheduleHandlerExportCSV(t *testing.T) {
	repo := &scheduleRepoStub{items: map[string]*models.ScheduleEntry{
		"e1": {
			ID: "e1", Subject: "Math", TeacherID: "t1", ClassroomID: "r1",
			DayOfWeek: models.Monday, StartTime: "09:00", EndTime: "10:00",
			Status: models.ScheduleStatusScheduled,
		},
	}}
	handler := newScheduleHandlerForTest(repo)
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/schedules/export?format=csv", nil)
	c.Request = req

	handler.Export(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "Math")
}
