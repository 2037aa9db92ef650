package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/models"
	appErrors "github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/errors"
)

type mockTeacherRepo struct {
	items map[string]*models.Teacher
}

func (m *mockTeacherRepo) List(ctx context.Context, filter models.TeacherFilter) ([]models.Teacher, int, error) {
	var out []models.Teacher
	for _, item := range m.items {
		out = append(out, *item)
	}
	return out, len(out), nil
}

func (m *mockTeacherRepo) FindByID(ctx context.Context, id string) (*models.Teacher, error) {
	if teacher, ok := m.items[id]; ok {
		cp := *teacher
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockTeacherRepo) ExistsByEmail(ctx context.Context, email, excludeID string) (bool, error) {
	for _, teacher := range m.items {
		if teacher.Email == email && teacher.ID != excludeID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockTeacherRepo) Create(ctx context.Context, teacher *models.Teacher) error {
	if m.items == nil {
		m.items = make(map[string]*models.Teacher)
	}
	if teacher.ID == "" {
		teacher.ID = "generated"
	}
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Update(ctx context.Context, teacher *models.Teacher) error {
	cp := *teacher
	m.items[teacher.ID] = &cp
	return nil
}

func (m *mockTeacherRepo) Deactivate(ctx context.Context, id string) error {
	if teacher, ok := m.items[id]; ok {
		teacher.Active = false
	}
	return nil
}

func TestTeacherServiceCreate(t *testing.T) {
	repo := &mockTeacherRepo{}
	svc := NewTeacherService(repo, nil, zap.NewNop())

	teacher, err := svc.Create(context.Background(), CreateTeacherRequest{
		Email:    "ana@school.test",
		FullName: "Ana Petrova",
	})
	require.NoError(t, err)
	assert.True(t, teacher.Active)
	assert.Len(t, repo.items, 1)
}

func TestTeacherServiceCreateRejectsDuplicateEmail(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", Email: "ana@school.test", FullName: "Ana Petrova", Active: true},
	}}
	svc := NewTeacherService(repo, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), CreateTeacherRequest{
		Email:    "ana@school.test",
		FullName: "Another Ana",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceCreateRejectsInvalidEmail(t *testing.T) {
	svc := NewTeacherService(&mockTeacherRepo{}, nil, zap.NewNop())

	_, err := svc.Create(context.Background(), CreateTeacherRequest{
		Email:    "not-an-email",
		FullName: "Ana Petrova",
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceUpdateKeepsOwnEmail(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", Email: "ana@school.test", FullName: "Ana Petrova", Active: true},
	}}
	svc := NewTeacherService(repo, nil, zap.NewNop())

	updated, err := svc.Update(context.Background(), "t1", UpdateTeacherRequest{
		Email:    "ana@school.test",
		FullName: "Ana P. Petrova",
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana P. Petrova", updated.FullName)
}

func TestTeacherServiceGetNotFound(t *testing.T) {
	svc := NewTeacherService(&mockTeacherRepo{}, nil, zap.NewNop())

	_, err := svc.Get(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestTeacherServiceDeactivate(t *testing.T) {
	repo := &mockTeacherRepo{items: map[string]*models.Teacher{
		"t1": {ID: "t1", Email: "ana@school.test", FullName: "Ana Petrova", Active: true},
	}}
	svc := NewTeacherService(repo, nil, zap.NewNop())

	require.NoError(t, svc.Deactivate(context.Background(), "t1"))
	assert.False(t, repo.items["t1"].Active)
}
