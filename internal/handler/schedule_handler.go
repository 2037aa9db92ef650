package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/conflict"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/models"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/service"
	appErrors "github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/errors"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/response"
)

// ScheduleHandler wires schedule services to HTTP routes.
type ScheduleHandler struct {
	schedules *service.ScheduleService
	exports   *service.ExportService
}

// NewScheduleHandler constructs a new ScheduleHandler.
func NewScheduleHandler(schedules *service.ScheduleService, exports *service.ExportService) *ScheduleHandler {
	return &ScheduleHandler{schedules: schedules, exports: exports}
}

// List godoc
// @Summary List schedule entries
// @Tags Schedules
// @Produce json
// @Param teacher_id query string false "Filter by teacher"
// @Param classroom_id query string false "Filter by classroom"
// @Param student_id query string false "Filter by enrolled student"
// @Param day query string false "Filter by day of week"
// @Param status query string false "Filter by lifecycle status"
// @Param page query int false "Page number"
// @Param limit query int false "Page size"
// @Param sort query string false "Sort field (day_of_week,start_time,subject,created_at)"
// @Param order query string false "Sort order (asc/desc)"
// @Success 200 {object} response.Envelope
// @Router /schedules [get]
func (h *ScheduleHandler) List(c *gin.Context) {
	filter := models.ScheduleFilter{
		TeacherID:   c.Query("teacher_id"),
		ClassroomID: c.Query("classroom_id"),
		StudentID:   c.Query("student_id"),
		DayOfWeek:   c.Query("day"),
		Status:      c.Query("status"),
		SortBy:      c.Query("sort"),
		SortOrder:   c.Query("order"),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	entries, pagination, err := h.schedules.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, pagination)
}

// Get godoc
// @Summary Get schedule entry detail
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id} [get]
func (h *ScheduleHandler) Get(c *gin.Context) {
	entry, err := h.schedules.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Create godoc
// @Summary Create schedule entry
// @Description Creates an entry after conflict gating. Blocking conflicts
// @Description return 409 with the full report; advisory conflicts are
// @Description attached to the success response metadata.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CreateScheduleRequest true "Schedule payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules [post]
func (h *ScheduleHandler) Create(c *gin.Context) {
	var req service.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}

	entry, report, err := h.schedules.Create(c.Request.Context(), req)
	if err != nil {
		respondConflictAware(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, entry, nil, conflictMeta(report))
}

// Update godoc
// @Summary Update schedule entry
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.UpdateScheduleRequest true "Schedule payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedules/{id} [put]
func (h *ScheduleHandler) Update(c *gin.Context) {
	var req service.UpdateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid schedule payload"))
		return
	}

	entry, report, err := h.schedules.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		respondConflictAware(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil, conflictMeta(report))
}

// UpdateStatus godoc
// @Summary Update schedule lifecycle status
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.UpdateScheduleStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/status [patch]
func (h *ScheduleHandler) UpdateStatus(c *gin.Context) {
	var req service.UpdateScheduleStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}

	entry, err := h.schedules.UpdateStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entry, nil)
}

// Delete godoc
// @Summary Delete schedule entry and its lessons
// @Tags Schedules
// @Param id path string true "Schedule ID"
// @Success 204
// @Router /schedules/{id} [delete]
func (h *ScheduleHandler) Delete(c *gin.Context) {
	if err := h.schedules.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Check godoc
// @Summary Dry-run conflict check
// @Description Evaluates a candidate slot against the current schedule
// @Description without persisting anything.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param payload body service.CheckScheduleRequest true "Candidate payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /schedules/check [post]
func (h *ScheduleHandler) Check(c *gin.Context) {
	var req service.CheckScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check payload"))
		return
	}

	report, err := h.schedules.Check(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, report, nil)
}

// Export godoc
// @Summary Export weekly timetable
// @Tags Schedules
// @Produce text/csv,application/pdf
// @Param format query string false "Export format (csv/pdf)" default(csv)
// @Success 200 {file} file
// @Router /schedules/export [get]
func (h *ScheduleHandler) Export(c *gin.Context) {
	format := service.ExportFormat(c.DefaultQuery("format", "csv"))
	result, err := h.exports.GenerateTimetable(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(http.StatusOK, result.ContentType, result.Payload)
}

// GenerateLessons godoc
// @Summary Generate lessons for a schedule
// @Description Expands the weekly slot onto concrete dates in the range,
// @Description skipping dates that already have a lesson.
// @Tags Schedules
// @Accept json
// @Produce json
// @Param id path string true "Schedule ID"
// @Param payload body service.GenerateLessonsRequest true "Date range"
// @Success 201 {object} response.Envelope
// @Router /schedules/{id}/lessons [post]
func (h *ScheduleHandler) GenerateLessons(c *gin.Context) {
	var req service.GenerateLessonsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid lesson generation payload"))
		return
	}

	lessons, err := h.schedules.GenerateLessons(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusCreated, lessons, nil)
}

// ListLessons godoc
// @Summary List generated lessons for a schedule
// @Tags Schedules
// @Produce json
// @Param id path string true "Schedule ID"
// @Success 200 {object} response.Envelope
// @Router /schedules/{id}/lessons [get]
func (h *ScheduleHandler) ListLessons(c *gin.Context) {
	lessons, err := h.schedules.ListLessons(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lessons, nil)
}

// respondConflictAware renders blocking conflicts with the full report so
// form clients can show which entries collided.
func respondConflictAware(c *gin.Context, err error) {
	var conflictErr *service.ScheduleConflictError
	if errors.As(err, &conflictErr) {
		appErr := appErrors.FromError(err)
		c.Header("Cache-Control", "no-store")
		c.JSON(appErr.Status, response.Envelope{
			Error: appErr,
			Meta:  map[string]interface{}{"conflicts": conflictErr.Report},
		})
		return
	}
	response.Error(c, err)
}

func conflictMeta(report *conflict.Report) map[string]interface{} {
	if report == nil || !report.HasConflicts {
		return nil
	}
	return map[string]interface{}{"conflicts": report}
}
