package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/models"
	appErrors "github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/errors"
	"github.com/p-stojkovski/glassy-school-nexus-sub001/pkg/export"
)

// ExportFormat enumerates supported timetable export formats.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

type timetableLoader interface {
	WeeklyTimetable(ctx context.Context) ([]models.ScheduleEntry, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportResult carries a rendered timetable file.
type ExportResult struct {
	Payload     []byte
	Filename    string
	ContentType string
}

// ExportService renders the weekly timetable into downloadable files.
type ExportService struct {
	timetable timetableLoader
	csv       csvRenderer
	pdf       pdfRenderer
	logger    *zap.Logger
}

// NewExportService constructs an ExportService. Nil renderers fall back
// to the default exporters.
func NewExportService(timetable timetableLoader, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{timetable: timetable, csv: csv, pdf: pdf, logger: logger}
}

// GenerateTimetable renders every SCHEDULED entry into the requested format.
func (s *ExportService) GenerateTimetable(ctx context.Context, format ExportFormat) (*ExportResult, error) {
	entries, err := s.timetable.WeeklyTimetable(ctx)
	if err != nil {
		return nil, err
	}

	dataset := buildTimetableDataset(entries)
	timestamp := time.Now().UTC().Format("20060102_150405")

	var payload []byte
	var contentType string
	switch format {
	case ExportFormatCSV:
		payload, err = s.csv.Render(dataset)
		contentType = "text/csv"
	case ExportFormatPDF:
		payload, err = s.pdf.Render(dataset, "Weekly Timetable")
		contentType = "application/pdf"
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported export format %q", format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render timetable")
	}

	s.logger.Info("timetable exported",
		zap.String("format", string(format)),
		zap.Int("entries", len(entries)),
	)
	return &ExportResult{
		Payload:     payload,
		Filename:    fmt.Sprintf("timetable_%s.%s", timestamp, format),
		ContentType: contentType,
	}, nil
}

func buildTimetableDataset(entries []models.ScheduleEntry) export.Dataset {
	byDay := make(map[models.DayOfWeek][]models.ScheduleEntry)
	for _, entry := range entries {
		byDay[entry.DayOfWeek] = append(byDay[entry.DayOfWeek], entry)
	}

	days := []models.DayOfWeek{models.Monday, models.Tuesday, models.Wednesday, models.Thursday, models.Friday, models.Saturday, models.Sunday}
	sections := make([]export.Section, 0, len(days))
	for _, day := range days {
		rows := byDay[day]
		sort.Slice(rows, func(i, j int) bool { return rows[i].StartTime < rows[j].StartTime })
		section := export.Section{Title: string(day)}
		for _, entry := range rows {
			section.Rows = append(section.Rows, []string{
				entry.StartTime,
				entry.EndTime,
				entry.Subject,
				entry.TeacherID,
				entry.ClassroomID,
				fmt.Sprintf("%d", len(entry.StudentIDs)),
			})
		}
		sections = append(sections, section)
	}

	return export.Dataset{
		Headers:  []string{"Start", "End", "Subject", "Teacher", "Classroom", "Students"},
		Sections: sections,
	}
}
