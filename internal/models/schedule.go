package models

import (
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"
)

// DayOfWeek enumerates the seven weekdays used by recurring schedules.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

// ParseDayOfWeek normalises user input into a DayOfWeek value.
func ParseDayOfWeek(raw string) (DayOfWeek, error) {
	day := DayOfWeek(strings.ToUpper(strings.TrimSpace(raw)))
	if !day.Valid() {
		return "", fmt.Errorf("invalid day of week %q", raw)
	}
	return day, nil
}

// Valid reports whether the value is one of the seven enumerated days.
func (d DayOfWeek) Valid() bool {
	switch d {
	case Monday, Tuesday, Wednesday, Thursday, Friday, Saturday, Sunday:
		return true
	}
	return false
}

// Weekday maps the enum onto time.Weekday for date expansion.
func (d DayOfWeek) Weekday() time.Weekday {
	switch d {
	case Monday:
		return time.Monday
	case Tuesday:
		return time.Tuesday
	case Wednesday:
		return time.Wednesday
	case Thursday:
		return time.Thursday
	case Friday:
		return time.Friday
	case Saturday:
		return time.Saturday
	default:
		return time.Sunday
	}
}

// ScheduleStatus captures the lifecycle of a recurring schedule entry.
// Only SCHEDULED entries participate in conflict checks.
type ScheduleStatus string

const (
	ScheduleStatusScheduled   ScheduleStatus = "SCHEDULED"
	ScheduleStatusCompleted   ScheduleStatus = "COMPLETED"
	ScheduleStatusCanceled    ScheduleStatus = "CANCELED"
	ScheduleStatusRescheduled ScheduleStatus = "RESCHEDULED"
)

// Valid reports whether the status is one of the enumerated values.
func (s ScheduleStatus) Valid() bool {
	switch s {
	case ScheduleStatusScheduled, ScheduleStatusCompleted, ScheduleStatusCanceled, ScheduleStatusRescheduled:
		return true
	}
	return false
}

// ScheduleEntry is a recurring weekly time slot binding a teacher, a classroom
// and a set of students. Times are same-day "HH:MM" wall-clock values.
type ScheduleEntry struct {
	ID          string         `db:"id" json:"id"`
	Subject     string         `db:"subject" json:"subject"`
	TeacherID   string         `db:"teacher_id" json:"teacher_id"`
	ClassroomID string         `db:"classroom_id" json:"classroom_id"`
	StudentIDs  pq.StringArray `db:"student_ids" json:"student_ids"`
	DayOfWeek   DayOfWeek      `db:"day_of_week" json:"day_of_week"`
	StartTime   string         `db:"start_time" json:"start_time"`
	EndTime     string         `db:"end_time" json:"end_time"`
	Status      ScheduleStatus `db:"status" json:"status"`
	CreatedAt   time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time      `db:"updated_at" json:"updated_at"`
}

// ScheduleFilter describes query params for listing schedule entries.
type ScheduleFilter struct {
	TeacherID   string
	ClassroomID string
	StudentID   string
	DayOfWeek   string
	Status      string
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}
