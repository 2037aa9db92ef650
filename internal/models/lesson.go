package models

import "time"

// LessonStatus tracks the lifecycle of a dated lesson occurrence.
type LessonStatus string

const (
	LessonStatusPlanned  LessonStatus = "PLANNED"
	LessonStatusHeld     LessonStatus = "HELD"
	LessonStatusCanceled LessonStatus = "CANCELED"
)

// Lesson is a concrete dated occurrence generated from a recurring
// schedule entry.
type Lesson struct {
	ID         string       `db:"id" json:"id"`
	ScheduleID string       `db:"schedule_id" json:"schedule_id"`
	Date       time.Time    `db:"date" json:"date"`
	StartTime  string       `db:"start_time" json:"start_time"`
	EndTime    string       `db:"end_time" json:"end_time"`
	Status     LessonStatus `db:"status" json:"status"`
	CreatedAt  time.Time    `db:"created_at" json:"created_at"`
}
