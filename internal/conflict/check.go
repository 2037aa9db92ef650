package conflict

import (
	"fmt"

	"github.com/p-stojkovski/glassy-school-nexus-sub001/internal/models"
)

// Reason identifies which contended resource collided.
type Reason string

const (
	ReasonTeacher   Reason = "TEACHER"
	ReasonClassroom Reason = "CLASSROOM"
	ReasonStudent   Reason = "STUDENT"
)

// OverlapType distinguishes a full duplicate slot from any other intersection.
type OverlapType string

const (
	OverlapExact   OverlapType = "EXACT"
	OverlapPartial OverlapType = "PARTIAL"
)

// Policy controls which collision reasons block submission. Teacher and
// classroom collisions always block; student collisions are advisory unless
// StudentOverlapBlocks is set.
type Policy struct {
	StudentOverlapBlocks bool
}

// Candidate describes a not-yet-committed schedule slot being validated
// against an existing snapshot. ExcludeID skips the entry being edited.
type Candidate struct {
	TeacherID   string             `json:"teacher_id"`
	ClassroomID string             `json:"classroom_id"`
	StudentIDs  []string           `json:"student_ids"`
	DayOfWeek   models.DayOfWeek   `json:"day_of_week"`
	StartTime   string             `json:"start_time"`
	EndTime     string             `json:"end_time"`
	ExcludeID   string             `json:"exclude_id,omitempty"`
}

// Validate checks the candidate's day and time range.
func (c Candidate) Validate() error {
	if !c.DayOfWeek.Valid() {
		return fmt.Errorf("invalid day of week %q", string(c.DayOfWeek))
	}
	if _, err := ParseRange(c.StartTime, c.EndTime); err != nil {
		return err
	}
	return nil
}

// Conflict is one existing entry colliding with the candidate, annotated with
// every resource dimension that collided.
type Conflict struct {
	EntryID  string               `json:"entry_id"`
	Reasons  []Reason             `json:"reasons"`
	Overlap  OverlapType          `json:"overlap"`
	Blocking bool                 `json:"blocking"`
	Entry    models.ScheduleEntry `json:"entry"`
}

// Report aggregates classified conflicts for form-side gating.
type Report struct {
	HasConflicts bool       `json:"has_conflicts"`
	Blocking     bool       `json:"blocking"`
	Conflicts    []Conflict `json:"conflicts"`
}

// Check scans the snapshot for entries colliding with the candidate and
// returns a classified report. It is pure: the snapshot is never mutated and
// repeated calls with the same inputs yield identical reports. Entries that
// are not SCHEDULED, fall on a different day, match ExcludeID, or carry
// malformed day/time values are skipped.
func Check(candidate Candidate, snapshot []models.ScheduleEntry, policy Policy) (Report, error) {
	if err := candidate.Validate(); err != nil {
		return Report{}, err
	}
	candidateRange, _ := ParseRange(candidate.StartTime, candidate.EndTime)

	students := make(map[string]struct{}, len(candidate.StudentIDs))
	for _, id := range candidate.StudentIDs {
		students[id] = struct{}{}
	}

	report := Report{}
	for _, entry := range snapshot {
		if entry.Status != models.ScheduleStatusScheduled {
			continue
		}
		if entry.ID != "" && entry.ID == candidate.ExcludeID {
			continue
		}
		if entry.DayOfWeek != candidate.DayOfWeek {
			continue
		}
		entryRange, err := ParseRange(entry.StartTime, entry.EndTime)
		if err != nil {
			// One malformed record must not block unrelated checks.
			continue
		}
		if !candidateRange.Overlaps(entryRange) {
			continue
		}

		reasons := collideReasons(candidate, students, entry)
		if len(reasons) == 0 {
			continue
		}

		hit := Conflict{
			EntryID: entry.ID,
			Reasons: reasons,
			Overlap: classify(candidate, candidateRange, students, entry, entryRange),
			Entry:   entry,
		}
		hit.Blocking = blocking(reasons, policy)
		if hit.Blocking {
			report.Blocking = true
		}
		report.Conflicts = append(report.Conflicts, hit)
	}

	report.HasConflicts = len(report.Conflicts) > 0
	return report, nil
}

func collideReasons(candidate Candidate, students map[string]struct{}, entry models.ScheduleEntry) []Reason {
	var reasons []Reason
	if candidate.TeacherID != "" && candidate.TeacherID == entry.TeacherID {
		reasons = append(reasons, ReasonTeacher)
	}
	if candidate.ClassroomID != "" && candidate.ClassroomID == entry.ClassroomID {
		reasons = append(reasons, ReasonClassroom)
	}
	for _, id := range entry.StudentIDs {
		if _, shared := students[id]; shared {
			reasons = append(reasons, ReasonStudent)
			break
		}
	}
	return reasons
}

// classify labels a hit EXACT only when day, boundaries and every resource
// reference match the existing entry; anything else is PARTIAL.
func classify(candidate Candidate, candidateRange Range, students map[string]struct{}, entry models.ScheduleEntry, entryRange Range) OverlapType {
	if !candidateRange.Equal(entryRange) {
		return OverlapPartial
	}
	if candidate.TeacherID != entry.TeacherID || candidate.ClassroomID != entry.ClassroomID {
		return OverlapPartial
	}
	if len(students) != len(entry.StudentIDs) {
		return OverlapPartial
	}
	for _, id := range entry.StudentIDs {
		if _, ok := students[id]; !ok {
			return OverlapPartial
		}
	}
	return OverlapExact
}

func blocking(reasons []Reason, policy Policy) bool {
	for _, reason := range reasons {
		switch reason {
		case ReasonTeacher, ReasonClassroom:
			return true
		case ReasonStudent:
			if policy.StudentOverlapBlocks {
				return true
			}
		}
	}
	return false
}
