package model

import "time"

// GradeKey identifies a UserTaskGrade record.
type GradeKey struct {
	Username string
	CourseID string
	TaskID   string
}

// UserTaskGrade is the current grade for one (user, course, task) triple.
// It is derived from the best or most recent completed submission depending
// on the task's grading policy, updated only by the aggregator and never
// deleted.
type UserTaskGrade struct {
	Username     string    `json:"username"      db:"username"`
	CourseID     string    `json:"course_id"     db:"course_id"`
	TaskID       string    `json:"task_id"       db:"task_id"`
	Succeeded    bool      `json:"succeeded"     db:"succeeded"`
	Grade        float64   `json:"grade"         db:"grade"`
	SubmissionID string    `json:"submission_id" db:"submission_id"`
	// SubmittedAt is the submission timestamp of the graded attempt. It is
	// carried so most-recent policies can order out-of-order completions by
	// submission time rather than notice arrival.
	SubmittedAt time.Time `json:"submitted_at" db:"submitted_at"`
	UpdatedAt   time.Time `json:"updated_at"   db:"updated_at"`
}

// TaskGradeSnapshot is the per-task view handed to the rendering layer.
type TaskGradeSnapshot struct {
	TaskID    string  `json:"task_id"`
	Visible   bool    `json:"visible"`
	Succeeded bool    `json:"succeeded"`
	Grade     float64 `json:"grade"`
}

// CourseGradeSnapshot is the derived course view. Grade is the weighted
// average over visible tasks rounded to the nearest integer, or 0 when no
// visible task carries weight.
type CourseGradeSnapshot struct {
	Username string              `json:"username"`
	CourseID string              `json:"course_id"`
	Grade    int                 `json:"grade"`
	Tasks    []TaskGradeSnapshot `json:"tasks"`
}
