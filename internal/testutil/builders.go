// Package testutil provides testing utilities and helpers for the gradeflow grading system.
package testutil

import (
	"time"

	"github.com/opencampus/gradeflow/internal/domain/course"
	"github.com/opencampus/gradeflow/internal/domain/model"
)

// SubmissionRequestBuilder provides a fluent interface for building CreateSubmissionRequest objects for testing.
type SubmissionRequestBuilder struct {
	req *model.CreateSubmissionRequest
}

// NewSubmissionRequest creates a new SubmissionRequestBuilder with sensible defaults.
func NewSubmissionRequest() *SubmissionRequestBuilder {
	return &SubmissionRequestBuilder{
		req: &model.CreateSubmissionRequest{
			Usernames: []string{"alice"},
			CourseID:  "algo101",
			TaskID:    "sorting",
			InputRef:  "inputs/alice/sorting/1",
			InputSize: 128,
		},
	}
}

// WithUsernames sets the submission members; the first entry is the submitter.
func (b *SubmissionRequestBuilder) WithUsernames(usernames ...string) *SubmissionRequestBuilder {
	b.req.Usernames = usernames
	return b
}

// WithCourse sets the course id.
func (b *SubmissionRequestBuilder) WithCourse(courseID string) *SubmissionRequestBuilder {
	b.req.CourseID = courseID
	return b
}

// WithTask sets the task id.
func (b *SubmissionRequestBuilder) WithTask(taskID string) *SubmissionRequestBuilder {
	b.req.TaskID = taskID
	return b
}

// WithInputRef sets the stored input reference.
func (b *SubmissionRequestBuilder) WithInputRef(ref string) *SubmissionRequestBuilder {
	b.req.InputRef = ref
	return b
}

// WithInputSize sets the declared payload size in bytes.
func (b *SubmissionRequestBuilder) WithInputSize(size int64) *SubmissionRequestBuilder {
	b.req.InputSize = size
	return b
}

// WithLTI attaches an LMS gradebook binding.
func (b *SubmissionRequestBuilder) WithLTI(serviceURL, sourcedid string) *SubmissionRequestBuilder {
	b.req.LTI = &model.LTIBinding{
		OutcomeServiceURL: serviceURL,
		Sourcedid:         sourcedid,
	}
	return b
}

// Build returns the constructed CreateSubmissionRequest.
func (b *SubmissionRequestBuilder) Build() *model.CreateSubmissionRequest {
	return b.req
}

// TaskBuilder provides a fluent interface for building course.Task metadata for testing.
type TaskBuilder struct {
	task *course.Task
}

// NewTask creates a new TaskBuilder with an always-open, weight-1, most-recent task.
func NewTask() *TaskBuilder {
	return &TaskBuilder{
		task: &course.Task{
			ID:       "sorting",
			CourseID: "algo101",
			Name:     "Sorting exercise",
			Weight:   1,
			Policy:   course.PolicyLast,
		},
	}
}

// WithIDs sets the course and task ids.
func (b *TaskBuilder) WithIDs(courseID, taskID string) *TaskBuilder {
	b.task.CourseID = courseID
	b.task.ID = taskID
	return b
}

// WithWeight sets the grading weight.
func (b *TaskBuilder) WithWeight(weight float64) *TaskBuilder {
	b.task.Weight = weight
	return b
}

// WithPolicy sets the grading policy.
func (b *TaskBuilder) WithPolicy(policy course.GradingPolicy) *TaskBuilder {
	b.task.Policy = policy
	return b
}

// Hidden marks the task invisible regardless of its window.
func (b *TaskBuilder) Hidden() *TaskBuilder {
	b.task.Accessibility.Hidden = true
	return b
}

// WithWindow sets the accessibility window.
func (b *TaskBuilder) WithWindow(start time.Time, end *time.Time) *TaskBuilder {
	b.task.Accessibility.Start = start
	b.task.Accessibility.End = end
	return b
}

// Build returns the constructed Task.
func (b *TaskBuilder) Build() *course.Task {
	return b.task
}

// Common presets.

// GroupSubmissionRequest creates a request with multiple members.
func GroupSubmissionRequest(members ...string) *model.CreateSubmissionRequest {
	return NewSubmissionRequest().WithUsernames(members...).Build()
}

// LTISubmissionRequest creates a request carrying an LMS binding.
func LTISubmissionRequest(sourcedid string) *model.CreateSubmissionRequest {
	return NewSubmissionRequest().
		WithLTI("https://lms.example.edu/outcomes", sourcedid).
		Build()
}

// BestOfTask creates a best-of task with the given weight.
func BestOfTask(weight float64) *course.Task {
	return NewTask().WithPolicy(course.PolicyBest).WithWeight(weight).Build()
}
