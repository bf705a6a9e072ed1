package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRequest() *CreateSubmissionRequest {
	return &CreateSubmissionRequest{
		Usernames: []string{"alice"},
		CourseID:  "algo101",
		TaskID:    "sorting",
		InputRef:  "inputs/alice/sorting/1",
		InputSize: 128,
	}
}

func TestCreateSubmissionRequest_Validate(t *testing.T) {
	t.Parallel()

	t.Run("accepts a valid request", func(t *testing.T) {
		require.NoError(t, validRequest().Validate())
	})

	t.Run("accepts a group request", func(t *testing.T) {
		req := validRequest()
		req.Usernames = []string{"alice", "bob", "carol"}
		require.NoError(t, req.Validate())
	})

	t.Run("rejects empty usernames", func(t *testing.T) {
		req := validRequest()
		req.Usernames = nil
		require.Error(t, req.Validate())

		req.Usernames = []string{"alice", "  "}
		require.Error(t, req.Validate())
	})

	t.Run("rejects missing identifiers", func(t *testing.T) {
		req := validRequest()
		req.CourseID = ""
		require.Error(t, req.Validate())

		req = validRequest()
		req.TaskID = " "
		require.Error(t, req.Validate())

		req = validRequest()
		req.InputRef = ""
		require.Error(t, req.Validate())
	})

	t.Run("rejects negative input size", func(t *testing.T) {
		req := validRequest()
		req.InputSize = -1
		require.Error(t, req.Validate())
	})

	t.Run("rejects incomplete LTI binding", func(t *testing.T) {
		req := validRequest()
		req.LTI = &LTIBinding{Sourcedid: "sourced-1"}
		require.Error(t, req.Validate())

		req.LTI = &LTIBinding{OutcomeServiceURL: "https://lms.example.edu/outcomes"}
		require.Error(t, req.Validate())

		req.LTI = &LTIBinding{
			OutcomeServiceURL: "https://lms.example.edu/outcomes",
			Sourcedid:         "sourced-1",
		}
		require.NoError(t, req.Validate())
	})
}

func TestSubmission_Submitter(t *testing.T) {
	t.Parallel()

	s := &Submission{Usernames: []string{"alice", "bob"}}
	assert.Equal(t, "alice", s.Submitter())

	empty := &Submission{}
	assert.Empty(t, empty.Submitter())
}

func TestSubmissionStatus(t *testing.T) {
	t.Parallel()

	for _, status := range []SubmissionStatus{
		SubmissionStatusQueued, SubmissionStatusRunning, SubmissionStatusDone, SubmissionStatusCrashed,
	} {
		assert.True(t, status.Valid(), status)
	}
	assert.False(t, SubmissionStatus("pending").Valid())

	assert.False(t, SubmissionStatusQueued.Terminal())
	assert.False(t, SubmissionStatusRunning.Terminal())
	assert.True(t, SubmissionStatusDone.Terminal())
	assert.True(t, SubmissionStatusCrashed.Terminal())
}

func TestCanTransition(t *testing.T) {
	t.Parallel()

	assert.True(t, CanTransition(SubmissionStatusQueued, SubmissionStatusRunning))
	assert.True(t, CanTransition(SubmissionStatusQueued, SubmissionStatusCrashed))
	assert.True(t, CanTransition(SubmissionStatusRunning, SubmissionStatusDone))
	assert.True(t, CanTransition(SubmissionStatusRunning, SubmissionStatusCrashed))

	// Terminal states only leave via resubmission, which creates a new row.
	assert.False(t, CanTransition(SubmissionStatusDone, SubmissionStatusRunning))
	assert.False(t, CanTransition(SubmissionStatusCrashed, SubmissionStatusQueued))
	assert.False(t, CanTransition(SubmissionStatusQueued, SubmissionStatusDone))
}

func TestTransitionError(t *testing.T) {
	t.Parallel()

	err := TransitionError(SubmissionStatusDone, SubmissionStatusRunning)
	require.ErrorIs(t, err, ErrInvalidTransition)
	assert.Contains(t, err.Error(), "done -> running")
}
