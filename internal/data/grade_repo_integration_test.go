package data

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/opencampus/gradeflow/internal/core"
	"github.com/opencampus/gradeflow/internal/domain/course"
	"github.com/opencampus/gradeflow/internal/domain/model"
	"github.com/opencampus/gradeflow/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gradeParams(policy course.GradingPolicy, grade float64, submittedAt time.Time) core.UpsertGradeParams {
	return core.UpsertGradeParams{
		Key:          model.GradeKey{Username: "alice", CourseID: "algo101", TaskID: "sorting"},
		Grade:        grade,
		Succeeded:    grade >= 50,
		SubmissionID: uuid.NewString(),
		SubmittedAt:  submittedAt,
		Policy:       policy,
	}
}

// TestGradeRepo_Integration_BestPolicy tests that a worse result never
// replaces the recorded best grade.
func TestGradeRepo_Integration_BestPolicy(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewGradeRepo(db, RepoConfig{})
		base := testutil.TestTime()

		first := gradeParams(course.PolicyBest, 80, base)
		record, err := repo.Upsert(context.Background(), first)
		require.NoError(t, err)
		assert.Equal(t, 80.0, record.Grade)
		assert.Equal(t, first.SubmissionID, record.SubmissionID)
		assert.True(t, record.Succeeded)

		// A later, worse attempt loses; the stored record is returned.
		worse := gradeParams(course.PolicyBest, 45, base.Add(time.Hour))
		record, err = repo.Upsert(context.Background(), worse)
		require.NoError(t, err)
		assert.Equal(t, 80.0, record.Grade)
		assert.Equal(t, first.SubmissionID, record.SubmissionID)
		// Success is sticky once achieved.
		assert.True(t, record.Succeeded)

		better := gradeParams(course.PolicyBest, 90, base.Add(2*time.Hour))
		record, err = repo.Upsert(context.Background(), better)
		require.NoError(t, err)
		assert.Equal(t, 90.0, record.Grade)
		assert.Equal(t, better.SubmissionID, record.SubmissionID)
	})
}

// TestGradeRepo_Integration_LastPolicy tests that out-of-order completions
// converge on the most recently submitted attempt.
func TestGradeRepo_Integration_LastPolicy(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewGradeRepo(db, RepoConfig{})
		base := testutil.TestTime()

		newer := gradeParams(course.PolicyLast, 60, base.Add(time.Hour))
		record, err := repo.Upsert(context.Background(), newer)
		require.NoError(t, err)
		assert.Equal(t, 60.0, record.Grade)

		// The completion notice for an older attempt arrives late; the
		// submission timestamp, not arrival order, decides.
		older := gradeParams(course.PolicyLast, 95, base)
		record, err = repo.Upsert(context.Background(), older)
		require.NoError(t, err)
		assert.Equal(t, 60.0, record.Grade)
		assert.Equal(t, newer.SubmissionID, record.SubmissionID)

		newest := gradeParams(course.PolicyLast, 30, base.Add(2*time.Hour))
		record, err = repo.Upsert(context.Background(), newest)
		require.NoError(t, err)
		assert.Equal(t, 30.0, record.Grade)
		assert.False(t, record.Succeeded)
	})
}

// TestGradeRepo_Integration_GetNotFound tests the missing-record sentinel.
func TestGradeRepo_Integration_GetNotFound(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewGradeRepo(db, RepoConfig{})

		_, err := repo.Get(context.Background(), model.GradeKey{
			Username: "nobody",
			CourseID: "algo101",
			TaskID:   "sorting",
		})
		require.ErrorIs(t, err, ErrGradeNotFound)
	})
}

// TestGradeRepo_Integration_ListForCourse tests per-course listing and scoping.
func TestGradeRepo_Integration_ListForCourse(t *testing.T) {
	testutil.SkipIfNoTestDB(t)

	testutil.WithAutoDB(t, func(db *sql.DB) {
		repo := NewGradeRepo(db, RepoConfig{})
		base := testutil.TestTime()

		for _, key := range []model.GradeKey{
			{Username: "alice", CourseID: "algo101", TaskID: "sorting"},
			{Username: "alice", CourseID: "algo101", TaskID: "graphs"},
			{Username: "alice", CourseID: "maths201", TaskID: "calculus"},
			{Username: "bob", CourseID: "algo101", TaskID: "sorting"},
		} {
			params := gradeParams(course.PolicyLast, 70, base)
			params.Key = key
			_, err := repo.Upsert(context.Background(), params)
			require.NoError(t, err)
		}

		grades, err := repo.ListForCourse(context.Background(), "alice", "algo101")
		require.NoError(t, err)
		require.Len(t, grades, 2)
		assert.Equal(t, "graphs", grades[0].TaskID)
		assert.Equal(t, "sorting", grades[1].TaskID)

		grades, err = repo.ListForCourse(context.Background(), "alice", "history101")
		require.NoError(t, err)
		assert.Empty(t, grades)
	})
}
