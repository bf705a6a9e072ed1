package course

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func TestGradingPolicy(t *testing.T) {
	t.Parallel()

	assert.True(t, PolicyBest.Valid())
	assert.True(t, PolicyLast.Valid())
	assert.False(t, GradingPolicy("newest").Valid())

	var p GradingPolicy
	require.NoError(t, p.UnmarshalText([]byte(" Best ")))
	assert.Equal(t, PolicyBest, p)

	require.NoError(t, p.UnmarshalText([]byte("LAST")))
	assert.Equal(t, PolicyLast, p)

	require.Error(t, p.UnmarshalText([]byte("newest")))
}

func TestAccessibility_Open(t *testing.T) {
	t.Parallel()

	t.Run("zero window is always open", func(t *testing.T) {
		assert.True(t, Accessibility{}.Open(testNow))
	})

	t.Run("hidden overrides everything", func(t *testing.T) {
		assert.False(t, Accessibility{Hidden: true}.Open(testNow))
	})

	t.Run("closed before start", func(t *testing.T) {
		a := Accessibility{Start: testNow.Add(time.Hour)}
		assert.False(t, a.Open(testNow))
		assert.True(t, a.Open(testNow.Add(2*time.Hour)))
	})

	t.Run("closed after end", func(t *testing.T) {
		end := testNow.Add(-time.Hour)
		a := Accessibility{End: &end}
		assert.False(t, a.Open(testNow))
		assert.True(t, a.Open(testNow.Add(-2*time.Hour)))
	})

	t.Run("boundaries are inclusive", func(t *testing.T) {
		end := testNow
		a := Accessibility{Start: testNow, End: &end}
		assert.True(t, a.Open(testNow))
	})
}

func TestAccessibility_Started(t *testing.T) {
	t.Parallel()

	end := testNow.Add(-time.Hour)

	// A window that has ended still counts as started.
	assert.True(t, Accessibility{End: &end}.Started(testNow))
	assert.False(t, Accessibility{Start: testNow.Add(time.Hour)}.Started(testNow))
	assert.False(t, Accessibility{Hidden: true}.Started(testNow))
	assert.True(t, Accessibility{}.Started(testNow))
}

func TestTask_VisibleAndGradable(t *testing.T) {
	t.Parallel()

	end := testNow.Add(-time.Hour)
	task := &Task{
		ID:            "sorting",
		CourseID:      "algo101",
		Weight:        1,
		Policy:        PolicyLast,
		Accessibility: Accessibility{End: &end},
	}

	// Past-deadline tasks keep contributing to course views but reject new
	// submissions.
	assert.True(t, task.Visible(testNow))
	assert.False(t, task.Gradable(testNow))

	open := &Task{ID: "sorting", Accessibility: Accessibility{}}
	assert.True(t, open.Visible(testNow))
	assert.True(t, open.Gradable(testNow))
}
