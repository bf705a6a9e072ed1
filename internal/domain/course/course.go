// Package course holds task/course metadata types and the visibility rules
// used when aggregating grades. Everything here is pure: the metadata itself
// comes from an external provider.
package course

import (
	"fmt"
	"strings"
	"time"
)

// GradingPolicy selects which historical submission constitutes "the" grade
// for a task.
//
//nolint:recvcheck // UnmarshalText needs pointer receiver, Valid needs value receiver
type GradingPolicy string

const (
	// PolicyBest keeps the highest grade across completed submissions.
	PolicyBest GradingPolicy = "best"
	// PolicyLast keeps the grade of the most recently submitted attempt,
	// ordered by submission time rather than grading completion time.
	PolicyLast GradingPolicy = "last"
)

// Valid returns true if the GradingPolicy is known.
func (p GradingPolicy) Valid() bool {
	return p == PolicyBest || p == PolicyLast
}

// UnmarshalText implements encoding.TextUnmarshaler to allow env parsing.
func (p *GradingPolicy) UnmarshalText(text []byte) error {
	v := GradingPolicy(strings.ToLower(strings.TrimSpace(string(text))))
	if !v.Valid() {
		return fmt.Errorf("invalid GradingPolicy: %q", string(text))
	}
	*p = v
	return nil
}

// Accessibility is a task availability window. A zero Start means "always
// open so far"; a nil End means "never closes". Hidden overrides both.
type Accessibility struct {
	Hidden bool
	Start  time.Time
	End    *time.Time
}

// Open reports whether the window has started and not yet ended at now.
func (a Accessibility) Open(now time.Time) bool {
	if a.Hidden {
		return false
	}
	if !a.Start.IsZero() && now.Before(a.Start) {
		return false
	}
	if a.End != nil && now.After(*a.End) {
		return false
	}
	return true
}

// Started reports whether the window has started at now, regardless of end.
func (a Accessibility) Started(now time.Time) bool {
	if a.Hidden {
		return false
	}
	return a.Start.IsZero() || !now.Before(a.Start)
}

// Task is the read-only task metadata consumed by the aggregator.
type Task struct {
	ID            string
	CourseID      string
	Name          string
	Weight        float64
	Policy        GradingPolicy
	Accessibility Accessibility
}

// Visible reports whether the task counts toward course views for a user at
// now. A task stays visible after its window ends so past grades keep
// contributing to the course grade.
func (t *Task) Visible(now time.Time) bool {
	return t.Accessibility.Started(now)
}

// Gradable reports whether new submissions are accepted for the task at now.
func (t *Task) Gradable(now time.Time) bool {
	return t.Accessibility.Open(now)
}
