package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"text/tabwriter"
	"time"

	"github.com/opencampus/gradeflow/internal/data"
	"github.com/opencampus/gradeflow/internal/domain/course"
)

type upsertTaskOptions struct {
	CourseID string
	TaskID   string
	Name     string
	Weight   float64
	Policy   string
	Hidden   bool
	OpensAt  string
	ClosesAt string
}

func parseUpsertTaskFlags(args []string) (upsertTaskOptions, error) {
	fs := flag.NewFlagSet("upsert-task", flag.ContinueOnError)
	courseID := fs.String("course", "", "course id (required)")
	taskID := fs.String("task", "", "task id (required)")
	name := fs.String("name", "", "display name")
	weight := fs.Float64("weight", 1, "grading weight")
	policy := fs.String("policy", "last", "grading policy: best or last")
	hidden := fs.Bool("hidden", false, "hide the task from students")
	opensAt := fs.String("opens-at", "", "window start (RFC 3339, empty for always open)")
	closesAt := fs.String("closes-at", "", "window end (RFC 3339, empty for never)")
	if err := fs.Parse(args); err != nil {
		return upsertTaskOptions{}, err
	}
	if *courseID == "" || *taskID == "" {
		return upsertTaskOptions{}, errors.New("-course and -task are required")
	}
	return upsertTaskOptions{
		CourseID: *courseID,
		TaskID:   *taskID,
		Name:     *name,
		Weight:   *weight,
		Policy:   *policy,
		Hidden:   *hidden,
		OpensAt:  *opensAt,
		ClosesAt: *closesAt,
	}, nil
}

func buildTask(opts upsertTaskOptions) (*course.Task, error) {
	var policy course.GradingPolicy
	if err := policy.UnmarshalText([]byte(opts.Policy)); err != nil {
		return nil, err
	}

	access := course.Accessibility{Hidden: opts.Hidden}
	if opts.OpensAt != "" {
		start, err := time.Parse(time.RFC3339, opts.OpensAt)
		if err != nil {
			return nil, err
		}
		access.Start = start
	}
	if opts.ClosesAt != "" {
		end, err := time.Parse(time.RFC3339, opts.ClosesAt)
		if err != nil {
			return nil, err
		}
		access.End = &end
	}

	return &course.Task{
		ID:            opts.TaskID,
		CourseID:      opts.CourseID,
		Name:          opts.Name,
		Weight:        opts.Weight,
		Policy:        policy,
		Accessibility: access,
	}, nil
}

func runUpsertTask(cmdCtx *commandContext, args []string) error {
	opts, err := parseUpsertTaskFlags(args)
	if err != nil {
		return err
	}

	task, err := buildTask(opts)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, adminCommandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeDB(db, cmdCtx.Logger)

	repo := data.NewTaskRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})
	if err = repo.Upsert(ctx, task); err != nil {
		return err
	}

	cmdCtx.Logger.Info("task upserted", "course_id", task.CourseID, "task_id", task.ID)
	return nil
}

type listTasksOptions struct {
	CourseID string
}

func parseListTasksFlags(args []string) (listTasksOptions, error) {
	fs := flag.NewFlagSet("list-tasks", flag.ContinueOnError)
	courseID := fs.String("course", "", "course id (required)")
	if err := fs.Parse(args); err != nil {
		return listTasksOptions{}, err
	}
	if *courseID == "" {
		return listTasksOptions{}, errors.New("-course is required")
	}
	return listTasksOptions{CourseID: *courseID}, nil
}

func runListTasks(cmdCtx *commandContext, args []string) error {
	opts, err := parseListTasksFlags(args)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, adminCommandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeDB(db, cmdCtx.Logger)

	repo := data.NewTaskRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})
	tasks, err := repo.CourseTasks(ctx, opts.CourseID)
	if err != nil {
		return err
	}

	if len(tasks) == 0 {
		return writef(os.Stdout, "no tasks for course %s\n", opts.CourseID)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err = writef(w, "TASK\tNAME\tWEIGHT\tPOLICY\tHIDDEN\tOPENS\tCLOSES\n"); err != nil {
		return err
	}
	for _, t := range tasks {
		opens := ""
		if !t.Accessibility.Start.IsZero() {
			opens = t.Accessibility.Start.Format(time.RFC3339)
		}
		closes := ""
		if t.Accessibility.End != nil {
			closes = t.Accessibility.End.Format(time.RFC3339)
		}
		if err = writef(w, "%s\t%s\t%.2f\t%s\t%t\t%s\t%s\n",
			t.ID, t.Name, t.Weight, t.Policy, t.Accessibility.Hidden, opens, closes); err != nil {
			return err
		}
	}
	return w.Flush()
}
