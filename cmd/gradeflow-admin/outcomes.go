package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"text/tabwriter"
	"time"

	reaperrunner "github.com/opencampus/gradeflow/internal/adapters/reaper"
	"github.com/opencampus/gradeflow/internal/data"
)

const adminCommandTimeout = 2 * time.Minute

func runOutcomeStats(cmdCtx *commandContext, _ []string) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, adminCommandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeDB(db, cmdCtx.Logger)

	repo := data.NewOutcomeRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})
	stats, err := repo.Stats(ctx)
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err = writef(w, "STATUS\tCOUNT\n"); err != nil {
		return err
	}
	if err = writef(w, "pending\t%d\n", stats.Pending); err != nil {
		return err
	}
	if err = writef(w, "delivered\t%d\n", stats.Delivered); err != nil {
		return err
	}
	if err = writef(w, "abandoned\t%d\n", stats.Abandoned); err != nil {
		return err
	}
	return w.Flush()
}

type listAbandonedOptions struct {
	Limit int
}

func parseListAbandonedFlags(args []string) (listAbandonedOptions, error) {
	fs := flag.NewFlagSet("list-abandoned-outcomes", flag.ContinueOnError)
	limit := fs.Int("limit", 50, "maximum number of deliveries to list")
	if err := fs.Parse(args); err != nil {
		return listAbandonedOptions{}, err
	}
	return listAbandonedOptions{Limit: *limit}, nil
}

func runListAbandonedOutcomes(cmdCtx *commandContext, args []string) error {
	opts, err := parseListAbandonedFlags(args)
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

	repo := data.NewOutcomeRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})
	deliveries, err := repo.ListAbandoned(ctx, opts.Limit)
	if err != nil {
		return err
	}

	if len(deliveries) == 0 {
		return writeln(os.Stdout, "no abandoned outcome deliveries")
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	if err = writef(w, "ID\tSOURCEDID\tSCORE\tATTEMPTS\tLAST ERROR\n"); err != nil {
		return err
	}
	for _, d := range deliveries {
		lastErr := ""
		if d.LastError != nil {
			lastErr = *d.LastError
		}
		if err = writef(w, "%s\t%s\t%.1f\t%d\t%s\n", d.ID, d.Sourcedid, d.Score, d.Attempts, lastErr); err != nil {
			return err
		}
	}
	return w.Flush()
}

type requeueOptions struct {
	ID string
}

func parseRequeueFlags(args []string) (requeueOptions, error) {
	fs := flag.NewFlagSet("requeue-outcome", flag.ContinueOnError)
	id := fs.String("id", "", "abandoned delivery id to requeue")
	if err := fs.Parse(args); err != nil {
		return requeueOptions{}, err
	}
	if *id == "" {
		return requeueOptions{}, errors.New("-id is required")
	}
	return requeueOptions{ID: *id}, nil
}

func runRequeueOutcome(cmdCtx *commandContext, args []string) error {
	opts, err := parseRequeueFlags(args)
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

	repo := data.NewOutcomeRepo(db, data.RepoConfig{Logger: cmdCtx.Logger})
	moved, err := repo.Requeue(ctx, opts.ID)
	if err != nil {
		return err
	}
	if !moved {
		return writef(os.Stdout, "delivery %s is not abandoned; nothing to do\n", opts.ID)
	}

	cmdCtx.Logger.Info("outcome delivery requeued", "delivery_id", opts.ID)
	return nil
}

func runCleanup(cmdCtx *commandContext, _ []string) error {
	ctx, cancel := context.WithTimeout(cmdCtx.Ctx, adminCommandTimeout)
	defer cancel()

	db, err := connectDB(cmdCtx.Logger, &cmdCtx.Config)
	if err != nil {
		return err
	}
	defer closeDB(db, cmdCtx.Logger)

	runner, err := reaperrunner.NewRunner(reaperrunner.RunnerOptions{
		DB:     db,
		Config: cmdCtx.Config.Reaper,
		Logger: cmdCtx.Logger,
	})
	if err != nil {
		return err
	}

	if err = runner.Service().RunCleanup(ctx); err != nil {
		return err
	}
	cmdCtx.Logger.Info("cleanup pass complete")
	return nil
}
