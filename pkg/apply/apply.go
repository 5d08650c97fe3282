// Package apply sequences template jobs through a device configuration
// transaction: render, load, diff, then commit or roll back on the
// operator's answer, one job at a time.
package apply

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/newtron-network/confpush/pkg/audit"
	"github.com/newtron-network/confpush/pkg/cli"
	"github.com/newtron-network/confpush/pkg/job"
	"github.com/newtron-network/confpush/pkg/render"
	"github.com/newtron-network/confpush/pkg/util"
)

// ConfirmPrompt is asked after each job's diff is shown.
const ConfirmPrompt = "Would you like to commit these changes? [y/N]: "

// Transaction is a locked, mergeable candidate configuration.
type Transaction interface {
	Load(ctx context.Context, text string, format job.Format) error
	Diff(ctx context.Context) (string, error)
	Commit(ctx context.Context, comment string) error
	Rollback(ctx context.Context, rev int) error
	// Close rolls back anything still pending and releases the lock.
	Close(ctx context.Context) error
}

// Session hands out the transaction a run applies its jobs in.
type Session interface {
	Begin(ctx context.Context) (Transaction, error)
}

// SessionFunc adapts a function to Session.
type SessionFunc func(ctx context.Context) (Transaction, error)

// Begin calls f(ctx).
func (f SessionFunc) Begin(ctx context.Context) (Transaction, error) {
	return f(ctx)
}

// Renderer renders a template file with a variable set.
type Renderer interface {
	Render(path string, vars job.VariableSet) (string, error)
}

// Confirmer asks the operator a yes/no question.
type Confirmer interface {
	Confirm(question string) (bool, error)
}

// Sequencer applies an ordered list of jobs. Each job's commit or rollback
// is resolved before the next job is rendered. A failure stops the run;
// jobs committed before it stay committed.
type Sequencer struct {
	Renderer Renderer
	Confirm  Confirmer
	Out      io.Writer

	// Baseline is the rollback revision restored when a job is skipped.
	Baseline int
	// Comment is attached to every commit.
	Comment string

	// User and Device label audit events.
	User   string
	Device string
}

// Apply runs jobs inside one transaction acquired from sess. The
// transaction is closed on every return path. Errors are apply-phase
// errors.
func (s *Sequencer) Apply(ctx context.Context, sess Session, jobs []job.TemplateJob) (err error) {
	tx, err := sess.Begin(ctx)
	if err != nil {
		return util.NewPhaseError(util.PhaseApply, err)
	}
	defer func() {
		// Release even when ctx was cancelled mid-run.
		cerr := tx.Close(context.WithoutCancel(ctx))
		if cerr == nil {
			return
		}
		if err != nil {
			util.WithDevice(s.Device).Warnf("releasing configuration: %v", cerr)
			return
		}
		err = util.NewPhaseError(util.PhaseApply, cerr)
	}()

	for i, j := range jobs {
		if err := s.applyJob(ctx, tx, j); err != nil {
			return util.NewPhaseError(util.PhaseApply, fmt.Errorf("job %d (%s): %w", i+1, j.Template, err))
		}
	}
	return nil
}

func (s *Sequencer) applyJob(ctx context.Context, tx Transaction, j job.TemplateJob) error {
	start := time.Now()
	log := util.WithJob(j.Template, string(j.Format))

	fmt.Fprintf(s.Out, "Applying configuration template from file %s\n", j.Template)

	diff, err := s.stage(ctx, tx, j)
	if err != nil {
		s.record(audit.OpJobFailed, j, diff, start, err)
		return err
	}

	commit, err := s.Confirm.Confirm(ConfirmPrompt)
	if err != nil {
		err = fmt.Errorf("reading confirmation: %w", err)
		s.record(audit.OpJobFailed, j, diff, start, err)
		return err
	}

	if commit {
		if err := tx.Commit(ctx, s.Comment); err != nil {
			s.record(audit.OpJobFailed, j, diff, start, err)
			return err
		}
		fmt.Fprintln(s.Out, cli.Green("Commit success"))
		log.Info("Committed")
		s.record(audit.OpJobCommit, j, diff, start, nil)
		return nil
	}

	fmt.Fprintln(s.Out, cli.Yellow("Skipping"))
	if err := tx.Rollback(ctx, s.Baseline); err != nil {
		s.record(audit.OpJobFailed, j, diff, start, err)
		return err
	}
	log.WithField("rollback", s.Baseline).Info("Skipped")
	s.record(audit.OpJobSkip, j, diff, start, nil)
	return nil
}

// stage loads the job's variables, renders its template, merges the result
// into tx and prints the diff.
func (s *Sequencer) stage(ctx context.Context, tx Transaction, j job.TemplateJob) (string, error) {
	text, err := RenderJob(s.Renderer, j)
	if err != nil {
		return "", err
	}

	if err := tx.Load(ctx, text, j.Format); err != nil {
		return "", err
	}

	diff, err := tx.Diff(ctx)
	if err != nil {
		return "", err
	}
	if diff == "" {
		fmt.Fprintln(s.Out, cli.Dim("(no changes)"))
	} else {
		fmt.Fprintln(s.Out, cli.ColorDiff(diff))
	}
	return diff, nil
}

// RenderJob loads j's variables and renders its template. A template that
// needs data while its variables file is empty is reported against that
// file.
func RenderJob(r Renderer, j job.TemplateJob) (string, error) {
	vars, err := job.LoadVariables(j.Variables)
	if err != nil {
		return "", err
	}
	text, err := r.Render(j.Template, vars)
	if errors.Is(err, render.ErrNoVariables) {
		return "", fmt.Errorf("template %s references variables but %s is empty: %w", j.Template, j.Variables, err)
	}
	return text, err
}

func (s *Sequencer) record(op string, j job.TemplateJob, diff string, start time.Time, err error) {
	event := audit.NewEvent(s.User, s.Device, op).
		WithJob(j.Template, string(j.Format)).
		WithDiff(diff).
		WithDuration(time.Since(start))
	if err != nil {
		event.WithError(err)
	} else {
		event.WithSuccess()
	}
	if lerr := audit.Log(event); lerr != nil {
		util.Warnf("audit: %v", lerr)
	}
}
