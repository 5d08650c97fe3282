package apply

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/newtron-network/confpush/pkg/audit"
	"github.com/newtron-network/confpush/pkg/cli"
	"github.com/newtron-network/confpush/pkg/job"
	"github.com/newtron-network/confpush/pkg/render"
	"github.com/newtron-network/confpush/pkg/util"
)

func TestMain(m *testing.M) {
	cli.SetColor(false)
	os.Exit(m.Run())
}

// trace records every collaborator call in order.
type trace struct {
	calls []string
}

func (tr *trace) add(format string, args ...any) {
	tr.calls = append(tr.calls, fmt.Sprintf(format, args...))
}

type fakeTx struct {
	tr      *trace
	diff    string
	failOn  string
	pending bool
}

func (f *fakeTx) fail(op string) error {
	if f.failOn == op {
		return fmt.Errorf("%s failed", op)
	}
	return nil
}

func (f *fakeTx) Load(_ context.Context, text string, format job.Format) error {
	f.tr.add("load %s %s", format, strings.TrimSpace(text))
	f.pending = true
	return f.fail("load")
}

func (f *fakeTx) Diff(context.Context) (string, error) {
	f.tr.add("diff")
	return f.diff, f.fail("diff")
}

func (f *fakeTx) Commit(_ context.Context, comment string) error {
	f.tr.add("commit %s", comment)
	if err := f.fail("commit"); err != nil {
		return err
	}
	f.pending = false
	return nil
}

func (f *fakeTx) Rollback(_ context.Context, rev int) error {
	f.tr.add("rollback %d", rev)
	if err := f.fail("rollback"); err != nil {
		return err
	}
	f.pending = false
	return nil
}

func (f *fakeTx) Close(context.Context) error {
	if f.pending {
		f.tr.add("close rollback")
	} else {
		f.tr.add("close")
	}
	return f.fail("close")
}

type tracingRenderer struct {
	tr *trace
	r  render.Renderer
}

func (t *tracingRenderer) Render(path string, vars job.VariableSet) (string, error) {
	t.tr.add("render %s", filepath.Base(path))
	return t.r.Render(path, vars)
}

type scriptedConfirmer struct {
	tr      *trace
	answers []string
}

func (c *scriptedConfirmer) Confirm(question string) (bool, error) {
	c.tr.add("confirm")
	if len(c.answers) == 0 {
		return false, errors.New("unexpected EOF")
	}
	answer := c.answers[0]
	c.answers = c.answers[1:]
	return strings.EqualFold(answer, "y"), nil
}

type fixture struct {
	tr   *trace
	tx   *fakeTx
	out  *bytes.Buffer
	seq  *Sequencer
	sess Session
	jobs []job.TemplateJob
}

func write(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

// newFixture builds the two-job sequence used by the CLI: a set-format job
// and a text-format job, each with an empty variables file.
func newFixture(t *testing.T, answers ...string) *fixture {
	t.Helper()
	dir := t.TempDir()

	jobs := []job.TemplateJob{
		{
			Template:  write(t, dir, "basic.set.tmpl", "set system host-name vsrx1\n"),
			Variables: write(t, dir, "basic_set_datavars.yml", ""),
			Format:    job.FormatSet,
		},
		{
			Template:  write(t, dir, "juniper.conf.tmpl", "system { services { netconf { ssh; } } }\n"),
			Variables: write(t, dir, "juniper_conf_datavars.yml", ""),
			Format:    job.FormatText,
		},
	}

	tr := &trace{}
	tx := &fakeTx{tr: tr, diff: "[edit system]\n+  host-name vsrx1;"}
	out := &bytes.Buffer{}
	return &fixture{
		tr:  tr,
		tx:  tx,
		out: out,
		seq: &Sequencer{
			Renderer: &tracingRenderer{tr: tr},
			Confirm:  &scriptedConfirmer{tr: tr, answers: answers},
			Out:      out,
			Comment:  "confpush",
			User:     "jcluser",
			Device:   "10.0.0.1:830",
		},
		sess: SessionFunc(func(context.Context) (Transaction, error) {
			tr.add("begin")
			return tx, nil
		}),
		jobs: jobs,
	}
}

func (f *fixture) assertTrace(t *testing.T, want ...string) {
	t.Helper()
	if strings.Join(f.tr.calls, "\n") != strings.Join(want, "\n") {
		t.Errorf("calls:\n  %s\nwant:\n  %s", strings.Join(f.tr.calls, "\n  "), strings.Join(want, "\n  "))
	}
}

func TestApply_CommitBoth(t *testing.T) {
	f := newFixture(t, "y", "Y")

	if err := f.seq.Apply(context.Background(), f.sess, f.jobs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	f.assertTrace(t,
		"begin",
		"render basic.set.tmpl",
		"load set set system host-name vsrx1",
		"diff",
		"confirm",
		"commit confpush",
		"render juniper.conf.tmpl",
		"load text system { services { netconf { ssh; } } }",
		"diff",
		"confirm",
		"commit confpush",
		"close",
	)

	out := f.out.String()
	if n := strings.Count(out, "Applying configuration template from file"); n != 2 {
		t.Errorf("Applying lines = %d, want 2", n)
	}
	if n := strings.Count(out, "+  host-name vsrx1;"); n != 2 {
		t.Errorf("diffs printed = %d, want 2", n)
	}
	if n := strings.Count(out, "Commit success"); n != 2 {
		t.Errorf("Commit success lines = %d, want 2", n)
	}
	if strings.Contains(out, "Skipping") {
		t.Error("unexpected Skipping message")
	}
}

func TestApply_SkipRollsBackToBaseline(t *testing.T) {
	f := newFixture(t, "n", "")
	f.seq.Baseline = 0

	if err := f.seq.Apply(context.Background(), f.sess, f.jobs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	f.assertTrace(t,
		"begin",
		"render basic.set.tmpl",
		"load set set system host-name vsrx1",
		"diff",
		"confirm",
		"rollback 0",
		"render juniper.conf.tmpl",
		"load text system { services { netconf { ssh; } } }",
		"diff",
		"confirm",
		"rollback 0",
		"close",
	)

	out := f.out.String()
	if n := strings.Count(out, "Skipping"); n != 2 {
		t.Errorf("Skipping lines = %d, want 2", n)
	}
	if strings.Contains(out, "Commit success") {
		t.Error("unexpected Commit success message")
	}
}

func TestApply_MixedAnswers(t *testing.T) {
	f := newFixture(t, "yes", "y")

	if err := f.seq.Apply(context.Background(), f.sess, f.jobs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	out := f.out.String()
	skip := strings.Index(out, "Skipping")
	commit := strings.Index(out, "Commit success")
	if skip < 0 || commit < 0 || skip > commit {
		t.Errorf("want job 1 skipped then job 2 committed, got:\n%s", out)
	}
	if strings.Count(out, "Skipping")+strings.Count(out, "Commit success") != 2 {
		t.Errorf("each job should report exactly one outcome:\n%s", out)
	}
}

func TestApply_PromptFollowsDiff(t *testing.T) {
	f := newFixture(t, "y", "y")
	f.tx.diff = ""

	if err := f.seq.Apply(context.Background(), f.sess, f.jobs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	if n := strings.Count(f.out.String(), "(no changes)"); n != 2 {
		t.Errorf("no-change markers = %d, want 2", n)
	}

	// Every confirm comes right after a diff and before the next render.
	for i, call := range f.tr.calls {
		if call != "confirm" {
			continue
		}
		if f.tr.calls[i-1] != "diff" {
			t.Errorf("confirm at %d follows %q, want diff", i, f.tr.calls[i-1])
		}
	}
}

func TestApply_VariablesRendered(t *testing.T) {
	f := newFixture(t, "y")
	dir := t.TempDir()
	jobs := []job.TemplateJob{{
		Template:  write(t, dir, "host.set.tmpl", "set system host-name {{ .hostname }}\n"),
		Variables: write(t, dir, "host.yml", "hostname: edge1\n"),
		Format:    job.FormatSet,
	}}

	if err := f.seq.Apply(context.Background(), f.sess, jobs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}
	f.assertTrace(t,
		"begin",
		"render host.set.tmpl",
		"load set set system host-name edge1",
		"diff",
		"confirm",
		"commit confpush",
		"close",
	)
}

func TestApply_VariablesErrorAbortsRun(t *testing.T) {
	f := newFixture(t, "y", "y")
	f.jobs[1].Variables = filepath.Join(t.TempDir(), "missing.yml")

	err := f.seq.Apply(context.Background(), f.sess, f.jobs)
	if err == nil {
		t.Fatal("expected error")
	}
	if util.ExitCode(err) != 4 {
		t.Errorf("ExitCode = %d, want 4", util.ExitCode(err))
	}
	var ve *job.VariablesError
	if !errors.As(err, &ve) {
		t.Errorf("expected *job.VariablesError in chain, got %v", err)
	}

	// Job 1 stays committed; job 2 never renders.
	f.assertTrace(t,
		"begin",
		"render basic.set.tmpl",
		"load set set system host-name vsrx1",
		"diff",
		"confirm",
		"commit confpush",
		"close",
	)
}

func TestApply_FailuresReleaseTransaction(t *testing.T) {
	tests := []struct {
		failOn    string
		answers   []string
		wantTrace []string
	}{
		{"load", []string{"y"}, []string{"begin", "render basic.set.tmpl", "load set set system host-name vsrx1", "close rollback"}},
		{"diff", []string{"y"}, []string{"begin", "render basic.set.tmpl", "load set set system host-name vsrx1", "diff", "close rollback"}},
		{"commit", []string{"y"}, []string{"begin", "render basic.set.tmpl", "load set set system host-name vsrx1", "diff", "confirm", "commit confpush", "close rollback"}},
		{"rollback", []string{"n"}, []string{"begin", "render basic.set.tmpl", "load set set system host-name vsrx1", "diff", "confirm", "rollback 0", "close rollback"}},
		{"confirm-eof", nil, []string{"begin", "render basic.set.tmpl", "load set set system host-name vsrx1", "diff", "confirm", "close rollback"}},
	}

	for _, tt := range tests {
		t.Run(tt.failOn, func(t *testing.T) {
			f := newFixture(t, tt.answers...)
			f.tx.failOn = tt.failOn

			err := f.seq.Apply(context.Background(), f.sess, f.jobs)
			if err == nil {
				t.Fatal("expected error")
			}
			if !errors.Is(err, util.ErrConfigApply) {
				t.Errorf("expected ErrConfigApply, got %v", err)
			}
			if util.ExitCode(err) != 4 {
				t.Errorf("ExitCode = %d, want 4", util.ExitCode(err))
			}
			f.assertTrace(t, tt.wantTrace...)
		})
	}
}

func TestApply_BeginAndCloseErrors(t *testing.T) {
	f := newFixture(t, "y", "y")
	sess := SessionFunc(func(context.Context) (Transaction, error) {
		return nil, errors.New("configuration database locked")
	})
	err := f.seq.Apply(context.Background(), sess, f.jobs)
	if util.ExitCode(err) != 4 {
		t.Errorf("Begin failure: ExitCode = %d, want 4 (err %v)", util.ExitCode(err), err)
	}

	f = newFixture(t, "y", "y")
	f.tx.failOn = "close"
	err = f.seq.Apply(context.Background(), f.sess, f.jobs)
	if err == nil || !strings.Contains(err.Error(), "close failed") {
		t.Errorf("Close failure should surface, got %v", err)
	}
}

func TestApply_AuditEvents(t *testing.T) {
	logger, err := audit.NewFileLogger(filepath.Join(t.TempDir(), "audit.log"), audit.RotationConfig{})
	if err != nil {
		t.Fatal(err)
	}
	defer logger.Close()
	audit.SetDefaultLogger(logger)
	t.Cleanup(func() { audit.SetDefaultLogger(nil) })

	f := newFixture(t, "y", "n")
	if err := f.seq.Apply(context.Background(), f.sess, f.jobs); err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	events, err := logger.Query(audit.Filter{})
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Operation != audit.OpJobCommit || events[0].Format != "set" {
		t.Errorf("events[0] = %+v", events[0])
	}
	if events[1].Operation != audit.OpJobSkip || events[1].Format != "text" {
		t.Errorf("events[1] = %+v", events[1])
	}
	for _, e := range events {
		if e.User != "jcluser" || e.Device != "10.0.0.1:830" || !e.Success || e.Diff == "" {
			t.Errorf("event = %+v", e)
		}
	}
}

func TestApply_TemplateNeedsEmptyVariables(t *testing.T) {
	f := newFixture(t, "y", "y")
	dir := t.TempDir()
	f.jobs[0].Template = write(t, dir, "host.set.tmpl", "set system host-name {{ .hostname }}\n")

	err := f.seq.Apply(context.Background(), f.sess, f.jobs)
	if !errors.Is(err, render.ErrNoVariables) {
		t.Fatalf("expected render.ErrNoVariables, got %v", err)
	}
	want := "references variables but " + f.jobs[0].Variables + " is empty"
	if !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not name the variables file", err)
	}
	if util.ExitCode(err) != 4 {
		t.Errorf("ExitCode = %d, want 4", util.ExitCode(err))
	}
	f.assertTrace(t, "begin", "render host.set.tmpl", "close")
}
