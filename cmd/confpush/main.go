// Confpush - Junos template apply tool
//
// Renders an ordered list of configuration templates with YAML variables,
// merges each into a locked candidate configuration over NETCONF, shows
// the diff, and asks the operator to commit or roll back job by job.
//
// Examples:
//
//	confpush                                   # prompt for host and login
//	confpush --default_login --host 10.0.0.1:830
//	confpush --jobs site/jobs.yml --comment "ticket 4211"
//	confpush jobs                              # show the job sequence
//	confpush render                            # preview rendered templates
//	confpush audit list --last 24h
//
// Exit status: 0 success, 1 malformed host:port, 2 credential prompt
// failure, 3 session open failure, 4 apply or commit failure.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/newtron-network/confpush/pkg/apply"
	"github.com/newtron-network/confpush/pkg/audit"
	"github.com/newtron-network/confpush/pkg/cli"
	"github.com/newtron-network/confpush/pkg/device"
	"github.com/newtron-network/confpush/pkg/job"
	"github.com/newtron-network/confpush/pkg/prompt"
	"github.com/newtron-network/confpush/pkg/render"
	"github.com/newtron-network/confpush/pkg/settings"
	"github.com/newtron-network/confpush/pkg/util"
	"github.com/newtron-network/confpush/pkg/version"
)

// Global option flags
var (
	defaultLogin bool
	hostFlag     string
	jobsFile     string
	commitNote   string
	timeout      time.Duration
	knownHosts   string
	verbose      bool
	logFormat    string
	jsonOutput   bool
)

var userSettings *settings.Settings

func main() {
	if err := rootCmd.Execute(); err != nil {
		util.WithPhase(err).Debug("Run failed")
		fmt.Fprintln(os.Stderr, cli.Red("Error:"), err)
		os.Exit(util.ExitCode(err))
	}
}

var rootCmd = &cobra.Command{
	Use:               "confpush",
	Short:             "Apply configuration templates to a Junos device",
	SilenceUsage:      true,
	SilenceErrors:     true,
	CompletionOptions: cobra.CompletionOptions{HiddenDefaultCmd: true},
	Long: `Confpush renders each configuration template with its variables, loads it
into a locked candidate configuration, shows the diff and asks whether to
commit. Answering anything other than "y" rolls the change back.

  confpush [--default_login] [--host host:port] [--jobs manifest.yml]`,
	Args: cobra.NoArgs,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := "warn"
		if verbose {
			level = "debug"
		}
		if err := util.ConfigureLogging(level, logFormat); err != nil {
			return err
		}

		var err error
		util.Debugf("Loading settings from %s", settings.DefaultSettingsPath())
		userSettings, err = settings.Load()
		if err != nil {
			util.Warnf("Could not load settings: %v", err)
			userSettings = &settings.Settings{}
		}

		if isSettingsCmd(cmd) {
			return nil
		}

		auditLogger, err := audit.NewFileLogger(userSettings.AuditLogPath(), audit.RotationConfig{
			MaxSize:    10 * 1024 * 1024, // 10MB
			MaxBackups: 10,
		})
		if err != nil {
			util.Warnf("Could not initialize audit logging: %v", err)
		} else {
			audit.SetDefaultLogger(auditLogger)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		r := &runner{
			prompter:   prompt.NewConsole(),
			out:        cmd.OutOrStdout(),
			connect:    connectNetconf,
			host:       hostFlag,
			defHost:    userSettings.DefaultHost,
			jobsFile:   firstNonEmpty(jobsFile, userSettings.JobsFile),
			knownHosts: firstNonEmpty(knownHosts, userSettings.KnownHosts),
			comment:    commitNote,
			timeout:    timeout,
			defLogin:   defaultLogin,
		}
		return r.run(cmd.Context())
	},
}

func init() {
	rootCmd.Flags().BoolVar(&defaultLogin, "default_login", false, "Use the built-in lab login instead of prompting")
	rootCmd.Flags().StringVar(&hostFlag, "host", "", "Device address as host:port (skips the host prompt)")
	rootCmd.Flags().StringVar(&jobsFile, "jobs", "", "YAML job manifest (default: built-in jobs)")
	rootCmd.Flags().StringVar(&commitNote, "comment", version.UserAgent("confpush"), "Commit log comment")
	rootCmd.Flags().DurationVar(&timeout, "timeout", device.DefaultTimeout, "SSH connect timeout")
	rootCmd.Flags().StringVar(&knownHosts, "known-hosts", "", "OpenSSH known_hosts file for host key checking")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Verbose output")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", util.LogFormatText, "Log format (text, json)")

	rootCmd.AddGroup(
		&cobra.Group{ID: "apply", Title: "Apply:"},
		&cobra.Group{ID: "meta", Title: "Configuration & Meta:"},
	)

	for _, cmd := range []*cobra.Command{jobsCmd, renderCmd} {
		cmd.GroupID = "apply"
		rootCmd.AddCommand(cmd)
	}

	for _, cmd := range []*cobra.Command{settingsCmd, auditCmd, versionCmd} {
		cmd.GroupID = "meta"
		rootCmd.AddCommand(cmd)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		printVersion("confpush")
	},
}

func printVersion(tool string) {
	if version.Version == "dev" {
		fmt.Printf("%s dev build (set version via -ldflags, see pkg/version)\n", tool)
	} else {
		fmt.Printf("%s %s (%s)\n", tool, version.Version, version.GitCommit)
	}
}

func isSettingsCmd(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c == settingsCmd {
			return true
		}
	}
	return false
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// ============================================================================
// Apply workflow
// ============================================================================

// remote is an open device session as the workflow uses it.
type remote interface {
	apply.Session
	Facts(ctx context.Context) (*device.Facts, error)
	Close() error
}

type connectFunc func(ctx context.Context, target device.Target, creds device.Credentials, opts device.Options) (remote, error)

// netconfRemote adapts *device.Session to remote.
type netconfRemote struct {
	*device.Session
}

func (r netconfRemote) Begin(ctx context.Context) (apply.Transaction, error) {
	tx, err := r.Session.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func connectNetconf(ctx context.Context, target device.Target, creds device.Credentials, opts device.Options) (remote, error) {
	s, err := device.Dial(ctx, target, creds, opts)
	if err != nil {
		return nil, err
	}
	return netconfRemote{s}, nil
}

// runner holds everything one apply run needs.
type runner struct {
	prompter *prompt.Prompter
	out      io.Writer
	connect  connectFunc

	host       string
	defHost    string
	jobsFile   string
	knownHosts string
	comment    string
	timeout    time.Duration
	defLogin   bool
}

func (r *runner) run(ctx context.Context) error {
	jobs, err := r.jobs()
	if err != nil {
		return util.NewPhaseError(util.PhaseInput, err)
	}

	var target device.Target
	if r.host != "" {
		target, err = prompt.ParseHostPort(r.host)
	} else {
		target, err = r.prompter.Host(r.defHost)
	}
	if err != nil {
		return err
	}

	var creds device.Credentials
	if r.defLogin {
		creds = prompt.DefaultCredentials()
	} else if creds, err = r.prompter.Credentials(); err != nil {
		return err
	}

	start := time.Now()
	sess, err := r.connect(ctx, target, creds, device.Options{
		Timeout:    r.timeout,
		KnownHosts: r.knownHosts,
	})
	log := util.WithDevice(target.String())
	event := audit.NewEvent(creds.Username, target.String(), audit.OpSessionOpen).
		WithDuration(time.Since(start))
	if err != nil {
		logAudit(event.WithError(err))
		return util.NewPhaseError(util.PhaseSession, err)
	}
	logAudit(event.WithSuccess())
	defer func() {
		if err := sess.Close(); err != nil {
			log.Warnf("Closing session: %v", err)
		}
	}()

	if facts, err := sess.Facts(ctx); err != nil {
		log.Warnf("Could not read device facts: %v", err)
	} else {
		log.WithField("hostname", facts.Hostname).
			WithField("model", facts.Model).
			WithField("version", facts.Version).
			Info("Device facts")
	}

	seq := &apply.Sequencer{
		Renderer: &render.Renderer{},
		Confirm:  r.prompter,
		Out:      r.out,
		Comment:  r.comment,
		User:     creds.Username,
		Device:   target.String(),
	}
	if err := seq.Apply(ctx, sess, jobs); err != nil {
		return err
	}

	fmt.Fprintln(r.out, "Done")
	return nil
}

func logAudit(event *audit.Event) {
	if err := audit.Log(event); err != nil {
		util.Warnf("audit: %v", err)
	}
}

// jobs returns the manifest's jobs when one is configured, else the
// built-in sequence.
func (r *runner) jobs() ([]job.TemplateJob, error) {
	if r.jobsFile == "" {
		return job.DefaultJobs(), nil
	}
	return job.LoadManifest(r.jobsFile)
}
