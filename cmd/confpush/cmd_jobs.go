package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/newtron-network/confpush/pkg/apply"
	"github.com/newtron-network/confpush/pkg/cli"
	"github.com/newtron-network/confpush/pkg/job"
	"github.com/newtron-network/confpush/pkg/render"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List the configured job sequence",
	Long: `List the template jobs a run applies, in order.

Jobs come from --jobs, then the jobs_file setting, then the built-in pair
(template/basic.set.tmpl and template/juniper.conf.tmpl).`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := &runner{jobsFile: firstNonEmpty(jobsFile, userSettings.JobsFile)}
		jobs, err := r.jobs()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if r.jobsFile != "" {
			fmt.Fprintf(out, "Manifest: %s\n\n", r.jobsFile)
		}

		t := cli.NewTable(out, "#", "TEMPLATE", "VARIABLES", "FORMAT")
		for i, j := range jobs {
			t.Row(strconv.Itoa(i+1), j.Template, j.Variables, string(j.Format))
		}
		t.Flush()
		return nil
	},
}

func init() {
	jobsCmd.Flags().StringVar(&jobsFile, "jobs", "", "YAML job manifest")
	renderCmd.Flags().StringVar(&jobsFile, "jobs", "", "YAML job manifest")
}

var renderCmd = &cobra.Command{
	Use:   "render",
	Short: "Render the job sequence locally without contacting a device",
	Long: `Render every job's template with its variables and print the result.

Useful for checking templates and variable files before a run.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		r := &runner{jobsFile: firstNonEmpty(jobsFile, userSettings.JobsFile)}
		jobs, err := r.jobs()
		if err != nil {
			return err
		}
		return renderJobs(cmd.OutOrStdout(), &render.Renderer{}, jobs)
	},
}

func renderJobs(out io.Writer, renderer *render.Renderer, jobs []job.TemplateJob) error {
	for i, j := range jobs {
		text, err := apply.RenderJob(renderer, j)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, cli.Bold(fmt.Sprintf("# job %d: %s (%s)", i+1, j.Template, j.Format)))
		fmt.Fprintln(out, strings.TrimRight(text, "\n"))
	}
	return nil
}
