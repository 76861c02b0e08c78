package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/vk/nodeflow/internal/app"
	"github.com/vk/nodeflow/internal/journal"
)

var (
	okColor   = color.New(color.FgGreen, color.Bold)
	failColor = color.New(color.FgRed, color.Bold)
	warnColor = color.New(color.FgYellow)
	headColor = color.New(color.FgCyan, color.Bold)
)

func newRunCommand(g *globalFlags) *cobra.Command {
	var cfg app.Config

	cmd := &cobra.Command{
		Use:   "run WORKFLOW",
		Short: "Run a workflow once, or on a schedule with --every",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg.WorkflowPath = args[0]
			cfg.LogLevel = g.logLevel
			cfg.LogFormat = g.logFormat
			cfg.LogOutput = cmd.ErrOrStderr()

			a, err := newApp(cmd, cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			return a.Run(cmd.Context())
		},
	}

	f := cmd.Flags()
	f.StringVar(&cfg.InputPath, "input", "", "JSON file overriding the workflow input.")
	f.StringVar(&cfg.JournalDSN, "journal", "", "SQLite database recording every run.")
	f.StringVar(&cfg.Every, "every", "", "Cron expression, e.g. '@every 1m'; keeps running the workflow until interrupted.")
	f.IntVar(&cfg.HealthcheckPort, "healthcheck-port", 0, "Port for the HTTP health check server. 0 is disabled.")
	return cmd
}

func newValidateCommand(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "validate WORKFLOW",
		Short: "Check a workflow and print its execution order",
		Args:  exactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd, app.Config{
				WorkflowPath: args[0],
				LogLevel:     g.logLevel,
				LogFormat:    g.logFormat,
				LogOutput:    cmd.ErrOrStderr(),
			})
			if err != nil {
				return err
			}
			defer a.Close()

			o, err := a.Build(cmd.Context())
			if err != nil {
				return err
			}
			order, err := o.Order()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			name := o.Name()
			if name == "" {
				name = args[0]
			}
			okColor.Fprintf(out, "✔ %s is valid\n", name)
			for i, id := range order {
				n, _ := o.Node(id)
				fmt.Fprintf(out, "%3d. %s (%s)\n", i+1, id, n.Kind())
			}
			return nil
		},
	}
}

func newKindsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "kinds",
		Short: "List the available node kinds",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			reg := app.NewRegistry(out)

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			for _, k := range reg.Kinds() {
				schema := "any"
				if k.ConfigSchema != nil {
					schema = k.ConfigSchema.String()
				}
				fmt.Fprintf(tw, "%s\t%s\n", headColor.Sprint(k.Name), k.Description)
				fmt.Fprintf(tw, "\tconfig: %s\n", schema)
			}
			return tw.Flush()
		},
	}
}

func newHistoryCommand() *cobra.Command {
	var (
		dsn   string
		limit int
		runID string
	)

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show journaled runs, or the nodes of one run with --run",
		Args:  exactArgs(0),
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := journalExists(dsn); err != nil {
				return err
			}
			j, err := journal.Open(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer j.Close()

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			if runID != "" {
				nodes, err := j.NodeRuns(cmd.Context(), runID)
				if err != nil {
					return err
				}
				fmt.Fprintln(tw, headColor.Sprint("NODE\tKIND\tSTATUS\tDURATION\tERROR"))
				for _, n := range nodes {
					d := time.Duration(n.DurationMS) * time.Millisecond
					fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", n.NodeID, n.Kind, status(n.Status), d, oneLine(n.Error.String))
				}
				return tw.Flush()
			}

			runs, err := j.Runs(cmd.Context(), limit)
			if err != nil {
				return err
			}
			fmt.Fprintln(tw, headColor.Sprint("RUN\tWORKFLOW\tSTATUS\tSTARTED\tDURATION\tERROR"))
			for _, r := range runs {
				duration := "-"
				if r.FinishedAt.Valid {
					duration = r.FinishedAt.Time.Sub(r.StartedAt).Round(time.Millisecond).String()
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					r.ID, r.Workflow, status(r.Status), r.StartedAt.Local().Format(time.DateTime), duration, oneLine(r.Error.String))
			}
			return tw.Flush()
		},
	}

	f := cmd.Flags()
	f.StringVar(&dsn, "journal", "", "SQLite database written by 'run --journal' (required).")
	f.IntVar(&limit, "limit", 20, "Maximum number of runs to list; 0 lists all.")
	f.StringVar(&runID, "run", "", "Show the node results of this run.")
	_ = cmd.MarkFlagRequired("journal")
	return cmd
}

func status(s string) string {
	switch s {
	case "succeeded":
		return okColor.Sprint(s)
	case "failed":
		return failColor.Sprint(s)
	default:
		return warnColor.Sprint(s)
	}
}

func oneLine(s string) string {
	return strings.ReplaceAll(s, "\n", " ")
}

// journalExists keeps history from creating an empty journal at a mistyped
// path. URI and in-memory DSNs are passed through to the driver.
func journalExists(dsn string) error {
	if dsn == ":memory:" || strings.HasPrefix(dsn, "file:") {
		return nil
	}
	if _, err := os.Stat(dsn); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return usageError(fmt.Errorf("journal %s does not exist", dsn))
		}
		return err
	}
	return nil
}
