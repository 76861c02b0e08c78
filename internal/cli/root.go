package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/vk/nodeflow/internal/app"
	"github.com/vk/nodeflow/internal/config"
	"github.com/vk/nodeflow/internal/fsutil"
	"github.com/vk/nodeflow/internal/hcl"
	"github.com/vk/nodeflow/internal/yamlconf"
)

// version is set at build time via -ldflags.
var version = "dev"

type globalFlags struct {
	logLevel  string
	logFormat string
}

// NewRootCommand assembles the nodeflow command tree. Command output goes to
// outW, logs and diagnostics to errW.
func NewRootCommand(outW, errW io.Writer) *cobra.Command {
	g := &globalFlags{}

	root := &cobra.Command{
		Use:   "nodeflow",
		Short: "Run dependency-ordered workflows of typed nodes",
		Long: "nodeflow loads a workflow of nodes from HCL or YAML, validates its dependency\n" +
			"graph and runs the nodes one at a time in dependency order.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			HiddenDefaultCmd: true,
		},
	}
	root.SetOut(outW)
	root.SetErr(errW)
	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	pf := root.PersistentFlags()
	pf.StringVar(&g.logLevel, "log-level", "info", "Logging level: 'debug', 'info', 'warn' or 'error'.")
	pf.StringVar(&g.logFormat, "log-format", "text", "Log output format: 'text' or 'json'.")

	root.AddCommand(
		newRunCommand(g),
		newValidateCommand(g),
		newKindsCommand(),
		newHistoryCommand(),
	)
	return root
}

// Execute runs the command line args and maps failures to *ExitError.
func Execute(ctx context.Context, args []string, outW, errW io.Writer) error {
	root := NewRootCommand(outW, errW)
	root.SetArgs(args)
	return exitError(root.ExecuteContext(ctx))
}

// exitError maps a command failure to *ExitError, keeping the code of any
// *ExitError in the chain.
func exitError(err error) error {
	if err == nil {
		return nil
	}
	var exitErr *ExitError
	if errors.As(err, &exitErr) {
		return exitErr
	}
	if strings.HasPrefix(err.Error(), "unknown command") {
		return usageError(err)
	}
	return &ExitError{Code: 1, Message: err.Error()}
}

// exactArgs is cobra.ExactArgs reporting a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if err := cobra.ExactArgs(n)(cmd, args); err != nil {
			return usageError(err)
		}
		return nil
	}
}

// newApp validates the configuration and creates the app for the workflow
// at cfg.WorkflowPath.
func newApp(cmd *cobra.Command, cfg app.Config) (*app.App, error) {
	valid, err := app.NewConfig(cfg)
	if err != nil {
		return nil, usageError(err)
	}
	loader, err := loaderFor(valid.WorkflowPath)
	if err != nil {
		return nil, err
	}
	return app.NewApp(cmd.OutOrStdout(), valid, loader)
}

// loaderFor picks the workflow loader by file extension. A directory is read
// as HCL unless it only holds YAML files.
func loaderFor(path string) (config.Loader, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, usageError(fmt.Errorf("cannot read workflow: %w", err))
	}

	if !info.IsDir() {
		switch strings.ToLower(filepath.Ext(path)) {
		case ".hcl":
			return hcl.NewLoader(), nil
		case ".yaml", ".yml":
			return yamlconf.NewLoader(), nil
		default:
			return nil, usageError(fmt.Errorf("unsupported workflow file %q: expected .hcl, .yaml or .yml", path))
		}
	}

	hclFiles, err := fsutil.FindFilesByExtension(path, ".hcl")
	if err != nil {
		return nil, err
	}
	if len(hclFiles) == 0 {
		yamlFiles, err := fsutil.FindFilesByExtension(path, ".yaml", ".yml")
		if err != nil {
			return nil, err
		}
		if len(yamlFiles) > 0 {
			return yamlconf.NewLoader(), nil
		}
	}
	return hcl.NewLoader(), nil
}
