// Package cli wires positional arguments to the archiver.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/flowshot-io/zipdir/pkg/archiver"
	"github.com/flowshot-io/zipdir/pkg/config"
	"github.com/flowshot-io/zipdir/pkg/logger"
)

// Exit codes returned by Execute.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

const defaultLogLevel = "info"

type (
	Options struct {
		Fs     afero.Fs
		Logger logger.Logger
		Stdout io.Writer
		Stderr io.Writer
	}

	// usageError marks argument problems so they map to ExitUsage.
	usageError struct {
		err error
	}
)

func (e *usageError) Error() string {
	return e.err.Error()
}

func (e *usageError) Unwrap() error {
	return e.err
}

// NewRootCommand returns the zipdir command.
func NewRootCommand(opts *Options) *cobra.Command {
	opts = withDefaults(opts)

	cmd := &cobra.Command{
		Use:   "zipdir <source-directory> <output-base-name> [version]",
		Short: "Archive a directory into <output-base-name>.zip",
		Long: `Archive every file under a directory into a single zip archive.

Entries are stored relative to the source directory, without the directory's
own name. The output is written to <output-base-name>.zip and replaced if it
already exists. The optional third argument is reserved and has no effect.

A zero exit status is the only signal of a complete archive.

Examples:
  zipdir ./dist release
  zipdir ./build/site site-2024`,
		Args: func(cmd *cobra.Command, args []string) error {
			if err := cobra.RangeArgs(2, 3)(cmd, args); err != nil {
				return &usageError{err: err}
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.FromArgs(args)
			if err != nil {
				return &usageError{err: err}
			}

			return run(cmd.Context(), opts, cfg)
		},
	}

	cmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return &usageError{err: err}
	})
	cmd.SetOut(opts.Stdout)
	cmd.SetErr(opts.Stderr)

	return cmd
}

// Execute runs the root command with args and returns the process exit code.
func Execute(ctx context.Context, args []string, opts *Options) int {
	opts = withDefaults(opts)

	cmd := NewRootCommand(opts)
	cmd.SetArgs(args)

	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitOK
	}

	prefix := color.New(color.FgRed, color.Bold).Sprint("error:")
	fmt.Fprintf(opts.Stderr, "%s %v\n", prefix, err)

	var usageErr *usageError
	if errors.As(err, &usageErr) {
		fmt.Fprintf(opts.Stderr, "Run '%s --help' for usage.\n", cmd.CommandPath())
		return ExitUsage
	}

	return ExitFailure
}

func run(ctx context.Context, opts *Options, cfg *config.Config) error {
	output := cfg.OutputPath()

	a := archiver.New(&archiver.Options{
		Fs:     opts.Fs,
		Logger: opts.Logger,
	})

	if err := a.Archive(ctx, cfg.Source, output); err != nil {
		return err
	}

	opts.Logger.Info("Archive written", map[string]interface{}{
		"source": cfg.Source,
		"output": output,
	})

	return nil
}

func withDefaults(opts *Options) *Options {
	if opts == nil {
		opts = &Options{}
	}

	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}

	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}

	if opts.Logger == nil {
		opts.Logger = logger.New(&logger.Options{
			Pretty: isTerminal(opts.Stderr),
			Writer: opts.Stderr,
			Level:  defaultLogLevel,
		})
	}

	return opts
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && isatty.IsTerminal(f.Fd())
}
