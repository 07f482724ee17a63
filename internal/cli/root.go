// Package cli provides the command-line interface for anima-wheel.
package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/hashicorp/go-hclog"
	"github.com/ivadomed/anima-bin/internal/config"
	"github.com/ivadomed/anima-bin/internal/version"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	verbose    bool
	quiet      bool
	configPath string

	// getenv is swapped out in tests.
	getenv func(string) string
}

// NewRootCmd creates the anima-wheel command tree.
func NewRootCmd() *cobra.Command {
	opts := &globalOptions{getenv: os.Getenv}

	cmd := &cobra.Command{
		Use:   "anima-wheel",
		Short: "Package ANIMA binaries as Python wheels",
		Long: `anima-wheel packages pre-built ANIMA executables as installable wheels.

Each binary becomes its own distribution whose console command is a copy of
the anima-exec dispatcher, and an umbrella distribution depends on all of
them at the same version.`,
		Version:      version.Version,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")
	cmd.PersistentFlags().BoolVarP(&opts.quiet, "quiet", "q", false, "suppress non-error output")
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "", "project file (default "+config.DefaultFile+" if present)")
	cmd.MarkFlagsMutuallyExclusive("verbose", "quiet")

	cmd.SetVersionTemplate(version.String("anima-wheel") + "\n")

	cmd.AddCommand(newBuildCmd(opts))
	cmd.AddCommand(newTagCmd(opts))
	cmd.AddCommand(newListCmd(opts))
	cmd.AddCommand(newImportCmd(opts))
	cmd.AddCommand(newVersionCmd())

	return cmd
}

// Execute runs the root command. This is called by main.main().
func Execute() error {
	return NewRootCmd().Execute()
}

// logger builds the hclog logger for a command run. Output goes to the
// command's stderr and is colored only when that is a terminal.
func (o *globalOptions) logger(cmd *cobra.Command) hclog.Logger {
	level := hclog.Info
	switch {
	case o.verbose:
		level = hclog.Debug
	case o.quiet:
		level = hclog.Error
	}

	out := cmd.ErrOrStderr()
	return hclog.New(&hclog.LoggerOptions{
		Name:   "anima-wheel",
		Level:  level,
		Output: out,
		Color:  colorFor(out),
	})
}

func colorFor(w io.Writer) hclog.ColorOption {
	if f, ok := w.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		return hclog.AutoColor
	}
	return hclog.ColorOff
}

// loadConfig assembles the configuration from defaults, the project file,
// the environment and finally any flags set explicitly on cmd.
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, error) {
	b := config.NewBuilder().WithEnv().WithEnvFunc(o.getenv)
	if o.configPath != "" {
		b = b.WithFile(o.configPath)
	} else {
		b = b.WithOptionalFile(config.DefaultFile)
	}
	cfg, err := b.Build()
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	overrideString(flags, "bin-dir", &cfg.BinDir)
	overrideString(flags, "out-dir", &cfg.OutDir)
	overrideString(flags, "dispatcher", &cfg.Dispatcher)
	overrideString(flags, "app", &cfg.App)
	overrideString(flags, "platform", &cfg.Platform)
	overrideString(flags, "version", &cfg.Version)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// overrideString copies a flag value into dst when the user set it.
func overrideString(flags *pflag.FlagSet, name string, dst *string) {
	if f := flags.Lookup(name); f != nil && f.Changed {
		*dst = f.Value.String()
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version.String("anima-wheel"))
		},
	}
}
