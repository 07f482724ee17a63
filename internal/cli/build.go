package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/hashicorp/go-hclog"
	"github.com/ivadomed/anima-bin/internal/build"
	"github.com/ivadomed/anima-bin/internal/config"
	"github.com/ivadomed/anima-bin/internal/dispatch"
	"github.com/ivadomed/anima-bin/internal/scm"
	"github.com/ivadomed/anima-bin/internal/tag"
	"github.com/ivadomed/anima-bin/internal/version"
	"github.com/spf13/cobra"
)

// dispatcherName is the dispatcher executable shipped next to anima-wheel.
const dispatcherName = "anima-exec"

type buildOptions struct {
	all       bool
	checksums bool
	goos      string
	goarch    string
}

func newBuildCmd(global *globalOptions) *cobra.Command {
	opts := &buildOptions{}

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build wheels from the binaries in the bin directory",
		Long: `Build the umbrella wheel, or a single binary's wheel when --app (or ANIMA_APP)
is set. With --all, the umbrella and one wheel per discovered binary are built.

The version comes from --version, ANIMA_VERSION, or git describe.
The platform tag of single-binary wheels is taken from --platform or PLATFORM
(Windows, macOS, OSX, Ubuntu); unknown labels keep the detected platform.`,
		Example: `  # Umbrella wheel only
  anima-wheel build --version 4.2

  # One binary, tagged for Linux
  ANIMA_APP=animaDenoising PLATFORM=Ubuntu anima-wheel build

  # Everything, with a checksums file
  anima-wheel build --all --checksums`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, global, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.all, "all", false, "build the umbrella and every single-binary wheel")
	cmd.Flags().String("app", "", "binary to package (default $"+config.EnvApp+")")
	cmd.Flags().String("platform", "", "OS label for the platform tag (default $"+config.EnvPlatform+")")
	cmd.Flags().String("version", "", "version to build (default $"+config.EnvVersion+" or git describe)")
	cmd.Flags().String("bin-dir", "", "directory holding the binaries")
	cmd.Flags().String("out-dir", "", "directory receiving the wheels")
	cmd.Flags().String("dispatcher", "", "anima-exec executable to install as each command")
	cmd.Flags().BoolVar(&opts.checksums, "checksums", false, "write "+build.ChecksumsFile+" next to the wheels")
	cmd.Flags().StringVar(&opts.goos, "goos", runtime.GOOS, "operating system the binaries were built for")
	cmd.Flags().StringVar(&opts.goarch, "goarch", runtime.GOARCH, "architecture the binaries were built for")
	cmd.MarkFlagsMutuallyExclusive("all", "app")

	return cmd
}

func runBuild(cmd *cobra.Command, global *globalOptions, opts *buildOptions) error {
	logger := global.logger(cmd)

	cfg, err := global.loadConfig(cmd)
	if err != nil {
		return err
	}
	if opts.all {
		cfg.App = ""
	}

	ver, err := resolveVersion(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}

	binaries, err := build.Discover(cfg.BinDir, cfg.Include)
	if err != nil {
		return err
	}
	logger.Debug("discovered binaries", "bin_dir", cfg.BinDir, "count", len(binaries))

	detected := tag.Detect(opts.goos, opts.goarch)
	var plans []*build.Plan
	if opts.all {
		plans, err = build.PlanAll(cfg, binaries, ver, detected)
	} else {
		var p *build.Plan
		p, err = build.NewPlan(cfg, binaries, ver, detected)
		plans = []*build.Plan{p}
	}
	if err != nil {
		if errors.Is(err, build.ErrAppNotFound) {
			logger.Error("selected binary is not in the bin directory", "app", cfg.App, "available", binaries)
		}
		return err
	}

	if needsDispatcher(plans) && cfg.Dispatcher == "" {
		cfg.Dispatcher = defaultDispatcher()
		if cfg.Dispatcher == "" {
			return fmt.Errorf("no %s executable found: set --dispatcher or %s", dispatcherName, config.EnvDispatcher)
		}
		logger.Debug("using dispatcher next to anima-wheel", "path", cfg.Dispatcher)
	}

	builder := &build.Builder{
		Config:     cfg,
		Dispatcher: cfg.Dispatcher,
		Generator:  version.Generator(),
		Logger:     logger.Named("build"),
	}
	wheels, err := builder.BuildAll(plans)
	if err != nil {
		return err
	}

	for _, w := range wheels {
		fmt.Fprintln(cmd.OutOrStdout(), w)
	}

	if opts.checksums {
		path, err := build.WriteChecksums(cfg.OutDir, wheels)
		if err != nil {
			return err
		}
		logger.Info("wrote checksums", "path", path)
	}
	return nil
}

// resolveVersion uses the configured override or asks git.
func resolveVersion(ctx context.Context, cfg *config.Config, logger hclog.Logger) (string, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, scm.DefaultTimeout)
	defer cancel()

	ver, err := scm.Resolve(ctx, scm.NewRealProcessRunner(), ".", cfg.Version, time.Now())
	if err != nil {
		return "", err
	}
	logger.Debug("resolved version", "version", ver, "override", cfg.Version != "")
	return ver, nil
}

func needsDispatcher(plans []*build.Plan) bool {
	for _, p := range plans {
		if !p.Umbrella() {
			return true
		}
	}
	return false
}

// defaultDispatcher returns the anima-exec executable installed next to the
// running anima-wheel, or "" when there is none.
func defaultDispatcher() string {
	self, err := dispatch.SelfPath()
	if err != nil {
		return ""
	}
	candidate := filepath.Join(filepath.Dir(self), dispatch.ExecutableName(dispatcherName, runtime.GOOS))
	if info, err := os.Stat(candidate); err == nil && info.Mode().IsRegular() {
		return candidate
	}
	return ""
}
