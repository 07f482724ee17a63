package cli

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/ivadomed/anima-bin/internal/config"
	"github.com/ivadomed/anima-bin/internal/tag"
	"github.com/spf13/cobra"
)

type tagOptions struct {
	platform string
	pure     bool
	goos     string
	goarch   string
}

func newTagCmd(global *globalOptions) *cobra.Command {
	opts := &tagOptions{}

	cmd := &cobra.Command{
		Use:   "tag",
		Short: "Print the compatibility tag a wheel would be built with",
		Long: `Print the python-abi-platform tag used for single-binary wheels.

Recognised platform labels: ` + strings.Join(tag.Labels(), ", ") + `.
Any other label keeps the platform detected from --goos/--goarch.`,
		Args: cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			if opts.pure {
				fmt.Fprintln(cmd.OutOrStdout(), tag.Pure.String())
				return
			}
			label := opts.platform
			if !cmd.Flags().Changed("platform") {
				label = global.getenv(config.EnvPlatform)
			}
			if label != "" {
				if _, ok := tag.PlatformForLabel(label); !ok {
					global.logger(cmd).Warn("unrecognised platform label, keeping detected platform", "label", label)
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), tag.Override(tag.Detect(opts.goos, opts.goarch), label).String())
		},
	}

	cmd.Flags().StringVar(&opts.platform, "platform", "", "OS label (default $"+config.EnvPlatform+")")
	cmd.Flags().BoolVar(&opts.pure, "pure", false, "print the tag of the umbrella wheel")
	cmd.Flags().StringVar(&opts.goos, "goos", runtime.GOOS, "operating system to detect for")
	cmd.Flags().StringVar(&opts.goarch, "goarch", runtime.GOARCH, "architecture to detect for")

	return cmd
}
