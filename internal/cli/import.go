package cli

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"path"
	"time"

	"github.com/ivadomed/anima-bin/internal/compression"
	"github.com/ivadomed/anima-bin/internal/security"
	httputil "github.com/ivadomed/anima-bin/internal/util/http"
	"github.com/spf13/cobra"
)

type importOptions struct {
	url     string
	timeout time.Duration
}

func newImportCmd(global *globalOptions) *cobra.Command {
	opts := &importOptions{}

	cmd := &cobra.Command{
		Use:   "import [archive]",
		Short: "Extract ANIMA binaries from a release archive into the bin directory",
		Long: `Extract the files matching the include patterns from a release archive
(.zip, .tar, .tar.gz, .tar.xz, .tar.bz2) or a single compressed binary into
the bin directory, ready for build.`,
		Example: `  anima-wheel import Anima-Ubuntu-4.2.zip
  anima-wheel import --url https://github.com/Inria-Empenn/Anima-Public/releases/download/v4.2/Anima-Ubuntu-4.2.zip`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 1) == (opts.url != "") {
				return fmt.Errorf("specify exactly one of an archive path or --url")
			}
			return runImport(cmd, global, opts, args)
		},
	}

	cmd.Flags().StringVar(&opts.url, "url", "", "download the archive from this HTTPS URL")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", httputil.DefaultTimeout, "download timeout")
	cmd.Flags().String("bin-dir", "", "directory receiving the binaries")

	return cmd
}

func runImport(cmd *cobra.Command, global *globalOptions, opts *importOptions, args []string) error {
	logger := global.logger(cmd)

	cfg, err := global.loadConfig(cmd)
	if err != nil {
		return err
	}

	var (
		data   []byte
		source string
	)
	if opts.url != "" {
		if err := security.ValidateHTTPURL(opts.url); err != nil {
			return err
		}
		u, err := url.Parse(opts.url)
		if err != nil {
			return fmt.Errorf("invalid URL: %w", err)
		}
		source = path.Base(u.Path)

		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		logger.Info("downloading archive", "url", opts.url)
		data, err = httputil.Fetch(ctx, opts.url, httputil.FetchOptions{Timeout: opts.timeout})
		if err != nil {
			return fmt.Errorf("failed to download %s: %w", opts.url, err)
		}
	} else {
		source = args[0]
		data, err = os.ReadFile(source) // #nosec G304 - archive path is chosen by the user
		if err != nil {
			return fmt.Errorf("failed to read archive: %w", err)
		}
	}

	if err := os.MkdirAll(cfg.BinDir, 0o755); err != nil {
		return fmt.Errorf("failed to create bin directory: %w", err)
	}

	extractor := &compression.Extractor{
		Patterns: cfg.Include,
		Logger:   logger.Named("extract"),
	}
	result, err := extractor.Extract(data, source, cfg.BinDir)
	if err != nil {
		return err
	}

	for _, p := range result.Paths {
		fmt.Fprintln(cmd.OutOrStdout(), p)
	}
	logger.Info("imported binaries", "count", len(result.Paths), "bin_dir", cfg.BinDir, "archive", result.WasArchive)
	return nil
}
