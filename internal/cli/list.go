package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/ivadomed/anima-bin/internal/build"
	"github.com/spf13/cobra"
)

func newListCmd(global *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List the binaries that would be packaged",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := global.loadConfig(cmd)
			if err != nil {
				return err
			}

			binaries, err := build.Discover(cfg.BinDir, cfg.Include)
			if err != nil {
				return err
			}
			if len(binaries) == 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "No binaries in %s matching %v\n", cfg.BinDir, cfg.Include)
				return nil
			}

			table := NewTable([]string{"Binary", "Distribution", "Command", "Size"})
			table.SetAlign(3, AlignRight)
			for _, bin := range binaries {
				size := "?"
				if info, err := os.Stat(filepath.Join(cfg.BinDir, bin)); err == nil {
					size = formatSize(info.Size())
				}
				command := build.CommandName(bin)
				table.AddRow([]string{bin, cfg.NamePrefix + command, command, size})
			}

			fmt.Fprint(cmd.OutOrStdout(), table.Render())
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d binaries; umbrella distribution: %s%s\n", len(binaries), cfg.NamePrefix, cfg.Umbrella)
			return nil
		},
	}

	cmd.Flags().String("bin-dir", "", "directory holding the binaries")
	return cmd
}

// formatSize renders a byte count with a binary unit suffix.
func formatSize(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
