package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cromulus/reminders-cli-sub001/config"
)

func (a *app) initCommand() *cobra.Command {
	var yes, force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write sample configuration files",
		Long: `Write a sample config.yaml and shortcuts.yaml to the user config directory.

Without --yes an interactive form chooses the files. Existing files are
kept unless --force is given or the form confirms overwriting them.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.InitPaths(); err != nil {
				return err
			}

			files := config.SampleFiles()
			overwrite := force
			if !yes {
				selected, ow, proceed, err := a.promptInit(files)
				if err != nil {
					return err
				}
				if !proceed {
					_, err := fmt.Fprintln(cmd.OutOrStdout(), "Nothing written")
					return err
				}
				files, overwrite = selected, overwrite || ow
			}

			written, err := config.BootstrapSystem(files, overwrite)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(written) == 0 {
				_, err := fmt.Fprintln(out, "Files already exist (use --force to overwrite)")
				return err
			}
			for _, path := range written {
				_, _ = fmt.Fprintf(out, "Wrote %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "write every sample file without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}
