package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hupe1980/hotswap/internal/version"
)

func newVersionCommand() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print the hotswap build",
		Long: `Print the hotswap build this binary was made from.

A config file can pin the builds it accepts with required-version, a semver
constraint such as ">= 1.2, < 2". Development builds report "dev" and are
never rejected.`,
		Args:  cobra.NoArgs,
		// Skips config loading so a failing required-version check can
		// still be diagnosed.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.GetInfo()

			if jsonOutput {
				j, err := info.JSON()
				if err != nil {
					return err
				}

				_, err = fmt.Fprintln(cmd.OutOrStdout(), j)

				return err
			}

			_, err := fmt.Fprintln(cmd.OutOrStdout(), info.String())

			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "print the build info as JSON")

	return cmd
}
