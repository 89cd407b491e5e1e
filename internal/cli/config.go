package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	sigsyaml "sigs.k8s.io/yaml"

	"github.com/hupe1980/hotswap/internal/config"
)

func newConfigCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the resolved configuration",
		Long: `Print the configuration hotswap would run with, after merging
flags, HOTSWAP_* environment variables and the config file.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())

			data, err := sigsyaml.Marshal(cfg)
			if err != nil {
				return fmt.Errorf("rendering configuration: %w", err)
			}

			w := cmd.OutOrStdout()

			if path := config.ConfigFileFromContext(cmd.Context()); path != "" {
				if _, err := fmt.Fprintf(w, "# config file: %s\n", path); err != nil {
					return err
				}
			}

			_, err = w.Write(data)

			return err
		},
	}

	registerDevModeFlags(cmd)

	return cmd
}
