package cli

import (
	"io"
	"slices"

	"github.com/spf13/cobra"
)

var completionGenerators = map[string]func(root *cobra.Command, w io.Writer) error{
	"bash":       func(root *cobra.Command, w io.Writer) error { return root.GenBashCompletionV2(w, true) },
	"zsh":        func(root *cobra.Command, w io.Writer) error { return root.GenZshCompletion(w) },
	"fish":       func(root *cobra.Command, w io.Writer) error { return root.GenFishCompletion(w, true) },
	"powershell": func(root *cobra.Command, w io.Writer) error { return root.GenPowerShellCompletionWithDesc(w) },
}

func completionShells() []string {
	shells := make([]string, 0, len(completionGenerators))
	for shell := range completionGenerators {
		shells = append(shells, shell)
	}

	slices.Sort(shells)

	return shells
}

func newCompletionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "completion <shell>",
		Short: "Generate shell completion scripts",
		Long: `Generate a completion script for bash, zsh, fish or powershell.

The scripts complete subcommands and the dev-mode flags of "hotswap run"
and "hotswap config": --watch-roots and --dir complete directories,
--debounce and --shutdown-poll-interval suggest common durations.

  $ source <(hotswap completion bash)
  $ hotswap completion zsh > "${fpath[1]}/_hotswap"
  $ hotswap completion fish > ~/.config/fish/completions/hotswap.fish
  PS> hotswap completion powershell | Out-String | Invoke-Expression
`,
		// Completion scripts do not depend on any configuration.
		PersistentPreRunE: func(*cobra.Command, []string) error { return nil },
		Args:              cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs:         completionShells(),
		RunE: func(cmd *cobra.Command, args []string) error {
			return completionGenerators[args[0]](cmd.Root(), cmd.OutOrStdout())
		},
	}
}

// registerDevModeCompletions attaches value completion to the flags added
// by registerDevModeFlags.
func registerDevModeCompletions(cmd *cobra.Command) {
	dirs := func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveFilterDirs
	}

	durations := func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return []string{"100ms", "250ms", "500ms", "1s", "5s"}, cobra.ShellCompDirectiveNoFileComp
	}

	none := func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}

	_ = cmd.RegisterFlagCompletionFunc("watch-roots", dirs)
	_ = cmd.RegisterFlagCompletionFunc("dir", dirs)
	_ = cmd.RegisterFlagCompletionFunc("debounce", durations)
	_ = cmd.RegisterFlagCompletionFunc("shutdown-poll-interval", durations)
	_ = cmd.RegisterFlagCompletionFunc("reloadable-prefixes", none)
}
