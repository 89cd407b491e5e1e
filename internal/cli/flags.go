package cli

import (
	"github.com/spf13/cobra"
)

// registerDevModeFlags adds the dev-mode settings to a cobra command. The
// values are read back through config.Load, so flags, HOTSWAP_* variables
// and .hotswap.yaml all feed the same settings.
func registerDevModeFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("entry-point", "", "executable to supervise, relative to a watch root")
	f.String("watch-roots", "", "build output directories, separated by the OS path list separator")
	f.String("reloadable-prefixes", "", "comma-separated name prefixes resolved from the build output")
	f.String("shutdown-poll-interval", "", "interval between shutdown warnings (milliseconds or duration, default 5s)")
	f.String("debounce", "", "quiet period before a restart (milliseconds or duration, default 100ms)")
	f.String("dir", "", "working directory of the application")

	registerDevModeCompletions(cmd)
}
