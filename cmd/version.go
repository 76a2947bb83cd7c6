package cmd

import (
	"fmt"

	"github.com/blang/semver"
	"github.com/spf13/cobra"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

// SetVersion records the build information injected through ldflags
func SetVersion(v, built string) {
	version = v
	buildTime = built
	rootCmd.Version = v
}

// versionCmd represents the version command
var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// No config is needed to print the version.
	PersistentPreRunE:  func(*cobra.Command, []string) error { return nil },
	PersistentPostRunE: func(*cobra.Command, []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), versionString(version, buildTime))
		return nil
	},
}

func versionString(v, built string) string {
	parsed, err := semver.ParseTolerant(v)
	if err != nil {
		return fmt.Sprintf("marquee %s (development build, built %s)", v, built)
	}

	s := fmt.Sprintf("marquee v%s (built %s)", parsed, built)
	if len(parsed.Pre) > 0 {
		s += " [pre-release]"
	}
	return s
}
