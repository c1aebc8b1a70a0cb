package cmd

import (
	"os"
	"runtime"
	"runtime/debug"

	"github.com/samber/lo"
	"github.com/spf13/cobra"

	"github.com/yhkl-dev/tunecli/where"
)

// Version is set at build time with -ldflags "-X .../cmd.Version=..."
var Version = "dev"

func init() {
	rootCmd.AddCommand(versionCmd)
	versionCmd.SetOut(os.Stdout)
	versionCmd.Flags().BoolP("short", "s", false, "Print only the version")
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Run: func(cmd *cobra.Command, args []string) {
		if lo.Must(cmd.Flags().GetBool("short")) {
			cmd.Println(Version)
			return
		}

		revision := "unknown"
		if info, ok := debug.ReadBuildInfo(); ok {
			if s, found := lo.Find(info.Settings, func(s debug.BuildSetting) bool {
				return s.Key == "vcs.revision"
			}); found {
				revision = s.Value
			}
		}
		cmd.Printf("%s %s\n", where.App, Version)
		cmd.Printf("  revision: %s\n", revision)
		cmd.Printf("  go:       %s\n", runtime.Version())
		cmd.Printf("  platform: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	},
}
