package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

var (
	// These will be set during build with -ldflags
	gitCommit = "unknown"
	buildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version information",
	Long:  `Display version, build information, and runtime details for puppethook.`,
	Run:   runVersion,
}

func runVersion(cmd *cobra.Command, args []string) {
	commit, date := gitCommit, buildDate
	// Fall back to the VCS stamp of a plain `go build`.
	if info, ok := debug.ReadBuildInfo(); ok {
		for _, s := range info.Settings {
			switch {
			case s.Key == "vcs.revision" && commit == "unknown":
				commit = s.Value
			case s.Key == "vcs.time" && date == "unknown":
				date = s.Value
			}
		}
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "puppethook version %s\n", version)
	fmt.Fprintf(out, "  Git commit:  %s\n", commit)
	fmt.Fprintf(out, "  Build date:  %s\n", date)
	fmt.Fprintf(out, "  Go version:  %s\n", runtime.Version())
	fmt.Fprintf(out, "  OS/Arch:     %s/%s\n", runtime.GOOS, runtime.GOARCH)
}
