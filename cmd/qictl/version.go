package main

import (
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Set with -ldflags "-X main.version=..." by release builds. Empty values are
// filled from the module build info.
var (
	version = ""
	commit  = ""
	date    = ""
)

// VersionInfo is the JSON form of the version command.
type VersionInfo struct {
	Version   string `json:"version"`
	Commit    string `json:"commit"`
	Built     string `json:"built"`
	GoVersion string `json:"go"`
	Modified  bool   `json:"modified,omitempty"`
}

func init() {
	rootCmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runVersion()
		},
	})
}

func runVersion() error {
	info := buildVersion(debug.ReadBuildInfo())
	if jsonOut {
		return printJSON(info)
	}
	suffix := ""
	if info.Modified {
		suffix = " (modified)"
	}
	printInfo("qictl %s%s\n", info.Version, suffix)
	printInfo("  commit: %s\n", info.Commit)
	printInfo("  built: %s\n", info.Built)
	printInfo("  go: %s\n", info.GoVersion)
	return nil
}

// buildVersion merges the linker-provided values with the VCS stamps Go
// records in the binary.
func buildVersion(bi *debug.BuildInfo, ok bool) VersionInfo {
	info := VersionInfo{Version: version, Commit: commit, Built: date}
	if ok {
		info.GoVersion = bi.GoVersion
		if info.Version == "" && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
			info.Version = bi.Main.Version
		}
		for _, s := range bi.Settings {
			switch s.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = s.Value
				}
			case "vcs.time":
				if info.Built == "" {
					info.Built = s.Value
				}
			case "vcs.modified":
				info.Modified = s.Value == "true"
			}
		}
	}

	if info.Version == "" {
		info.Version = "dev"
	}
	if info.Commit == "" {
		info.Commit = "none"
	}
	if info.Built == "" {
		info.Built = "unknown"
	}
	return info
}
