package cmd

import (
	"fmt"
	"io"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Build information, set with -ldflags "-X github.com/oneconcern/gitshed/cmd/gitshed/cmd.Version=..."
var (
	// Version is the semver of the release, as given by git describe --tags
	Version string
	// BuildDate is the date the binary was built at
	BuildDate string
	// GitCommit is the commit the binary was built from
	GitCommit string
	// GitState is "dirty" when the working tree had uncommitted changes at build time
	GitState string
)

// VersionInfo describes the build of the gitshed binary
type VersionInfo struct {
	Version   string `json:"version" yaml:"version"`
	BuildDate string `json:"buildDate,omitempty" yaml:"buildDate,omitempty"`
	GitCommit string `json:"gitCommit,omitempty" yaml:"gitCommit,omitempty"`
	GitState  string `json:"gitState,omitempty" yaml:"gitState,omitempty"`
	GoVersion string `json:"goVersion,omitempty" yaml:"goVersion,omitempty"`
}

// NewVersionInfo collects the build information of the running binary.
//
// Values set at link time win. Otherwise the version control settings recorded by the go
// toolchain are used, and the version is "dev".
func NewVersionInfo() VersionInfo {
	v := VersionInfo{
		Version:   "dev",
		BuildDate: BuildDate,
		GitCommit: GitCommit,
		GitState:  GitState,
	}
	if Version != "" {
		v.Version = Version
		if v.GitState == "" {
			v.GitState = "clean"
		}
	}

	info, ok := debug.ReadBuildInfo()
	if !ok {
		return v
	}
	v.GoVersion = info.GoVersion
	for _, setting := range info.Settings {
		switch setting.Key {
		case "vcs.revision":
			if v.GitCommit == "" {
				v.GitCommit = setting.Value
			}
		case "vcs.time":
			if v.BuildDate == "" {
				v.BuildDate = setting.Value
			}
		case "vcs.modified":
			if v.GitState == "" && setting.Value == "true" {
				v.GitState = "dirty"
			}
		}
	}
	return v
}

func versionFormatter() FormatterFunc {
	return func(w io.Writer, data interface{}) error {
		v := data.(VersionInfo)
		for _, line := range [][2]string{
			{"Version", v.Version},
			{"Build date", v.BuildDate},
			{"Commit", v.GitCommit},
			{"Working tree", v.GitState},
			{"Go", v.GoVersion},
		} {
			if line[1] == "" {
				continue
			}
			if _, err := fmt.Fprintf(w, "%-13s %s\n", line[0]+":", line[1]); err != nil {
				return err
			}
		}
		return nil
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the version of gitshed",
	Long: `Prints the version of gitshed: its release, build date, commit and whether the working tree
was dirty at build time.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		if err := render(versionFormatter(), NewVersionInfo()); err != nil {
			wrapFatalln("cannot print version", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
