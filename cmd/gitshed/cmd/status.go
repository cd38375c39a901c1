package cmd

import (
	"fmt"
	"io"

	"github.com/docker/go-units"
	"github.com/fatih/color"
	"github.com/oneconcern/gitshed/pkg/core"
	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Summarizes the state of managed files",
	Long:  `Counts the files managed by gitshed in this repository, and how many of them are synced.`,
	Example: `% git shed status
3 files managed by gitshed: 1 synced (12.5MB), 2 unsynced.
Run "git shed sync" to fetch unsynced content.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s, err := newSession()
		if err != nil {
			wrapFatalln("cannot open repository", err)
			return
		}
		defer s.close()

		st, err := s.shed.Status(s.ctx)
		if err != nil {
			wrapFatalln("cannot get status", err)
			return
		}
		if err = render(statusFormatter(), st); err != nil {
			wrapFatalln("cannot print status", err)
		}
	},
}

func statusFormatter() FormatterFunc {
	return func(w io.Writer, data interface{}) error {
		st := data.(core.Status)
		fmt.Fprintf(w, "%d files managed by gitshed: %s (%s), %s.\n",
			st.Total,
			color.GreenString("%d synced", st.Synced),
			units.HumanSize(float64(st.Bytes)),
			color.YellowString("%d unsynced", st.Unsynced),
		)
		if st.Unsynced > 0 {
			fmt.Fprintln(w, `Run "git shed sync" to fetch unsynced content.`)
		}
		return nil
	}
}

var syncedCmd = &cobra.Command{
	Use:   "synced",
	Short: "Lists synced files",
	Long:  `Lists the managed files whose content is available locally, relative to the repository root.`,
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runList(true)
	},
}

var unsyncedCmd = &cobra.Command{
	Use:   "unsynced",
	Short: "Lists unsynced files",
	Long: `Lists the managed files whose content must be fetched with "git shed sync",
relative to the repository root.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runList(false)
	},
}

func runList(synced bool) {
	s, err := newSession()
	if err != nil {
		wrapFatalln("cannot open repository", err)
		return
	}
	defer s.close()

	var paths []string
	if synced {
		paths, err = s.shed.ListSynced(s.ctx)
	} else {
		paths, err = s.shed.ListUnsynced(s.ctx)
	}
	if err != nil {
		wrapFatalln("cannot list files", err)
		return
	}
	if err = render(listFormatter(), paths); err != nil {
		wrapFatalln("cannot print files", err)
	}
}

func init() {
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(syncedCmd)
	rootCmd.AddCommand(unsyncedCmd)
}
