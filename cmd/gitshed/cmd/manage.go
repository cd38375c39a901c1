package cmd

import (
	"github.com/oneconcern/gitshed/pkg/core"
	"github.com/spf13/cobra"
)

// pathCommand runs an operation over the paths given as arguments, or over all managed files
type pathCommand struct {
	verb string
	some func(s *session, paths []string) (*core.Result, error)
	// all runs when neither paths nor an argument file are given. Paths are required when nil.
	all func(s *session) (*core.Result, error)
}

func (p pathCommand) run(cmd *cobra.Command, args []string) {
	argFile := gitshedFlags.paths.argFile
	everything := len(args) == 0 && argFile == ""
	if everything && p.all == nil {
		_ = cmd.Usage()
		logFatalln("no path specified")
		return
	}

	paths, err := expandPaths(args, argFile)
	if err != nil {
		wrapFatalln("cannot expand paths", err)
		return
	}

	s, err := newSession()
	if err != nil {
		wrapFatalln("cannot open repository", err)
		return
	}
	defer s.close()

	var result *core.Result
	if everything {
		result, err = p.all(s)
	} else {
		// an empty argument file selects nothing
		result, err = p.some(s, paths)
	}
	if err != nil {
		wrapFatalln("cannot "+cmd.Name(), err)
		return
	}
	printResult(p.verb, result)
}

var manageCmd = &cobra.Command{
	Use:   "manage [paths...]",
	Short: "Puts files under management",
	Long: `Puts files under management by gitshed.

Each file is uploaded to the content store, moved into the shed and replaced by a relative symlink,
which may then be committed to git. Arguments are glob patterns. Managing a file twice is harmless.`,
	Example: `% git shed manage 'data/*.bin'
% find . -name '*.tgz' | git shed manage -f -`,
	Run: pathCommand{
		verb: "managed",
		some: func(s *session, paths []string) (*core.Result, error) {
			return s.shed.Manage(s.ctx, paths)
		},
	}.run,
}

var unmanageCmd = &cobra.Command{
	Use:   "unmanage [paths...]",
	Short: "Turns managed files back into regular files",
	Long: `Replaces symlinks into the shed with regular, writable files holding their content.

Unsynced files cannot be unmanaged: sync them first. Without arguments, all managed files are unmanaged.`,
	Run: pathCommand{
		verb: "unmanaged",
		some: func(s *session, paths []string) (*core.Result, error) {
			return s.shed.Unmanage(s.ctx, paths)
		},
		all: func(s *session) (*core.Result, error) {
			return s.shed.UnmanageAll(s.ctx)
		},
	}.run,
}

var syncCmd = &cobra.Command{
	Use:   "sync [paths...]",
	Short: "Fetches the content of unsynced files",
	Long: `Fetches the content of unsynced files from the content store into the shed.

Synced files are left alone. Without arguments, all unsynced files of the repository are fetched.`,
	Run: pathCommand{
		verb: "synced",
		some: func(s *session, paths []string) (*core.Result, error) {
			return s.shed.Sync(s.ctx, paths)
		},
		all: func(s *session) (*core.Result, error) {
			return s.shed.SyncAll(s.ctx)
		},
	}.run,
}

var resyncCmd = &cobra.Command{
	Use:   "resync [paths...]",
	Short: "Fetches the content of managed files again",
	Long: `Fetches the content of managed files again, replacing what the shed holds.

Use it to repair shed entries reported as corrupt by "git shed setup".
Without arguments, all managed files of the repository are fetched.`,
	Run: pathCommand{
		verb: "resynced",
		some: func(s *session, paths []string) (*core.Result, error) {
			return s.shed.Resync(s.ctx, paths)
		},
		all: func(s *session) (*core.Result, error) {
			return s.shed.ResyncAll(s.ctx)
		},
	}.run,
}

func init() {
	for _, cmd := range []*cobra.Command{manageCmd, unmanageCmd, syncCmd, resyncCmd} {
		addArgFileFlag(cmd)
		rootCmd.AddCommand(cmd)
	}
}
