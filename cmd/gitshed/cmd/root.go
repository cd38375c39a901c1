// Copyright © 2018 One Concern

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "gitshed",
	Short: "gitshed keeps large binary files out of git",
	Long: `gitshed keeps large binary files out of a git repository.

A managed file is replaced by a symlink into the shed (.gitshed/files), a local directory of content
named by its git blob id. The symlink is committed to git while the content is uploaded to a remote
content store, from where other clones fetch it with "gitshed sync".

Managed files are either:
  synced:   the content is in the local shed
  unsynced: the symlink dangles until the content is fetched

Invoke it as "git shed" by having the gitshed binary on your PATH.
`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: validateOutput,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		osExit(1)
	}
}

func init() {
	addLogLevelFlag(rootCmd)
	addOutputFlag(rootCmd)
	addConfigFlag(rootCmd)
}
