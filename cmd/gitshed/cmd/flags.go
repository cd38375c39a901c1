// Copyright © 2018 One Concern

package cmd

import (
	"github.com/oneconcern/gitshed/pkg/dlogger"
	"github.com/spf13/cobra"
)

type flagsT struct {
	root struct {
		logLevel string
		output   string
		config   string
	}
	paths struct {
		argFile string
	}
	setup struct {
		fix bool
	}
}

var gitshedFlags = flagsT{}

func addLogLevelFlag(cmd *cobra.Command) string {
	logLevel := "loglevel"
	cmd.PersistentFlags().StringVar(&gitshedFlags.root.logLevel, logLevel, dlogger.LogLevelInfo,
		"The logging level: one of none, debug, info, warn, error")
	return logLevel
}

func addOutputFlag(cmd *cobra.Command) string {
	output := "output"
	cmd.PersistentFlags().StringVarP(&gitshedFlags.root.output, output, "o", formatText,
		"The output format: one of text, json, yaml")
	return output
}

func addConfigFlag(cmd *cobra.Command) string {
	config := "config"
	cmd.PersistentFlags().StringVar(&gitshedFlags.root.config, config, "",
		"The configuration file. Defaults to .gitshed/config.json at the root of the repository")
	return config
}

func addArgFileFlag(cmd *cobra.Command) string {
	argFile := "argfile"
	cmd.Flags().StringVarP(&gitshedFlags.paths.argFile, argFile, "f", "",
		"A file listing paths, one per line. Use - to read from stdin")
	return argFile
}

func addFixFlag(cmd *cobra.Command) string {
	fix := "fix"
	cmd.Flags().BoolVar(&gitshedFlags.setup.fix, fix, false, "Add the shed to .gitignore when it is not ignored")
	return fix
}
