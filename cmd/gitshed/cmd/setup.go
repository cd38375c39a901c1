package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	"github.com/oneconcern/gitshed/pkg/core"
	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Verifies the repository setup",
	Long: `Verifies that this repository is set up for gitshed:
  * the shed exists and is ignored by git
  * the content store works from this client (an object is written then read back)
  * the content of synced files is intact

Probe objects are written under GITSHED_CLIENT_CHECK_DELETABLE in the content store, and may be
deleted by admins.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		s, err := newSession()
		if err != nil {
			wrapFatalln("cannot open repository", err)
			return
		}
		defer s.close()

		if gitshedFlags.setup.fix {
			if err = s.shed.IgnoreShed(); err != nil {
				wrapFatalln("cannot update .gitignore", err)
				return
			}
		}

		d, err := s.shed.Verify(s.ctx)
		if err != nil {
			wrapFatalln("cannot verify setup", err)
			return
		}
		if err = render(diagnosticsFormatter(s.shed.Remote().String()), newDiagnosticsOutput(d)); err != nil {
			wrapFatalln("cannot print diagnostics", err)
			return
		}
		if err = d.Err(); err != nil {
			wrapFatalln("setup is not complete", err)
		}
	},
}

// diagnosticsOutput is the serializable form of core.Diagnostics
type diagnosticsOutput struct {
	ShedExists  bool              `json:"shedExists" yaml:"shedExists"`
	ShedIgnored bool              `json:"shedIgnored" yaml:"shedIgnored"`
	Remote      string            `json:"remote,omitempty" yaml:"remote,omitempty"`
	Checked     int               `json:"checked" yaml:"checked"`
	Corrupt     map[string]string `json:"corrupt,omitempty" yaml:"corrupt,omitempty"`
}

func newDiagnosticsOutput(d *core.Diagnostics) diagnosticsOutput {
	out := diagnosticsOutput{
		ShedExists:  d.ShedExists,
		ShedIgnored: d.ShedIgnored,
		Checked:     d.Checked,
	}
	if d.Remote != nil {
		out.Remote = d.Remote.Error()
	}
	if len(d.Corrupt) > 0 {
		out.Corrupt = make(map[string]string, len(d.Corrupt))
		for key, err := range d.Corrupt {
			out.Corrupt[key.String()] = err.Error()
		}
	}
	return out
}

func check(ok bool) string {
	if ok {
		return color.GreenString("ok")
	}
	return color.RedString("KO")
}

func diagnosticsFormatter(remote string) FormatterFunc {
	return func(w io.Writer, data interface{}) error {
		d := data.(diagnosticsOutput)
		fmt.Fprintln(w, check(d.ShedExists), "shed directory", core.ShedRelPath)
		fmt.Fprintln(w, check(d.ShedIgnored), "shed ignored by git")
		fmt.Fprintln(w, check(d.Remote == ""), "content store", remote, d.Remote)
		fmt.Fprintln(w, check(len(d.Corrupt) == 0), fmt.Sprintf("%d shed entries verified", d.Checked))
		keys := make([]string, 0, len(d.Corrupt))
		for key := range d.Corrupt {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Fprintln(w, "   ", color.RedString("corrupt"), key, d.Corrupt[key])
		}
		if !d.ShedIgnored {
			fmt.Fprintln(w, `Run "git shed setup --fix" to add the shed to .gitignore.`)
		}
		return nil
	}
}

func init() {
	addFixFlag(setupCmd)
	rootCmd.AddCommand(setupCmd)
}
