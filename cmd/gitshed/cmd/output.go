package cmd

import (
	"fmt"
	"io"
	"sort"

	"github.com/fatih/color"
	jsoniter "github.com/json-iterator/go"
	"github.com/oneconcern/gitshed/pkg/core"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v2"
)

const (
	formatText = "text"
	formatJSON = "json"
	formatYAML = "yaml"
)

// Formatter renders the result of a command
type Formatter interface {
	Format(io.Writer, interface{}) error
}

// FormatterFunc turns a function into a Formatter
type FormatterFunc func(io.Writer, interface{}) error

// Format the data
func (f FormatterFunc) Format(w io.Writer, data interface{}) error {
	return f(w, data)
}

func jsonFormatter() FormatterFunc {
	return func(w io.Writer, data interface{}) error {
		enc := jsoniter.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	}
}

func yamlFormatter() FormatterFunc {
	return func(w io.Writer, data interface{}) error {
		b, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	}
}

// outputFormatter selects the formatter of an output format, falling back to text
func outputFormatter(format string, text Formatter) (Formatter, error) {
	switch format {
	case formatJSON:
		return jsonFormatter(), nil
	case formatYAML:
		return yamlFormatter(), nil
	case formatText, "":
		return text, nil
	default:
		return nil, fmt.Errorf("unsupported output format: %q, expected one of %s, %s, %s",
			format, formatText, formatJSON, formatYAML)
	}
}

// validateOutput rejects an unknown --output value before a command does any work
func validateOutput(cmd *cobra.Command, args []string) error {
	_, err := outputFormatter(gitshedFlags.root.output, nil)
	return err
}

// render data with the selected output format, or with the text formatter of the command
func render(text Formatter, data interface{}) error {
	f, err := outputFormatter(gitshedFlags.root.output, text)
	if err != nil {
		return err
	}
	return f.Format(stdout, data)
}

// resultOutput is the serializable form of a core.Result
type resultOutput struct {
	Done    []string          `json:"done" yaml:"done"`
	Skipped []string          `json:"skipped,omitempty" yaml:"skipped,omitempty"`
	Failed  map[string]string `json:"failed,omitempty" yaml:"failed,omitempty"`
}

func newResultOutput(result *core.Result) resultOutput {
	out := resultOutput{Done: result.Done, Skipped: result.Skipped}
	if out.Done == nil {
		out.Done = []string{}
	}
	if len(result.Failed) > 0 {
		out.Failed = make(map[string]string, len(result.Failed))
		for path, err := range result.Failed {
			out.Failed[path] = err.Error()
		}
	}
	return out
}

func resultFormatter(verb string) FormatterFunc {
	return func(w io.Writer, data interface{}) error {
		out := data.(resultOutput)
		for _, path := range out.Done {
			fmt.Fprintln(w, color.GreenString(verb), path)
		}
		failed := make([]string, 0, len(out.Failed))
		for path := range out.Failed {
			failed = append(failed, path)
		}
		sort.Strings(failed)
		for _, path := range failed {
			fmt.Fprintln(w, color.RedString("failed"), path+":", out.Failed[path])
		}
		return nil
	}
}

func listFormatter() FormatterFunc {
	return func(w io.Writer, data interface{}) error {
		for _, path := range data.([]string) {
			fmt.Fprintln(w, path)
		}
		return nil
	}
}

// printResult renders the outcome of an operation and exits with an error when some paths failed
func printResult(verb string, result *core.Result) {
	if err := render(resultFormatter(verb), newResultOutput(result)); err != nil {
		wrapFatalln("cannot print result", err)
		return
	}
	if len(result.Failed) > 0 {
		logFatalf("%d of %d paths failed", len(result.Failed), len(result.Failed)+len(result.Done)+len(result.Skipped))
	}
}
