package cmd

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/require"
)

type ExitMocks struct {
	exitStatuses []int
}

func (m *ExitMocks) Fatalf(format string, v ...interface{}) {
	fmt.Printf(format+"\n", v...)
	m.exitStatuses = append(m.exitStatuses, 1)
}

func (m *ExitMocks) Fatalln(v ...interface{}) {
	fmt.Println(v...)
	m.exitStatuses = append(m.exitStatuses, 1)
}

func (m *ExitMocks) Exit(code int) {
	m.exitStatuses = append(m.exitStatuses, code)
}

func (m *ExitMocks) fatalCalls() int {
	return len(m.exitStatuses)
}

var exitMocks *ExitMocks

// setupRepo creates a git repository configured with a local content store, and moves into it
func setupRepo(t *testing.T) string {
	exitMocks = &ExitMocks{}
	logFatalf = exitMocks.Fatalf
	logFatalln = exitMocks.Fatalln
	osExit = exitMocks.Exit

	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	_, err = git.PlainInit(root, false)
	require.NoError(t, err)

	store := t.TempDir()
	writeFile(t, filepath.Join(root, ".gitshed", "config.json"),
		fmt.Sprintf(`{"content_store": {"chunk_size": 2, "local": {"root": %q}}}`, store))

	cwd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(root))
	t.Cleanup(func() {
		_ = os.Chdir(cwd)
		stdout = os.Stdout
	})
	return root
}

func writeFile(t *testing.T, path, content string) {
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

// runCmd executes a command line and returns its output
func runCmd(t *testing.T, cmd []string, intentMsg string, expectError bool) string {
	fatalCallsBefore := exitMocks.fatalCalls()
	gitshedFlags = flagsT{}
	gitshedFlags.root.logLevel = "none"

	var out bytes.Buffer
	stdout = &out

	rootCmd.SetArgs(cmd)
	Execute()
	if expectError {
		require.Equal(t, fatalCallsBefore+1, exitMocks.fatalCalls(),
			"ran '"+strings.Join(cmd, " ")+"' expecting error and didn't see one in mocks : "+intentMsg)
	} else {
		require.Equal(t, fatalCallsBefore, exitMocks.fatalCalls(),
			"unexpected error in mocks on '"+strings.Join(cmd, " ")+"' : "+intentMsg)
	}
	return out.String()
}
