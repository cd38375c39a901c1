package cmd

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/oneconcern/gitshed/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResultFormatter(t *testing.T) {
	out := newResultOutput(&core.Result{
		Done: []string{"a", "b"},
		Failed: map[string]error{
			"z": errors.New("boom"),
			"c": errors.New("bang"),
		},
	})

	var buf bytes.Buffer
	require.NoError(t, resultFormatter("synced").Format(&buf, out))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Contains(t, lines[0], "a")
	assert.Contains(t, lines[2], "c: bang")
	assert.Contains(t, lines[3], "z: boom")
}

func TestResultOutputEmpty(t *testing.T) {
	out := newResultOutput(&core.Result{})
	assert.NotNil(t, out.Done)
	assert.Nil(t, out.Failed)

	var buf bytes.Buffer
	require.NoError(t, jsonFormatter().Format(&buf, out))
	assert.JSONEq(t, `{"done": []}`, buf.String())
}

func TestStatusFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, statusFormatter().Format(&buf, core.Status{Total: 3, Synced: 1, Unsynced: 2, Bytes: 2000}))
	assert.Contains(t, buf.String(), "3 files managed by gitshed")
	assert.Contains(t, buf.String(), "2kB")
	assert.Contains(t, buf.String(), "git shed sync")

	buf.Reset()
	require.NoError(t, statusFormatter().Format(&buf, core.Status{Total: 1, Synced: 1}))
	assert.NotContains(t, buf.String(), "git shed sync")
}
