package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kiteco/retriever/kite-go/sandbox"
	"github.com/kiteco/retriever/kite-go/warden"
	"github.com/kiteco/retriever/kite-golib/kitelog"
)

func TestParseCopies(t *testing.T) {
	copies, err := parseCopies([]string{"/tmp/src:/in/src", "build/out.tar:/out.tar"})
	require.NoError(t, err)
	assert.Equal(t, []warden.Copy{
		{From: "/tmp/src", To: "/in/src"},
		{From: "build/out.tar", To: "/out.tar"},
	}, copies)

	for _, bad := range []string{"nocolon", ":/in", "/tmp/src:"} {
		_, err := parseCopies([]string{bad})
		assert.Error(t, err, bad)
	}
}

func TestRunExecEmpty(t *testing.T) {
	_, err := runExec(&execCmd{Command: "   "}, kitelog.Discard)
	assert.Equal(t, sandbox.ErrEmptyCommand, err)

	_, err = runExec(&execCmd{Command: `echo "unterminated`}, kitelog.Discard)
	assert.Error(t, err)
}
