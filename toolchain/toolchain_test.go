package toolchain

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolveInDirectory(t *testing.T) {
	dir := t.TempDir()
	bin := filepath.Join(dir, executableName("pdftoppm"))
	require.NoError(t, os.WriteFile(bin, []byte("#!/bin/sh\n"), 0o755))

	path, err := Resolve(dir, "pdftoppm")
	require.NoError(t, err)
	assert.Equal(t, bin, path)

	_, err = Resolve(dir, "pdfinfo")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveAbsolute(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := Resolve("", missing)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestResolveFromPath(t *testing.T) {
	_, err := Resolve("", "definitely-not-a-real-print-tool")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestExecRunner(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("requires a POSIX shell")
	}
	r := ExecRunner{}

	out, err := r.Run(context.Background(), "cat", nil, strings.NewReader("label"))
	require.NoError(t, err)
	assert.Equal(t, "label", string(out))

	_, err = r.Run(context.Background(), "sh", []string{"-c", "echo jammed >&2; exit 3"}, nil)
	var exitErr *ExitError
	require.ErrorAs(t, err, &exitErr)
	assert.Equal(t, 3, exitErr.Code)
	assert.Contains(t, exitErr.Error(), "jammed")

	_, err = r.Run(context.Background(), "definitely-not-a-real-print-tool", nil, nil)
	assert.ErrorIs(t, err, ErrNotFound)
}
