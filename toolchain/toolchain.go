// Package toolchain locates and runs the external programs the print pipeline shells out to
// (pdftoppm, lp, lpoptions).
package toolchain

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Runner executes an external program and returns its standard output.
type Runner interface {
	Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error)
}

// ExitError reports a program that ran but exited with a non-zero status.
type ExitError struct {
	Name   string
	Code   int
	Stderr string
}

func (e *ExitError) Error() string {
	msg := fmt.Sprintf("%s exited with status %d", filepath.Base(e.Name), e.Code)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += ": " + s
	}
	return msg
}

// ErrNotFound is returned when a program cannot be located.
var ErrNotFound = errors.New("executable not found")

// ExecRunner runs programs with os/exec.
type ExecRunner struct{}

// Run starts name with args, feeding stdin when non-nil.
func (ExecRunner) Run(ctx context.Context, name string, args []string, stdin io.Reader) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if stdin != nil {
		cmd.Stdin = stdin
	}

	err := cmd.Run()
	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return stdout.Bytes(), &ExitError{Name: name, Code: exitErr.ExitCode(), Stderr: stderr.String()}
		}
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to run %s: %w", name, err)
	}
	return stdout.Bytes(), nil
}

// Resolve finds the full path to a program. An absolute name must exist; otherwise the
// program is looked up in dir when set, or in PATH.
func Resolve(dir, name string) (string, error) {
	if filepath.IsAbs(name) {
		if _, err := os.Stat(name); err != nil {
			return "", fmt.Errorf("%s: %w", name, ErrNotFound)
		}
		return name, nil
	}

	if dir != "" {
		candidate := filepath.Join(dir, executableName(name))
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
		return "", fmt.Errorf("%s in %s: %w", name, dir, ErrNotFound)
	}

	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, ErrNotFound)
	}
	return path, nil
}

func executableName(name string) string {
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		return name + ".exe"
	}
	return name
}
