package printing

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixxel-company-limited/pdf-print-server/internal/testpdf"
	"github.com/nixxel-company-limited/pdf-print-server/printerr"
	"github.com/nixxel-company-limited/pdf-print-server/rasterize"
	"github.com/nixxel-company-limited/pdf-print-server/toolchain"
)

// fakeLP records a single lp invocation.
type fakeLP struct {
	err   error
	runs  int
	args  []string
	stdin []byte
}

func (f *fakeLP) Run(_ context.Context, _ string, args []string, stdin io.Reader) ([]byte, error) {
	f.runs++
	f.args = args
	if stdin != nil {
		f.stdin, _ = io.ReadAll(stdin)
	}
	return nil, f.err
}

func newTestCommand(t *testing.T, runner toolchain.Runner) *CommandStrategy {
	t.Helper()
	lp := filepath.Join(t.TempDir(), "lp")
	require.NoError(t, os.WriteFile(lp, nil, 0o755))
	return NewCommandStrategy(&CommandConfig{
		Printer: "Westinghouse_WHTP203e",
		LPPath:  lp,
		Runner:  runner,
	})
}

func commandRequest(src rasterize.Source, rotate bool) Request {
	return Request{
		Source:       src,
		PageWidthIn:  2,
		PageHeightIn: 3,
		RotatePages:  rotate,
	}.WithDefaults()
}

func TestCommandStrategyRotatesIntoCopy(t *testing.T) {
	path := testpdf.WriteFile(t, 3, 3, 2)
	original, err := os.ReadFile(path)
	require.NoError(t, err)

	runner := &fakeLP{}
	s := newTestCommand(t, runner)
	require.NoError(t, s.Print(context.Background(), commandRequest(rasterize.FromFile(path), true)))

	require.Equal(t, 1, runner.runs)
	assert.Equal(t, []string{
		"-d", "Westinghouse_WHTP203e",
		"-o", "media=2x3in",
		"-t", DefaultDocumentName,
	}, runner.args)

	require.NotEmpty(t, runner.stdin)
	assert.NotEqual(t, original, runner.stdin)
	n, err := api.PageCount(bytes.NewReader(runner.stdin), pdfConfig())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	// the uploaded file is left as it was
	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, original, after)
}

func TestCommandStrategyPassesFilePath(t *testing.T) {
	path := testpdf.WriteFile(t, 1, 2, 3)

	runner := &fakeLP{}
	s := newTestCommand(t, runner)
	require.NoError(t, s.Print(context.Background(), commandRequest(rasterize.FromFile(path), false)))

	require.NotEmpty(t, runner.args)
	assert.Equal(t, path, runner.args[len(runner.args)-1])
	assert.Empty(t, runner.stdin)
}

func TestCommandStrategyStreamsBytes(t *testing.T) {
	data := testpdf.Build(t, 2, 2, 3)

	runner := &fakeLP{}
	s := newTestCommand(t, runner)
	require.NoError(t, s.Print(context.Background(), commandRequest(rasterize.FromBytes(data), false)))

	assert.Equal(t, data, runner.stdin)
	assert.Len(t, runner.args, 6)
}

func TestCommandStrategyInvalidDocument(t *testing.T) {
	runner := &fakeLP{}
	s := newTestCommand(t, runner)

	err := s.Print(context.Background(), commandRequest(rasterize.FromBytes([]byte("not a pdf")), true))
	assert.True(t, printerr.Is(err, printerr.InvalidDocument), "got %v", err)
	assert.Zero(t, runner.runs)
}

func TestCommandStrategyMissingFile(t *testing.T) {
	runner := &fakeLP{}
	s := newTestCommand(t, runner)

	err := s.Print(context.Background(), commandRequest(rasterize.FromFile("/nonexistent/doc.pdf"), false))
	assert.True(t, printerr.Is(err, printerr.InvalidDocument))
	assert.Zero(t, runner.runs)
}

func TestCommandStrategyLPFailure(t *testing.T) {
	runner := &fakeLP{err: &toolchain.ExitError{Name: "lp", Code: 1, Stderr: "lp: The printer or class does not exist."}}
	s := newTestCommand(t, runner)

	err := s.Print(context.Background(), commandRequest(rasterize.FromBytes(testpdf.Build(t, 1, 2, 3)), false))
	assert.True(t, printerr.Is(err, printerr.DeviceError))

	var exitErr *toolchain.ExitError
	assert.True(t, errors.As(err, &exitErr))
}

func TestCommandStrategyLPVanished(t *testing.T) {
	runner := &fakeLP{err: toolchain.ErrNotFound}
	s := newTestCommand(t, runner)

	err := s.Print(context.Background(), commandRequest(rasterize.FromBytes(testpdf.Build(t, 1, 2, 3)), false))
	assert.True(t, printerr.Is(err, printerr.ToolchainUnavailable))
}

func TestCommandStrategyWithoutLP(t *testing.T) {
	runner := &fakeLP{}
	s := NewCommandStrategy(&CommandConfig{LPPath: "/nonexistent/lp", Runner: runner})

	err := s.Print(context.Background(), commandRequest(rasterize.FromBytes(testpdf.Build(t, 1, 2, 3)), false))
	assert.True(t, printerr.Is(err, printerr.ToolchainUnavailable))
	assert.Zero(t, runner.runs)
	assert.Equal(t, "lp", s.Name())
}
