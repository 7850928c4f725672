package printerr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessage(t *testing.T) {
	err := New(DeviceError, "page 2 rejected", nil)
	assert.Equal(t, "page 2 rejected", err.Error())

	cause := errors.New("paper out")
	err = New(DeviceError, "page 2 rejected", cause)
	assert.Equal(t, "page 2 rejected: paper out", err.Error())
	assert.ErrorIs(t, err, cause)
}

func TestKindOf(t *testing.T) {
	err := fmt.Errorf("print: %w", New(EmptyDocument, "document has no pages", nil))
	assert.Equal(t, EmptyDocument, KindOf(err))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestIs(t *testing.T) {
	err := fmt.Errorf("dispatch: %w", New(NoPagesToPrint, "nothing to print", nil))

	assert.True(t, Is(err, NoPagesToPrint))
	assert.False(t, Is(err, EmptyDocument))
	assert.False(t, Is(errors.New("plain"), DeviceError))
}

func TestWrap(t *testing.T) {
	assert.NoError(t, Wrap(DeviceError, "ignored", nil))

	wrapped := Wrap(DeviceError, "lp failed", errors.New("exit status 1"))
	assert.True(t, Is(wrapped, DeviceError))
	assert.Equal(t, "lp failed: exit status 1", wrapped.Error())

	classified := New(ToolchainUnavailable, "lp not found", nil)
	assert.Same(t, classified, Wrap(DeviceError, "lp failed", classified))
}
