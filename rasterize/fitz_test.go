package rasterize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nixxel-company-limited/pdf-print-server/internal/testpdf"
	"github.com/nixxel-company-limited/pdf-print-server/printerr"
)

func TestFitzRasterizeBytes(t *testing.T) {
	r := NewFitzRasterizer(nil)
	data := testpdf.Build(t, 3, 2, 3)

	images, err := r.Rasterize(context.Background(), FromBytes(data), 100)
	require.NoError(t, err)
	require.Len(t, images, 3)

	for _, img := range images {
		b := img.Bounds()
		assert.InDelta(t, 200, b.Dx(), 1)
		assert.InDelta(t, 300, b.Dy(), 1)
	}
}

func TestFitzRasterizeFile(t *testing.T) {
	r := NewFitzRasterizer(nil)
	path := testpdf.WriteFile(t, 2, 4, 6)

	images, err := r.Rasterize(context.Background(), FromFile(path), 50)
	require.NoError(t, err)
	require.Len(t, images, 2)
	assert.InDelta(t, 200, images[0].Bounds().Dx(), 1)
	assert.InDelta(t, 300, images[0].Bounds().Dy(), 1)
}

func TestFitzRasterizeInvalidDocument(t *testing.T) {
	r := NewFitzRasterizer(nil)

	_, err := r.Rasterize(context.Background(), FromBytes([]byte("this is not a pdf")), 100)
	require.Error(t, err)
	assert.True(t, printerr.Is(err, printerr.InvalidDocument))
}

func TestFitzRasterizeInvalidDPI(t *testing.T) {
	r := NewFitzRasterizer(nil)

	_, err := r.Rasterize(context.Background(), FromBytes(testpdf.Build(t, 1, 2, 3)), 0)
	assert.True(t, printerr.Is(err, printerr.InvalidRequest))
}
