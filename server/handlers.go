package server

import (
	"context"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/nixxel-company-limited/pdf-print-server/printerr"
	"github.com/nixxel-company-limited/pdf-print-server/printing"
	"github.com/nixxel-company-limited/pdf-print-server/rasterize"
)

// printForm holds the optional per-request overrides.
type printForm struct {
	PageWidth    *float64 `form:"page_width" binding:"omitempty,gt=0"`
	PageHeight   *float64 `form:"page_height" binding:"omitempty,gt=0"`
	DPI          *int     `form:"dpi" binding:"omitempty,gt=0"`
	Rotate       *bool    `form:"rotate"`
	DocumentName string   `form:"document_name" binding:"max=255"`
}

// StatusFor maps an error kind to its HTTP status.
func StatusFor(kind printerr.Kind) int {
	switch kind {
	case printerr.InvalidRequest:
		return http.StatusBadRequest
	case printerr.InvalidDocument, printerr.EmptyDocument, printerr.NoPagesToPrint:
		return http.StatusUnprocessableEntity
	case printerr.ToolchainUnavailable:
		return http.StatusServiceUnavailable
	case printerr.DeviceError:
		return http.StatusBadGateway
	case printerr.UnsupportedPlatform:
		return http.StatusNotImplemented
	}
	return http.StatusInternalServerError
}

func (s *Server) fail(c *gin.Context, err error) {
	kind := printerr.KindOf(err)
	code := string(kind)
	if code == "" {
		code = "INTERNAL"
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(StatusFor(kind), gin.H{
		"error": err.Error(),
		"code":  code,
	})
}

func (s *Server) limitBody(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.options.MaxUploadBytes)
	c.Next()
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"strategy": s.strategy.Name(),
	})
}

func (s *Server) handlePrint(c *gin.Context) {
	file, err := c.FormFile("pdf")
	if err != nil {
		s.fail(c, printerr.New(printerr.InvalidRequest, "no PDF file provided", err))
		return
	}

	var form printForm
	if err := c.ShouldBind(&form); err != nil {
		s.fail(c, printerr.New(printerr.InvalidRequest, "invalid print options", err))
		return
	}

	src, cleanup, err := s.receive(c, file)
	if err != nil {
		s.fail(c, err)
		return
	}
	defer cleanup()

	req := s.buildRequest(form, file.Filename)
	req.Source = src

	// an accepted job runs to completion even if the client goes away
	ctx := context.WithoutCancel(c.Request.Context())
	if err := s.strategy.Print(ctx, req); err != nil {
		s.logger.Error("Print failed",
			zap.String("document", req.DocumentName),
			zap.String("kind", string(printerr.KindOf(err))),
			zap.Error(err),
		)
		s.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Print job submitted successfully"})
}

func (s *Server) buildRequest(form printForm, filename string) printing.Request {
	req := s.options.Defaults
	if form.PageWidth != nil {
		req.PageWidthIn = *form.PageWidth
	}
	if form.PageHeight != nil {
		req.PageHeightIn = *form.PageHeight
	}
	if form.DPI != nil {
		req.RasterDPI = *form.DPI
	}
	if form.Rotate != nil {
		req.RotatePages = *form.Rotate
	}
	switch {
	case form.DocumentName != "":
		req.DocumentName = form.DocumentName
	case filename != "":
		req.DocumentName = filepath.Base(filename)
	}
	return req.WithDefaults()
}

// receive stores the upload under a random name in the temp dir, or reads it into memory.
// The returned cleanup removes the stored file.
func (s *Server) receive(c *gin.Context, file *multipart.FileHeader) (rasterize.Source, func(), error) {
	if !s.options.SpoolToDisk {
		data, err := readUpload(file)
		if err != nil {
			return rasterize.Source{}, nil, printerr.New(printerr.InvalidRequest, "failed to read upload", err)
		}
		return rasterize.FromBytes(data), func() {}, nil
	}

	name := strings.ReplaceAll(uuid.NewString(), "-", "") + ".pdf"
	path := filepath.Join(s.options.TempDir, name)
	if err := c.SaveUploadedFile(file, path); err != nil {
		os.Remove(path)
		return rasterize.Source{}, nil, printerr.New(printerr.InvalidRequest, "failed to store upload", err)
	}
	s.logger.Debug("Upload stored", zap.String("path", path), zap.Int64("size", file.Size))

	cleanup := func() {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			s.logger.Warn("Failed to remove upload", zap.String("path", path), zap.Error(err))
		}
	}
	return rasterize.FromFile(path), cleanup, nil
}

func readUpload(file *multipart.FileHeader) ([]byte, error) {
	f, err := file.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}
