// Package testpdf builds small PDF documents for tests.
package testpdf

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/phpdave11/gofpdf"
)

// Build returns a PDF with pages pages of widthIn x heightIn inches, each labelled with
// its page number.
func Build(t testing.TB, pages int, widthIn, heightIn float64) []byte {
	t.Helper()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "in",
		Size:    gofpdf.SizeType{Wd: widthIn, Ht: heightIn},
	})
	pdf.SetMargins(0, 0, 0)
	pdf.SetAutoPageBreak(false, 0)
	pdf.SetFont("Helvetica", "", 12)
	for i := 0; i < pages; i++ {
		pdf.AddPage()
		pdf.Text(0.2, 0.5, fmt.Sprintf("page %d", i+1))
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		t.Fatalf("build test pdf: %v", err)
	}
	return buf.Bytes()
}

// WriteFile writes a generated PDF into a temporary directory and returns its path.
func WriteFile(t testing.TB, pages int, widthIn, heightIn float64) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "doc.pdf")
	if err := os.WriteFile(path, Build(t, pages, widthIn, heightIn), 0o644); err != nil {
		t.Fatalf("write test pdf: %v", err)
	}
	return path
}
