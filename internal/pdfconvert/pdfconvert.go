// Package pdfconvert is the PDF→image conversion collaborator. The
// specification treats the actual conversion library as external,
// specified only by interface: jobgate depends on Converter, not on any
// particular PDF library, and the core job-dispatch logic never imports
// this package's internals directly, only the interface.
package pdfconvert

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"os"
	"path/filepath"
)

// Converter renders every page of the PDF at pdfPath into outDir, one
// image-NN.png per page (zero-padded to two digits), and reports the page
// count. threadHint is advisory parallelism the real conversion library
// would use internally.
type Converter interface {
	Convert(pdfPath, outDir string, threadHint int) (pages int, err error)
}

// pageMarker and pagesMarker are the PDF object-dictionary markers used to
// estimate page count. Every /Type /Pages node also contains the substring
// "/Type /Page" as a prefix, so subtracting the two counts isolates leaf
// page objects.
const (
	pageMarker  = "/Type /Page"
	pagesMarker = "/Type /Pages"
)

// Basic is a minimal stand-in conversion implementation: it estimates page
// count by scanning the PDF's object dictionaries for page markers, then
// writes a same-sized placeholder PNG per page. It exists to satisfy the
// Converter contract for an out-of-scope collaborator, not to be a real
// PDF renderer.
type Basic struct{}

// NewBasic returns a Basic converter.
func NewBasic() *Basic {
	return &Basic{}
}

// Convert implements Converter.
func (b *Basic) Convert(pdfPath, outDir string, threadHint int) (int, error) {
	data, err := os.ReadFile(pdfPath)
	if err != nil {
		return 0, fmt.Errorf("pdfconvert: read %s: %w", pdfPath, err)
	}

	pages := estimatePageCount(data)
	if pages < 1 {
		pages = 1
	}

	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return 0, fmt.Errorf("pdfconvert: create output dir %s: %w", outDir, err)
	}

	for i := 0; i < pages; i++ {
		name := fmt.Sprintf("image-%02d.png", i)
		if err := writePlaceholderPNG(filepath.Join(outDir, name)); err != nil {
			return 0, fmt.Errorf("pdfconvert: write page %d: %w", i, err)
		}
	}

	return pages, nil
}

func estimatePageCount(data []byte) int {
	total := bytes.Count(data, []byte(pageMarker))
	containers := bytes.Count(data, []byte(pagesMarker))
	return total - containers
}

func writePlaceholderPNG(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	img := image.NewRGBA(image.Rect(0, 0, 8, 8))
	return png.Encode(f, img)
}
