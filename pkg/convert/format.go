package convert

import (
	"path/filepath"
	"sort"
	"strings"
)

// Category groups extensions by the converter that handles them.
type Category string

const (
	CategoryImage    Category = "image"
	CategoryDocument Category = "document"
	CategoryText     Category = "text"
	CategoryHTML     Category = "html"
	CategoryPDF      Category = "pdf"
	CategoryUnknown  Category = "unknown"
)

var (
	imageExts    = []string{".jpg", ".jpeg", ".png", ".bmp", ".tiff", ".gif", ".webp"}
	documentExts = []string{".docx", ".pptx", ".xlsx"}
	textExts     = []string{".txt", ".md"}
	htmlExts     = []string{".html", ".htm"}
	pdfExts      = []string{".pdf"}
)

var categoryByExt = func() map[string]Category {
	m := make(map[string]Category)
	for _, e := range imageExts {
		m[e] = CategoryImage
	}
	for _, e := range documentExts {
		m[e] = CategoryDocument
	}
	for _, e := range textExts {
		m[e] = CategoryText
	}
	for _, e := range htmlExts {
		m[e] = CategoryHTML
	}
	for _, e := range pdfExts {
		m[e] = CategoryPDF
	}
	return m
}()

// Ext returns the lower-cased extension of path, including the dot.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// Classify maps a path or bare extension to its category.
func Classify(pathOrExt string) Category {
	if c, ok := categoryByExt[Ext(pathOrExt)]; ok {
		return c
	}
	return CategoryUnknown
}

// Extensions returns the extensions of one category in display order.
func Extensions(c Category) []string {
	var src []string
	switch c {
	case CategoryImage:
		src = imageExts
	case CategoryDocument:
		src = documentExts
	case CategoryText:
		src = textExts
	case CategoryHTML:
		src = htmlExts
	case CategoryPDF:
		src = pdfExts
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}

// AllExtensions returns every accepted extension, sorted.
func AllExtensions() []string {
	out := make([]string, 0, len(categoryByExt))
	for e := range categoryByExt {
		out = append(out, e)
	}
	sort.Strings(out)
	return out
}

func requireCategory(path string, c Category) error {
	if Classify(path) != c {
		return &UnsupportedFormatError{Ext: Ext(path), Supported: Extensions(c)}
	}
	return nil
}
