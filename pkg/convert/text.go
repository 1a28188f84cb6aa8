package convert

import (
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"github.com/go-pdf/fpdf"
	"github.com/rs/zerolog/log"
)

// Letter page geometry in points.
const (
	textPageWidth  = 612.0
	textPageHeight = 792.0
	textMargin     = 54.0 // 0.75in
	textFontSize   = 11.0
	textLeading    = 14.0
	textMinChars   = 40
	textTabWidth   = 8
)

// textLineWidth is the wrap width in characters for the usable page width,
// assuming an average glyph of 0.6em.
func textLineWidth() int {
	usable := (textPageWidth - 2*textMargin) / (textFontSize * 0.6)
	n := int(usable)
	if n < textMinChars {
		n = textMinChars
	}
	return n
}

type placedLine struct {
	y    float64 // distance from the bottom edge
	text string
}

// layoutText wraps content and assigns every segment a page and baseline.
// Blank source lines advance the cursor without forcing a page break.
func layoutText(content string, width int) [][]placedLine {
	pages := [][]placedLine{nil}
	y := textPageHeight - textMargin

	content = strings.ReplaceAll(content, "\r\n", "\n")
	for _, raw := range strings.Split(content, "\n") {
		line := strings.TrimRight(raw, "\r")
		if line == "" {
			y -= textLeading
			continue
		}
		for _, segment := range wrapLine(line, width) {
			if y < textMargin {
				pages = append(pages, nil)
				y = textPageHeight - textMargin
			}
			last := len(pages) - 1
			pages[last] = append(pages[last], placedLine{y: y, text: segment})
			y -= textLeading
		}
	}
	return pages
}

// wrapLine greedily packs whitespace-separated words into lines of at most
// width runes. Words longer than width are broken. A line holding only
// whitespace yields a single empty segment.
func wrapLine(line string, width int) []string {
	line = strings.ReplaceAll(line, "\t", strings.Repeat(" ", textTabWidth))
	words := strings.Fields(line)
	if len(words) == 0 {
		return []string{""}
	}

	var (
		out []string
		cur strings.Builder
		n   int
	)
	flush := func() {
		if n > 0 {
			out = append(out, cur.String())
			cur.Reset()
			n = 0
		}
	}

	for _, w := range words {
		wl := utf8.RuneCountInString(w)
		switch {
		case n > 0 && n+1+wl <= width:
			cur.WriteByte(' ')
			cur.WriteString(w)
			n += 1 + wl
		case wl <= width:
			flush()
			cur.WriteString(w)
			n = wl
		default:
			// Fill the current line first, then emit width-sized chunks.
			runes := []rune(w)
			if n > 0 && n+1 < width {
				room := width - n - 1
				cur.WriteByte(' ')
				cur.WriteString(string(runes[:room]))
				n = width
				runes = runes[room:]
			}
			flush()
			for len(runes) > width {
				out = append(out, string(runes[:width]))
				runes = runes[width:]
			}
			cur.WriteString(string(runes))
			n = len(runes)
		}
	}
	flush()
	return out
}

// TextConverter lays out plain text and Markdown source on Letter pages.
type TextConverter struct{}

func NewTextConverter() *TextConverter { return &TextConverter{} }

func (c *TextConverter) Convert(input, output string) Result {
	if err := requireCategory(input, CategoryText); err != nil {
		return failed(err)
	}
	if err := requireFile(input); err != nil {
		return failed(err)
	}

	data, err := os.ReadFile(input)
	if err != nil {
		return failed(fmt.Errorf("failed to read %s: %w", input, err))
	}
	content := strings.ToValidUTF8(string(data), "�")

	pages := layoutText(content, textLineWidth())
	if err := renderText(pages, output); err != nil {
		os.Remove(output)
		return failed(err)
	}

	log.Debug().Str("input", input).Int("pages", len(pages)).Msg("Text rendered to PDF")

	outBytes, err := fileSize(output)
	if err != nil {
		return failed(err)
	}
	return succeeded(Result{
		OutputPath:  output,
		InputBytes:  int64(len(data)),
		OutputBytes: outBytes,
		Format:      Ext(input),
	})
}

func renderText(pages [][]placedLine, output string) error {
	pdf := fpdf.New("P", "pt", "Letter", "")
	pdf.SetMargins(textMargin, textMargin, textMargin)
	pdf.SetAutoPageBreak(false, textMargin)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	for _, page := range pages {
		pdf.AddPage()
		pdf.SetFont("Times", "", textFontSize)
		_, h := pdf.GetPageSize()
		for _, l := range page {
			pdf.Text(textMargin, h-l.y, tr(l.text))
		}
	}

	if err := pdf.OutputFileAndClose(output); err != nil {
		return fmt.Errorf("failed to write PDF: %w", err)
	}
	return nil
}
