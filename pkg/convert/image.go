package convert

import (
	"fmt"
	"image"
	"image/color"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/harun/doc2pdf/pkg/compression"
	"github.com/harun/doc2pdf/pkg/ledger"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
	"github.com/rs/zerolog/log"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"
)

// ImageInfo is what the decoder learns from an image header.
type ImageInfo struct {
	Format string // upper-case decoder name, e.g. "JPEG"
	Width  int
	Height int
	Size   int64
}

func (i ImageInfo) Dimensions() string {
	return fmt.Sprintf("%dx%d", i.Width, i.Height)
}

// ReadImageInfo decodes only the header of path.
func ReadImageInfo(path string) (ImageInfo, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return ImageInfo{}, notFound(path)
		}
		return ImageInfo{}, err
	}
	defer f.Close()

	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return ImageInfo{}, fmt.Errorf("%w: %s: %v", ErrInvalidImage, path, err)
	}

	info := ImageInfo{
		Format: strings.ToUpper(format),
		Width:  cfg.Width,
		Height: cfg.Height,
	}
	if st, err := f.Stat(); err == nil {
		info.Size = st.Size()
	}
	return info, nil
}

// pdfcpu embeds these directly; everything else is normalized to PNG first.
var importableExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".tiff": true,
}

// ImageConverter writes one or more images as consecutive PDF pages.
type ImageConverter struct {
	workDir string
}

func NewImageConverter(workDir string) *ImageConverter {
	return &ImageConverter{workDir: workDir}
}

// Convert writes inputs to output in order. A valid level re-encodes every
// image as JPEG at that quality after applying EXIF orientation; the zero
// level embeds images unchanged where possible.
func (c *ImageConverter) Convert(inputs []string, output string, level compression.Level) Result {
	if len(inputs) == 0 {
		return failed(ErrEmptyInput)
	}

	for _, in := range inputs {
		if err := requireCategory(in, CategoryImage); err != nil {
			return failed(err)
		}
		if err := requireFile(in); err != nil {
			return failed(err)
		}
	}

	scratch := ledger.New("image-intermediates")
	defer scratch.ClearAll()

	var (
		working    []string
		totalBytes int64
		first      ImageInfo
	)

	for i, in := range inputs {
		info, err := ReadImageInfo(in)
		if err != nil {
			return failed(err)
		}
		if i == 0 {
			first = info
		}
		totalBytes += info.Size

		path, err := c.workingCopy(in, level, scratch)
		if err != nil {
			return failed(fmt.Errorf("failed to prepare %s: %w", in, err))
		}
		working = append(working, path)
	}

	// ImportImagesFile appends to an existing file.
	if err := os.Remove(output); err != nil && !os.IsNotExist(err) {
		return failed(fmt.Errorf("failed to replace %s: %w", output, err))
	}

	if err := api.ImportImagesFile(working, output, pdfcpu.DefaultImportConfig(), NewPDFConfig()); err != nil {
		os.Remove(output)
		return failed(fmt.Errorf("failed to write PDF: %w", err))
	}

	outBytes, err := fileSize(output)
	if err != nil {
		return failed(err)
	}

	log.Debug().
		Int("images", len(inputs)).
		Str("compression", level.String()).
		Str("output", output).
		Msg("Images written to PDF")

	r := Result{
		OutputPath:  output,
		InputBytes:  totalBytes,
		OutputBytes: outBytes,
		Compression: level,
		InputCount:  len(inputs),
	}
	if len(inputs) == 1 {
		r.Format = first.Format
		r.Dimensions = first.Dimensions()
	}
	return succeeded(r)
}

// workingCopy returns the file to embed for in. Intermediates are registered
// with scratch before they are written.
func (c *ImageConverter) workingCopy(in string, level compression.Level, scratch *ledger.Ledger) (string, error) {
	if !level.Valid() && importableExts[Ext(in)] && jpegOrientation(in) == orientationNormal {
		return in, nil
	}

	img, err := imaging.Open(in, imaging.AutoOrientation(true))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}

	if !level.Valid() {
		out := tempPath(c.workDir, "norm", ".png")
		scratch.Add(out)
		if err := imaging.Save(img, out); err != nil {
			return "", err
		}
		return out, nil
	}

	// JPEG has no alpha channel; flatten onto white so transparent regions
	// do not turn black.
	b := img.Bounds()
	flat := imaging.New(b.Dx(), b.Dy(), color.White)
	flat = imaging.Overlay(flat, img, image.Pt(0, 0), 1.0)

	out := tempPath(c.workDir, "cmp", ".jpg")
	scratch.Add(out)
	if err := imaging.Save(flat, out, imaging.JPEGQuality(level.Quality())); err != nil {
		return "", err
	}
	return out, nil
}
