package convert

import (
	"bytes"
	"context"
	"encoding/binary"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"

	"github.com/harun/doc2pdf/pkg/compression"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeOrientedJPEG writes a w x h JPEG whose EXIF block carries orientation o.
func writeOrientedJPEG(t *testing.T, dir, name string, w, h int, o uint16) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 6), G: uint8(y * 9), B: 80, A: 255})
		}
	}
	var enc bytes.Buffer
	require.NoError(t, jpeg.Encode(&enc, img, nil))

	var exif bytes.Buffer
	exif.WriteString("Exif\x00\x00")
	exif.WriteString("II*\x00")
	_ = binary.Write(&exif, binary.LittleEndian, uint32(8))
	_ = binary.Write(&exif, binary.LittleEndian, uint16(1))
	_ = binary.Write(&exif, binary.LittleEndian, []uint16{0x0112, 3})
	_ = binary.Write(&exif, binary.LittleEndian, uint32(1))
	_ = binary.Write(&exif, binary.LittleEndian, []uint16{o, 0})
	_ = binary.Write(&exif, binary.LittleEndian, uint32(0))

	raw := enc.Bytes()
	var out bytes.Buffer
	out.Write(raw[:2])
	out.Write([]byte{0xff, 0xe1})
	_ = binary.Write(&out, binary.BigEndian, uint16(exif.Len()+2))
	out.Write(exif.Bytes())
	out.Write(raw[2:])

	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, out.Bytes(), 0600))
	return path
}

func TestJPEGOrientation(t *testing.T) {
	dir := t.TempDir()

	assert.Equal(t, 6, jpegOrientation(writeOrientedJPEG(t, dir, "six.jpg", 8, 4, 6)))
	assert.Equal(t, 3, jpegOrientation(writeOrientedJPEG(t, dir, "three.jpg", 8, 4, 3)))
	assert.Equal(t, orientationNormal, jpegOrientation(writePNG(t, dir, "flat.png", 8, 4)))
	assert.Equal(t, orientationNormal, jpegOrientation(writeCorrupt(t, dir, "junk.jpg")))
	assert.Equal(t, orientationNormal, jpegOrientation(filepath.Join(dir, "missing.jpg")))
}

func TestConvertImages_AppliesEXIFOrientationWithoutCompression(t *testing.T) {
	d := newTestDispatcher(t)
	src := writeOrientedJPEG(t, t.TempDir(), "rotated.jpg", 40, 20, 6)

	for _, level := range []compression.Level{"", compression.Low} {
		t.Run("level="+string(level), func(t *testing.T) {
			out := filepath.Join(t.TempDir(), "rotated.pdf")

			r := d.ConvertImages(context.Background(), []string{src}, out, level)
			require.True(t, r.Success, r.ErrorMessage)

			dims, err := api.PageDimsFile(out)
			require.NoError(t, err)
			require.Len(t, dims, 1)
			assert.Less(t, dims[0].Width, dims[0].Height, "page should be portrait after rotation")
			assert.Empty(t, listDir(t, d.WorkDir()))
		})
	}
}

func TestConvertImages_UprightJPEGIsEmbeddedAsIs(t *testing.T) {
	d := newTestDispatcher(t)
	src := writeOrientedJPEG(t, t.TempDir(), "upright.jpg", 40, 20, 1)
	out := filepath.Join(t.TempDir(), "upright.pdf")

	r := d.ConvertImages(context.Background(), []string{src}, out, "")
	require.True(t, r.Success, r.ErrorMessage)

	dims, err := api.PageDimsFile(out)
	require.NoError(t, err)
	require.Len(t, dims, 1)
	assert.Greater(t, dims[0].Width, dims[0].Height)
}
