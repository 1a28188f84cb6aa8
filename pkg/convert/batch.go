package convert

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/harun/doc2pdf/pkg/compression"
	"github.com/rs/zerolog/log"
)

// BatchConvert converts every supported image in dir to its own PDF in
// outDir (dir when empty). A file that fails is logged and skipped; the
// returned slice lists the PDFs that were written.
func (d *Dispatcher) BatchConvert(ctx context.Context, dir, outDir string, level compression.Level) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: directory %s", ErrInputNotFound, dir)
	}
	if outDir == "" {
		outDir = dir
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", dir, err)
	}

	var images []string
	for _, e := range entries {
		if e.Type().IsRegular() && Classify(e.Name()) == CategoryImage {
			images = append(images, filepath.Join(dir, e.Name()))
		}
	}
	sort.Strings(images)

	if len(images) == 0 {
		log.Warn().Str("dir", dir).Msg("No supported image files found")
		return nil, nil
	}

	log.Info().Int("images", len(images)).Str("dir", dir).Msg("Batch conversion started")

	names := batchOutputNames(images)
	var converted []string
	for _, img := range images {
		if err := ctx.Err(); err != nil {
			return converted, err
		}

		out := filepath.Join(outDir, names[img])
		r := d.ConvertImages(ctx, []string{img}, out, level)
		if !r.Success {
			log.Error().Err(r.Err).Str("file", img).Msg("Failed to convert file, skipping")
			continue
		}
		converted = append(converted, r.OutputPath)
	}

	log.Info().
		Int("converted", len(converted)).
		Int("failed", len(images)-len(converted)).
		Msg("Batch conversion finished")
	return converted, nil
}

// batchOutputNames maps each image to its PDF file name. Images sharing a
// stem (a.jpg, a.png) keep their extension in the name so neither
// overwrites the other.
func batchOutputNames(images []string) map[string]string {
	stems := make(map[string]int, len(images))
	for _, img := range images {
		stems[strings.ToLower(baseName(img))]++
	}

	names := make(map[string]string, len(images))
	for _, img := range images {
		stem := baseName(img)
		if stems[strings.ToLower(stem)] > 1 {
			stem += "_" + strings.TrimPrefix(Ext(img), ".")
		}
		names[img] = stem + ".pdf"
	}
	return names
}
