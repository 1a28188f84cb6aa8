package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/harun/doc2pdf/pkg/compression"
	"github.com/harun/doc2pdf/pkg/convert"
	"github.com/spf13/cobra"
)

var (
	convertOutput      string
	convertQuality     string
	convertBatch       string
	convertOutDir      string
	convertListFormats bool
)

var convertCmd = &cobra.Command{
	Use:   "convert [files...]",
	Short: "Convert images or documents to PDF",
	Long: `Convert files to PDF on this machine.

One image or document becomes one PDF next to it. Several images are combined
into a single PDF in the given order. --batch converts every image in a
directory to its own PDF.`,
	Example: `  doc2pdf convert scan.jpg
  doc2pdf convert page1.png page2.png -o pages.pdf --quality low
  doc2pdf convert report.docx
  doc2pdf convert --batch ./photos --out-dir ./pdfs
  doc2pdf convert --list-formats`,
	RunE: runConvert,
}

func init() {
	convertCmd.Flags().StringVarP(&convertOutput, "output", "o", "", "output PDF path")
	convertCmd.Flags().StringVar(&convertQuality, "quality", "", "re-encode images at high, medium or low quality")
	convertCmd.Flags().StringVar(&convertBatch, "batch", "", "convert every image in `DIR`")
	convertCmd.Flags().StringVar(&convertOutDir, "out-dir", "", "output directory for --batch (default is the batch directory)")
	convertCmd.Flags().BoolVar(&convertListFormats, "list-formats", false, "list supported file formats")
	rootCmd.AddCommand(convertCmd)
}

func runConvert(cmd *cobra.Command, args []string) error {
	if convertListFormats {
		listFormats(cmd)
		return nil
	}
	if convertBatch == "" && len(args) == 0 {
		return fmt.Errorf("no input provided; pass files or --batch DIR")
	}
	if convertBatch != "" && len(args) > 0 {
		return fmt.Errorf("--batch cannot be combined with file arguments")
	}

	// Without --quality images are embedded as they are.
	var level compression.Level
	if convertQuality != "" {
		level = compression.Parse(convertQuality)
	}

	return runLocal(cmd, func(ctx context.Context, d *convert.Dispatcher) error {
		out := cmd.OutOrStdout()

		if convertBatch != "" {
			converted, err := d.BatchConvert(ctx, convertBatch, convertOutDir, level)
			if err != nil {
				return err
			}
			if len(converted) == 0 {
				fmt.Fprintln(out, "No images found to convert")
				return nil
			}
			fmt.Fprintf(out, "Successfully converted %d images:\n", len(converted))
			for _, f := range converted {
				fmt.Fprintf(out, "  %s\n", f)
			}
			return nil
		}

		if len(args) == 1 {
			output := convertOutput
			if output == "" {
				output = siblingPath(args[0], "", ".pdf")
			}
			return printResult(cmd, "Converted "+args[0], d.ConvertFile(ctx, args[0], output, level))
		}

		for _, a := range args {
			if convert.Classify(a) != convert.CategoryImage {
				return fmt.Errorf("only images can be combined: %s", a)
			}
		}
		output := convertOutput
		if output == "" {
			output = filepath.Join(filepath.Dir(args[0]), "combined.pdf")
		}
		verb := fmt.Sprintf("Combined %d images", len(args))
		return printResult(cmd, verb, d.ConvertImages(ctx, args, output, level))
	})
}

func listFormats(cmd *cobra.Command) {
	out := cmd.OutOrStdout()
	groups := []struct {
		title    string
		category convert.Category
	}{
		{"Images", convert.CategoryImage},
		{"Documents", convert.CategoryDocument},
		{"Text", convert.CategoryText},
		{"HTML", convert.CategoryHTML},
		{"PDF tools", convert.CategoryPDF},
	}
	fmt.Fprintln(out, "Supported formats:")
	for _, g := range groups {
		fmt.Fprintf(out, "  %s:", g.title)
		for _, ext := range convert.Extensions(g.category) {
			fmt.Fprintf(out, " %s", ext)
		}
		fmt.Fprintln(out)
	}
}
