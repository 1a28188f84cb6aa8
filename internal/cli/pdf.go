package cli

import (
	"context"
	"fmt"

	"github.com/harun/doc2pdf/pkg/convert"
	"github.com/spf13/cobra"
)

var (
	mergeOutput    string
	splitRanges    []string
	splitOutPrefix string
	compressOutput string
	ocrOutput      string
	ocrLang        string
	urlOutput      string
)

var mergeCmd = &cobra.Command{
	Use:   "merge <pdf> <pdf> [pdf...]",
	Short: "Merge PDFs in the given order",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := mergeOutput
		if output == "" {
			output = siblingPath(args[0], "_merged", ".pdf")
		}
		return runLocal(cmd, func(ctx context.Context, d *convert.Dispatcher) error {
			return printResult(cmd, fmt.Sprintf("Merged %d PDFs", len(args)), d.Merge(ctx, args, output))
		})
	},
}

var splitCmd = &cobra.Command{
	Use:   "split <pdf>",
	Short: "Split a PDF into pages or page ranges",
	Long: `Split a PDF. Without --range every page becomes its own file.
Ranges are 1-based and inclusive, e.g. --range 1-3 --range 5 or --range 1-3,5.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ranges, err := convert.ParsePageRanges(splitRanges)
		if err != nil {
			return err
		}
		prefix := splitOutPrefix
		if prefix == "" {
			prefix = siblingPath(args[0], "", "")
		}
		return runLocal(cmd, func(ctx context.Context, d *convert.Dispatcher) error {
			outputs, err := d.Split(ctx, args[0], ranges, prefix)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Split %s into %d files:\n", args[0], len(outputs))
			for _, o := range outputs {
				fmt.Fprintf(out, "  %s\n", o)
			}
			return nil
		})
	},
}

var compressCmd = &cobra.Command{
	Use:   "compress <pdf>",
	Short: "Reduce the size of a PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runLocal(cmd, func(ctx context.Context, d *convert.Dispatcher) error {
			return printResult(cmd, "Compressed "+args[0], d.CompressPDF(ctx, args[0], compressOutput))
		})
	},
}

var ocrCmd = &cobra.Command{
	Use:   "ocr <pdf|image>",
	Short: "Make a PDF searchable or print the text of an image",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		lang, err := convert.NormalizeOCRLanguage(ocrLang, "eng")
		if err != nil {
			return err
		}
		input := args[0]
		return runLocal(cmd, func(ctx context.Context, d *convert.Dispatcher) error {
			switch convert.Classify(input) {
			case convert.CategoryPDF:
				output := ocrOutput
				if output == "" {
					output = siblingPath(input, "_ocr", ".pdf")
				}
				return printResult(cmd, "OCR "+input, d.OCRPDF(ctx, input, output, lang))
			case convert.CategoryImage:
				text, err := d.OCRImage(ctx, input, lang)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			default:
				return &convert.UnsupportedFormatError{
					Ext:       convert.Ext(input),
					Supported: append([]string{".pdf"}, convert.Extensions(convert.CategoryImage)...),
				}
			}
		})
	},
}

var url2pdfCmd = &cobra.Command{
	Use:   "url2pdf <url>",
	Short: "Render a web page to PDF",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		output := urlOutput
		if output == "" {
			output = "webpage.pdf"
		}
		return runLocal(cmd, func(ctx context.Context, d *convert.Dispatcher) error {
			return printResult(cmd, "Rendered "+args[0], d.ConvertURL(ctx, args[0], output))
		})
	},
}

func init() {
	mergeCmd.Flags().StringVarP(&mergeOutput, "output", "o", "", "output PDF path")
	splitCmd.Flags().StringSliceVar(&splitRanges, "range", nil, "page range such as 1-3 (repeatable)")
	splitCmd.Flags().StringVar(&splitOutPrefix, "prefix", "", "output path prefix (default is the input path without .pdf)")
	compressCmd.Flags().StringVarP(&compressOutput, "output", "o", "", "output PDF path (default <name>_compressed.pdf)")
	ocrCmd.Flags().StringVarP(&ocrOutput, "output", "o", "", "output PDF path (default <name>_ocr.pdf)")
	ocrCmd.Flags().StringVar(&ocrLang, "lang", "eng", "tesseract language code, e.g. eng, deu, chi_sim")
	url2pdfCmd.Flags().StringVarP(&urlOutput, "output", "o", "", "output PDF path")

	rootCmd.AddCommand(mergeCmd, splitCmd, compressCmd, ocrCmd, url2pdfCmd)
}
