package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/dto"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/export"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/logger"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/service"
	"github.com/atorhub/ANJ-Invoice-Creature-System-v2/utils"
)

func newParseCommand(configFile *string) *cobra.Command {
	var forceOCR, save bool

	cmd := &cobra.Command{
		Use:   "parse <file>",
		Short: "Extract and parse a receipt (text, image or PDF)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			data, err := os.ReadFile(args[0])
			if err != nil {
				return fmt.Errorf("reading %s: %w", args[0], err)
			}
			if int64(len(data)) > a.cfg.MaxFileSize {
				return fmt.Errorf("%w: %s is %d bytes", dto.ErrFileTooLarge, args[0], len(data))
			}

			doc := dto.Document{
				Filename:    filepath.Base(args[0]),
				ContentType: http.DetectContentType(data),
				Data:        data,
				ForceOCR:    forceOCR,
			}
			ctx := logger.WithContext(cmd.Context(), a.log)

			if save {
				bill, err := a.bills.ParseAndSave(ctx, doc)
				if err != nil {
					return err
				}
				return writeJSON(cmd.OutOrStdout(), service.NewBillResponse(bill))
			}

			bill, err := a.bills.Parse(ctx, doc)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), service.NewParseResponse(bill))
		},
	}
	cmd.Flags().BoolVar(&forceOCR, "ocr", false, "skip embedded PDF text and OCR the pages")
	cmd.Flags().BoolVar(&save, "save", false, "add the parsed bill to the history")
	return cmd
}

func newHistoryCommand(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "history",
		Short: "List saved bills, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			bills, err := a.bills.History()
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(bills) == 0 {
				fmt.Fprintln(out, "No saved bills.")
				return nil
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSAVED\tMERCHANT\tDATE\tTOTAL\tCATEGORY")
			for _, b := range bills {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
					b.ID,
					b.SavedAt.Local().Format("2006-01-02 15:04"),
					b.DisplayName(),
					valueOr(b.Date, "-"),
					valueOr(b.Total, "-"),
					utils.CategoryLabel(b.Category),
				)
			}
			return tw.Flush()
		},
	}
}

func newExportCommand(configFile *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the bill history as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			return writeOutput(cmd.OutOrStdout(), output, a.bills.Export)
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", export.CollectionFileName, `output file, "-" for stdout`)
	return cmd
}

func newPDFCommand(configFile *string) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "pdf <id>",
		Short: "Render a saved bill as a printable PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			return writeOutput(cmd.OutOrStdout(), output, func(w io.Writer) error {
				return a.bills.RenderPDF(w, args[0])
			})
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", export.InvoiceFileName, `output file, "-" for stdout`)
	return cmd
}

func newClearCommand(configFile *string) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every saved bill",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Clear all saved bills?") {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}

			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.bills.Clear(logger.WithContext(cmd.Context(), a.log)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "History cleared.")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeOutput runs write against stdout for "-" or against a new file. A
// failed write removes the partial file.
func writeOutput(stdout io.Writer, path string, write func(io.Writer) error) error {
	if path == "-" {
		return write(stdout)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		os.Remove(path)
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", path, err)
	}
	fmt.Fprintf(stdout, "Wrote %s\n", path)
	return nil
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}

func valueOr(s *string, fallback string) string {
	if s == nil || *s == "" {
		return fallback
	}
	return *s
}
