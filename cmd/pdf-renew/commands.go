package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/a3tai/mcp-pdf-renewal/internal/config"
	"github.com/a3tai/mcp-pdf-renewal/internal/pdf"
	"github.com/a3tai/mcp-pdf-renewal/internal/session"
)

// app carries what every subcommand needs after flags are parsed
type app struct {
	cfg     *config.Config
	service *pdf.Service
	json    bool
}

func newRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "pdf-renew",
		Short: "Renew order forms and splice them with old contract packages",
		Long: `pdf-renew replaces the outdated clause of a new order form, drops the old
order form from a previous contract package and appends the remaining addenda.

Input paths are resolved inside --dir (default: the current directory) and
output is written to --outdir. Every option can also be set through
MCP_PDF_<OPTION> environment variables or a --config file.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}

	config.RegisterFlags(rootCmd.PersistentFlags(), config.DefaultConfig())
	rootCmd.PersistentFlags().BoolVar(&a.json, "json", false, "Print results as JSON")

	rootCmd.AddCommand(analyzeCmd(a))
	rootCmd.AddCommand(locateCmd(a))
	rootCmd.AddCommand(replaceCmd(a))
	rootCmd.AddCommand(renewCmd(a))
	rootCmd.AddCommand(companyCmd(a))

	return rootCmd
}

// setup loads the configuration from the merged flag set and builds the service
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := config.FromFlagSet(cmd.Flags())
	if err != nil {
		return err
	}

	opts, err := cfg.WorkflowOptions()
	if err != nil {
		return err
	}

	service, err := pdf.NewService(pdf.ServiceOptions{
		MaxFileSize:     cfg.MaxFileSize,
		InputDirectory:  cfg.PDFDirectory,
		OutputDirectory: cfg.OutputDir(),
		Workflow:        opts,
		Logger:          session.NewLogger(cfg.LogLevel, cmd.ErrOrStderr()),
	})
	if err != nil {
		return err
	}

	a.cfg = cfg
	a.service = service
	return nil
}

// print writes v as JSON when --json is set, otherwise calls text
func (a *app) print(w io.Writer, v any, text func(io.Writer)) error {
	if !a.json {
		text(w)
		return nil
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func analyzeCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <old-package.pdf>",
		Short: "Report where the order form ends in an old package",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.service.AnalyzePackage(cmd.Context(), pdf.PDFAnalyzePackageRequest{Path: args[0]})
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "Total pages: %d\n", res.TotalPages)
				fmt.Fprintf(w, "Order form pages: %d\n", res.SuggestedFormPages)
				if !res.Detected {
					fmt.Fprintln(w, "No signature page found; using the fallback page count")
				}
			})
		},
	}
}

func locateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "locate <file.pdf>",
		Short: "Find the clause selected by --needle and --match",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.service.LocateText(cmd.Context(), pdf.PDFLocateTextRequest{Path: args[0]})
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				if !res.Found {
					fmt.Fprintln(w, "Not found")
					return
				}
				r := res.Region.Rect
				fmt.Fprintf(w, "Page %d at (%.1f, %.1f)-(%.1f, %.1f)\n", res.Page, r.X0, r.Y0, r.X1, r.Y1)
				fmt.Fprintf(w, "Text: %s\n", res.Region.Text)
			})
		},
	}
}

func replaceCmd(a *app) *cobra.Command {
	var output, text string

	cmd := &cobra.Command{
		Use:   "replace <new-form.pdf>",
		Short: "Replace the outdated clause of a new order form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.service.ReplaceText(cmd.Context(), pdf.PDFReplaceTextRequest{
				Path:   args[0],
				Text:   text,
				Output: output,
			})
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "Wrote %s (%d pages)\n", res.OutputPath, res.Pages)
				printReplacement(w, res.Replacement.Located, res.Replacement.Applied, res.Replacement.Error)
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file name (default: '<input> - Updated.pdf')")
	cmd.Flags().StringVar(&text, "text", "", "Replacement clause (default: --replacement)")
	return cmd
}

func renewCmd(a *app) *cobra.Command {
	var (
		output      string
		text        string
		formEndPage int
	)

	cmd := &cobra.Command{
		Use:   "renew <new-form.pdf> <old-package.pdf>",
		Short: "Produce the renewed contract",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := pdf.PDFRenewPackageRequest{
				NewFormPath:    args[0],
				OldPackagePath: args[1],
				Text:           text,
				Output:         output,
			}
			if cmd.Flags().Changed("form-end-page") {
				req.FormEndPage = &formEndPage
			}

			res, err := a.service.RenewPackage(cmd.Context(), req)
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintf(w, "Wrote %s\n", res.OutputPath)
				fmt.Fprintf(w, "Company: %s\n", res.Company)
				fmt.Fprintf(w, "Pages: %d (removed %d old form pages, kept %d addenda)\n",
					res.TotalPages, res.OldFormPages, res.AddendaPreserved)
				if res.Replacement != nil {
					printReplacement(w, res.Replacement.Located, res.Replacement.Applied, res.Replacement.Error)
				}
				for _, warning := range res.Warnings {
					fmt.Fprintf(w, "Warning: %s\n", warning)
				}
			})
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file name (default: 'Order Form - <company> - <date> - Renewal.pdf')")
	cmd.Flags().StringVar(&text, "text", "", "Replacement clause (default: --replacement)")
	cmd.Flags().IntVar(&formEndPage, "form-end-page", 0, "1-based last page of the old order form (default: detected)")
	return cmd
}

func companyCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "company <new-form.pdf>",
		Short: "Print the company name of an order form",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.service.ExtractCompany(cmd.Context(), pdf.PDFExtractCompanyRequest{Path: args[0]})
			if err != nil {
				return err
			}
			return a.print(cmd.OutOrStdout(), res, func(w io.Writer) {
				fmt.Fprintln(w, res.Company)
			})
		},
	}
}

func printReplacement(w io.Writer, located, applied bool, errMsg string) {
	var status []string
	if located {
		status = append(status, "clause located")
	} else {
		status = append(status, "clause not found")
	}
	if applied {
		status = append(status, "replacement drawn")
	}
	if errMsg != "" {
		status = append(status, "failed: "+errMsg)
	}
	fmt.Fprintf(w, "Replacement: %s\n", strings.Join(status, ", "))
}
