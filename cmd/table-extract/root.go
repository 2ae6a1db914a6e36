package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/maltedev/creative-center-scraper/internal/dom"
	"github.com/maltedev/creative-center-scraper/internal/table"
	"github.com/spf13/cobra"
)

type options struct {
	timeout          time.Duration
	minProductLength int
	pretty           bool
}

func newRootCmd(stdin io.Reader, stdout io.Writer, logger *slog.Logger) *cobra.Command {
	opts := options{}

	cmd := &cobra.Command{
		Use:   "table-extract [file|-]",
		Short: "table-extract reads a saved top-products page and prints its table as JSON.",
		Long: "table-extract reads a saved top-products page and prints its table as JSON.\n" +
			"Reads standard input when no file is given or the file is \"-\".",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := stdin
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return fmt.Errorf("failed to open input: %w", err)
				}
				defer f.Close()
				in = f
			}
			return run(cmd, in, stdout, opts, logger)
		},
	}

	cmd.Flags().DurationVar(&opts.timeout, "timeout", 2*time.Second, "How long to look for data rows.")
	cmd.Flags().IntVar(&opts.minProductLength, "min-product-length", table.DefaultMinProductLength, "Rows with a shorter product name are dropped.")
	cmd.Flags().BoolVar(&opts.pretty, "pretty", false, "Indent the JSON output.")

	return cmd
}

func run(cmd *cobra.Command, in io.Reader, out io.Writer, opts options, logger *slog.Logger) error {
	if opts.minProductLength < 1 {
		return fmt.Errorf("--min-product-length must be at least 1")
	}

	doc, err := dom.NewDocument(in)
	if err != nil {
		return err
	}

	extractor := table.NewExtractor(&table.Options{
		RowWaitTimeout:   opts.timeout,
		MinProductLength: opts.minProductLength,
	}, logger)

	result, err := extractor.Extract(cmd.Context(), doc)
	if err != nil {
		return err
	}

	enc := json.NewEncoder(out)
	if opts.pretty {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(result); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}

	logger.Info("table extracted", "items", len(result.Items), "headers", len(result.Headers))
	return nil
}
