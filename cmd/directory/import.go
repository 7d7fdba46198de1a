package main

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/gartstein/directory/internal/directory/auth"
	"github.com/gartstein/directory/internal/directory/importer"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newImportCmd(a *app) *cobra.Command {
	var (
		csvFilePath    string
		csvErrFilePath string
		numOfWorkers   int
		comma          string
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Create employees from a CSV file",
		RunE: func(cmd *cobra.Command, args []string) error {
			sep, size := utf8.DecodeRuneInString(comma)
			if size == 0 || size != len(comma) {
				return fmt.Errorf("--comma must be a single character, got %q", comma)
			}

			svc, d, err := a.buildService(true)
			if err != nil {
				return err
			}
			defer d.close()

			src, err := os.Open(csvFilePath)
			if err != nil {
				return fmt.Errorf("open %s: %w", csvFilePath, err)
			}
			defer src.Close()

			errOut, err := os.Create(csvErrFilePath)
			if err != nil {
				return fmt.Errorf("create %s: %w", csvErrFilePath, err)
			}
			defer errOut.Close()

			summary, err := importer.New(svc, numOfWorkers, sep, a.logger).Run(auth.WithSubject(cmd.Context(), "csv-import"), src, errOut)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "rows: %d, created: %d, failed: %d\n",
				summary.Rows, summary.Created, summary.Failed)
			if summary.Failed > 0 {
				a.logger.Warn("some rows were rejected", zap.String("errors_file", csvErrFilePath))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&csvFilePath, "csv", "", "path to the employees CSV file")
	cmd.Flags().StringVar(&csvErrFilePath, "errors", "import_errors.csv", "path of the CSV receiving rejected rows")
	cmd.Flags().IntVar(&numOfWorkers, "workers", 4, "number of concurrent workers")
	cmd.Flags().StringVar(&comma, "comma", ",", "field separator")
	_ = cmd.MarkFlagRequired("csv")
	return cmd
}
