package main

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"factorsync/internal/csvexport"
	"factorsync/internal/domain"
)

func newExportCmd(configFile *string) *cobra.Command {
	var (
		sectors   []string
		output    string
		separator string
		bom       bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the stored emission factors as CSV",
		Long: `Write the stored emission factors of the given sectors (default: the active
sectors) as CSV. Use --output auto for a dated file name, or a path; the
default is stdout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			sep := []rune(separator)
			if len(sep) != 1 {
				return fmt.Errorf("--separator must be a single character, got %q", separator)
			}

			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.close()

			if len(sectors) == 0 {
				cfg, err := a.feedConfigService().Get(cmd.Context())
				if err != nil {
					return err
				}
				sectors = cfg.ActiveSectors
			}

			store := a.factorStore()
			var factors []domain.EmissionFactor
			for _, sector := range sectors {
				batch, err := store.ListByCategory(cmd.Context(), sector)
				if err != nil {
					return err
				}
				factors = append(factors, batch...)
			}

			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				if output == "auto" {
					output = csvexport.BuildFilename(sectors, time.Now())
				}
				f, err := os.Create(output)
				if err != nil {
					return fmt.Errorf("creating %s: %w", output, err)
				}
				defer f.Close()
				w = f
			}

			if bom {
				if _, err := w.Write(csvexport.BOM); err != nil {
					return err
				}
			}
			cw := csvexport.NewWriter(w, sep[0])
			if err := cw.WriteHeader(); err != nil {
				return err
			}
			if err := cw.WriteFactors(factors); err != nil {
				return err
			}
			cw.Flush()
			if err := cw.Error(); err != nil {
				return err
			}

			if output != "" {
				fmt.Fprintf(cmd.ErrOrStderr(), "wrote %d factors to %s\n", len(factors), output)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&sectors, "sectors", nil, "sectors to export (default: configured active sectors)")
	cmd.Flags().StringVarP(&output, "output", "o", "", `output file, "auto" for a dated name (default: stdout)`)
	cmd.Flags().StringVar(&separator, "separator", ",", "field separator")
	cmd.Flags().BoolVar(&bom, "bom", false, "prefix the file with a UTF-8 BOM for Excel")
	return cmd
}
