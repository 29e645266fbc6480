package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"factorsync/internal/service"
)

func newUpdateCmd(configFile *string) *cobra.Command {
	var opts service.UpdateOptions

	cmd := &cobra.Command{
		Use:   "update",
		Short: "Download the feed and reconcile the factor store",
		Long: `Download the configured feed, classify its rows per sector and create or
update the matching emission factors.

Without --sectors the active sectors of the stored feed configuration are
used. --dry-run reports what would change without writing anything.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.close()

			svc, err := a.updateService(cmd.Context())
			if err != nil {
				return err
			}

			report, err := svc.Run(cmd.Context(), opts)
			if report != nil {
				printReport(cmd.OutOrStdout(), report)
			}
			return err
		},
	}
	cmd.Flags().StringSliceVar(&opts.Sectors, "sectors", nil, "sectors to process (default: configured active sectors)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "compute changes without writing them")
	return cmd
}

func printReport(w io.Writer, r *service.UpdateReport) {
	if r.DryRun {
		fmt.Fprintln(w, "DRY RUN: no changes were written")
	}
	fmt.Fprintf(w, "Feed: %s", r.URL)
	if r.Version != "" {
		fmt.Fprintf(w, " (%s)", r.Version)
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "Rows: %d read, %d kept, %d skipped\n\n",
		r.Extract.Rows, r.Extract.Accepted, r.Extract.SkippedTotal())

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SECTOR\tFOUND\tCREATED\tUPDATED\tSTATUS")
	for _, s := range r.Sectors {
		status := "ok"
		if s.Err != nil {
			status = "error: " + s.Err.Error()
		}
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", s.Sector, s.Found, s.Created, s.Updated, status)
	}
	_ = tw.Flush()

	fmt.Fprintf(w, "\nTotal: %d created, %d updated\n", r.TotalCreated, r.TotalUpdated)
}
