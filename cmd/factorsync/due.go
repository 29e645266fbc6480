package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newDueCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "due",
		Short: "Tell whether a feed update is due",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.close()

			cfg, err := a.feedConfigService().Get(cmd.Context())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			next, ok := cfg.NextUpdate()
			switch {
			case !ok:
				fmt.Fprintln(out, "update due: yes (never imported)")
			case cfg.IsUpdateDue(time.Now()):
				fmt.Fprintf(out, "update due: yes (since %s)\n", next.Format(time.DateOnly))
			default:
				fmt.Fprintf(out, "update due: no (next on %s)\n", next.Format(time.DateOnly))
			}
			return nil
		},
	}
}
