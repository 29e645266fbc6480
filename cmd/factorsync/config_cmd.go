package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"factorsync/internal/domain"
	"factorsync/internal/service"
)

func newConfigCmd(configFile *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show or change the stored feed configuration",
	}
	cmd.AddCommand(newConfigShowCmd(configFile), newConfigSetCmd(configFile))
	return cmd
}

// feedConfigView is the YAML shape printed by "config show".
type feedConfigView struct {
	CSVURL                string         `yaml:"csv_url"`
	CSVVersion            string         `yaml:"csv_version"`
	UpdateFrequencyMonths int            `yaml:"update_frequency_months"`
	LastUpdate            string         `yaml:"last_update"`
	ActiveSectors         []string       `yaml:"active_sectors"`
	Factors               map[string]int `yaml:"factors"`
}

func newConfigShowCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the feed configuration and factor counts per active sector",
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

			view := feedConfigView{
				CSVURL:                cfg.CSVURL,
				CSVVersion:            cfg.CSVVersion,
				UpdateFrequencyMonths: cfg.UpdateFrequencyMonths,
				LastUpdate:            "never",
				ActiveSectors:         cfg.ActiveSectors,
				Factors:               make(map[string]int, len(cfg.ActiveSectors)),
			}
			if cfg.LastUpdate != nil {
				view.LastUpdate = cfg.LastUpdate.Format(time.RFC3339)
			}
			store := a.factorStore()
			for _, sector := range cfg.ActiveSectors {
				factors, err := store.ListByCategory(cmd.Context(), sector)
				if err != nil {
					return err
				}
				view.Factors[sector] = len(factors)
			}

			out, err := yaml.Marshal(view)
			if err != nil {
				return fmt.Errorf("marshaling config: %w", err)
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
}

func newConfigSetCmd(configFile *string) *cobra.Command {
	var (
		url     string
		sectors []string
		months  int
	)

	cmd := &cobra.Command{
		Use:   "set",
		Short: "Change the stored feed URL, active sectors or update frequency",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var input service.UpdateFeedConfigInput
			flags := cmd.Flags()
			if flags.Changed("url") {
				input.CSVURL = &url
			}
			if flags.Changed("sectors") {
				input.ActiveSectors = sectors
				if input.ActiveSectors == nil {
					input.ActiveSectors = []string{}
				}
			}
			if flags.Changed("frequency-months") {
				input.UpdateFrequencyMonths = &months
			}
			if input.CSVURL == nil && input.ActiveSectors == nil && input.UpdateFrequencyMonths == nil {
				return fmt.Errorf("nothing to change: pass --url, --sectors or --frequency-months")
			}

			a, err := newApp(*configFile)
			if err != nil {
				return err
			}
			defer a.close()

			cfg, err := a.feedConfigService().Update(cmd.Context(), input)
			if err != nil {
				return err
			}
			printConfigSummary(cmd, cfg)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "feed CSV URL")
	cmd.Flags().StringSliceVar(&sectors, "sectors", nil, "active sectors, comma separated")
	cmd.Flags().IntVar(&months, "frequency-months", 0, "months between two updates")
	return cmd
}

func printConfigSummary(cmd *cobra.Command, cfg *domain.FeedConfiguration) {
	fmt.Fprintf(cmd.OutOrStdout(), "csv_url: %s\nactive_sectors: %v\nupdate_frequency_months: %d\n",
		cfg.CSVURL, []string(cfg.ActiveSectors), cfg.UpdateFrequencyMonths)
}
