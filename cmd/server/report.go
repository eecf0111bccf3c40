package main

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/warp/timesheet-engine/api"
	"github.com/warp/timesheet-engine/generic"
	"github.com/warp/timesheet-engine/store/sqlite"
	"github.com/warp/timesheet-engine/timesheet"
)

func reportCmd() *cobra.Command {
	var (
		teamID    string
		siteID    string
		companyID string
		asOf      string
	)

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print the mod-period report for a site",
		RunE: func(cmd *cobra.Command, _ []string) error {
			var day generic.TimePoint
			if asOf != "" {
				var err error
				if day, err = generic.ParseDay(asOf); err != nil {
					return fmt.Errorf("invalid --as-of (use YYYY-MM-DD): %w", err)
				}
			}

			store, err := sqlite.New(viper.GetString("db.path"))
			if err != nil {
				return fmt.Errorf("failed to initialize database: %w", err)
			}
			defer store.Close()

			h := api.NewHandler(store, slog.Default())
			report, err := h.Reports.Build(cmd.Context(), timesheet.ReportRequest{
				TeamID:    generic.TeamID(teamID),
				SiteID:    generic.SiteID(siteID),
				CompanyID: generic.CompanyID(companyID),
				AsOf:      day,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(report)
		},
	}

	cmd.Flags().StringVar(&teamID, "team", "", "team id")
	cmd.Flags().StringVar(&siteID, "site", "", "site id")
	cmd.Flags().StringVar(&companyID, "company", "", "company id")
	cmd.Flags().StringVar(&asOf, "as-of", "", "day selecting the fiscal window (default today)")
	return cmd
}
