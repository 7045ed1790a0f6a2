package main

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"staycal/internal/app/dto"
	availabilityapp "staycal/internal/app/handlers/availability"
	listingapp "staycal/internal/app/handlers/listings"
	"staycal/internal/app/queries"
	"staycal/internal/domain/shared/daterange"
)

func newCalendarCommand() *cobra.Command {
	var (
		start, end string
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "calendar <listing-id>",
		Short: "Print the materialized calendar of a listing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			from, err := daterange.Parse(start)
			if err != nil {
				return fmt.Errorf("--start: %w", err)
			}
			to := from.AddDate(0, 0, 13)
			if end != "" {
				if to, err = daterange.Parse(end); err != nil {
					return fmt.Errorf("--end: %w", err)
				}
			}

			cfg, logger, err := loadConfig()
			if err != nil {
				return err
			}
			rt, err := buildRuntime(ctx, cfg, logger)
			if err != nil {
				return err
			}
			defer rt.close(ctx)
			if err := seed(ctx, rt.listings, cfg.SeedFile, cfg.SeedDemo, logger); err != nil {
				logger.Warn("seeding failed", "error", err)
			}

			listing, err := queries.Ask[listingapp.GetListingQuery, dto.Listing](ctx, rt.buses.Queries, listingapp.GetListingQuery{ID: args[0]})
			if err != nil {
				return err
			}
			cal, err := queries.Ask[availabilityapp.GetCalendarQuery, dto.Calendar](ctx, rt.buses.Queries,
				availabilityapp.GetCalendarQuery{ListingID: args[0], Start: from, End: to})
			if err != nil {
				return err
			}
			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(cal)
			}
			return printCalendar(cmd.OutOrStdout(), listing, cal)
		},
	}
	cmd.Flags().StringVar(&start, "start", time.Now().UTC().Format(daterange.Layout), "first day (YYYY-MM-DD)")
	cmd.Flags().StringVar(&end, "end", "", "last day, inclusive (default start+13d)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")
	return cmd
}

func printCalendar(w io.Writer, listing dto.Listing, cal dto.Calendar) error {
	fmt.Fprintf(w, "%s  %s  base %s/night\n\n", listing.ID, listing.Title, listing.PricePerNight)
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "DATE\tAVAILABLE\tOVERRIDE\tPRICE")
	for _, d := range cal.Days {
		override := "-"
		if d.PriceOverride != nil {
			override = *d.PriceOverride
		}
		avail := "no"
		if d.IsAvailable {
			avail = "yes"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", d.Date, avail, override, d.EffectivePrice)
	}
	return tw.Flush()
}
