package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"playtime/internal/journal"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var appID int64
	var limit int
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent resolution outcomes from the lookup journal",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine) error {
				if eng.journal == nil {
					fmt.Fprintln(cmd.OutOrStdout(), "Journal is disabled; enable it in the [journal] config section.")
					return nil
				}
				var (
					records []journal.Record
					err     error
				)
				if appID > 0 {
					records, err = eng.journal.ByStorefrontID(cmd.Context(), appID, limit)
				} else {
					records, err = eng.journal.Recent(cmd.Context(), limit)
				}
				if err != nil {
					return err
				}
				if jsonOutput {
					return writeJSON(cmd, records)
				}
				if len(records) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No journal records.")
					return nil
				}
				rows := make([][]string, 0, len(records))
				for _, rec := range records {
					rows = append(rows, []string{
						rec.CreatedAt.Local().Format(time.DateTime),
						strconv.FormatInt(rec.StorefrontID, 10),
						rec.Title,
						rec.Outcome,
						rec.Query,
						rec.Duration.Round(time.Millisecond).String(),
					})
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"When", "App", "Title", "Outcome", "Query", "Took"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft, alignLeft, alignLeft, alignRight},
				))
				return nil
			})
		},
	}

	cmd.Flags().Int64Var(&appID, "app", 0, "Filter to a single storefront app ID")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum records to show")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	return cmd
}
