package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"playtime/internal/hltb"
	"playtime/internal/resolve"
)

type resolveOutput struct {
	StorefrontID int64            `json:"storefront_id"`
	Record       *hltb.GameRecord `json:"record,omitempty"`
	Miss         bool             `json:"miss"`
	FromCache    bool             `json:"from_cache"`
	Refreshed    bool             `json:"refreshed,omitempty"`
	SearchedName string           `json:"searched_name,omitempty"`
}

func newResolveCommand(ctx *commandContext) *cobra.Command {
	var jsonOutput bool
	var wait bool

	cmd := &cobra.Command{
		Use:   "resolve <app-id>",
		Short: "Resolve a Steam app ID to its completion-time record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			storefrontID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || storefrontID <= 0 {
				return fmt.Errorf("invalid app id %q", args[0])
			}
			return ctx.withEngine(func(eng *engine) error {
				outcome, err := eng.resolver.Resolve(cmd.Context(), storefrontID)
				if err != nil {
					return err
				}

				refreshed := false
				if wait && outcome.Refresh != nil {
					record, refreshErr := outcome.Refresh.Wait(cmd.Context())
					if refreshErr == nil {
						outcome.Record = record
						refreshed = true
					}
				}

				output := resolveOutput{
					StorefrontID: storefrontID,
					Record:       outcome.Record,
					Miss:         outcome.Record == nil,
					FromCache:    outcome.FromCache && !refreshed,
					Refreshed:    refreshed,
					SearchedName: outcome.SearchedName,
				}
				if jsonOutput {
					return writeJSON(cmd, output)
				}
				printResolveOutcome(cmd, output, outcome)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Emit JSON instead of a table")
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait for a background refresh to finish before printing")
	return cmd
}

func printResolveOutcome(cmd *cobra.Command, output resolveOutput, outcome resolve.Outcome) {
	out := cmd.OutOrStdout()
	if output.Record == nil {
		fmt.Fprintf(out, "No completion-time record found for app %d.\n", output.StorefrontID)
		if output.SearchedName != "" {
			fmt.Fprintf(out, "Searched for: %s\n", output.SearchedName)
		}
		return
	}

	record := output.Record
	rows := [][]string{{
		strconv.FormatInt(record.ID, 10),
		record.Title,
		formatHours(record.MainHours),
		formatHours(record.MainPlusExtrasHours),
		formatHours(record.CompletionistHours),
		sourceLabel(output),
	}}
	fmt.Fprintln(out, renderTable(
		[]string{"ID", "Title", "Main", "Main+Extra", "100%", "Source"},
		rows,
		[]columnAlignment{alignRight, alignLeft, alignRight, alignRight, alignRight, alignLeft},
	))
	if outcome.Refresh != nil && !output.Refreshed {
		fmt.Fprintln(out, "Data may be out of date; refreshing in the background.")
	}
}

func sourceLabel(output resolveOutput) string {
	switch {
	case output.Refreshed:
		return "refreshed"
	case output.FromCache:
		return "cache"
	default:
		return "live"
	}
}

func formatHours(hours float64) string {
	if hours <= 0 {
		return "-"
	}
	return fmt.Sprintf("%.1fh", hours)
}
