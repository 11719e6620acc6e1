package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newCacheCommand(ctx *commandContext) *cobra.Command {
	cacheCmd := &cobra.Command{
		Use:   "cache",
		Short: "Inspect and manage the client caches",
	}
	cacheCmd.AddCommand(newCacheStatusCommand(ctx))
	cacheCmd.AddCommand(newCacheClearCommand(ctx))
	return cacheCmd
}

func newCacheStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show cache sizes and locations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine) error {
				rows := [][]string{
					{"ID mappings", strconv.Itoa(eng.ids.Len()), eng.cfg.IDCache.RefreshPolicy},
					{"Results", strconv.Itoa(eng.results.Len()), eng.cfg.ResultTTL().String() + " TTL"},
				}
				fmt.Fprintln(cmd.OutOrStdout(), renderTable(
					[]string{"Cache", "Entries", "Policy"},
					rows,
					[]columnAlignment{alignLeft, alignRight, alignLeft},
				))
				return nil
			})
		},
	}
}

func newCacheClearCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Drop the ID mapping cache and the result cache",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine) error {
				if err := eng.ids.Clear(); err != nil {
					return fmt.Errorf("clear id cache: %w", err)
				}
				if err := eng.results.Clear(); err != nil {
					return fmt.Errorf("clear result cache: %w", err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Caches cleared.")
				return nil
			})
		},
	}
}
