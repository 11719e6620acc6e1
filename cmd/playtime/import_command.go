package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func newImportCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "import <user-id>",
		Short: "Import a catalog user's library to seed exact ID mappings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			userID, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil || userID <= 0 {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			return ctx.withEngine(func(eng *engine) error {
				imported, err := eng.resolver.ImportLibrary(cmd.Context(), userID)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if !imported {
					fmt.Fprintln(out, "No mappings imported; the library is private or empty. Existing mappings were kept.")
					return nil
				}
				fmt.Fprintf(out, "Imported %d ID mappings for user %d.\n", eng.ids.Len(), userID)
				return nil
			})
		},
	}
}
