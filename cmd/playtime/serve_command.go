package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newServeCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the resolution daemon with its local HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withEngine(func(eng *engine) error {
				signalCtx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
				defer cancel()

				d, err := eng.newDaemon()
				if err != nil {
					return err
				}
				if err := d.Start(signalCtx); err != nil {
					return fmt.Errorf("start daemon: %w", err)
				}
				defer d.Stop()

				fmt.Fprintf(cmd.OutOrStdout(), "playtime daemon listening on %s (ctrl-c to stop)\n", d.APIAddr())
				<-signalCtx.Done()
				return nil
			})
		},
	}
}
