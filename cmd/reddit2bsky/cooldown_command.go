package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/StuxnetStudios/reddit-2-bsky/internal/config"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/store"
)

func newCooldownCommand(ctx *commandContext) *cobra.Command {
	cooldownCmd := &cobra.Command{
		Use:   "cooldown",
		Short: "Inspect or clear the rate-limit cooldown",
	}

	cooldownCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show the current cooldown state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				until, err := st.GetCooldownUntil(cmd.Context())
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				switch {
				case until == nil:
					fmt.Fprintln(out, "No cooldown set")
				case until.After(time.Now()):
					fmt.Fprintf(out, "Cooldown active until %s (%s remaining)\n",
						until.Local().Format("2006-01-02 15:04:05"),
						time.Until(*until).Round(time.Second))
				default:
					fmt.Fprintf(out, "Cooldown expired at %s\n",
						until.Local().Format("2006-01-02 15:04:05"))
				}
				return nil
			})
		},
	})

	cooldownCmd.AddCommand(&cobra.Command{
		Use:   "clear",
		Short: "Remove a persisted cooldown",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				if err := st.SetCooldownUntil(cmd.Context(), nil); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Cooldown cleared")
				return nil
			})
		},
	})

	return cooldownCmd
}
