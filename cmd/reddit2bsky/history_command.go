package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/StuxnetStudios/reddit-2-bsky/internal/config"
	"github.com/StuxnetStudios/reddit-2-bsky/internal/store"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limitFlag int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recently published posts",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, st *store.Store) error {
				records, err := st.ListPosted(cmd.Context(), limitFlag)
				if err != nil {
					return err
				}
				total, err := st.Count(cmd.Context())
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				if len(records) == 0 {
					fmt.Fprintln(out, "Nothing published yet")
					return nil
				}

				rows := make([][]string, 0, len(records))
				for _, record := range records {
					fingerprint := record.ImageFingerprint
					if fingerprint == "" {
						fingerprint = "-"
					}
					rows = append(rows, []string{
						record.ID,
						fingerprint,
						record.PostedAt.Local().Format("2006-01-02 15:04"),
					})
				}
				fmt.Fprintln(out, renderTable(
					[]string{"ID", "Fingerprint", "Posted"},
					rows,
					[]columnAlignment{alignLeft, alignLeft, alignRight},
				))
				fmt.Fprintf(out, "%s of %s total\n", strconv.Itoa(len(records)), strconv.Itoa(total))
				return nil
			})
		},
	}

	cmd.Flags().IntVarP(&limitFlag, "limit", "n", 20, "Number of entries to show")
	return cmd
}
