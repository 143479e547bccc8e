package main

import (
	"fmt"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/cobra"

	"warden/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent lifecycle actions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			store, err := history.Open(cfg.HistoryDBPath())
			if err != nil {
				return fmt.Errorf("open action history: %w", err)
			}
			defer func() { _ = store.Close() }()

			entries, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}

			stdout := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(stdout, "No recorded actions")
				return nil
			}

			tw := table.NewWriter()
			tw.SetStyle(table.StyleRounded)
			tw.AppendHeader(table.Row{"Time", "Verb", "Outcome", "PID", "Detail"})
			for _, entry := range entries {
				pid := ""
				if entry.PID > 0 {
					pid = strconv.Itoa(entry.PID)
				}
				tw.AppendRow(table.Row{
					entry.RecordedAt.Local().Format("2006-01-02 15:04:05"),
					entry.Verb,
					entry.Outcome,
					pid,
					entry.Detail,
				})
			}
			tw.SetColumnConfigs([]table.ColumnConfig{
				{Number: 4, Align: text.AlignRight, AlignHeader: text.AlignLeft},
			})
			fmt.Fprintln(stdout, tw.Render())
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of actions to show")
	return cmd
}
