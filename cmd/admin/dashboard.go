package main

import (
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"pazzo-admin/internal/dashboard"
)

func (c *cli) dashboardCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dashboard",
		Short: "Show item counts and revenue for every resource",
		Args:  cobra.NoArgs,
		RunE: c.run(func(cmd *cobra.Command, args []string) error {
			if err := c.requireLogin(); err != nil {
				return err
			}

			sources := make([]dashboard.Source, 0, len(c.table.Resources))
			for _, rc := range c.table.Resources {
				sources = append(sources, dashboard.Source{Config: rc, Lister: c.client.Collection(rc)})
			}

			sum, err := dashboard.Summarize(cmd.Context(), c.logger.Named("dashboard"), sources...)
			if err != nil {
				return fmt.Errorf("failed to load dashboard: %w", err)
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "RESOURCE\tITEMS\tREVENUE")
			for _, line := range sum.Lines {
				fmt.Fprintf(tw, "%s\t%d\t%s\n", line.Label, line.Count, money(line.Revenue))
			}
			fmt.Fprintf(tw, "Total\t%d\t%s\n", sum.TotalCount, money(sum.TotalRevenue))
			return tw.Flush()
		}),
	}
}

func money(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}
