package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newOccupancyCmd() *cobra.Command {
	var (
		provider string
		from     string
		to       string
	)

	c := &cobra.Command{
		Use:   "occupancy",
		Short: "Show a provider's occupancy rate over a period",
		RunE: func(cmd *cobra.Command, args []string) error {
			start, end, err := parsePeriod(from, to)
			if err != nil {
				return err
			}
			svc, closeFn, err := newService()
			if err != nil {
				return err
			}
			defer closeFn()

			rate, err := svc.OccupancyRate(context.Background(), provider, start, end)
			if err != nil {
				return err
			}
			fmt.Printf("occupancy %.1f%%\n", rate)

			recs, err := svc.SuggestOptimizations(context.Background(), provider, start, end)
			if err != nil {
				return err
			}
			for _, r := range recs {
				fmt.Printf("[%s] %s: %s\n", r.Priority, r.Category, r.Message)
			}
			return nil
		},
	}

	c.Flags().StringVar(&provider, "provider", "", "provider id")
	c.Flags().StringVar(&from, "from", "", "period start (YYYY-MM-DD)")
	c.Flags().StringVar(&to, "to", "", "period end (YYYY-MM-DD)")
	_ = c.MarkFlagRequired("provider")
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")

	return c
}
