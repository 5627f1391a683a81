package cmd

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func newConflictsCmd() *cobra.Command {
	var (
		provider string
		from     string
		to       string
	)

	c := &cobra.Command{
		Use:   "conflicts",
		Short: "List scheduling conflicts for a provider over a period",
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

			conflicts, err := svc.DetectConflicts(context.Background(), provider, start, end)
			if err != nil {
				return err
			}
			if len(conflicts) == 0 {
				fmt.Println("no conflicts")
				return nil
			}
			for _, conflict := range conflicts {
				fmt.Printf("%-22s %s - %s booking=%s\n",
					conflict.Kind,
					conflict.Start.Format(time.RFC3339),
					conflict.End.Format(time.RFC3339),
					conflict.BookingID)
			}
			fmt.Printf("%d conflicts\n", len(conflicts))
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
