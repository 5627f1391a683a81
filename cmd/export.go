package cmd

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var (
		provider string
		from     string
		to       string
		output   string
	)

	c := &cobra.Command{
		Use:   "export",
		Short: "Export a provider's schedule for a period as CSV",
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

			out := os.Stdout
			if output != "" {
				f, err := os.Create(output)
				if err != nil {
					return err
				}
				defer f.Close()
				out = f
			}
			return svc.ExportScheduleCSV(context.Background(), out, provider, start, end)
		},
	}

	c.Flags().StringVar(&provider, "provider", "", "provider id")
	c.Flags().StringVar(&from, "from", "", "period start (YYYY-MM-DD)")
	c.Flags().StringVar(&to, "to", "", "period end (YYYY-MM-DD)")
	c.Flags().StringVar(&output, "output", "", "output file (default stdout)")
	_ = c.MarkFlagRequired("provider")
	_ = c.MarkFlagRequired("from")
	_ = c.MarkFlagRequired("to")

	return c
}
