package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/listenupapp/bookclub-server/internal/service"
	"github.com/listenupapp/bookclub-server/internal/store"
)

// NewMostReviewedCommand creates the most-reviewed command.
func NewMostReviewedCommand(rootOpts *RootOptions) *cobra.Command {
	var byMonth bool

	cmd := &cobra.Command{
		Use:   "most-reviewed",
		Short: "Print the day or month with the most reviews",
		Long: `Print the day (or, with --month, the month) in which the most reviews
were published. Ties go to the most recent period.`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			granularity := store.Day
			if byMonth {
				granularity = store.Month
			}

			rt, err := rootOpts.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			period, found, err := service.NewReviewStatsService(rt.store).MostReviewed(cmd.Context(), granularity)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !found {
				fmt.Fprintln(out, "No reviews found.")
				return nil
			}
			fmt.Fprintf(out, "The %s with the most reviews (%d) is: %s\n", granularity, period.Count, period.Period)
			return nil
		},
	}

	cmd.Flags().BoolVarP(&byMonth, "month", "m", false, "group reviews by month instead of day")

	return cmd
}
