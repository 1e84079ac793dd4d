package cli

import (
	"github.com/spf13/cobra"

	"github.com/listenupapp/bookclub-server/internal/notify"
	"github.com/listenupapp/bookclub-server/internal/service"
)

// NewUpdateBookSlugsCommand creates the update-book-slugs command.
func NewUpdateBookSlugsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:          "update-book-slugs",
		Short:        "Derive slugs for books that have none",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rt, err := rootOpts.open(cmd.Context(), cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			defer rt.Close()

			slugs := service.NewBookSlugService(service.Deps{
				Store:     rt.store,
				Publisher: rt.publisher,
				Topics:    notify.NewTopics(rt.cfg.Notify.TopicBaseURL),
				Logger:    rt.logger.Component("slugs"),
			})

			updated, err := slugs.FillMissingSlugs(cmd.Context(), cmd.OutOrStdout())
			if err != nil {
				return err
			}
			rt.logger.Debug("slug backfill finished", "updated", updated)
			return nil
		},
	}
}
