// Package cli implements bookclubctl, the maintenance command line of the
// BookClub server.
package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/listenupapp/bookclub-server/internal/config"
	"github.com/listenupapp/bookclub-server/internal/logger"
	"github.com/listenupapp/bookclub-server/internal/notify"
	"github.com/listenupapp/bookclub-server/internal/store/sqlite"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	EnvFile  string
	DBPath   string
	LogLevel string
}

// NewRootCommand creates the root command for bookclubctl.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "bookclubctl",
		Short: "BookClub maintenance commands",
		Long:  "Maintenance and reporting commands that run against the BookClub database.",
		// main reports the error once.
		SilenceErrors: true,
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "path to .env file")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "path to the sqlite database (default ~/BookClub/bookclub.db)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level (debug|info|warn|error)")

	cmd.AddCommand(NewMostReviewedCommand(opts))
	cmd.AddCommand(NewUpdateBookSlugsCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

// configArgs translates global flags into config.Load arguments.
func (o *RootOptions) configArgs() []string {
	args := []string{"-env-file=" + o.EnvFile}
	if o.DBPath != "" {
		args = append(args, "-db="+o.DBPath)
	}
	if o.LogLevel != "" {
		args = append(args, "-log-level="+o.LogLevel)
	}
	return args
}

// runtime is what a command needs to talk to the database.
type runtime struct {
	cfg       *config.Config
	store     *sqlite.Store
	logger    *logger.Logger
	publisher notify.Publisher
}

func (r *runtime) Close() error {
	return r.store.Close()
}

// open loads configuration and opens the store. Logs go to errOut so that
// command output stays clean.
func (o *RootOptions) open(ctx context.Context, errOut io.Writer) (*runtime, error) {
	cfg, err := config.Load(o.configArgs())
	if err != nil {
		return nil, err
	}

	log := logger.New(logger.Config{
		Writer:      errOut,
		Environment: cfg.App.Environment,
		Level:       logger.ParseLevel(cfg.Logger.Level),
	})

	st, err := sqlite.OpenContext(ctx, cfg.Database.Path, log.Component("store"))
	if err != nil {
		return nil, fmt.Errorf("open database %s: %w", cfg.Database.Path, err)
	}

	var publisher notify.Publisher = notify.Nop
	if cfg.Notify.HubURL != "" {
		publisher = notify.NewHubPublisher(cfg.Notify.HubURL, []byte(cfg.Notify.HubJWTSecret), 0)
	}

	return &runtime{cfg: cfg, store: st, logger: log, publisher: publisher}, nil
}
