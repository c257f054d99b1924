package cli

import (
	"database/sql"
	"log"
	"time"

	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"quiz-campaign-service/internal/app"
	"quiz-campaign-service/internal/config"
	"quiz-campaign-service/internal/infra/postgres"
)

// NewCleanupCmd runs a one-off sweep of stale uncompleted attempts.
func NewCleanupCmd(configPath *string) *cobra.Command {
	var maxAge string
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete stale uncompleted quiz attempts",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*configPath)
			if err != nil {
				return err
			}

			sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(cfg.Postgres.URL)))
			db := bun.NewDB(sqldb, pgdialect.New())
			defer db.Close()

			age := config.Duration(maxAge, config.Duration(cfg.Cleanup.MaxAge, 24*time.Hour))
			cleaner := app.NewCleaner(postgres.NewParticipantRepository(db), nil, age)
			removed, err := cleaner.RunOnce(cmd.Context())
			if err != nil {
				return err
			}
			log.Printf("cleanup done, %d attempts removed", removed)
			return nil
		},
	}
	cmd.Flags().StringVar(&maxAge, "max-age", "", "override the stale attempt age (e.g. 24h)")
	return cmd
}
