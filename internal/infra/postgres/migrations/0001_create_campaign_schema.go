// Package migrations registers the bun schema migrations for the quiz
// campaign tables.
package migrations

import (
	"context"
	_ "embed"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/migrate"
)

//go:embed 0001_create_campaign_schema.sql
var createCampaignSchemaSQL string

var Migrations = migrate.NewMigrations()

func init() {
	Migrations.MustRegister(
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(createCampaignSchemaSQL)
			return err
		},
		func(ctx context.Context, db *bun.DB) error {
			_, err := db.Exec(`
				DROP TABLE IF EXISTS analytics_events;
				DROP TABLE IF EXISTS participants;
				DROP TABLE IF EXISTS gifts;
				DROP TABLE IF EXISTS question_options;
				DROP TABLE IF EXISTS questions;
				DROP TABLE IF EXISTS campaigns;
			`)
			return err
		},
	)
}
