package cmd

import (
	"fmt"

	"github.com/jmehdipour/qmail/internal/db"
	"github.com/jmehdipour/qmail/migrations"
	"github.com/jmoiron/sqlx"
	"github.com/spf13/cobra"
)

var (
	migrateMySQL      bool
	migrateClickHouse bool
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the MySQL serials table and the ClickHouse archive",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		if migrateMySQL {
			sqlDB, err := db.NewMySQLConnection(cfg.MySQL)
			if err != nil {
				return fmt.Errorf("mysql connect: %w", err)
			}
			defer sqlDB.Close()

			scripts, err := migrations.MySQL()
			if err != nil {
				return err
			}
			if err := apply(cmd, sqlDB, scripts); err != nil {
				return err
			}
		}

		if migrateClickHouse {
			chDB, err := db.NewClickHouseConnection(cfg.ClickHouse)
			if err != nil {
				return fmt.Errorf("clickhouse connect: %w", err)
			}
			defer chDB.Close()

			scripts, err := migrations.ClickHouse()
			if err != nil {
				return err
			}
			if err := apply(cmd, chDB, scripts); err != nil {
				return err
			}
		}

		cmd.Println(">> Migration complete")
		return nil
	},
}

func init() {
	migrateCmd.Flags().BoolVar(&migrateMySQL, "mysql", true, "apply MySQL migrations")
	migrateCmd.Flags().BoolVar(&migrateClickHouse, "clickhouse", true, "apply ClickHouse migrations")
}

func apply(cmd *cobra.Command, dbx *sqlx.DB, scripts []migrations.Script) error {
	for _, s := range scripts {
		for _, stmt := range s.Statements() {
			if _, err := dbx.ExecContext(cmd.Context(), stmt); err != nil {
				return fmt.Errorf("exec %s: %w", s.Name, err)
			}
		}
		cmd.Printf(">> applied %s\n", s.Name)
	}
	return nil
}
