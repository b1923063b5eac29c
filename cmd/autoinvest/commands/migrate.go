package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/autoinvest/backend/pkg/database"
)

// migrateCmd represents the migrate command
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "DB 스키마 마이그레이션",
	Long: `내장된 SQL 마이그레이션 중 아직 적용되지 않은 것을 순서대로 적용합니다.
이미 적용된 버전은 schema_migrations 테이블로 건너뜁니다.

Example:
  go run ./cmd/autoinvest migrate`,
	RunE: runMigrate,
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadBase()
	if err != nil {
		return err
	}

	ctx := context.Background()
	db, err := database.New(ctx, cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	applied, err := db.Migrate(ctx)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	log.WithField("applied", len(applied)).Info("Migrations complete")
	if len(applied) == 0 {
		fmt.Println("✅ Schema is up to date")
		return nil
	}
	for _, v := range applied {
		fmt.Printf("  applied %s\n", v)
	}
	fmt.Printf("✅ %d migration(s) applied\n", len(applied))
	return nil
}
