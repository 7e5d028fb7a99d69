package migrate

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"classnotex/internal/infrastructure/config"
	"classnotex/internal/infrastructure/database"
	"classnotex/internal/infrastructure/migration"
	"classnotex/internal/shared/biztime"
	"classnotex/internal/shared/logger"
)

var env string

func NewCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Database migration commands",
		Long:  `Manage database schema migrations using SQL scripts.`,
	}

	cmd.PersistentFlags().StringVarP(&env, "env", "e", "development", "Environment (development, test, production)")

	cmd.AddCommand(newUpCommand())
	cmd.AddCommand(newDownCommand())
	cmd.AddCommand(newStatusCommand())
	cmd.AddCommand(newCreateCommand())

	return cmd
}

func newUpCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := initEnv()
			if err != nil {
				return err
			}
			defer database.Close()

			logger.Info("applying migrations")
			if err := strategy.Migrate(database.Get()); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			logger.Info("migrations applied successfully")
			return nil
		},
	}
}

func newDownCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := initEnv()
			if err != nil {
				return err
			}
			defer database.Close()

			logger.Warn("rolling back the most recent migration")
			if err := strategy.MigrateDown(database.Get(), 1); err != nil {
				return fmt.Errorf("rollback failed: %w", err)
			}
			logger.Info("rollback completed successfully")
			return nil
		},
	}
}

func newStatusCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			strategy, err := initEnv()
			if err != nil {
				return err
			}
			defer database.Close()

			return strategy.Status(database.Get())
		},
	}
}

func newCreateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "create [name]",
		Short: "Create a new migration file pair",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			scriptsPath, err := scriptsDir()
			if err != nil {
				return err
			}

			generator := migration.NewGenerator(scriptsPath)
			return generator.CreateMigration(args[0])
		},
	}
}

// initEnv loads config, initializes logging, timezone and the database
// connection, and returns the goose strategy pointed at the scripts dir.
func initEnv() (*migration.GooseStrategy, error) {
	if envVar := os.Getenv("ENV"); envVar != "" {
		env = envVar
	}

	cfg, err := config.Load(env)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if err := logger.Init(&cfg.Logger); err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	if err := biztime.Init(cfg.Quota.Timezone); err != nil {
		return nil, fmt.Errorf("failed to initialize business timezone: %w", err)
	}

	if err := database.Init(&cfg.Database); err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	scriptsPath, err := scriptsDir()
	if err != nil {
		return nil, err
	}

	strategy, ok := migration.NewGooseStrategy(scriptsPath).(*migration.GooseStrategy)
	if !ok {
		return nil, fmt.Errorf("unexpected migration strategy type")
	}
	return strategy, nil
}

func scriptsDir() (string, error) {
	scriptsPath, err := filepath.Abs("./internal/infrastructure/migration/scripts")
	if err != nil {
		return "", fmt.Errorf("failed to resolve migration scripts path: %w", err)
	}
	return scriptsPath, nil
}
