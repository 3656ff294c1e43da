package main

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/amadolemli/factureman-sub000/internal/infrastructure/config"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/logger"
	"github.com/amadolemli/factureman-sub000/internal/infrastructure/migration"
	_ "github.com/lib/pq"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// defaultCreatePath is where "create" writes new files; they are embedded on the next build
const defaultCreatePath = "internal/infrastructure/migration/sql"

var (
	migrationsPath string
	logLevel       string
	log            = zap.NewNop()
)

var rootCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the schema of the remote ledger store of record",
	Long: `migrate applies the PostgreSQL schema that devices sync their ledgers,
documents, products and profile against.

Connection settings come from config.toml [remote.database] or the
FM_REMOTE_DATABASE_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		log, err = logger.New(&logger.Config{
			Level:      logLevel,
			Format:     "console",
			Output:     "stderr",
			TimeFormat: "15:04:05",
		})
		if err != nil {
			return fmt.Errorf("initialize logger: %w", err)
		}
		if migrationsPath != "" {
			if migrationsPath, err = filepath.Abs(migrationsPath); err != nil {
				return err
			}
		}
		return nil
	},
}

var upCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply every pending migration",
	Args:  cobra.NoArgs,
	RunE: withMigrator(func(_ *cobra.Command, m *migration.Migrator, _ []string) error {
		return m.Up()
	}),
}

var downCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every migration",
	Args:  cobra.NoArgs,
	RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("down drops every ledger table; rerun with --yes")
		}
		return m.Down()
	}),
}

var stepCmd = &cobra.Command{
	Use:   "step <n>",
	Short: "Apply n migrations, or roll back when n is negative",
	Args:  cobra.ExactArgs(1),
	RunE: withMigrator(func(_ *cobra.Command, m *migration.Migrator, args []string) error {
		n, err := strconv.Atoi(args[0])
		if err != nil || n == 0 {
			return fmt.Errorf("invalid step count %q", args[0])
		}
		return m.Steps(n)
	}),
}

var statusCmd = &cobra.Command{
	Use:     "status",
	Aliases: []string{"version"},
	Short:   "Show the applied version and pending migrations",
	Args:    cobra.NoArgs,
	RunE: withMigrator(func(cmd *cobra.Command, m *migration.Migrator, _ []string) error {
		st, err := m.Status()
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "version %d of %d", st.Current, st.Latest)
		if st.Dirty {
			fmt.Fprint(out, " (dirty)")
		}
		fmt.Fprintln(out)
		for _, name := range st.Pending {
			fmt.Fprintln(out, "  pending", name)
		}
		return nil
	}),
}

var forceCmd = &cobra.Command{
	Use:   "force <version>",
	Short: "Mark a version as applied after repairing a dirty schema by hand",
	Args:  cobra.ExactArgs(1),
	RunE: withMigrator(func(_ *cobra.Command, m *migration.Migrator, args []string) error {
		version, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid version %q", args[0])
		}
		return m.Force(version)
	}),
}

var createCmd = &cobra.Command{
	Use:   "create <name> [description]",
	Short: "Write the next numbered migration file pair",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := migrationsPath
		if dir == "" {
			dir = defaultCreatePath
		}
		description := ""
		if len(args) == 2 {
			description = args[1]
		}
		mf, err := migration.CreateMigration(dir, args[0], description)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), mf.UpPath)
		fmt.Fprintln(cmd.OutOrStdout(), mf.DownPath)
		return nil
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the known migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		var (
			names []string
			err   error
		)
		if migrationsPath == "" {
			names, err = migration.EmbeddedMigrations()
		} else {
			names, err = migration.ListMigrations(migrationsPath)
		}
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&migrationsPath, "path", "", "read migrations from this directory instead of the embedded schema")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	downCmd.Flags().Bool("yes", false, "confirm rolling back the whole schema")

	rootCmd.AddCommand(upCmd, downCmd, stepCmd, statusCmd, forceCmd, createCmd, listCmd)
}

// withMigrator opens the remote database for commands that need it
func withMigrator(run func(*cobra.Command, *migration.Migrator, []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadRemote()
		if err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}

		db, err := sql.Open("postgres", cfg.Remote.Database.DSN())
		if err != nil {
			return fmt.Errorf("open remote database: %w", err)
		}
		if err := db.PingContext(cmd.Context()); err != nil {
			_ = db.Close()
			return fmt.Errorf("reach remote database: %w", err)
		}

		var m *migration.Migrator
		if migrationsPath != "" {
			m, err = migration.NewFromPath(db, migrationsPath, log)
		} else {
			m, err = migration.New(db, log)
		}
		if err != nil {
			_ = db.Close()
			return err
		}
		defer func() {
			if err := m.Close(); err != nil {
				log.Warn("Closing migrator failed", zap.Error(err))
			}
		}()

		return run(cmd, m, args)
	}
}

func main() {
	err := rootCmd.Execute()
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}
