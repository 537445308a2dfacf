package main

import (
	"errors"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/nao1215/darklight/internal/database"
)

// NewMigrateCmd creates the migrate command.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate [up|down|status]",
		Short: "Apply database migrations",
		Long: `Migrate manages the PostgreSQL schema of domain records (database.url).

Examples:
  # Apply every pending migration
  darklight migrate

  # Roll back the latest migration
  darklight migrate down

  # List migrations and whether they are applied
  darklight migrate status`,
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"up", "down", "status"},
		RunE:      runMigrateCmd,
	}
	return cmd
}

func runMigrateCmd(cmd *cobra.Command, args []string) error {
	action := "up"
	if len(args) == 1 {
		action = args[0]
	}
	if action != "up" && action != "down" && action != "status" {
		return fmt.Errorf("unknown migrate action %q (want up, down or status)", action)
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if cfg.DatabaseURL == "" {
		return errors.New("database.url is not set")
	}

	logger := newLogger(cmd, cfg)
	ctx := cmd.Context()

	db, err := database.Connect(ctx, cfg.DatabaseURL, database.WithLogger(logger))
	if err != nil {
		return err
	}
	defer db.Close()

	migrator, err := database.NewMigrator(db.Pool(), logger)
	if err != nil {
		return err
	}
	defer migrator.Close()

	out := cmd.OutOrStdout()
	switch action {
	case "down":
		if err := migrator.Down(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "Rolled back the latest migration")
	case "status":
		migrations, err := migrator.Status(ctx)
		if err != nil {
			return err
		}
		return printMigrations(out, migrations)
	default:
		n, err := migrator.Up(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Applied %d migration(s)\n", n)
	}
	return nil
}

func printMigrations(w io.Writer, migrations []database.Migration) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "VERSION\tMIGRATION\tAPPLIED AT")
	for _, m := range migrations {
		applied := "pending"
		if m.Applied {
			applied = m.AppliedAt.Format(time.RFC3339)
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\n", m.Version, m.Path, applied)
	}
	return tw.Flush()
}
