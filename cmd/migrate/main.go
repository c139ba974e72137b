package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/spf13/cobra"

	"bookfinder/internal/config"
)

func main() {
	config.LoadEnvFiles()
	if err := newRootCmd().Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir string
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or inspect shelf store migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", migrationsDir(), "migrations directory")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), func(db *sql.DB) error {
					if err := goose.Up(db, dir); err != nil {
						return fmt.Errorf("run migrations: %w", err)
					}
					cmd.Println("Migrations applied successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), func(db *sql.DB) error {
					if err := goose.Down(db, dir); err != nil {
						return fmt.Errorf("rollback migrations: %w", err)
					}
					cmd.Println("Migrations rolled back successfully")
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "status",
			Short: "Print the state of every migration",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return withDB(cmd.Context(), func(db *sql.DB) error {
					return goose.Status(db, dir)
				})
			},
		},
		&cobra.Command{
			Use:   "create NAME",
			Short: "Create an empty SQL migration",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if args[0] == "" {
					return errors.New("migration name is required")
				}
				if err := goose.Create(nil, dir, args[0], "sql"); err != nil {
					return fmt.Errorf("create migration: %w", err)
				}
				cmd.Printf("Migration created: %s\n", args[0])
				return nil
			},
		},
	)
	return root
}

func withDB(ctx context.Context, fn func(db *sql.DB) error) error {
	if ctx == nil {
		ctx = context.Background()
	}
	dsn := databaseDSN()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("connect to database (%s): %w", config.RedactDSN(dsn), err)
	}
	defer pool.Close()

	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}
	return fn(db)
}
