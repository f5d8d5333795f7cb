package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/giftbox-backend/pkg/config"
	"github.com/angelmondragon/giftbox-backend/pkg/db"
	"github.com/angelmondragon/giftbox-backend/pkg/logger"
	"github.com/angelmondragon/giftbox-backend/pkg/migrate"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dir string
	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply and inspect giftbox schema migrations",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&dir, "dir", migrate.DefaultDir, "migrations directory (default uses the embedded set)")

	root.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withRunner(&dir, func(cmd *cobra.Command, r *migrate.Runner, _ []string) error {
				applied, err := r.Up(cmd.Context())
				printApplied(cmd, applied)
				return err
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Roll back the latest migration",
			RunE: withRunner(&dir, func(cmd *cobra.Command, r *migrate.Runner, _ []string) error {
				applied, err := r.Down(cmd.Context())
				if applied != nil {
					printApplied(cmd, []migrate.Applied{*applied})
				}
				return err
			}),
		},
		&cobra.Command{
			Use:   "to VERSION",
			Short: "Migrate up or down to VERSION (YYYYMMDDHHMMSS)",
			Args:  cobra.ExactArgs(1),
			RunE: withRunner(&dir, func(cmd *cobra.Command, r *migrate.Runner, args []string) error {
				target, err := strconv.ParseInt(args[0], 10, 64)
				if err != nil {
					return fmt.Errorf("version %q: %w", args[0], err)
				}
				applied, err := r.To(cmd.Context(), target)
				printApplied(cmd, applied)
				return err
			}),
		},
		&cobra.Command{
			Use:   "status",
			Short: "List migrations and whether they are applied",
			RunE: withRunner(&dir, func(cmd *cobra.Command, r *migrate.Runner, _ []string) error {
				states, err := r.Status(cmd.Context())
				if err != nil {
					return err
				}
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "VERSION\tAPPLIED\tFILE")
				for _, st := range states {
					applied := "pending"
					if st.Applied {
						applied = st.AppliedAt.UTC().Format(time.RFC3339)
					}
					fmt.Fprintf(tw, "%d\t%s\t%s\n", st.Version, applied, st.File)
				}
				return tw.Flush()
			}),
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check migration file names and goose annotations",
			RunE: func(cmd *cobra.Command, _ []string) error {
				fsys, err := migrate.Source(dir)
				if err != nil {
					return err
				}
				if err := migrate.Validate(fsys); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "migrations ok")
				return nil
			},
		},
		&cobra.Command{
			Use:   "create NAME",
			Short: "Write an empty migration into --dir",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				path, err := migrate.Create(dir, args[0], time.Now())
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "created", path)
				return nil
			},
		},
	)
	return root
}

type runnerFunc func(cmd *cobra.Command, r *migrate.Runner, args []string) error

// withRunner connects to the configured database for commands that need one.
func withRunner(dir *string, fn runnerFunc) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		_ = godotenv.Load()
		cfg, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logg := logger.New(logger.Options{
			ServiceName: "migrate",
			Level:       logger.ParseLevel(cfg.App.LogLevel),
			Format:      cfg.App.LogFormat,
			WarnStack:   cfg.App.LogWarnStack,
		})
		ctx := logg.WithFields(cmd.Context(), map[string]any{"env": cfg.App.Env, "command": cmd.Name()})

		client, err := db.New(ctx, cfg.DB, false, logg)
		if err != nil {
			return err
		}
		defer client.Close()

		sqlDB, err := client.DB().DB()
		if err != nil {
			return err
		}
		fsys, err := migrate.Source(*dir)
		if err != nil {
			return err
		}
		runner, err := migrate.NewRunner(sqlDB, fsys)
		if err != nil {
			return err
		}
		cmd.SetContext(ctx)
		if err := fn(cmd, runner, args); err != nil {
			logg.Error(ctx, "migration command failed", err)
			return err
		}
		logg.Info(ctx, "migration command finished")
		return nil
	}
}

func printApplied(cmd *cobra.Command, applied []migrate.Applied) {
	if len(applied) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), "nothing to do")
		return
	}
	for _, a := range applied {
		fmt.Fprintf(cmd.OutOrStdout(), "%-4s %d %s (%s)\n", a.Direction, a.Version, a.File, a.Duration.Round(time.Millisecond))
	}
}
