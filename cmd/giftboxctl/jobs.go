package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/angelmondragon/giftbox-backend/internal/cron"
	"github.com/angelmondragon/giftbox-backend/pkg/redis"
)

func newRunJobsCmd() *cobra.Command {
	var (
		only    []string
		timeout time.Duration
	)
	cmd := &cobra.Command{
		Use:   "run-jobs",
		Short: "Run the maintenance jobs once, sharing the cron worker's lock",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer a.close()

			rdb, err := redis.New(ctx, a.cfg.Redis, a.logg)
			if err != nil {
				return fmt.Errorf("redis: %w", err)
			}
			defer rdb.Close()

			cronCfg := a.cfg.Cron
			if len(only) > 0 {
				cronCfg.Jobs = only
			}
			jobs, err := cron.StandardJobs(a.logg, a.db, cronCfg)
			if err != nil {
				return err
			}
			lock, err := cron.NewRedisLock(rdb, rdb.LockKey("cron", a.cfg.App.Env), timeout+time.Minute)
			if err != nil {
				return err
			}
			svc, err := cron.NewService(cron.ServiceParams{Logger: a.logg, Registry: jobs, Lock: lock, JobTimeout: timeout})
			if err != nil {
				return err
			}

			results, err := svc.RunOnce(ctx)
			if err != nil {
				return err
			}
			if results == nil {
				return fmt.Errorf("cron lock is held by another worker")
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "JOB\tDURATION\tRESULT")
			var failed int
			for _, r := range results {
				outcome := "ok"
				if r.Err != nil {
					outcome = r.Err.Error()
					failed++
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Job, r.Duration.Round(time.Millisecond), outcome)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			if failed > 0 {
				return fmt.Errorf("%d job(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&only, "job", nil, "run only the named job (repeatable)")
	cmd.Flags().DurationVar(&timeout, "timeout", 10*time.Minute, "per-job timeout")
	return cmd
}
