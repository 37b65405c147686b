package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/planmyoutings/backend/internal/emaillogs"
	"github.com/planmyoutings/backend/pkg/queue"
	"github.com/planmyoutings/backend/pkg/redis"
)

func emailsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "emails",
		Short: "Inspect the email queue and delivery log",
	}
	cmd.AddCommand(emailsStatusCmd(a), emailsRequeueDeadCmd(a))
	return cmd
}

func (a *app) openQueue(cmd *cobra.Command) (*queue.Queue, func(), error) {
	rdb, err := redis.NewClient(cmd.Context(), a.cfg.Redis, a.logger)
	if err != nil {
		return nil, nil, err
	}
	return queue.NewQueue(rdb.Client, a.logger), func() { _ = rdb.Close() }, nil
}

func emailsStatusCmd(a *app) *cobra.Command {
	var showDead int64
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show queue depth and delivery totals",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, done, err := a.openQueue(cmd)
			if err != nil {
				return err
			}
			defer done()

			pending, dead, err := q.Len(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := emaillogs.NewRepository(a.pool).Stats(cmd.Context(), time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := newTable(out, "", "COUNT")
			row(w, "pending", pending)
			row(w, "dead-lettered", dead)
			row(w, "logged", stats.Total)
			row(w, "sent", stats.Sent)
			row(w, "failed", stats.Failed)
			row(w, "last 24h", stats.Recent24h)
			w.Flush()
			fmt.Fprintf(out, "success rate %.1f%%\n", stats.SuccessRate)

			if showDead <= 0 || dead == 0 {
				return nil
			}
			jobs, err := q.DeadLetters(cmd.Context(), showDead)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, "\nDead letters")
			w = newTable(out, "ID", "TYPE", "ATTEMPTS", "CREATED", "PAYLOAD")
			for _, j := range jobs {
				row(w, j.ID, j.Type, j.Attempt, j.CreatedAt.Format(time.DateTime), shorten(string(j.Payload), 60))
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().Int64Var(&showDead, "dead", 10, "list up to this many dead-lettered jobs")
	return cmd
}

func emailsRequeueDeadCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "requeue-dead",
		Short: "Move dead-lettered email jobs back to the pending queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), "Requeue every dead-lettered email?", yes) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted")
				return nil
			}
			q, done, err := a.openQueue(cmd)
			if err != nil {
				return err
			}
			defer done()

			moved, err := q.RequeueDead(cmd.Context())
			if err != nil {
				return fmt.Errorf("requeued %d before failing: %w", moved, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d jobs\n", moved)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
