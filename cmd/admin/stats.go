package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/planmyoutings/backend/internal/admin"
)

func statsCmd(a *app) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show totals, recent activity and the most active users",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo := admin.NewRepository(a.pool)
			stats, err := repo.Stats(cmd.Context(), time.Now().AddDate(0, 0, -days))
			if err != nil {
				return err
			}
			top, err := repo.TopUsers(cmd.Context(), 10)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			w := newTable(out, "", "TOTAL", fmt.Sprintf("LAST %dd", days))
			row(w, "users", stats.Totals.Users, stats.Recent.Users)
			row(w, "groups", stats.Totals.Groups, stats.Recent.Groups)
			row(w, "events", stats.Totals.Events, stats.Recent.Events)
			row(w, "enquiries", stats.Totals.Enquiries, stats.Recent.Enquiries)
			w.Flush()

			fmt.Fprintln(out, "\nMost active users")
			if len(top) == 0 {
				fmt.Fprintln(out, "  none")
				return nil
			}
			w = newTable(out, "USERNAME", "NAME", "GROUPS", "EVENTS", "TOTAL")
			for _, u := range top {
				row(w, u.Username, u.Name, u.GroupsCreated, u.EventsCreated, u.Total())
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 7, "window for recent activity")
	return cmd
}
