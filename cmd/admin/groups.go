package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/planmyoutings/backend/internal/groups"
)

func groupsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "List, inspect and delete groups",
	}
	cmd.AddCommand(groupsListCmd(a), groupsShowCmd(a), groupsDeleteCmd(a))
	return cmd
}

func parseGroupID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid group id %q", arg)
	}
	return id, nil
}

func groupsListCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List groups, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := groups.NewRepository(a.pool).ListAll(cmd.Context(), limit)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout(), "ID", "NAME", "DESCRIPTION", "CREATOR", "MEMBERS", "CREATED")
			for _, g := range list {
				row(w, g.ID, g.Name, shorten(g.Description, 50), g.CreatedBy, g.MemberCount, g.CreatedAt.Format("2006-01-02"))
			}
			w.Flush()
			fmt.Fprintf(cmd.OutOrStdout(), "\n%d group(s)\n", len(list))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 100, "maximum groups to show")
	return cmd
}

func groupsShowCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show [group-id]",
		Short: "Show a group with its members and events",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGroupID(args[0])
			if err != nil {
				return err
			}
			repo := groups.NewRepository(a.pool)
			ctx := cmd.Context()
			g, err := repo.GetByID(ctx, id)
			if err != nil {
				return err
			}
			members, err := repo.ListMembers(ctx, id)
			if err != nil {
				return err
			}
			events, err := repo.ListEvents(ctx, id)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Group %d: %s\n", g.ID, g.Name)
			if g.Description != "" {
				fmt.Fprintf(out, "  %s\n", g.Description)
			}
			fmt.Fprintf(out, "  created %s by user %d\n\n", g.CreatedAt.Format("2006-01-02 15:04"), g.CreatedBy)

			w := newTable(out, "USER", "USERNAME", "NAME", "ROLE", "JOINED")
			for _, m := range members {
				row(w, m.UserID, m.Username, m.FirstName+" "+m.LastName, m.Role, m.JoinedAt.Format("2006-01-02"))
			}
			w.Flush()

			fmt.Fprintln(out)
			w = newTable(out, "EVENT", "TITLE", "TYPE", "STATUS", "CREATED")
			for _, e := range events {
				row(w, e.ID, e.Title, e.EventType, e.Status, e.CreatedAt.Format("2006-01-02"))
			}
			w.Flush()
			return nil
		},
	}
}

func groupsDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete [group-id]",
		Short: "Delete a group with its members, events, options, polls and votes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseGroupID(args[0])
			if err != nil {
				return err
			}
			repo := groups.NewRepository(a.pool)
			g, err := repo.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			prompt := fmt.Sprintf("Delete group %q with %d member(s)?", g.Name, g.MemberCount)
			if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt, yes) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			if err := repo.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted group %q\n", g.Name)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
