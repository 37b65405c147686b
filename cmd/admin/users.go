package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/planmyoutings/backend/internal/auth"
	"github.com/planmyoutings/backend/internal/models"
	"github.com/planmyoutings/backend/pkg/utils"
)

func usersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "List, search, create and delete users",
	}
	cmd.AddCommand(usersListCmd(a), usersSearchCmd(a), usersCreateCmd(a), usersDeleteCmd(a))
	return cmd
}

func printUsers(cmd *cobra.Command, users []models.UserPublic) {
	w := newTable(cmd.OutOrStdout(), "ID", "USERNAME", "NAME", "EMAIL", "BORN", "CREATED")
	for _, u := range users {
		row(w, u.ID, u.Username, u.FirstName+" "+u.LastName, u.Email, u.YearOfBirth, u.CreatedAt.Format("2006-01-02"))
	}
	w.Flush()
	fmt.Fprintf(cmd.OutOrStdout(), "\n%d user(s)\n", len(users))
}

func usersListCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List users, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := auth.NewRepository(a.pool).List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			printUsers(cmd, users)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "maximum users to show (0 = all)")
	return cmd
}

func usersSearchCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "search [term]",
		Short: "Search users by username, email or name",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			users, err := auth.NewRepository(a.pool).Search(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printUsers(cmd, users)
			return nil
		},
	}
}

func usersCreateCmd(a *app) *cobra.Command {
	var u models.User
	var password string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a user; a password is generated unless --password is given",
		RunE: func(cmd *cobra.Command, args []string) error {
			if u.Username == "" {
				u.Username = auth.BaseUsername(u.FirstName, u.LastName, u.YearOfBirth)
			}
			if password == "" {
				var err error
				if password, err = utils.GeneratePassword(auth.GeneratedPasswordLength); err != nil {
					return err
				}
			}
			hash, err := utils.HashPassword(password)
			if err != nil {
				return err
			}
			u.Password = hash
			if err := auth.NewRepository(a.pool).Create(cmd.Context(), &u); err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created user %d\n", u.ID)
			fmt.Fprintf(out, "  username: %s\n", u.Username)
			fmt.Fprintf(out, "  password: %s\n", password)
			return nil
		},
	}
	cmd.Flags().StringVar(&u.Username, "username", "", "username (default first.last.year)")
	cmd.Flags().StringVar(&u.Email, "email", "", "email address")
	cmd.Flags().StringVar(&u.FirstName, "first-name", "", "first name")
	cmd.Flags().StringVar(&u.LastName, "last-name", "", "last name")
	cmd.Flags().IntVar(&u.YearOfBirth, "year", 0, "year of birth")
	cmd.Flags().StringVar(&password, "password", "", "initial password")
	_ = cmd.MarkFlagRequired("email")
	_ = cmd.MarkFlagRequired("first-name")
	_ = cmd.MarkFlagRequired("last-name")
	_ = cmd.MarkFlagRequired("year")
	return cmd
}

func usersDeleteCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "delete [user-id]",
		Short: "Delete a user with their memberships, votes and created groups",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid user id %q", args[0])
			}
			repo := auth.NewRepository(a.pool)
			user, err := repo.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			if user.Username == a.cfg.SuperAdmin.Username {
				return auth.ErrSuperAdminProtected
			}
			prompt := fmt.Sprintf("Delete user %s (%s)?", user.Username, user.Email)
			if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt, yes) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			if err := repo.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted user %s\n", user.Username)
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}
