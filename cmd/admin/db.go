package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/planmyoutings/backend/internal/admin"
	"github.com/planmyoutings/backend/pkg/database"
	"github.com/planmyoutings/backend/pkg/storage"
)

func dbCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Database maintenance",
	}
	cmd.AddCommand(dbInfoCmd(a), dbMigrateCmd(a), dbCleanEnquiriesCmd(a), dbClearCmd(a), dbBackupCmd(a))
	return cmd
}

func dbInfoCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Show database name, version, size and row counts",
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := admin.NewRepository(a.pool).Info(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Database: %s\n", info.Database)
			fmt.Fprintf(out, "Version:  %s\n", info.Version)
			fmt.Fprintf(out, "Size:     %.1f MB\n\n", float64(info.SizeBytes)/(1024*1024))
			w := newTable(out, "TABLE", "ROWS")
			for _, t := range info.Tables {
				row(w, t.Table, t.Rows)
			}
			w.Flush()
			return nil
		},
	}
}

func dbMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the embedded schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			applied, err := database.Migrate(cmd.Context(), a.pool)
			if err != nil {
				return err
			}
			for _, name := range applied {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Schema is up to date")
			return nil
		},
	}
}

func dbCleanEnquiriesCmd(a *app) *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "clean-enquiries",
		Short: "Delete processed enquiries older than --older-than",
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := admin.NewRepository(a.pool).CleanEnquiries(cmd.Context(), time.Now().Add(-olderThan))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d processed enquiries\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 30*24*time.Hour, "minimum age of deleted enquiries")
	return cmd
}

func dbClearCmd(a *app) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete all data except the super admin account",
		RunE: func(cmd *cobra.Command, args []string) error {
			keep := a.cfg.SuperAdmin.Username
			prompt := fmt.Sprintf("This deletes every row except user %q.", keep)
			if !confirm(cmd.InOrStdin(), cmd.OutOrStdout(), prompt, yes) {
				fmt.Fprintln(cmd.OutOrStdout(), "Aborted.")
				return nil
			}
			cleared, err := admin.NewRepository(a.pool).ClearDemoData(cmd.Context(), keep)
			if err != nil {
				return err
			}
			w := newTable(cmd.OutOrStdout(), "TABLE", "DELETED")
			for _, t := range cleared {
				row(w, t.Table, t.Rows)
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "skip confirmation")
	return cmd
}

func dbBackupCmd(a *app) *cobra.Command {
	var dir string
	var local bool
	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Write a JSON snapshot of every table to S3 (BACKUP_BUCKET) or a local directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			var up admin.Uploader
			if bc := a.cfg.Backup; bc.Bucket != "" && !local {
				s3, err := storage.NewS3(ctx, storage.S3Config{
					Region:          bc.Region,
					AccessKeyID:     bc.AccessKeyID,
					SecretAccessKey: bc.SecretAccessKey,
					Bucket:          bc.Bucket,
				}, a.logger)
				if err != nil {
					return err
				}
				up = s3
			}
			loc, err := admin.Backup(ctx, admin.NewRepository(a.pool), up, dir, time.Now())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup written to %s\n", loc)
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "dir", "backups", "local directory used when no bucket is configured")
	cmd.Flags().BoolVar(&local, "local", false, "write locally even when BACKUP_BUCKET is set")
	return cmd
}
