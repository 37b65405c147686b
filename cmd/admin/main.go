// Package main is outings-admin, the operator CLI for inspecting and maintaining the database.
package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/planmyoutings/backend/config"
	"github.com/planmyoutings/backend/pkg/database"
)

var Version = "dev"

// app holds what subcommands share. It is filled by the root PersistentPreRunE.
type app struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	logger *zap.Logger
}

func main() {
	if err := newRootCmd(&app{}).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "outings-admin",
		Short:         "Operator tools for the outing planner database",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.connect(cmd.Context())
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			a.close()
		},
	}

	rootCmd.AddCommand(usersCmd(a))
	rootCmd.AddCommand(groupsCmd(a))
	rootCmd.AddCommand(statsCmd(a))
	rootCmd.AddCommand(dbCmd(a))
	rootCmd.AddCommand(emailsCmd(a))

	return rootCmd
}

func (a *app) connect(ctx context.Context) error {
	if a.pool != nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	a.logger = newLogger()
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	dbCfg := cfg.Database
	dbCfg.MaxConns, dbCfg.MinConns = 2, 0
	pool, err := database.NewPostgresPool(ctx, dbCfg, a.logger)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	a.pool = pool
	return nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
	if a.logger != nil {
		_ = a.logger.Sync()
	}
}

// confirm asks for "yes" on in unless assumeYes is set.
func confirm(in io.Reader, out io.Writer, prompt string, assumeYes bool) bool {
	if assumeYes {
		return true
	}
	fmt.Fprintf(out, "%s Type 'yes' to continue: ", prompt)
	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && line == "" {
		return false
	}
	return strings.EqualFold(strings.TrimSpace(line), "yes")
}

func newTable(out io.Writer, headers ...string) *tabwriter.Writer {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, strings.Join(headers, "\t"))
	return w
}

func row(w io.Writer, cols ...any) {
	parts := make([]string, len(cols))
	for i, c := range cols {
		parts[i] = fmt.Sprint(c)
	}
	fmt.Fprintln(w, strings.Join(parts, "\t"))
}

func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.Level = zap.NewAtomicLevelAt(zapcore.WarnLevel)
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
