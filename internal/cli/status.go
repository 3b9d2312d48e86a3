package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/config"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/domain"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/infra/storage/postgres"
)

var statusCmd = &cobra.Command{
	Use:   "status [operation] [limit]",
	Short: "Show recent attempts for an operation (weight_set, stake_sweep, stake_transfer)",
	Args:  cobra.RangeArgs(1, 2),
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	op := domain.OperationKind(args[0])
	limit := 20
	if len(args) == 2 {
		n, err := strconv.Atoi(args[1])
		if err != nil || n <= 0 {
			fmt.Printf("Invalid limit: %s\n", args[1])
			os.Exit(1)
		}
		limit = n
	}

	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.Database.URL == "" {
		slog.Error("No database configured; status requires database.url")
		os.Exit(1)
	}

	ctx := context.Background()
	db, err := postgres.NewDB(ctx, cfg.Database)
	if err != nil {
		slog.Error("Failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer func() {
		_ = db.Close()
	}()

	repo := postgres.NewAttemptRepo(db)
	attempts, err := repo.ListRecent(ctx, op, limit)
	if err != nil {
		slog.Error("Failed to list attempts", "error", err)
		os.Exit(1)
	}

	failures, err := repo.CountFailuresSince(ctx, op, time.Now().Add(-24*time.Hour))
	if err == nil {
		fmt.Printf("Non-benign failures in the last 24h: %d\n\n", failures)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.Debug)
	_, _ = fmt.Fprintln(w, "TIME\tNETWORK\tRESULT\tCLASS\tMESSAGE")

	for _, a := range attempts {
		result := "ok"
		if !a.Success {
			result = "failed"
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			a.CreatedAt.Format(time.RFC3339), a.Network, result, a.Class, a.Message)
	}
	_ = w.Flush()
}
