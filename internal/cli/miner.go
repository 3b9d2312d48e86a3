package cli

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/control"
	"github.com/jbonilla-tao/sn35-vali-burn/internal/core/config"
)

var noInitialTransfer bool

var minerCmd = &cobra.Command{
	Use:   "miner",
	Short: "Run the stake-sweeping miner",
	Long:  `Sweeps all stake from the wallet's primary hotkey to the aggregator hotkey on every epoch boundary and transfers the aggregated stake to the destination coldkey.`,
	Run: func(cmd *cobra.Command, args []string) {
		runApp(func(ctx context.Context, cfg *config.AppConfig, log *slog.Logger) (*control.App, error) {
			if noInitialTransfer {
				cfg.Miner.NoInitialTransfer = true
			}
			return control.NewMinerApp(ctx, cfg, log)
		})
	},
}

func init() {
	minerCmd.Flags().BoolVar(&noInitialTransfer, "no-initial-transfer", false,
		"skip the catch-up stake transfer at startup")
	rootCmd.AddCommand(minerCmd)
}
