package cli

import (
	"github.com/spf13/cobra"

	"github.com/jbonilla-tao/sn35-vali-burn/internal/control"
)

var validatorCmd = &cobra.Command{
	Use:   "validator",
	Short: "Run the burn-weight validator",
	Long:  `Keeps the subnet's full weight on the burn UID, re-submitting on a fixed block interval with endpoint failover and failure alerting.`,
	Run: func(cmd *cobra.Command, args []string) {
		runApp(control.NewValidatorApp)
	},
}

func init() {
	rootCmd.AddCommand(validatorCmd)
}
