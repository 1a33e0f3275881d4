package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/vietddude/rngkeeper/internal/core/config"
)

var awardCmd = &cobra.Command{
	Use:   "award",
	Short: "Run one award cycle: price gate, start awards, fulfill requests, complete awards",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(awards, func(ctx context.Context, rt *runtime) error {
			report, err := rt.orchestrator().Run(ctx)
			if report != nil && report.Skipped {
				slog.Warn("Award cycle skipped", "run_id", report.RunID, "reason", report.SkipReason)
			}
			return err
		})
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Fulfill every outstanding randomness request",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(submits, func(ctx context.Context, rt *runtime) error {
			scan, err := rt.scanner.Discover(ctx, rt.env.DeployBlock)
			if err != nil {
				return err
			}
			if len(scan.Pending) == 0 {
				slog.Info("No outstanding requests")
				return nil
			}
			_, err = rt.poller.FulfillAll(ctx, scan.Pending, rt.env.Params)
			return err
		})
	},
}

var requestCmd = &cobra.Command{
	Use:   "request",
	Short: "Request a random number and fulfill it",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(submits, func(ctx context.Context, rt *runtime) error {
			_, _, err := rt.poller.RequestAndFulfill(ctx, rt.env.Params, rt.network.RequestGasLimit)
			return err
		})
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show outstanding requests, strategy readiness and gas price",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(readOnly, func(ctx context.Context, rt *runtime) error {
			st, err := collectStatus(ctx, rt.env, rt.scanner, rt.network.MaxGasPrice)
			if err != nil {
				return err
			}
			return st.Print(os.Stdout)
		})
	},
}

var requestersCmd = &cobra.Command{
	Use:   "requesters",
	Short: "Manage the oracle's allowed requesters",
}

var requestersAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Allow the configured prize strategies to request randomness",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(submits, func(ctx context.Context, rt *runtime) error {
			if len(rt.network.PrizeStrategies) == 0 {
				return fmt.Errorf("networks.%s.prize_strategy_addresses is empty", rt.network.Name)
			}
			return addRequesters(ctx, rt.oracle, rt.guard, rt.network.PrizeStrategies, rt.env.Params)
		})
	},
}

var requestersRemoveCmd = &cobra.Command{
	Use:   "remove",
	Short: "Revoke the configured remove_requesters",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(submits, func(ctx context.Context, rt *runtime) error {
			if len(rt.network.RemoveRequesters) == 0 {
				return fmt.Errorf("networks.%s.remove_requesters is empty", rt.network.Name)
			}
			return removeRequesters(ctx, rt.oracle, rt.guard, rt.network.RemoveRequesters, rt.env.Params)
		})
	},
}

var setMaxFeeCmd = &cobra.Command{
	Use:   "set-max-fee [amount]",
	Short: "Set the oracle's max fee (defaults to max_rng_fee, e.g. \"0.01 ether\")",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(submits, func(ctx context.Context, rt *runtime) error {
			fee := rt.network.MaxRngFee
			if len(args) == 1 {
				parsed, err := config.ParseWei(args[0])
				if err != nil {
					return err
				}
				fee = parsed
			}
			if fee == nil {
				return fmt.Errorf("networks.%s.max_rng_fee is required", rt.network.Name)
			}
			return setMaxFee(ctx, rt.oracle, rt.guard, fee, rt.env.Params)
		})
	},
}

var setRequestParametersCmd = &cobra.Command{
	Use:   "set-request-parameters",
	Short: "Set the witnessing parameters of the oracle's Witnet randomness request",
	Long: `Reads the request template from RngWitnet.witnetRandomnessRequest() and sets
its witnessing parameters from networks.<name>.witnessing. Unset fields default
to collateral 10 WIT, reward 0.1 WIT, unitary fee 0.001 WIT, 8 witnesses and 51% consensus.`,
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		runOneShot(submits, func(ctx context.Context, rt *runtime) error {
			return setRequestParameters(ctx, rt.oracle, rt.witnetRequest, rt.guard, rt.network.Witnessing, rt.env.Params)
		})
	},
}

func init() {
	requestersCmd.AddCommand(requestersAddCmd, requestersRemoveCmd)
	rootCmd.AddCommand(awardCmd, fetchCmd, requestCmd, statusCmd, requestersCmd, setMaxFeeCmd, setRequestParametersCmd)
}
